package checkoutlink

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// SignData computes the provider checksum: HMAC-SHA256 over the key-sorted
// "k=v" pairs joined by &. Values are signed raw, not URL-encoded.
func SignData(data map[string]string, key string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+data[k])
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyData checks a webhook checksum in constant time. It panics on an
// empty key, mirroring the provider SDK; callers are expected to recover.
func VerifyData(data map[string]string, signature, key string) bool {
	if key == "" {
		panic("checkoutlink: checksum key is empty")
	}
	if signature == "" {
		return false
	}

	expected := SignData(data, key)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}
