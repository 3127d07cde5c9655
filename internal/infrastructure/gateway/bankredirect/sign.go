package bankredirect

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

const (
	// ParamSecureHash carries the signature itself and is excluded from the
	// canonical string, as is the optional hash-type hint.
	ParamSecureHash     = "pay_SecureHash"
	ParamSecureHashType = "pay_SecureHashType"
)

// canonicalize builds the provider's signing input: key-sorted, URL-encoded
// k=v pairs joined by &, excluding the signature fields and empty values.
func canonicalize(params url.Values) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		if key == ParamSecureHash || key == ParamSecureHashType {
			continue
		}
		if params.Get(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+url.QueryEscape(params.Get(key)))
	}
	return strings.Join(pairs, "&")
}

// Sign computes the hex-encoded HMAC-SHA512 signature over the canonical
// form of params.
func Sign(params url.Values, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonicalize(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the canonical string from the inbound
// parameters and compares digests in constant time. Any decoding problem is
// a verification failure.
func VerifySignature(params url.Values, secret string) bool {
	provided, err := hex.DecodeString(params.Get(ParamSecureHash))
	if err != nil || len(provided) == 0 {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonicalize(params)))
	return hmac.Equal(mac.Sum(nil), provided)
}
