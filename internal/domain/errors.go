package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeConfiguration       = "CONFIGURATION_ERROR"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeSignatureInvalid    = "SIGNATURE_INVALID"
	ErrCodeInvoiceNotFound     = "INVOICE_NOT_FOUND"
	ErrCodePaymentNotFound     = "PAYMENT_NOT_FOUND"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeValidation          = "VALIDATION_ERROR"
)

// NewConfigurationError signals missing or unusable provider credentials.
// Fatal for the operation, never retried.
func NewConfigurationError(provider, detail string) *DomainError {
	return &DomainError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf("provider %s is not configured: %s", provider, detail),
	}
}

func NewInvalidStateError(detail string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidState,
		Message: detail,
	}
}

func NewInvalidTransitionError(from, to PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition payment from %s to %s", from, to),
	}
}

func NewInvoiceNotFoundError(id int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvoiceNotFound,
		Message: fmt.Sprintf("invoice %d not found", id),
	}
}

func NewPaymentNotFoundError(ref string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotFound,
		Message: fmt.Sprintf("payment %s not found", ref),
	}
}

func NewUpstreamUnavailableError(provider string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeUpstreamUnavailable,
		Message: fmt.Sprintf("provider %s is unavailable", provider),
		Err:     err,
	}
}

func NewValidationError(detail string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: detail,
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
