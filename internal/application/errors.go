package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hoangtle/renthub-settlement/internal/domain"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(detail string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    detail,
		HTTPStatus: http.StatusBadRequest,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// ToHTTPStatus maps domain and service errors onto response codes.
func ToHTTPStatus(err error) int {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodeConfiguration:
			return http.StatusInternalServerError
		case domain.ErrCodeInvalidState, domain.ErrCodeInvalidTransition:
			return http.StatusConflict
		case domain.ErrCodeInvoiceNotFound, domain.ErrCodePaymentNotFound:
			return http.StatusNotFound
		case domain.ErrCodeUpstreamUnavailable:
			return http.StatusBadGateway
		case domain.ErrCodeValidation:
			return http.StatusBadRequest
		}
	}

	return http.StatusInternalServerError
}

// ToErrorCode extracts the machine-readable code for the response envelope.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	return ErrCodeInternal
}
