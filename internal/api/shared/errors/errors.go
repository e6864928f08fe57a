package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is the machine readable part of an API error body
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeValidationFailed ErrorCode = "validation_failed"

	// Server errors (5xx)
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeDatabaseError ErrorCode = "database_error"
	// stored pool or user state that the reward engine rejects
	ErrCodeAccountingError ErrorCode = "accounting_error"
)

var statusByCode = map[ErrorCode]int{
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeValidationFailed: http.StatusBadRequest,
	ErrCodeInternalError:    http.StatusInternalServerError,
	ErrCodeDatabaseError:    http.StatusInternalServerError,
	ErrCodeAccountingError:  http.StatusInternalServerError,
}

// HTTPStatus returns the response status for the code. Unknown codes map to 500.
func (c ErrorCode) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// APIError is the body of every non-2xx response
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
}

// New builds an APIError, joining details with ", "
func New(code ErrorCode, message string, details ...string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

// NewDatabaseError reports a failed store read, e.g. NewDatabaseError("get pool", err)
func NewDatabaseError(op string, err error) *APIError {
	return New(ErrCodeDatabaseError, "Failed to "+op, err.Error())
}

func NewAccountingError(op string, err error) *APIError {
	return New(ErrCodeAccountingError, "Failed to "+op, err.Error())
}
