package errors

import "net/http"

const (
	CodeValidation        = "validation_error"
	CodeInvalidState      = "invalid_state"
	CodeInsufficientFunds = "insufficient_funds"
	CodeStorage           = "storage_error"
	CodeConflict          = "state_conflict"
)

// APIError is the error type every service operation returns. Cause holds the
// underlying failure for logs and is never serialized.
type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Cause   error       `json:"-"`
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, "internal_error", message)
}

// Storage wraps a collaborator failure, keeping the original error.
func Storage(message string, cause error) *APIError {
	if message == "" {
		message = "storage failure"
	}
	err := New(http.StatusInternalServerError, CodeStorage, message)
	err.Cause = cause
	return err
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func Validation(message string) *APIError {
	return BadRequest(CodeValidation, message)
}

func InvalidState(message string) *APIError {
	return BadRequest(CodeInvalidState, message)
}

func InsufficientFunds(balance, price int) *APIError {
	err := BadRequest(CodeInsufficientFunds, "insufficient senacoins")
	err.Details = map[string]int{"balance": balance, "required": price}
	return err
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, "unauthorized", message)
}

func Forbidden(message string) *APIError {
	if message == "" {
		message = "forbidden"
	}
	return New(http.StatusForbidden, "forbidden", message)
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string, details interface{}) *APIError {
	err := New(http.StatusConflict, code, message)
	err.Details = details
	return err
}

func TooManyRequests(message string) *APIError {
	if message == "" {
		message = "too many requests"
	}
	return New(http.StatusTooManyRequests, "rate_limited", message)
}
