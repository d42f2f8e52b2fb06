package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors covering the scheduling engine taxonomy.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrAlreadyExists      = New("ALREADY_EXISTS", http.StatusConflict, "resource already exists")
	ErrAlreadyAssigned    = New("ALREADY_ASSIGNED", http.StatusConflict, "course already assigned")
	ErrAlreadyTerminal    = New("ALREADY_TERMINAL", http.StatusConflict, "request already reviewed")
	ErrNotInSchedule      = New("NOT_IN_SCHEDULE", http.StatusBadRequest, "course is not in the schedule")
	ErrPeriodConflict     = New("PERIOD_CONFLICT", http.StatusConflict, "courses share a period")
	ErrCapacityExceeded   = New("CAPACITY_EXCEEDED", http.StatusConflict, "course is at capacity")
	ErrLoadExceeded       = New("LOAD_EXCEEDED", http.StatusConflict, "schedule exceeds maximum course load")
	ErrUnresolvedConflict = New("UNRESOLVED_CONFLICTS", http.StatusConflict, "request has unresolved conflicts")
	ErrTxConflict         = New("TRANSACTION_CONFLICT", http.StatusConflict, "concurrent modification, retry the operation")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
