package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error kind independently of its transport status.
type ErrorCode string

const (
	ErrValidation      ErrorCode = "validation_error"
	ErrConflict        ErrorCode = "conflict"
	ErrNotFound        ErrorCode = "not_found"
	ErrUnauthorized    ErrorCode = "unauthorized"
	ErrForbidden       ErrorCode = "forbidden"
	ErrPaymentProvider ErrorCode = "payment_provider_error"
	ErrTimeout         ErrorCode = "timeout"
	ErrTooMany         ErrorCode = "too_many_requests"
	ErrInternal        ErrorCode = "internal_error"
)

// AppError carries a client-safe message, a code and an HTTP status.
type AppError struct {
	err        error
	message    string
	code       ErrorCode
	httpStatus int
	fields     map[string]string
}

// New creates a new AppError with supplied details.
func New(message string, status int, code ErrorCode, err error) *AppError {
	return &AppError{
		err:        err,
		message:    message,
		httpStatus: status,
		code:       code,
	}
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(message string) *AppError {
	return New(message, http.StatusUnauthorized, ErrUnauthorized, nil)
}

// Forbidden reports an authenticated actor without sufficient rights.
func Forbidden(message string) *AppError {
	return New(message, http.StatusForbidden, ErrForbidden, nil)
}

// NotFound reports an absent resource, or one scoped away from the caller.
func NotFound(message string) *AppError {
	return New(message, http.StatusNotFound, ErrNotFound, nil)
}

// Validation reports malformed input. Fields maps input names to messages.
func Validation(message string, fields map[string]string) *AppError {
	return New(message, http.StatusBadRequest, ErrValidation, nil).WithFields(fields)
}

// PaymentProvider wraps a failed call to the external payment processor.
// The processor message is embedded in the client message.
func PaymentProvider(op string, err error) *AppError {
	msg := "payment provider error"
	if op != "" {
		msg = fmt.Sprintf("payment provider error: %s", op)
	}
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Error())
	}
	return New(msg, http.StatusBadRequest, ErrPaymentProvider, err)
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *AppError) Unwrap() error {
	return e.err
}

// Message returns a safe error message for clients.
func (e *AppError) Message() string {
	return e.message
}

// StatusCode returns the HTTP status to use for this error.
func (e *AppError) StatusCode() int {
	return e.httpStatus
}

// Code returns the application level error code.
func (e *AppError) Code() ErrorCode {
	return e.code
}

// WithFields attaches field-level errors to the AppError.
func (e *AppError) WithFields(fields map[string]string) *AppError {
	cp := *e
	cp.fields = fields
	return &cp
}

// Fields returns any field-level errors recorded on the AppError.
func (e *AppError) Fields() map[string]string {
	return e.fields
}

// Is lets errors.Is match two AppErrors by code and message, so package-level
// sentinels keep working after WithFields copies them.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.code == other.code && e.message == other.message
}

// Is reports whether err is an AppError carrying code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.code == code
	}
	return false
}

// Wrap converts a standard error into an AppError if needed.
func Wrap(err error, message string, status int, code ErrorCode) *AppError {
	if err == nil {
		return nil
	}
	if appErr := new(AppError); errors.As(err, &appErr) {
		return appErr
	}
	return New(message, status, code, err)
}
