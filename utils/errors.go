package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError carries the HTTP status and the message shown to the user. Err
// keeps the cause for logs; it is never rendered.
type AppError struct {
	Code    int
	Message string
	Err     error
	Context map[string]interface{}
}

// NewAppError creates a new AppError
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Context: make(map[string]interface{}),
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	e.Context[key] = value
	return e
}

// Fields is the error as log fields: its context plus status and cause.
func (e *AppError) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(e.Context)+2)
	for k, v := range e.Context {
		fields[k] = v
	}
	fields["status"] = e.Code
	if e.Err != nil {
		fields["cause"] = e.Err.Error()
	}
	return fields
}

// ServerSide reports whether the failure is ours or upstream's rather than
// the client's.
func (e *AppError) ServerSide() bool {
	return e.Code >= http.StatusInternalServerError
}

// AsAppError extracts an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf returns the status an error should be answered with: the code
// of an AppError in the chain, otherwise 500.
func StatusOf(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

func BadRequestError(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, message, err)
}

func UnauthorizedError(message string, err error) *AppError {
	return NewAppError(http.StatusUnauthorized, message, err)
}

func ForbiddenError(message string, err error) *AppError {
	return NewAppError(http.StatusForbidden, message, err)
}

func NotFoundError(message string, err error) *AppError {
	return NewAppError(http.StatusNotFound, message, err)
}

func InternalServerError(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, message, err)
}

// BadGatewayError reports a failed call to the label backend.
func BadGatewayError(message string, err error) *AppError {
	return NewAppError(http.StatusBadGateway, message, err)
}

// GatewayTimeoutError reports a label backend call that ran out of time.
func GatewayTimeoutError(message string, err error) *AppError {
	return NewAppError(http.StatusGatewayTimeout, message, err)
}
