package domain

import (
	"errors"
	"net/http"
)

// Error codes carried by AppError. Each maps to one HTTP status.
const (
	CodeNotFound      = 1
	CodeAlreadyExists = 2
	CodeValidation    = 3
	CodeInternal      = 4
	CodeUnauthorized  = 5
	CodeForbidden     = 6
)

var statusByCode = map[int]int{
	CodeNotFound:      http.StatusNotFound,
	CodeAlreadyExists: http.StatusConflict,
	CodeValidation:    http.StatusBadRequest,
	CodeInternal:      http.StatusInternalServerError,
	CodeUnauthorized:  http.StatusUnauthorized,
	CodeForbidden:     http.StatusForbidden,
}

// AppError is a failure the board reports to clients. Message is safe to
// show; Err is the cause and stays in the logs.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

// Generic errors for each code. The Is* helpers compare codes, so an
// ErrNotFound check also matches "ad not found" built with NewAppError.
var (
	ErrNotFound      = NewAppError(CodeNotFound, "not found", nil)
	ErrAlreadyExists = NewAppError(CodeAlreadyExists, "already exists", nil)
	ErrValidation    = NewAppError(CodeValidation, "validation error", nil)
	ErrInternal      = NewAppError(CodeInternal, "internal error", nil)
	ErrUnauthorized  = NewAppError(CodeUnauthorized, "unauthorized", nil)
	ErrForbidden     = NewAppError(CodeForbidden, "forbidden", nil)
)

func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func IsNotFound(err error) bool      { return codeOf(err) == CodeNotFound }
func IsAlreadyExists(err error) bool { return codeOf(err) == CodeAlreadyExists }
func IsValidation(err error) bool    { return codeOf(err) == CodeValidation }
func IsInternal(err error) bool      { return codeOf(err) == CodeInternal }
func IsUnauthorized(err error) bool  { return codeOf(err) == CodeUnauthorized }
func IsForbidden(err error) bool     { return codeOf(err) == CodeForbidden }

// codeOf returns the code of the outermost AppError in err's chain, or 0.
func codeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 0
}

// HTTPStatusCode is the status a handler answers err with. Anything that is
// not an AppError with a known code is a 500.
func HTTPStatusCode(err error) int {
	if status, ok := statusByCode[codeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
