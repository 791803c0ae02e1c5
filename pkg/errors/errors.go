package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeMethodNotAllowed   Code = "METHOD_NOT_ALLOWED"
	CodeConflict           Code = "CONFLICT"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit          Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code surfaces over HTTP. UserFacing codes expose the
// error's own message; the rest fall back to PublicMessage.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	UserFacing     bool
	PublicMessage  string
	DetailsAllowed bool
}

// Fields: status, retryable, user facing, public message, details allowed.
var metadataByCode = map[Code]Metadata{
	CodeValidation:         {http.StatusBadRequest, false, true, "validation failed", true},
	CodeFailedPrecondition: {http.StatusBadRequest, false, true, "precondition failed", false},
	CodeUnauthorized:       {http.StatusUnauthorized, false, true, "authentication required", false},
	CodeForbidden:          {http.StatusForbidden, false, true, "access denied", false},
	CodeNotFound:           {http.StatusNotFound, false, true, "resource not found", false},
	CodeMethodNotAllowed:   {http.StatusMethodNotAllowed, false, true, "method not allowed", false},
	CodeConflict:           {http.StatusConflict, false, true, "conflict detected", true},
	CodeIdempotency:        {http.StatusConflict, false, true, "idempotency key reused", true},
	CodeRateLimit:          {http.StatusTooManyRequests, true, true, "rate limit exceeded", false},
	CodeInternal:           {http.StatusInternalServerError, true, false, "internal server error", false},
	CodeDependency:         {http.StatusInternalServerError, true, true, "upstream dependency failed", false},
}

// Metadata returns how c surfaces over HTTP. Unknown codes are treated as
// internal errors.
func (c Code) Metadata() Metadata {
	if meta, ok := metadataByCode[c]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails returns a copy of e carrying details, leaving e untouched so
// package-level sentinels can be decorated safely.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	out := *e
	out.details = details
	return &out
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given typed code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
