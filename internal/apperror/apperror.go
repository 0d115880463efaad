package apperror

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeValidation           Code = "validation_error"
	CodeUnauthorized         Code = "unauthorized"
	CodePermissionDenied     Code = "permission_denied"
	CodeInvalidOrExpiredCode Code = "invalid_or_expired_code"
	CodeTenantMismatch       Code = "tenant_mismatch"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeInternal             Code = "internal_error"
)

// InvalidCodeMessage is the only message a failed login attempt ever sees.
const InvalidCodeMessage = "invalid or expired code"

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, message)
}

func PermissionDenied(message string) *Error {
	return New(CodePermissionDenied, message)
}

func InvalidOrExpiredCode(err error) *Error {
	return Wrap(CodeInvalidOrExpiredCode, InvalidCodeMessage, err)
}

func TenantMismatch(message string) *Error {
	return New(CodeTenantMismatch, message)
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

func Internal(message string, err error) *Error {
	return Wrap(CodeInternal, message, err)
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeInvalidOrExpiredCode:
		return http.StatusUnauthorized
	case CodePermissionDenied, CodeTenantMismatch:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON envelope of every failed request.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    Code   `json:"code"`
}

// Render maps err to its HTTP status and envelope. Internal failures never
// expose their message.
func Render(err error) (int, ErrorBody) {
	code := CodeOf(err)
	body := ErrorBody{Error: "internal server error", Code: code}
	var appErr *Error
	if errors.As(err, &appErr) && code != CodeInternal {
		body.Error = appErr.Message
	}
	return HTTPStatus(code), body
}
