package api

import (
	"net/http"

	"studio-backend/internal/apperror"
)

// HTTPError is a transport-level failure raised before a request reaches a
// service, such as an undecodable body or an unsupported method.
type HTTPError struct {
	StatusCode int
	Message    string
	ErrorLog   error
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.ErrorLog
}

func (e *HTTPError) code() apperror.Code {
	switch e.StatusCode {
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusBadRequest:
		return apperror.CodeValidation
	default:
		return apperror.Code(http.StatusText(e.StatusCode))
	}
}

func BadRequest(message string, err error) *HTTPError {
	return &HTTPError{StatusCode: http.StatusBadRequest, Message: message, ErrorLog: err}
}

func MethodNotAllowed() *HTTPError {
	return &HTTPError{StatusCode: http.StatusMethodNotAllowed, Message: "Method not allowed."}
}
