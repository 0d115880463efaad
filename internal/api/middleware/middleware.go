package middleware

import (
	"encoding/json"
	"net/http"

	"studio-backend/internal/apperror"
)

type Middleware func(http.HandlerFunc) http.HandlerFunc

// Chain wraps f so that the first middleware runs outermost.
func Chain(f http.HandlerFunc, middlewares ...Middleware) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		f = middlewares[i](f)
	}
	return f
}

// WriteError renders err as the standard error envelope.
func WriteError(w http.ResponseWriter, err error) {
	status, body := apperror.Render(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
