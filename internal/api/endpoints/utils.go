package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"studio-backend/internal/api"
	"studio-backend/internal/apperror"
	"studio-backend/internal/identity"
)

const maxBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return api.MethodNotAllowed()
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return api.BadRequest("Invalid request payload", fmt.Errorf("decode %s %s: %w", r.Method, r.URL.Path, err))
	}
	return nil
}

// sessionFrom returns the session stored by the authentication middleware.
func sessionFrom(r *http.Request) (*identity.Session, error) {
	sess, ok := identity.FromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("authentication required")
	}
	return sess, nil
}

// pathID returns the single path segment after prefix, or "" when the path
// has none or has more than one.
func pathID(r *http.Request, prefix string) string {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == r.URL.Path {
		return ""
	}
	rest = strings.Trim(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

func requirePathID(r *http.Request, prefix, name string) (string, error) {
	id := pathID(r, prefix)
	if id == "" {
		return "", apperror.NotFound(name + " not found")
	}
	return id, nil
}
