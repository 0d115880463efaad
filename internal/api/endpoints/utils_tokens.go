package endpoints

import (
	"net/http"
	"strings"

	"studio-backend/internal/api/middleware"
)

// ExtractToken reads the bearer token, falling back to the token query
// parameter that browsers use for websocket upgrades.
func ExtractToken(r *http.Request) string {
	if token := middleware.BearerToken(r); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
