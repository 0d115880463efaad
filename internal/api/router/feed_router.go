package router

import (
	"net/http"
	"strings"

	"studio-backend/internal/api"
	"studio-backend/internal/api/endpoints"
)

// FeedRoutes authenticates inside the endpoint since browsers cannot set
// headers on a websocket upgrade.
func FeedRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		feed := endpoints.NewFeedEndpoints(s.Services().Sessions, s.Services().Feed)
		mux.HandleFunc(strings.TrimRight(prefix, "/")+"/audit", s.MakeHTTPHandleFunc(feed.AuditFeed))
	}
}
