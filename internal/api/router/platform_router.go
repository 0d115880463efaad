package router

import (
	"net/http"
	"strings"

	"studio-backend/internal/api"
	"studio-backend/internal/api/endpoints"
	"studio-backend/internal/api/middleware"
)

func PlatformRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		platform := endpoints.NewPlatformEndpoints(s.Services().Impersonation)
		auth := []middleware.Middleware{s.Authenticated(), middleware.RequirePlatform()}

		mux.HandleFunc(base+"/platform/impersonations", s.MakeHTTPHandleFunc(platform.Impersonations, auth...))
		mux.HandleFunc(base+"/platform/audit", s.MakeHTTPHandleFunc(platform.Audit, auth...))
	}
}
