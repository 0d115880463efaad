package router

import (
	"net/http"

	"studio-backend/internal/api"
	"studio-backend/internal/api/endpoints"
)

func AuthRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		authEndpoints := endpoints.NewAuthEndpoints(s.Services().Sessions)
		mux.HandleFunc(prefix+"/auth/workspaces", s.MakeHTTPHandleFunc(authEndpoints.Workspaces))
		mux.HandleFunc(prefix+"/auth/code", s.MakeHTTPHandleFunc(authEndpoints.RequestCode))
		mux.HandleFunc(prefix+"/auth/redeem", s.MakeHTTPHandleFunc(authEndpoints.Redeem))
		mux.HandleFunc(prefix+"/auth/refresh", s.MakeHTTPHandleFunc(authEndpoints.Refresh))
		mux.HandleFunc(prefix+"/auth/logout", s.MakeHTTPHandleFunc(authEndpoints.Logout))
		mux.HandleFunc(prefix+"/auth/me", s.MakeHTTPHandleFunc(authEndpoints.Me, s.Authenticated()))
	}
}
