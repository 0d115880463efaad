package router

import (
	"net/http"
	"strings"

	"studio-backend/internal/api"
	"studio-backend/internal/api/endpoints"
	"studio-backend/internal/api/middleware"
	"studio-backend/internal/permission"
)

func WorkspaceRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		paths := endpoints.WorkspacePaths{
			Clients:  base + "/clients",
			Agents:   base + "/agents",
			Bookings: base + "/bookings",
			Team:     base + "/team",
		}
		ws := endpoints.NewWorkspaceEndpoints(s.Services().Workspace, paths)
		auth := []middleware.Middleware{s.Authenticated(), middleware.RequireTenant()}

		mux.HandleFunc(paths.Clients, s.MakeHTTPHandleFunc(ws.Clients, auth...))
		mux.HandleFunc(paths.Clients+"/", s.MakeHTTPHandleFunc(ws.Client, auth...))
		mux.HandleFunc(paths.Agents, s.MakeHTTPHandleFunc(ws.Agents, auth...))
		mux.HandleFunc(paths.Bookings, s.MakeHTTPHandleFunc(ws.Bookings, auth...))
		mux.HandleFunc(paths.Bookings+"/", s.MakeHTTPHandleFunc(ws.Booking, auth...))
		team := append(auth, middleware.RequireCapability(permission.ManageTeam))
		mux.HandleFunc(paths.Team, s.MakeHTTPHandleFunc(ws.Team, team...))
		mux.HandleFunc(paths.Team+"/", s.MakeHTTPHandleFunc(ws.Member, team...))
	}
}
