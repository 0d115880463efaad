package router

import (
	"net/http"
	"strings"

	"studio-backend/internal/api"
	"studio-backend/internal/api/endpoints"
	"studio-backend/internal/api/middleware"
	"studio-backend/internal/permission"
)

func TenantRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		tenantEndpoints := endpoints.NewTenantEndpoints(s.Services().Tenants, endpoints.TenantPaths{
			IntegrationsPrefix: base + "/tenant/integrations/",
		})
		auth := []middleware.Middleware{s.Authenticated(), middleware.RequireTenant()}

		mux.HandleFunc(base+"/tenants", s.MakeHTTPHandleFunc(tenantEndpoints.Signup))
		mux.HandleFunc(base+"/tenant", s.MakeHTTPHandleFunc(tenantEndpoints.Tenant, auth...))
		mux.HandleFunc(base+"/tenant/branding", s.MakeHTTPHandleFunc(tenantEndpoints.Branding,
			append(auth, middleware.RequireCapability(permission.ManageSettings))...))
		mux.HandleFunc(base+"/tenant/integrations/", s.MakeHTTPHandleFunc(tenantEndpoints.Integration,
			append(auth, middleware.RequireCapability(permission.ManageIntegrations))...))
	}
}
