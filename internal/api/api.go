package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"studio-backend/internal/api/middleware"
	"studio-backend/internal/logger"
	"studio-backend/internal/queue"
	"studio-backend/internal/service/impersonation"
	"studio-backend/internal/service/session"
	"studio-backend/internal/service/tenant"
	"studio-backend/internal/service/workspace"
	"studio-backend/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

// Services are the domain services routes are built from. A server only
// needs the ones its registrars use.
type Services struct {
	Sessions      *session.Service
	Tenants       *tenant.Service
	Workspace     *workspace.Service
	Impersonation *impersonation.Service
	Feed          *websocket.Handler
}

type Options struct {
	ListenAddr     string
	AllowedOrigins []string
	// Registry receives the HTTP collectors. Nil means a fresh registry.
	Registry *prometheus.Registry
}

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	services            Services
	cors                middleware.CORSConfig
	routeRegistrars     []RouteRegistrar
	metrics             *metrics
}

func NewAPIServer(opts Options, rqm *queue.RequestQueueManager, services Services, registrars ...RouteRegistrar) *APIServer {
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	return &APIServer{
		listenAddr:          opts.ListenAddr,
		requestQueueManager: rqm,
		services:            services,
		cors:                middleware.DefaultCORSConfig(opts.AllowedOrigins),
		routeRegistrars:     registrars,
		metrics:             newMetrics(registry, opts.ListenAddr, rqm),
	}
}

// Handler builds the routed and instrumented handler.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())
	return s.metrics.instrument(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.L().Info("server listening", zap.String("addr", s.listenAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.L().Info("server shutting down", zap.String("addr", s.listenAddr))
	return srv.Shutdown(shutdownCtx)
}

func (s *APIServer) Services() Services {
	return s.services
}

// Authenticated returns the middleware that resolves bearer tokens through
// the session service.
func (s *APIServer) Authenticated() middleware.Middleware {
	return middleware.Authenticate(s.services.Sessions)
}
