// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-dashboard/internal/auth"
	"github.com/vyrodovalexey/inventory-dashboard/internal/config"
	"github.com/vyrodovalexey/inventory-dashboard/internal/handler"
	"github.com/vyrodovalexey/inventory-dashboard/internal/middleware"
	"github.com/vyrodovalexey/inventory-dashboard/internal/store"
)

// MaxRequestBodySize caps the size of request bodies.
const MaxRequestBodySize = 1 << 20

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
	registry   *prometheus.Registry
	config     *config.Config
	logger     *zap.Logger
	wsHandler  *handler.WebSocketHandler
	origins    *middleware.OriginPolicy
}

// New creates a new Server instance serving itemStore. A nil authenticator
// leaves mutating requests open.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	itemStore store.Store,
	authenticator auth.Authenticator,
) (*Server, error) {
	locale, err := cfg.Locale()
	if err != nil {
		return nil, fmt.Errorf("server locale: %w", err)
	}

	s := &Server{
		router:   mux.NewRouter(),
		registry: prometheus.NewRegistry(),
		config:   cfg,
		logger:   logger,
		origins:  middleware.NewOriginPolicy(cfg.CORSAllowedOrigins),
	}

	if err := s.registry.Register(store.NewCollector(itemStore)); err != nil {
		return nil, fmt.Errorf("register inventory collector: %w", err)
	}

	s.setupMiddleware(authenticator)
	s.setupRoutes(itemStore, store.NewQuerier(locale))
	s.setupHTTPServer()

	return s, nil
}

// setupMiddleware configures the middleware chain. Middleware that must
// see unmatched routes and CORS preflight wraps the router; the rest runs
// on matched routes only so metrics can label by route template.
func (s *Server) setupMiddleware(authenticator auth.Authenticator) {
	allowedMethods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowedHeaders := []string{
		"Content-Type",
		"Authorization",
		auth.APIKeyHeader,
		middleware.RequestIDHeader,
	}

	s.handler = middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.CORS(s.origins, allowedMethods, allowedHeaders),
	)(s.router)

	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.MaxBodySize(MaxRequestBodySize)))
	s.router.Use(mux.MiddlewareFunc(middleware.Auth(authenticator, s.logger)))
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes(itemStore store.Store, querier *store.Querier) {
	restHandler := handler.NewRESTHandler(itemStore, querier, s.logger)
	restHandler.RegisterRoutes(s.router)

	s.wsHandler = handler.NewWebSocketHandler(
		itemStore, querier, s.config.WSSendBuffer,
		s.origins.Allows, s.logger,
	)
	s.wsHandler.RegisterRoutes(s.router)

	if s.config.MetricsEnabled {
		gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, s.registry}
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}
}

// setupHTTPServer configures the HTTP server.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server",
		zap.String("address", ln.Addr().String()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	// Dashboard sessions are hijacked and not tracked by http.Server.
	if s.wsHandler != nil {
		s.wsHandler.CloseAllConnections()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ClientCount returns the number of open dashboard sessions.
func (s *Server) ClientCount() int {
	return s.wsHandler.ClientCount()
}
