// Package server exposes the broker over HTTP: the OAuth 2.0 endpoints,
// OIDC discovery, and the admin registries.
package server

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/flexio/bbauth/auth"
	"github.com/flexio/bbauth/clients"
	"github.com/flexio/bbauth/internal/config"
	"github.com/flexio/bbauth/providers"
	"github.com/flexio/bbauth/ratelimit"
	"github.com/flexio/bbauth/token"
)

// Dependencies wires the server to the service layer.
type Dependencies struct {
	Auth      *auth.AuthorizationService
	Clients   *clients.Registry
	Providers *providers.Registry
	Tokens    *token.Manager

	// Limiter may be nil, which disables rate limiting.
	Limiter *ratelimit.Limiter
}

type Server struct {
	env       string
	mux       *http.ServeMux
	handler   http.Handler
	routes    []string
	config    config.Config
	auth      *auth.AuthorizationService
	clients   *clients.Registry
	providers *providers.Registry
	tokens    *token.Manager
	limiter   *ratelimit.Limiter
	logger    zerolog.Logger
}

func New(cfg config.Config, deps Dependencies, logger zerolog.Logger) *Server {
	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		auth:      deps.Auth,
		clients:   deps.Clients,
		providers: deps.Providers,
		tokens:    deps.Tokens,
		limiter:   deps.Limiter,
		logger:    logger,
	}

	s.initRoutes()
	s.logRoutes()

	s.handler = cors.New(cors.Options{
		AllowedOrigins: cfg.GetAllowedOrigins(),
		AllowedMethods: cfg.GetAllowedMethods(),
		AllowedHeaders: cfg.GetAllowedHeaders(),
		MaxAge:         86400,
	}).Handler(s.mux)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		s.logger.Info().Str("route", route).Msg("registered")
	}
}
