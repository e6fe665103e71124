// Package core provides the API chassis for the MeetPoint platform: a chi
// router plus the cross-cutting middleware (request IDs, panic recovery,
// logging, metrics, API key auth) applied before requests reach domain
// handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"meetpoint/internal/config"
	"meetpoint/internal/types"
)

// RequestRecorder records API request telemetry. Implemented by the
// metrics package; nil disables recording.
type RequestRecorder interface {
	RecordRequest(method, route, status string, duration time.Duration)
}

// Authenticator resolves a presented API key to an Actor.
type Authenticator interface {
	Authenticate(ctx context.Context, presented string) (types.Actor, error)
}

// Server bundles the router with the dependencies the middleware chain
// needs, allowing injection during testing.
type Server struct {
	Config        *config.Config
	Logger        *slog.Logger
	Validator     *Validator
	Metrics       RequestRecorder
	Authenticator Authenticator

	router *chi.Mux
}

// NewServer initializes the chassis. The caller mounts routes after
// construction; that separation lets tests customize registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// UseBaseMiddleware installs the standard middleware chain. Recoverer is
// outermost so every panic in the chain is caught.
func (s *Server) UseBaseMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestID)
	s.router.Use(SecurityHeaders)
	s.router.Use(RequestLogger(s.Logger))
	s.router.Use(s.MetricsMiddleware)
}
