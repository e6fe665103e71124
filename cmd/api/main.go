// Command api runs the MeetPoint HTTP API: schedule and user management
// plus the webhook subscription registry and the outbound dispatch
// pipeline that fans domain events out to subscribers.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"meetpoint/internal/api/handlers"
	"meetpoint/internal/auth"
	"meetpoint/internal/config"
	"meetpoint/internal/core"
	"meetpoint/internal/db"
	"meetpoint/internal/metrics"
	"meetpoint/internal/security"
	"meetpoint/internal/types"
	"meetpoint/internal/webhooks"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on
// error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("meetpoint API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pool, err := db.NewPool(ctx, cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	// Repositories.
	webhookRepo := db.NewWebhookRepository(pool)
	scheduleRepo := db.NewScheduleRepository(pool)
	userRepo := db.NewUserRepository(pool)
	apiKeyRepo := db.NewAPIKeyRepository(pool)

	// Dispatch pipeline: SSRF-guarded HTTP client, signing transport,
	// delivery journal, and the fan-out dispatcher itself.
	mets := metrics.New()
	journal := webhooks.NewDeliveryJournal(cfg.Webhook.JournalSize)
	egressClient := security.NewEgressClient(cfg.Webhook.DeliveryTimeout, cfg.Webhook.MaxRedirects)
	transport := webhooks.NewTransport(egressClient, cfg.Webhook.UserAgent)

	dispatcher := webhooks.NewDispatcher(
		webhookRepo,
		transport,
		&slogAdapter{logger: logger.With("component", "dispatcher")},
		webhooks.WithRecorder(mets),
		webhooks.WithJournal(journal),
		webhooks.WithMaxParallel(cfg.Webhook.MaxParallel),
		webhooks.WithMirrorURL(cfg.Webhook.MirrorURL),
	)

	// HTTP chassis.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = mets
	srv.Authenticator = auth.NewService(apiKeyRepo)
	srv.UseBaseMiddleware()

	webhookHandler := handlers.NewWebhookHandler(webhookRepo, journal, srv.Validator, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleRepo, dispatcher, srv.Validator, logger)
	userHandler := handlers.NewUserHandler(userRepo, dispatcher, srv.Validator, logger)
	healthHandler := handlers.NewHealthHandler(pool)

	router := srv.Router()
	router.Get("/healthz", healthHandler.Healthz)
	router.Method(http.MethodGet, "/metrics", mets.Handler())
	router.Route("/v1", func(r chi.Router) {
		r.Use(srv.RequireAPIKey)
		webhookHandler.RegisterRoutes(r)
		scheduleHandler.RegisterRoutes(r)
		userHandler.RegisterRoutes(r)
	})

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log
// level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)
