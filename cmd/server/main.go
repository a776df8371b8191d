package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "consolerent-backend/internal/api/http"
	"consolerent-backend/internal/bootstrap"
	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/config"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/security"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting console rental engine...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Engine configuration",
		"store", cfg.Engine.Store,
		"soft_lock_store", cfg.Engine.SoftLockStore,
		"soft_lock_ttl", cfg.Engine.SoftLockTTL,
		"auto_confirm", cfg.Engine.AutoConfirm,
		"dispatcher", cfg.Notifications.Dispatcher,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	rt, err := bootstrap.Build(ctx, cfg, m, clock.NewSystem())
	if err != nil {
		logger.Error("Failed to initialize engine", "error", err)
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("Failed to close connections", "error", err)
		}
	}()

	verifier := security.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	var health httpapi.HealthChecker
	if rt.Health != nil {
		health = rt.Health
	}
	router := httpapi.NewRouter(rt.Engine, verifier, m, health)

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped. Goodbye!")
}
