// Package main is the entry point for the Sigil server.
// Sigil serves the admin session API and the object store health check.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/prn-tf/sigil/internal/config"
	"github.com/prn-tf/sigil/internal/handler"
	"github.com/prn-tf/sigil/internal/lock"
	"github.com/prn-tf/sigil/internal/pkg/logging"
	"github.com/prn-tf/sigil/internal/service"
	"github.com/prn-tf/sigil/internal/session"
	"github.com/prn-tf/sigil/internal/sigv4"
	"github.com/prn-tf/sigil/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sigil-server: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, os.Stderr)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("mode", cfg.Server.Mode).
		Msg("Starting Sigil server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session
	if cfg.Auth.AdminPassword == "" {
		logger.Warn().Msg("ADMIN_PASSWORD is not set; admin login is disabled")
	}
	sessionService := service.NewSessionService(
		session.NewVerifier(cfg.Auth.AdminPassword),
		session.NewCodec(cfg.Auth.AdminPassword, logger),
		logger,
	)

	// Object store
	store := storage.NewClient(
		sigv4.NewSigner(cfg.R2),
		logger,
		storage.WithHTTPClient(&http.Client{Timeout: storage.DefaultRequestTimeout}),
	)
	if err := store.Ready(); err != nil {
		logger.Warn().Err(err).Msg("r2 is not configured; the storage health check will fail")
	}

	// Locking
	var locker lock.Locker = lock.NewMemoryLocker()
	if cfg.Redis.Enabled {
		client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.DialTimeout)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client)
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("using redis locks")
	}

	diagnosticService := service.NewDiagnosticService(store, locker, cfg.R2.DiagnosticPrefix, logger)

	router := handler.NewRouter(handler.RouterConfig{
		SessionHandler:    handler.NewSessionHandler(sessionService, cfg.Server.IsProduction(), logger),
		DiagnosticHandler: handler.NewDiagnosticHandler(diagnosticService, logger),
		SessionService:    sessionService,
		LoginLimiter:      handler.NewRateLimiter(rate.Limit(cfg.Auth.LoginRate), cfg.Auth.LoginBurst),
		Logger:            logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", metricsSrv.Addr).Str("path", cfg.Metrics.Path).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down server...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("Server stopped")
	return nil
}
