package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"wedding/internal/app"
	"wedding/internal/attempts"
	"wedding/internal/config"
	"wedding/internal/handler"
	"wedding/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log, app.Options{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.AdminToken == "" {
		log.Warn().Msg("ADMIN_TOKEN not set, admin routes are disabled")
	}

	// With the in-memory queue nothing else can consume attempts, so drain in-process.
	if cfg.QueueBackend == config.BackendMemory {
		go func() {
			if err := attempts.Drain(ctx, a.Queue, a.Attempts, logging.Component(log, "attempts")); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("attempt drain stopped")
			}
		}()
	}

	srv := newServer(cfg, a)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
	}
	log.Info().Msg("server exited")
	return nil
}

// newServer builds the HTTP server over the wired app.
func newServer(cfg config.App, a *app.App) *http.Server {
	r := handler.NewRouter(a.Handler(), handler.RouterConfig{
		AdminToken:          cfg.AdminToken,
		CORSOrigins:         cfg.CORSOrigins,
		RateLimitPerMin:     cfg.RateLimitPerMin,
		AuthRateLimitPerMin: cfg.AuthRateLimitPerMin,
		Gatherer:            prometheus.DefaultGatherer,
	})
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
