package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"wedding/internal/app"
	"wedding/internal/attempts"
	"wedding/internal/config"
	"wedding/internal/logging"
)

// Worker drains login attempts from the queue into the attempts table.
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.Component(logging.New(cfg.LogLevel, cfg.LogFormat), "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend != config.BackendRedis {
		log.Warn().Msg("QUEUE_BACKEND is not redis; the API drains its own in-memory queue and this worker will see nothing")
	}

	a, err := app.Open(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	log.Info().Str("queue", cfg.QueueKey).Msg("worker started, waiting for attempts")
	if err := run(ctx, a, log); err != nil {
		log.Error().Err(err).Msg("drain failed")
	}
	log.Info().Msg("worker stopped")
}

// run drains attempts until ctx is cancelled.
func run(ctx context.Context, a *app.App, log zerolog.Logger) error {
	return attempts.Drain(ctx, a.Queue, a.Attempts, log)
}
