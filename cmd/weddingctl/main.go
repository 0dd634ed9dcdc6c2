package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wedding/internal/app"
	"wedding/internal/auth"
	"wedding/internal/cli"
	"wedding/internal/config"
	"wedding/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(open)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}

// open wires the app with sessions kept on disk and attempts written synchronously.
func open(ctx context.Context, opts *cli.RootOptions) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	log := logging.NewWithWriter(os.Stderr, level, "console")
	return app.Open(ctx, cfg, log, app.Options{
		Sessions:       auth.NewFileSessions(cfg.SessionDir),
		DirectAttempts: true,
	})
}
