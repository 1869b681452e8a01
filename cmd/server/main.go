// Package main is the entry point for the eventhub API server.
//
// The main package is kept minimal. Its job is to:
// 1. Read configuration (environment variables, optionally a .env file)
// 2. Create the logger
// 3. Start the server and stop it on SIGINT/SIGTERM
//
// All actual logic lives in internal/ packages. Operator tasks (migrations,
// demo data, promoting admins) live in cmd/eventctl.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/eventhub/internal/config"
	"github.com/sakif/eventhub/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Load reports every invalid variable at once. The logger does not
	// exist yet, so a bootstrap text logger prints the failure.
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text for local development, JSON (LOG_FORMAT=json) for log shippers.
	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	// === 3. SIGNAL HANDLING ===
	// ctx is cancelled on Ctrl+C or `docker stop`; Start then drains
	// in-flight requests and closes the store.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.Any("error", err))
		os.Exit(1)
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}
