package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mymr-ai/mymr/api"
	"github.com/mymr-ai/mymr/internal/app"
	"github.com/mymr-ai/mymr/internal/config"
)

// runServe initializes and starts the HTTP API server, blocking until
// SIGINT or SIGTERM.
func runServe(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr, err := parseServeAddr(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting mymr", "version", AppVersion, "model", cfg.FullModelName())

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	srv := api.NewServer(a.DBPool, a.Chat, a.Memory, a.Documents, logger)
	return srv.Run(ctx, addr)
}
