package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/authcore/internal/app"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewWorkerCmd creates the worker subcommand.
func NewWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Deliver queued emails",
		Long: `Process mail:send tasks enqueued by the API when NOTIFIER=queue and send them
through the configured SMTP relay.`,
		RunE: runWorker,
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger := app.NewLogger(cfg, cmd.OutOrStdout())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := app.NewWorker(cfg, logger)
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("operation", "build worker").Wrap(err)
	}

	logger.Info("email worker starting", "redis", cfg.RedisAddr, "concurrency", cfg.WorkerConcurrency)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return oops.Code("WORKER_FAILED").Wrap(err)
	}
	return nil
}
