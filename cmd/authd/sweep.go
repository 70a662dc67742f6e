package main

import (
	"github.com/MrEthical07/authcore/internal/app"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired single-use tokens once",
		Long: `Delete expired verification and reset tokens and exit. Redis-backed tokens
expire natively, so the count is 0 for that backend.`,
		RunE: runSweep,
	}
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger := app.NewLogger(cfg, cmd.ErrOrStderr())

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("operation", "build app").Wrap(err)
	}
	defer a.Close()

	n, err := a.Engine.SweepExpiredTokens(cmd.Context())
	if err != nil {
		return oops.Code("SWEEP_FAILED").Wrap(err)
	}
	cmd.Printf("Removed %d expired tokens\n", n)
	return nil
}
