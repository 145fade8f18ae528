package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"social-tippster/backend/internal/app"
	"social-tippster/backend/internal/config"
)

// NewRootCmd builds the authctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "authctl",
		Short:        "Operator tools for the tippster auth service",
		SilenceUsage: true,
	}
	root.AddCommand(newSweepCmd(), newRevokeUserCmd(), newPolicyCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp loads config, requires a database and runs fn against the wired App.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set; authctl operates on the shared store only")
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if err := a.Close(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
