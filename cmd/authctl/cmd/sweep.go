package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"social-tippster/backend/internal/app"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "End sessions whose refresh token expired or that exceeded the max age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.Tracker.SweepExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "swept %d sessions\n", n)
				return nil
			})
		},
	}
}
