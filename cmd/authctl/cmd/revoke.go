package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"social-tippster/backend/internal/app"
)

func newRevokeUserCmd() *cobra.Command {
	var actor string
	c := &cobra.Command{
		Use:   "revoke-user <user-id>",
		Short: "End every active session of a user and revoke their refresh tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.Tracker.RevokeUserSessions(ctx, actor, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked %d sessions for %s\n", n, args[0])
				return nil
			})
		},
	}
	c.Flags().StringVar(&actor, "actor", "authctl", "Admin ID recorded in the audit log")
	return c
}
