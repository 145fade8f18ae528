package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"social-tippster/backend/internal/policy/domain"
	"social-tippster/backend/internal/policy/engine"
	userdomain "social-tippster/backend/internal/user/domain"
)

var policyRoles = []string{
	string(userdomain.RoleUser),
	string(userdomain.RoleModerator),
	string(userdomain.RoleAdmin),
}

type policyRow struct {
	Role       string                     `json:"role"`
	RememberMe bool                       `json:"remember_me"`
	Policy     domain.SessionExpiryPolicy `json:"policy"`
}

func newPolicyCmd() *cobra.Command {
	var (
		module     string
		rememberMe bool
		asJSON     bool
	)
	c := &cobra.Command{
		Use:   "policy [role]",
		Short: "Print the session expiry policy the Rego module yields per role",
		Long: `Evaluates the session policy module (built-in unless --module is given) for one role,
or for every role when none is named. --module accepts inline Rego or file:<path>.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := engine.LoadModule(module)
			if err != nil {
				return err
			}
			r, err := engine.NewOPAResolver(cmd.Context(), src)
			if err != nil {
				return err
			}
			roles := policyRoles
			if len(args) == 1 {
				roles = args
			}
			rows := make([]policyRow, 0, len(roles))
			for _, role := range roles {
				rows = append(rows, policyRow{Role: role, RememberMe: rememberMe, Policy: r.Resolve(cmd.Context(), role, rememberMe)})
			}
			return printPolicies(cmd.OutOrStdout(), rows, asJSON)
		},
	}
	c.Flags().StringVar(&module, "module", "", "Rego module override (inline or file:<path>)")
	c.Flags().BoolVar(&rememberMe, "remember-me", false, "Evaluate with remember-me set")
	c.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return c
}

func printPolicies(w io.Writer, rows []policyRow, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	for _, row := range rows {
		p := row.Policy
		fmt.Fprintf(w, "%-10s idle=%dm absolute=%dh remember_me_days=%d level=%s\n",
			row.Role, p.IdleTimeoutMinutes, p.AbsoluteTimeoutHours, p.RememberMeDays, p.SecurityLevel)
	}
	return nil
}
