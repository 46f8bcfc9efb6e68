package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/meetai/meetai/internal/config"
	"github.com/meetai/meetai/internal/filter"
	"github.com/meetai/meetai/internal/version"
	"github.com/spf13/cobra"
)

const statusTimeout = 3 * time.Second

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Meet.AI status and configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Meet.AI %s\n\n", version.Short())

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:  not found (using defaults)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}

			fmt.Fprintf(out, "Server:  port=%d bind=%s tls=%v\n", cfg.Server.Port, cfg.Server.Bind, cfg.Server.TLS.Enabled)
			fmt.Fprintf(out, "DB:      %s\n", paths.DatabasePath(&cfg))
			fmt.Fprintf(out, "Plans:   agents=%d meetings=%d (free)\n", cfg.Plans.MaxFreeAgents, cfg.Plans.MaxFreeMeetings)
			fmt.Fprintf(out, "Lists:   pageSize=%d max=%d\n", filter.DefaultPageSize, cfg.Lists.MaxPageSize)
			if cfg.Billing.CheckoutURL != "" {
				fmt.Fprintf(out, "Billing: %d product(s), webhook=%v\n", len(cfg.Billing.Products), cfg.Billing.WebhookSecret != "")
			} else {
				fmt.Fprintln(out, "Billing: (not configured)")
			}

			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
			defer cancel()

			if err := s.api.Health(ctx); err != nil {
				fmt.Fprintf(out, "Client:  %s (unreachable)\n", s.server)
			} else {
				fmt.Fprintf(out, "Client:  %s (ok)\n", s.server)
				if s.api.Token() == "" {
					fmt.Fprintln(out, "User:    (signed out)")
				} else if u, err := s.api.Session(ctx); err != nil {
					fmt.Fprintf(out, "User:    %s\n", err)
				} else {
					fmt.Fprintf(out, "User:    %s <%s>\n", u.Name, u.Email)
				}
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}
			return nil
		},
	}

	return cmd
}
