package cli

import (
	"github.com/meetai/meetai/internal/config"
	"github.com/meetai/meetai/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	serverURL string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meetai",
		Short: "Meet.AI: AI agents that join your meetings",
		Long:  "Meet.AI runs the agents and meetings backend (meetai serve) and manages your agents and meetings from the terminal.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "warn"
			}
			log = logging.New(nil, level)
			input = newPrompter(cmd.InOrStdin())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.meetai/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")
	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (default from client.baseUrl)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSignUpCmd())
	cmd.AddCommand(newSignInCmd())
	cmd.AddCommand(newSignOutCmd())
	cmd.AddCommand(newWhoAmICmd())
	cmd.AddCommand(newPasswordStrengthCmd())
	cmd.AddCommand(newAgentsCmd())
	cmd.AddCommand(newMeetingsCmd())
	cmd.AddCommand(newUsageCmd())
	cmd.AddCommand(newUpgradeCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newMCPCmd())

	return cmd
}

// Execute runs the root command and prints any error it returns.
func Execute() error {
	cmd := newRootCmd()
	err := cmd.Execute()
	if err != nil {
		printError(cmd.ErrOrStderr(), err)
	}
	return err
}
