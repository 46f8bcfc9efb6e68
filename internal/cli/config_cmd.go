package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/meetai/meetai/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and edit the config file by dotted key",
		Long: "Keys address nested settings, e.g. plans.maxFreeAgents or server.tls.enabled.\n" +
			"A running server picks up saved changes without a restart.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRawConfig(args[0], false, func(raw map[string]any, path []string) error {
					val, ok := config.GetValueAtPath(raw, path)
					if !ok {
						return missingKey(args[0])
					}
					return printValue(cmd.OutOrStdout(), val)
				})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				value := parseValue(args[1])
				return withRawConfig(args[0], true, func(raw map[string]any, path []string) error {
					config.SetValueAtPath(raw, path, value)
					fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", args[0], value)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "unset <key>",
			Short: "Remove a value so its default applies",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRawConfig(args[0], true, func(raw map[string]any, path []string) error {
					if !config.UnsetValueAtPath(raw, path) {
						return missingKey(args[0])
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), paths.Config)
			},
		},
	)
	return cmd
}

// withRawConfig parses key, loads the config file as a generic map and runs
// fn on it. With save, the map is written back when fn succeeds.
func withRawConfig(key string, save bool, fn func(raw map[string]any, path []string) error) error {
	path, err := config.ParseConfigPath(key)
	if err != nil {
		return err
	}
	raw, err := config.LoadRaw(paths.Config)
	if err != nil {
		return err
	}
	if err := fn(raw, path); err != nil || !save {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(paths.Config), 0o700); err != nil {
		return err
	}
	return config.SaveRaw(paths.Config, raw)
}

func missingKey(key string) error {
	return &config.ConfigError{Message: fmt.Sprintf("key %q is not set", key)}
}

// printValue writes a scalar on one line and maps or lists as YAML.
func printValue(w io.Writer, v any) error {
	switch v.(type) {
	case map[string]any, []any:
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		_, err := fmt.Fprintln(w, v)
		return err
	}
}

// parseValue types a command-line value the way YAML would: booleans,
// integers and floats become numbers, everything else stays a string.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
