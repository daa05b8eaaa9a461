package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/KafClaw/commander/internal/cliconfig"
	"github.com/KafClaw/commander/internal/config"
)

var configReveal bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit ~/.commander/config.json",
	Long: "Inspect and edit ~/.commander/config.json.\n\n" +
		"Paths are dotted JSON keys, e.g. scheduler.maxDelay or media.defaultSongs[1].\n" +
		"Durations take Go syntax (90s, 1h30m). A running server picks up changes on restart.",
}

var configGetCmd = &cobra.Command{
	Use:   "get [path]",
	Short: "Print the effective value (file + env) at path, or the whole config",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		val, err := cliconfig.Get(path, configReveal)
		if err != nil {
			return err
		}
		return printValue(cmd, val)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Write a value (JSON or plain string) into the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliconfig.Set(args[0], args[1]); err != nil {
			return err
		}
		val, err := cliconfig.Get(args[0], false)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], val)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <path>",
	Short: "Remove a value from the config file so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cliconfig.Unset(args[0])
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file and the env files consulted at load time",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		cfgPath, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "config: %s%s\n", cfgPath, presence(cfgPath))
		for _, f := range config.EnvFiles() {
			fmt.Fprintf(w, "env:    %s%s\n", f, presence(f))
		}
		return nil
	},
}

func presence(path string) string {
	if _, err := os.Stat(path); err != nil {
		return color.YellowString(" (missing)")
	}
	return ""
}

func printValue(cmd *cobra.Command, val any) error {
	switch v := val.(type) {
	case map[string]any, []any:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	default:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	return nil
}

func init() {
	configGetCmd.Flags().BoolVar(&configReveal, "reveal", false, "Print API keys and tokens unmasked")
	configCmd.AddCommand(configGetCmd, configSetCmd, configUnsetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
