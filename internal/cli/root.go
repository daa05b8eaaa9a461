package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/KafClaw/commander/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"   ___                                          _\n" +
		"  / __\\___  _ __ ___  _ __ ___   __ _ _ __   __| | ___ _ __\n" +
		" / /  / _ \\| '_ ` _ \\| '_ ` _ \\ / _` | '_ \\ / _` |/ _ \\ '__|\n" +
		"/ /__| (_) | | | | | | | | | | | (_| | | | | (_| |  __/ |\n" +
		"\\____/\\___/|_| |_| |_|_| |_| |_|\\__,_|_| |_|\\__,_|\\___|_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "commander",
	Short: "Commander - voice command router",
	Long:  color.CyanString(logo) + "\nRoutes spoken-style commands to sites, music, reminders, alarms and chat.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(parseCmd)
}

func printHeader(title string) {
	fmt.Println(color.New(color.Bold).Sprint(title))
	fmt.Println(strings.Repeat("─", 40))
}
