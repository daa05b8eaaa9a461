package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KafClaw/commander/internal/intent"
)

var parseCmd = &cobra.Command{
	Use:   "parse <utterance...>",
	Short: "Show how an utterance is classified",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := intent.Parse(intent.Normalize(strings.Join(args, " ")))
		out, err := json.MarshalIndent(struct {
			Kind   intent.Kind   `json:"kind"`
			Intent intent.Intent `json:"intent"`
		}{in.Kind(), in}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
