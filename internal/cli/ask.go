package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/KafClaw/commander/internal/config"
	"github.com/KafClaw/commander/internal/dispatch"
	"github.com/KafClaw/commander/internal/provider"
)

var askServer string

var askCmd = &cobra.Command{
	Use:   "ask <utterance...>",
	Short: "Send one command and print the reply",
	Long: "Send one command and print the reply.\n\n" +
		"Without --server the command is handled in-process with voice disabled; " +
		"reminders and alarms need a running server.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		var resp dispatch.ChatResponse
		if askServer != "" {
			resp, err = askRemote(cmd.Context(), askServer, message, cfg.Capabilities.Timeout.Duration+5*time.Second)
		} else {
			disp := newDispatcher(cfg, provider.Resolve(cfg), nil, nil)
			resp, _, err = disp.Handle(cmd.Context(), message)
		}
		if err != nil {
			return err
		}
		printReply(cmd, resp)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askServer, "server", "", "Base URL of a running commander (e.g. http://127.0.0.1:5000)")
}

func askRemote(ctx context.Context, base, message string, timeout time.Duration) (dispatch.ChatResponse, error) {
	var out dispatch.ChatResponse
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, _ := json.Marshal(map[string]string{"message": message})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/chat", bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("post chat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return out, fmt.Errorf("chat returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode chat reply: %w", err)
	}
	return out, nil
}

func printReply(cmd *cobra.Command, resp dispatch.ChatResponse) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, resp.Reply)
	if resp.NewTab != "" {
		fmt.Fprintf(w, "%s %s\n", color.CyanString("new tab:"), resp.NewTab)
	}
	if resp.IFrame != "" {
		fmt.Fprintf(w, "%s %s\n", color.CyanString("iframe:"), resp.IFrame)
	}
	if resp.Voice != "" {
		fmt.Fprintf(w, "%s %s\n", color.CyanString("voice:"), resp.Voice)
	}
}
