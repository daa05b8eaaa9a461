package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/KafClaw/commander/internal/cliconfig"
	"github.com/KafClaw/commander/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "commander %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and server status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 Commander Status")
		fmt.Printf("Version: %s\n", version)

		configPath, _ := config.ConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			fmt.Println("Config:  ✓ Found (" + configPath + ")")
		} else {
			fmt.Println("Config:  ✗ Not found (defaults in use)")
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config:  ✗ Load failed: %v\n", err)
			return
		}
		if key := cfg.Providers.OpenAI.APIKey; key != "" {
			fmt.Println("API Key: ✓ Found (" + cliconfig.MaskSecret(key) + ")")
		} else {
			fmt.Println("API Key: ✗ Not found (chat offline, no voice)")
		}

		st, err := fetchStatus(cfg, 3*time.Second)
		if err != nil {
			fmt.Printf("Server:  ✗ Not reachable on port %d (%v)\n", cfg.Gateway.Port, err)
			return
		}
		fmt.Printf("Server:  ✓ Running %s, up %s\n", st.Version, (time.Duration(st.UptimeSeconds) * time.Second).String())
		fmt.Printf("Pending: %d task(s), %d/%d fire slot(s) free\n", st.PendingTasks, st.FireSlots["free"], st.FireSlots["total"])
		if st.Sinks != nil {
			fmt.Printf("Sinks:   running=%t backlog=%d\n", st.Sinks.Running, st.Sinks.Backlog)
		}
		for _, ch := range sortedKeys(st.Queues) {
			fmt.Printf("Queue:   %-9s %d waiting, %d dropped\n", ch, st.Queues[ch], st.Dropped[ch])
		}
		for _, s := range sortedKeys(st.Tasks) {
			fmt.Printf("Tasks:   %-9s %d\n", s, st.Tasks[s])
		}
	},
}

type serverStatus struct {
	Version       string         `json:"version"`
	UptimeSeconds int            `json:"uptime_seconds"`
	PendingTasks  int            `json:"pending_tasks"`
	Queues        map[string]int `json:"queues"`
	Dropped       map[string]int `json:"dropped"`
	Tasks         map[string]int `json:"tasks"`
	FireSlots     map[string]int `json:"fire_slots"`
	Sinks         *struct {
		Running bool `json:"running"`
		Backlog int  `json:"backlog"`
	} `json:"sinks"`
}

func fetchStatus(cfg *config.Config, timeout time.Duration) (*serverStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, localBaseURL(cfg)+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var st serverStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
