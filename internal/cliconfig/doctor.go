package cliconfig

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/KafClaw/commander/internal/config"
	"github.com/KafClaw/commander/internal/timeline"
)

type DoctorStatus string

const (
	DoctorPass DoctorStatus = "pass"
	DoctorWarn DoctorStatus = "warn"
	DoctorFail DoctorStatus = "fail"
)

type DoctorCheck struct {
	Name    string
	Status  DoctorStatus
	Message string
}

type DoctorReport struct {
	Checks []DoctorCheck
}

type DoctorOptions struct {
	Fix                  bool // Merge discovered env files into the managed env file.
	GenerateGatewayToken bool
}

func (r DoctorReport) HasFailures() bool {
	for _, c := range r.Checks {
		if c.Status == DoctorFail {
			return true
		}
	}
	return false
}

func (r *DoctorReport) add(name string, status DoctorStatus, format string, args ...any) {
	r.Checks = append(r.Checks, DoctorCheck{Name: name, Status: status, Message: fmt.Sprintf(format, args...)})
}

func RunDoctor() (DoctorReport, error) {
	return RunDoctorWithOptions(DoctorOptions{})
}

// RunDoctorWithOptions inspects configuration and the local environment the
// server depends on. It never returns an error for a failed check; those
// are reported as DoctorFail entries.
func RunDoctorWithOptions(opts DoctorOptions) (DoctorReport, error) {
	report := DoctorReport{Checks: make([]DoctorCheck, 0, 10)}

	cfgPath, err := config.ConfigPath()
	if err != nil {
		report.add("config_path", DoctorFail, "cannot resolve config path: %v", err)
		return report, nil
	}
	switch _, err := os.Stat(cfgPath); {
	case err == nil:
		report.add("config_file", DoctorPass, "config file found at %s", cfgPath)
	case os.IsNotExist(err):
		report.add("config_file", DoctorWarn, "config file not found at %s (defaults will be used)", cfgPath)
	default:
		report.add("config_file", DoctorFail, "cannot access config file: %v", err)
	}

	if opts.Fix {
		envPath, merged, err := mergeDiscoveredEnvFiles()
		if err != nil {
			report.add("env_merge", DoctorFail, "failed to merge env files: %v", err)
		} else {
			report.add("env_merge", DoctorPass, "merged %d env key(s) into %s", merged, envPath)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		report.add("config_load", DoctorFail, "config load failed: %v", err)
		return report, nil
	}
	report.add("config_load", DoctorPass, "config loaded successfully")

	if opts.GenerateGatewayToken {
		token, err := randomToken()
		if err == nil {
			cfg.Gateway.AuthToken = token
			err = config.Save(cfg)
		}
		if err != nil {
			report.add("gateway_token", DoctorFail, "failed to generate gateway token: %v", err)
		} else {
			report.add("gateway_token", DoctorPass, "generated and saved gateway auth token")
		}
	}

	checkGateway(&report, cfg)
	checkProvider(&report, cfg)
	checkVoiceDir(&report, cfg)
	checkTimeline(&report, cfg)
	checkSinks(&report, cfg)
	return report, nil
}

func checkGateway(report *DoctorReport, cfg *config.Config) {
	switch {
	case isLoopbackHost(cfg.Gateway.Host):
		report.add("gateway_host", DoctorPass, "gateway.host is loopback (%s)", cfg.Gateway.Host)
	case strings.TrimSpace(cfg.Gateway.AuthToken) == "":
		report.add("gateway_host", DoctorFail, "gateway.host %q is reachable from the network but gateway.authToken is empty", cfg.Gateway.Host)
	default:
		report.add("gateway_host", DoctorWarn, "gateway.host %q is reachable from the network; /api is token protected", cfg.Gateway.Host)
	}
}

func checkProvider(report *DoctorReport, cfg *config.Config) {
	active := cfg.Providers.Active
	if active == "" {
		active = "openai"
	}
	key := cfg.Providers.OpenAI.APIKey
	if active == "xai" {
		key = cfg.Providers.XAI.APIKey
	}
	if key == "" {
		report.add("provider_key", DoctorWarn, "%s API key missing: chat replies fall back to the offline message", active)
	} else {
		report.add("provider_key", DoctorPass, "%s API key configured (%s)", active, MaskSecret(key))
	}
	if cfg.Providers.OpenAI.APIKey == "" {
		report.add("speech", DoctorWarn, "OpenAI API key missing: replies will have no voice")
	}
	if cfg.Media.YouTubeAPIKey == "" {
		report.add("media_search", DoctorPass, "no YouTube API key; results page lookup will be used")
	} else {
		report.add("media_search", DoctorPass, "YouTube Data API search enabled")
	}
}

func checkVoiceDir(report *DoctorReport, cfg *config.Config) {
	dir := cfg.Paths.VoiceDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		report.add("voice_dir", DoctorFail, "cannot create voice dir %s: %v", dir, err)
		return
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		report.add("voice_dir", DoctorFail, "voice dir %s is not writable: %v", dir, err)
		return
	}
	probe.Close()
	_ = os.Remove(probe.Name())
	report.add("voice_dir", DoctorPass, "voice dir writable: %s", dir)
}

func checkTimeline(report *DoctorReport, cfg *config.Config) {
	if !cfg.Timeline.Enabled {
		report.add("timeline", DoctorPass, "timeline disabled")
		return
	}
	switch cfg.Timeline.Driver {
	case timeline.DriverPureGo, timeline.DriverCgo:
		report.add("timeline", DoctorPass, "timeline %s driver at %s", cfg.Timeline.Driver, cfg.Timeline.Path)
	default:
		report.add("timeline", DoctorFail, "unknown timeline.driver %q (want %q or %q)", cfg.Timeline.Driver, timeline.DriverPureGo, timeline.DriverCgo)
	}
}

func checkSinks(report *DoctorReport, cfg *config.Config) {
	if k := cfg.Sinks.Kafka; k.Enabled {
		if strings.TrimSpace(k.Brokers) == "" || strings.TrimSpace(k.Topic) == "" {
			report.add("sink_kafka", DoctorFail, "sinks.kafka enabled without brokers or topic")
		} else {
			report.add("sink_kafka", DoctorPass, "kafka sink -> %s (%s)", k.Topic, k.Brokers)
		}
	}
	if s := cfg.Sinks.Slack; s.Enabled {
		if strings.TrimSpace(s.BotToken) == "" || strings.TrimSpace(s.ChannelID) == "" {
			report.add("sink_slack", DoctorFail, "sinks.slack enabled without botToken or channelId")
		} else {
			report.add("sink_slack", DoctorPass, "slack sink -> %s", s.ChannelID)
		}
	}
}

// mergeDiscoveredEnvFiles folds every env file the loader would read into
// ~/.config/commander/env. Later files win.
func mergeDiscoveredEnvFiles() (string, int, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", 0, err
	}
	targetPath := filepath.Join(home, ".config", "commander", "env")
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o700); err != nil {
		return "", 0, err
	}

	cwd, _ := os.Getwd()
	sources := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(home, ".commander", ".env"),
		filepath.Join(home, ".commander", "env"),
		targetPath,
	}

	merged := map[string]string{}
	seen := map[string]bool{}
	for _, src := range sources {
		if seen[src] {
			continue
		}
		seen[src] = true
		kv, err := godotenv.Read(src)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("read %s: %w", src, err)
		}
		for k, v := range kv {
			merged[k] = v
		}
	}

	if err := writeEnvFileKV(targetPath, merged); err != nil {
		return "", 0, err
	}
	return targetPath, len(merged), nil
}

func writeEnvFileKV(path string, kv map[string]string) error {
	body, err := godotenv.Marshal(kv)
	if err != nil {
		return err
	}
	content := "# commander runtime env (managed by doctor --fix)\n" + body + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func isLoopbackHost(host string) bool {
	h := strings.TrimSpace(strings.ToLower(host))
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
