package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".commander"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "COMMANDER"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("COMMANDER_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("COMMANDER_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	return os.UserHomeDir()
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Env files only fill variables the process does not already have.
	LoadEnvFileCandidates()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // Use defaults if we can't find config path
	}

	data, err := loadResolvedConfig(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := processEnv(cfg); err != nil {
		return nil, err
	}

	// Fallback for API keys
	if cfg.Providers.OpenAI.APIKey == "" {
		cfg.Providers.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Providers.XAI.APIKey == "" {
		cfg.Providers.XAI.APIKey = os.Getenv("XAI_API_KEY")
	}
	if cfg.Media.YouTubeAPIKey == "" {
		cfg.Media.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")
	}

	home, _ := resolveHomeDir()
	expandHome := func(p *string) {
		if strings.HasPrefix(*p, "~") && home != "" {
			*p = filepath.Join(home, (*p)[1:])
		}
	}
	expandHome(&cfg.Paths.DataDir)
	expandHome(&cfg.Paths.VoiceDir)
	expandHome(&cfg.Timeline.Path)

	normalize(cfg)
	return cfg, nil
}

// processEnv overrides each group from COMMANDER_<GROUP>_* variables.
func processEnv(cfg *Config) error {
	groups := []struct {
		prefix string
		spec   any
	}{
		{"PATHS", &cfg.Paths},
		{"MODEL", &cfg.Model},
		{"PROVIDERS", &cfg.Providers},
		{"OPENAI", &cfg.Providers.OpenAI},
		{"XAI", &cfg.Providers.XAI},
		{"SPEECH", &cfg.Speech},
		{"MEDIA", &cfg.Media},
		{"GATEWAY", &cfg.Gateway},
		{"SCHEDULER", &cfg.Scheduler},
		{"TIMELINE", &cfg.Timeline},
		{"SINKS_KAFKA", &cfg.Sinks.Kafka},
		{"SINKS_SLACK", &cfg.Sinks.Slack},
		{"CAPABILITIES", &cfg.Capabilities},
	}
	for _, g := range groups {
		if err := envconfig.Process(EnvPrefix+"_"+g.prefix, g.spec); err != nil {
			return fmt.Errorf("env %s_%s: %w", EnvPrefix, g.prefix, err)
		}
	}
	return nil
}

func normalize(cfg *Config) {
	defaults := DefaultConfig()
	switch strings.ToLower(strings.TrimSpace(cfg.Providers.Active)) {
	case "xai", "grok":
		cfg.Providers.Active = "xai"
	default:
		cfg.Providers.Active = "openai"
	}
	// Unknown drivers are kept so opening the timeline reports them.
	switch d := strings.ToLower(strings.TrimSpace(cfg.Timeline.Driver)); d {
	case "", "sqlite", "modernc":
		cfg.Timeline.Driver = "sqlite"
	case "sqlite3", "cgo":
		cfg.Timeline.Driver = "sqlite3"
	default:
		cfg.Timeline.Driver = d
	}
	if cfg.Gateway.Port <= 0 {
		cfg.Gateway.Port = defaults.Gateway.Port
	}
	if cfg.Scheduler.MaxConcurrentFires <= 0 {
		cfg.Scheduler.MaxConcurrentFires = defaults.Scheduler.MaxConcurrentFires
	}
	if cfg.Scheduler.MaxDelay.Duration < 0 {
		cfg.Scheduler.MaxDelay = Duration{}
	}
	if cfg.Capabilities.Timeout.Duration <= 0 {
		cfg.Capabilities.Timeout = defaults.Capabilities.Timeout
	}
	if len(cfg.Media.DefaultSongs) == 0 {
		cfg.Media.DefaultSongs = defaults.Media.DefaultSongs
	}
	if cfg.Speech.Format == "" {
		cfg.Speech.Format = defaults.Speech.Format
	}
	if cfg.Model.OfflineReply == "" {
		cfg.Model.OfflineReply = defaults.Model.OfflineReply
	}
	if strings.TrimSpace(cfg.Sinks.Kafka.Topic) == "" {
		cfg.Sinks.Kafka.Topic = defaults.Sinks.Kafka.Topic
	}
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// EnsureDir ensures a directory exists with proper permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func loadResolvedConfig(path string) ([]byte, error) {
	obj, err := loadConfigObject(path, map[string]struct{}{})
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// loadConfigObject reads a JSON config, resolving "$include" files first so
// the including file wins on conflicts.
func loadConfigObject(path string, visited map[string]struct{}) (map[string]any, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, seen := visited[absPath]; seen {
		return nil, fmt.Errorf("config include cycle detected at %s", absPath)
	}
	visited[absPath] = struct{}{}
	defer delete(visited, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}

	merged := map[string]any{}
	if includeRaw, ok := raw["$include"]; ok {
		includeFiles, err := parseIncludes(includeRaw)
		if err != nil {
			return nil, err
		}
		baseDir := filepath.Dir(absPath)
		for _, includePath := range includeFiles {
			resolvedPath := includePath
			if !filepath.IsAbs(includePath) {
				resolvedPath = filepath.Join(baseDir, includePath)
			}
			child, err := loadConfigObject(resolvedPath, visited)
			if err != nil {
				return nil, err
			}
			deepMerge(merged, child)
		}
	}
	delete(raw, "$include")
	substituteEnvValues(raw)
	deepMerge(merged, raw)
	return merged, nil
}

func parseIncludes(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("$include entries must be strings")
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("$include must be a string or array of strings")
	}
}

func deepMerge(dst, src map[string]any) {
	for key, val := range src {
		srcMap, srcIsMap := val.(map[string]any)
		if !srcIsMap {
			dst[key] = val
			continue
		}
		dstMap, ok := dst[key].(map[string]any)
		if !ok {
			dstMap = map[string]any{}
			dst[key] = dstMap
		}
		deepMerge(dstMap, srcMap)
	}
}

// substituteEnvValues replaces ${VAR} references in string values.
func substituteEnvValues(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = substituteEnvValues(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = substituteEnvValues(item)
		}
		return t
	case string:
		return envPattern.ReplaceAllStringFunc(t, func(match string) string {
			name := envPattern.FindStringSubmatch(match)[1]
			if value, ok := os.LookupEnv(name); ok {
				return value
			}
			return match
		})
	default:
		return v
	}
}
