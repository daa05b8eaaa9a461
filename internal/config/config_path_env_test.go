package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigPathRespectsCommanderConfigAndHome(t *testing.T) {
	t.Setenv("COMMANDER_HOME", "/srv/cmdhome")
	t.Setenv("COMMANDER_CONFIG", "~/.commander/custom.json")

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if path != filepath.Join("/srv/cmdhome", ".commander", "custom.json") {
		t.Fatalf("unexpected config path: %q", path)
	}
}

func TestLoadUsesEnvFileCandidateForCommanderPrefix(t *testing.T) {
	tmpDir := t.TempDir()
	envDir := filepath.Join(tmpDir, ".config", "commander")
	if err := os.MkdirAll(envDir, 0o755); err != nil {
		t.Fatalf("mkdir env dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(envDir, "env"), []byte("COMMANDER_GATEWAY_PORT=19999\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("HOME", tmpDir)
	t.Setenv("COMMANDER_HOME", "")
	t.Setenv("COMMANDER_CONFIG", "")
	t.Setenv("COMMANDER_ENV_FILE", "")
	t.Setenv("COMMANDER_GATEWAY_PORT", "")
	_ = os.Unsetenv("COMMANDER_GATEWAY_PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Gateway.Port != 19999 {
		t.Fatalf("expected gateway port from env file, got %d", cfg.Gateway.Port)
	}
}
