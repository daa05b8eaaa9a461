package config

import (
	"os"
	"path/filepath"
	"testing"
)

func unsetForTest(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestLoadEnvFileCandidatesRespectsExistingValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	envPath := filepath.Join(home, "explicit.env")
	content := `
# comment
export CMD_TEST_FOO=bar
CMD_TEST_QUOTED="hello world"
CMD_TEST_SINGLE='x y'
`
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("COMMANDER_ENV_FILE", envPath)
	t.Setenv("CMD_TEST_FOO", "existing")
	unsetForTest(t, "CMD_TEST_QUOTED", "CMD_TEST_SINGLE")

	loaded := LoadEnvFileCandidates()
	if len(loaded) != 1 || loaded[0] != envPath {
		t.Fatalf("loaded = %v, want [%s]", loaded, envPath)
	}
	if got := os.Getenv("CMD_TEST_FOO"); got != "existing" {
		t.Fatalf("expected existing value preserved, got %q", got)
	}
	if got := os.Getenv("CMD_TEST_QUOTED"); got != "hello world" {
		t.Fatalf("expected quoted value loaded, got %q", got)
	}
	if got := os.Getenv("CMD_TEST_SINGLE"); got != "x y" {
		t.Fatalf("expected single-quoted value loaded, got %q", got)
	}
}

func TestLoadEnvFileCandidatesReadsWorkingDirDotEnv(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("COMMANDER_HOME", "")
	t.Setenv("COMMANDER_CONFIG", "")
	t.Setenv("COMMANDER_ENV_FILE", "")
	t.Chdir(work)
	if err := os.WriteFile(filepath.Join(work, ".env"), []byte("OPENAI_API_KEY=sk-from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	unsetForTest(t, "OPENAI_API_KEY", "COMMANDER_OPENAI_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-from-dotenv" {
		t.Fatalf("api key = %q, want value from ./.env", cfg.Providers.OpenAI.APIKey)
	}
}

func TestManagedEnvFileOutranksWorkingDirDotEnv(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("COMMANDER_ENV_FILE", "")
	t.Chdir(work)
	managed := filepath.Join(home, ".config", "commander", "env")
	if err := os.MkdirAll(filepath.Dir(managed), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(managed, []byte("CMD_TEST_PORT=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(work, ".env"), []byte("CMD_TEST_PORT=2\nCMD_TEST_ONLY_LOCAL=yes\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	unsetForTest(t, "CMD_TEST_PORT", "CMD_TEST_ONLY_LOCAL")

	loaded := LoadEnvFileCandidates()
	if len(loaded) != 2 {
		t.Fatalf("loaded = %v, want managed file and ./.env", loaded)
	}
	if got := os.Getenv("CMD_TEST_PORT"); got != "1" {
		t.Fatalf("expected managed env file to win, got %q", got)
	}
	if got := os.Getenv("CMD_TEST_ONLY_LOCAL"); got != "yes" {
		t.Fatalf("expected ./.env key loaded, got %q", got)
	}
}
