package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFiles lists the env files read before COMMANDER_* overrides are
// applied, highest priority first: $COMMANDER_ENV_FILE, the file managed by
// `doctor --fix`, the files under ~/.commander and finally ./.env in the
// working directory.
func EnvFiles() []string {
	var files []string
	if explicit := strings.TrimSpace(os.Getenv("COMMANDER_ENV_FILE")); explicit != "" {
		files = append(files, explicit)
	}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files,
			filepath.Join(home, ".config", "commander", "env"),
			filepath.Join(home, ".commander", "env"),
			filepath.Join(home, ".commander", ".env"),
		)
	}
	files = append(files, ".env")

	seen := make(map[string]bool, len(files))
	out := files[:0]
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// LoadEnvFileCandidates loads every existing file from EnvFiles. Variables
// already in the process environment, or set by a higher priority file, are
// kept. It returns the files that were read.
func LoadEnvFileCandidates() []string {
	var loaded []string
	for _, path := range EnvFiles() {
		err := godotenv.Load(path)
		switch {
		case err == nil:
			loaded = append(loaded, path)
		case errors.Is(err, fs.ErrNotExist):
		default:
			slog.Warn("Skipping unreadable env file", "path", path, "error", err)
		}
	}
	return loaded
}
