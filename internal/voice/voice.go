// Package voice turns reply text into audio files that clients fetch by URI.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KafClaw/commander/internal/provider"
)

// URLPrefix is the path under which synthesized audio is served.
const URLPrefix = "/static/voice/"

// Synthesizer converts text to an opaque, client-resolvable audio handle.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Speaker is the subset of provider.LLMProvider used for synthesis.
type Speaker interface {
	Speak(ctx context.Context, req *provider.TTSRequest) (*provider.TTSResponse, error)
}

// Options tune the synthesized voice.
type Options struct {
	Voice  string
	Model  string
	Format string
}

// FileSynthesizer stores each clip as <uuid>.<format> under Dir.
type FileSynthesizer struct {
	speaker Speaker
	dir     string
	opts    Options
}

// NewFileSynthesizer creates the voice directory if needed.
func NewFileSynthesizer(speaker Speaker, dir string, opts Options) (*FileSynthesizer, error) {
	if opts.Format == "" {
		opts.Format = "mp3"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create voice dir: %w", err)
	}
	return &FileSynthesizer{speaker: speaker, dir: dir, opts: opts}, nil
}

// Dir returns the directory clips are written to.
func (s *FileSynthesizer) Dir() string { return s.dir }

// Synthesize speaks text and returns the clip's URI.
func (s *FileSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("synthesize: empty text")
	}
	resp, err := s.speaker.Speak(ctx, &provider.TTSRequest{
		Text:   text,
		Voice:  s.opts.Voice,
		Model:  s.opts.Model,
		Format: s.opts.Format,
	})
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}

	format := resp.Format
	if format == "" {
		format = s.opts.Format
	}
	name := uuid.NewString() + "." + format
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, resp.AudioData, 0o644); err != nil {
		return "", fmt.Errorf("write voice clip: %w", err)
	}
	return URLPrefix + name, nil
}

// InUse reports whether a clip handle is still referenced by an
// undelivered notification.
type InUse func(handle string) bool

// Prune removes clips older than maxAge and reports how many were deleted.
// Clips for which inUse returns true are kept regardless of age.
func (s *FileSynthesizer) Prune(maxAge time.Duration, now time.Time, inUse InUse) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if inUse != nil && inUse(URLPrefix+e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// RunJanitor prunes old clips every interval until ctx is cancelled.
// A non-positive maxAge disables pruning.
func (s *FileSynthesizer) RunJanitor(ctx context.Context, maxAge, interval time.Duration, inUse InUse) {
	if maxAge <= 0 {
		return
	}
	if interval <= 0 {
		interval = maxAge / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.Prune(maxAge, now, inUse)
			if err != nil {
				slog.Warn("Voice prune failed", "dir", s.dir, "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("Voice clips pruned", "count", n)
			}
		}
	}
}
