package voice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KafClaw/commander/internal/provider"
)

type fakeSpeaker struct {
	last *provider.TTSRequest
	err  error
}

func (f *fakeSpeaker) Speak(ctx context.Context, req *provider.TTSRequest) (*provider.TTSResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &provider.TTSResponse{AudioData: []byte("audio:" + req.Text), Format: req.Format}, nil
}

func TestSynthesizeWritesClip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "voice")
	sp := &fakeSpeaker{}
	s, err := NewFileSynthesizer(sp, dir, Options{Voice: "onyx"})
	if err != nil {
		t.Fatalf("new synthesizer: %v", err)
	}

	handle, err := s.Synthesize(context.Background(), "Opening Google")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !strings.HasPrefix(handle, URLPrefix) || !strings.HasSuffix(handle, ".mp3") {
		t.Fatalf("unexpected handle %q", handle)
	}
	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(handle, URLPrefix)))
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if string(data) != "audio:Opening Google" {
		t.Fatalf("clip contents = %q", data)
	}
	if sp.last.Voice != "onyx" || sp.last.Format != "mp3" {
		t.Fatalf("tts request = %+v", sp.last)
	}
}

func TestSynthesizeHandlesAreUnique(t *testing.T) {
	s, _ := NewFileSynthesizer(&fakeSpeaker{}, t.TempDir(), Options{})
	a, _ := s.Synthesize(context.Background(), "same")
	b, _ := s.Synthesize(context.Background(), "same")
	if a == b {
		t.Fatalf("expected distinct handles, got %q twice", a)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	boom := errors.New("tts down")
	s, _ := NewFileSynthesizer(&fakeSpeaker{err: boom}, t.TempDir(), Options{})
	if _, err := s.Synthesize(context.Background(), "hello"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped speaker error, got %v", err)
	}
	if _, err := s.Synthesize(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestPruneRemovesOldClips(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileSynthesizer(&fakeSpeaker{}, dir, Options{})
	oldPath := filepath.Join(dir, "old.mp3")
	newPath := filepath.Join(dir, "new.mp3")
	_ = os.WriteFile(oldPath, []byte("x"), 0o644)
	_ = os.WriteFile(newPath, []byte("y"), 0o644)
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	n, err := s.Prune(time.Hour, time.Now(), nil)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatal("old clip should be gone")
	}
	if _, err := os.Stat(newPath); err != nil {
		t.Fatal("new clip should remain")
	}
}

func TestPruneKeepsClipsStillQueued(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileSynthesizer(&fakeSpeaker{}, dir, Options{})
	queued := filepath.Join(dir, "queued.mp3")
	delivered := filepath.Join(dir, "delivered.mp3")
	past := time.Now().Add(-3 * time.Hour)
	for _, p := range []string{queued, delivered} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	var asked []string
	inUse := func(handle string) bool {
		asked = append(asked, handle)
		return handle == URLPrefix+"queued.mp3"
	}
	n, err := s.Prune(time.Hour, time.Now(), inUse)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	if _, err := os.Stat(queued); err != nil {
		t.Fatalf("queued clip should remain: %v", err)
	}
	if _, err := os.Stat(delivered); !os.IsNotExist(err) {
		t.Fatal("delivered clip should be gone")
	}
	if len(asked) != 2 {
		t.Fatalf("expected both old clips checked, got %v", asked)
	}
}

func TestRunJanitorStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileSynthesizer(&fakeSpeaker{}, dir, Options{})
	old := filepath.Join(dir, "old.mp3")
	_ = os.WriteFile(old, []byte("x"), 0o644)
	past := time.Now().Add(-time.Hour)
	_ = os.Chtimes(old, past, past)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, time.Minute, 10*time.Millisecond, nil)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(old); os.IsNotExist(err) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("janitor never pruned the old clip")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
