//go:build !windows

package scheduler

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInstanceLockExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commander.lock")

	first := NewInstanceLock(path)
	ok, err := first.TryLock()
	if err != nil || !ok {
		t.Fatalf("first lock: ok=%v err=%v", ok, err)
	}
	if pid := first.Holder(); pid != os.Getpid() {
		t.Fatalf("expected holder %d, got %d", os.Getpid(), pid)
	}

	second := NewInstanceLock(path)
	ok, err = second.TryLock()
	if err != nil {
		t.Fatalf("second lock: %v", err)
	}
	if ok {
		t.Fatal("second lock should fail while first is held")
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed, stat err=%v", err)
	}

	ok, err = second.TryLock()
	if err != nil || !ok {
		t.Fatalf("relock: ok=%v err=%v", ok, err)
	}
	_ = second.Unlock()
}
