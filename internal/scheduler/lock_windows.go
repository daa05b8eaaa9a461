//go:build windows

package scheduler

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// InstanceLock keeps a second server from sharing a data directory. On
// Windows the lock file is created exclusively; creation fails while
// another process owns it.
type InstanceLock struct {
	path   string
	locked bool
}

// NewInstanceLock creates an InstanceLock backed by the file at path.
func NewInstanceLock(path string) *InstanceLock {
	return &InstanceLock{path: path}
}

// TryLock takes the lock without blocking and records the current PID in
// the lock file. It reports false when another process holds it.
func (l *InstanceLock) TryLock() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("create lock file: %w", err)
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	if err := f.Close(); err != nil {
		_ = os.Remove(l.path)
		return false, err
	}
	l.locked = true
	return true, nil
}

// Holder returns the PID recorded by the current lock owner, or 0.
func (l *InstanceLock) Holder() int {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// Unlock releases the lock and removes the lock file.
func (l *InstanceLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	l.locked = false
	return nil
}
