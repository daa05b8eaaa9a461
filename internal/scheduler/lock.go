//go:build !windows

package scheduler

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// InstanceLock keeps a second server from sharing a data directory. Pending
// tasks live in memory only, and on start the timeline marks every task left
// "scheduled" as abandoned, which is only safe with a single owner.
type InstanceLock struct {
	path string
	file *os.File
}

// NewInstanceLock creates an InstanceLock backed by the file at path.
func NewInstanceLock(path string) *InstanceLock {
	return &InstanceLock{path: path}
}

// TryLock takes the lock without blocking and records the current PID in
// the lock file. It reports false when another process holds it.
func (l *InstanceLock) TryLock() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("flock %s: %w", l.path, err)
	}

	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	l.file = f
	return true, nil
}

// Holder returns the PID recorded by the current lock owner, or 0.
func (l *InstanceLock) Holder() int {
	return readHolder(l.path)
}

// Unlock releases the lock and removes the lock file.
func (l *InstanceLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	name := l.file.Name()
	// Remove while still holding the lock so a waiting process cannot lock
	// the old inode.
	_ = os.Remove(name)
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		l.file = nil
		return err
	}
	l.file.Close()
	l.file = nil
	return nil
}

func readHolder(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
