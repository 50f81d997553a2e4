//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package storage

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileLock holds an exclusive flock on a sidecar file next to the state file.
// The kernel drops the lock when the descriptor closes, so an orphaned lock
// file is harmless.
type fileLock struct {
	file *os.File
}

// acquireLock opens (or creates) path and blocks until the exclusive lock is held
func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	return &fileLock{file: f}, nil
}

// Release unlocks and closes the lock file. Calling it twice is a no-op.
func (l *fileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
