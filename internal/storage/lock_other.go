//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package storage

// fileLock is a no-op where flock is unavailable; saves still replace the
// state file atomically, so concurrent writers remain last-writer-wins.
type fileLock struct{}

func acquireLock(string) (*fileLock, error) {
	return &fileLock{}, nil
}

// Release is a no-op.
func (l *fileLock) Release() error { return nil }
