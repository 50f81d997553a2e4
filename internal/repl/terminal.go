package repl

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// Terminal switches the controlling terminal between raw and cooked mode
type Terminal interface {
	MakeRaw() error
	Restore() error
	// Cooked runs fn with the terminal in cooked mode and re-enters raw mode afterwards,
	// also when fn panics.
	Cooked(fn func() error) error
}

// ErrNotTerminal is returned when the REPL is started without a terminal on stdin
var ErrNotTerminal = errors.New("stdin is not a terminal")

// TTY is a Terminal backed by a file descriptor
type TTY struct {
	fd    int
	saved *term.State
}

// NewTTY wraps f, which must be a terminal
func NewTTY(f *os.File) (*TTY, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}
	return &TTY{fd: fd}, nil
}

// MakeRaw puts the terminal into raw mode. Calling it while raw is a no-op.
func (t *TTY) MakeRaw() error {
	if t.saved != nil {
		return nil
	}
	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	t.saved = state
	return nil
}

// Restore returns the terminal to the mode it had before MakeRaw
func (t *TTY) Restore() error {
	if t.saved == nil {
		return nil
	}
	state := t.saved
	t.saved = nil
	if err := term.Restore(t.fd, state); err != nil {
		return fmt.Errorf("restore terminal: %w", err)
	}
	return nil
}

// Cooked implements Terminal
func (t *TTY) Cooked(fn func() error) (err error) {
	if err := t.Restore(); err != nil {
		return err
	}
	defer func() {
		if rawErr := t.MakeRaw(); rawErr != nil && err == nil {
			err = rawErr
		}
	}()
	return fn()
}
