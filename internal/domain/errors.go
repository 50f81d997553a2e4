package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIO marks filesystem walk and cache file failures
	ErrIO = errors.New("io error")
	// ErrParse marks source files that could not be parsed
	ErrParse = errors.New("parse error")
	// ErrInvalidTemplate marks command templates without exactly one placeholder
	ErrInvalidTemplate = errors.New("invalid command template")
	// ErrSelectionCancelled is returned when the user aborts a selection
	ErrSelectionCancelled = errors.New("selection cancelled")
	// ErrChildProcess marks a test command that could not be started
	ErrChildProcess = errors.New("child process error")
	// ErrNoTests is returned when discovery finds nothing to select
	ErrNoTests = errors.New("no tests found")
	// ErrNoHistory is returned when there is nothing to rerun
	ErrNoHistory = errors.New("no test history")
)

// IdentifierError is returned for strings that are not rendered identifiers
type IdentifierError struct {
	Value string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("invalid test identifier %q", e.Value)
}

// ParseError wraps a parse failure with the offending file
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}
