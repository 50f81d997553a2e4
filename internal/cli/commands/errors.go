package commands

import "fmt"

// ExitError carries the exit status of a test command that ran but failed.
// main exits with Code without printing anything else.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("test command exited with status %d", e.Code)
}
