package execution

import (
	"context"

	"testsearch/internal/domain"
)

// Executor runs a single test and reports the child's exit status
type Executor interface {
	// Command returns the argv that Run would execute for id.
	Command(id domain.TestIdentifier) []string
	// Run blocks until the test command exits. A non-zero exit is a status,
	// not an error; errors mean the command could not be started.
	Run(ctx context.Context, id domain.TestIdentifier) (int, error)
}
