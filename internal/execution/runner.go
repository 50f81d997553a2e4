package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"testsearch/internal/domain"
)

// Runner executes the test command for a single identifier
type Runner struct {
	template *Template
	dir      string
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	logger   *log.Logger
}

// NewRunner creates a new Runner. The child inherits the process's standard streams.
func NewRunner(tmpl *Template, logger *log.Logger) *Runner {
	return &Runner{
		template: tmpl,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		logger:   logger,
	}
}

// SetDir sets the working directory of the child; empty means the current one
func (r *Runner) SetDir(dir string) {
	r.dir = dir
}

// SetOutput redirects the child's stdout and stderr
func (r *Runner) SetOutput(stdout, stderr io.Writer) {
	r.stdout = stdout
	r.stderr = stderr
}

// Command returns the argv for id
func (r *Runner) Command(id domain.TestIdentifier) []string {
	return r.template.Render(id)
}

// Run executes the test command for id and waits for it to exit.
// While the child runs, interrupt and terminate signals are held back from
// this process so only the child reacts to them.
func (r *Runner) Run(ctx context.Context, id domain.TestIdentifier) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	argv := r.template.Render(id)
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrChildProcess, argv[0], err)
	}

	cmd := exec.Command(path, argv[1:]...)
	cmd.Dir = r.dir
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	r.logger.Debug("running test", "argv", argv)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: start %s: %v", domain.ErrChildProcess, argv[0], err)
	}

	err = cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, fmt.Errorf("%w: wait for %s: %v", domain.ErrChildProcess, argv[0], err)
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}
