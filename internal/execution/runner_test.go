package execution

import (
	"bytes"
	"context"
	"io"
	"runtime"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testsearch/internal/domain"
)

func newTestRunner(t *testing.T, template string) (*Runner, *bytes.Buffer) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("runner tests use a POSIX shell")
	}
	tmpl, err := NewTemplate(template)
	require.NoError(t, err)

	var out bytes.Buffer
	r := NewRunner(tmpl, log.New(io.Discard))
	r.SetOutput(&out, &out)
	return r, &out
}

var sampleID = domain.NewTestIdentifier("/repo/tests/test_users.py", []string{"TestUsers"}, "test_create")

func TestRunner_Run(t *testing.T) {
	t.Run("passes the identifier to the child", func(t *testing.T) {
		r, out := newTestRunner(t, "echo {}")
		code, err := r.Run(context.Background(), sampleID)
		require.NoError(t, err)
		assert.Equal(t, 0, code)
		assert.Equal(t, "/repo/tests/test_users.py::TestUsers::test_create\n", out.String())
	})

	t.Run("non-zero exit is a status, not an error", func(t *testing.T) {
		r, _ := newTestRunner(t, "sh -c 'exit 3' {}")
		code, err := r.Run(context.Background(), sampleID)
		require.NoError(t, err)
		assert.Equal(t, 3, code)
	})

	t.Run("missing command is a child process error", func(t *testing.T) {
		r, _ := newTestRunner(t, "testsearch-no-such-command-4e1f {}")
		_, err := r.Run(context.Background(), sampleID)
		require.ErrorIs(t, err, domain.ErrChildProcess)
		assert.Contains(t, err.Error(), "testsearch-no-such-command-4e1f")
	})

	t.Run("working directory", func(t *testing.T) {
		r, out := newTestRunner(t, "sh -c pwd {}")
		dir := t.TempDir()
		r.SetDir(dir)
		_, err := r.Run(context.Background(), sampleID)
		require.NoError(t, err)
		assert.Contains(t, out.String(), dir)
	})

	t.Run("cancelled context never spawns", func(t *testing.T) {
		r, out := newTestRunner(t, "echo {}")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Run(ctx, sampleID)
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, out.String())
	})
}

func TestRunner_Command(t *testing.T) {
	tmpl, err := NewTemplate("pytest -x {}")
	require.NoError(t, err)
	r := NewRunner(tmpl, log.New(io.Discard))
	assert.Equal(t, []string{"pytest", "-x", sampleID.String()}, r.Command(sampleID))
}
