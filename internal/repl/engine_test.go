package repl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"syscall"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testsearch/internal/domain"
	"testsearch/internal/ui"
)

type fakeKeys struct {
	events []KeyEvent
}

func keys(input string) *fakeKeys {
	k := &fakeKeys{}
	for _, r := range input {
		k.events = append(k.events, KeyEvent{Key: KeyRune, Rune: r})
	}
	return k
}

func (k *fakeKeys) then(ev KeyEvent) *fakeKeys {
	k.events = append(k.events, ev)
	return k
}

func (k *fakeKeys) ReadKey() (KeyEvent, error) {
	if len(k.events) == 0 {
		return KeyEvent{}, io.EOF
	}
	ev := k.events[0]
	k.events = k.events[1:]
	return ev, nil
}

type fakeTerminal struct {
	raw         bool
	cookedCalls int
	rawDuringFn []bool
}

func (t *fakeTerminal) MakeRaw() error { t.raw = true; return nil }
func (t *fakeTerminal) Restore() error { t.raw = false; return nil }

func (t *fakeTerminal) Cooked(fn func() error) error {
	t.cookedCalls++
	t.raw = false
	defer func() { t.raw = true }()
	t.rawDuringFn = append(t.rawDuringFn, t.raw)
	return fn()
}

type fakeSelector struct {
	choose func(candidates []string) (string, error)
	calls  [][]string
}

func (s *fakeSelector) Select(_ string, candidates []string) (string, error) {
	s.calls = append(s.calls, slices.Clone(candidates))
	if s.choose == nil {
		return "", domain.ErrSelectionCancelled
	}
	return s.choose(candidates)
}

func pick(i int) func([]string) (string, error) {
	return func(candidates []string) (string, error) { return candidates[i], nil }
}

type fakeExecutor struct {
	code   int
	err    error
	panic  bool
	during func() // Called while the test command runs
	ran    []domain.TestIdentifier
}

func (x *fakeExecutor) Command(id domain.TestIdentifier) []string {
	return []string{"pytest", id.String()}
}

func (x *fakeExecutor) Run(_ context.Context, id domain.TestIdentifier) (int, error) {
	if x.panic {
		panic("executor exploded")
	}
	if x.during != nil {
		x.during()
	}
	x.ran = append(x.ran, id)
	return x.code, x.err
}

// memoryLog is an in-memory storage.RunLog
type memoryLog struct {
	history []domain.TestIdentifier
	last    *domain.TestIdentifier
	saves   int
	onSave  func()
}

func (m *memoryLog) RecordRun(id domain.TestIdentifier) {
	m.history = append(m.history, id)
	m.last = &id
}

func (m *memoryLog) LastRun() (domain.TestIdentifier, bool) {
	if m.last == nil {
		return domain.TestIdentifier{}, false
	}
	return *m.last, true
}

func (m *memoryLog) History() []domain.TestIdentifier { return slices.Clone(m.history) }

func (m *memoryLog) HistoryUnder(root string) []domain.TestIdentifier {
	var out []domain.TestIdentifier
	for _, id := range m.history {
		if id.Under(root) {
			out = append(out, id)
		}
	}
	return out
}

func (m *memoryLog) Clear(string) {}
func (m *memoryLog) ClearAll()    { m.history, m.last = nil, nil }
func (m *memoryLog) Save() error {
	m.saves++
	if m.onSave != nil {
		m.onSave()
	}
	return nil
}

var (
	testA = domain.NewTestIdentifier("/repo/tests/test_a.py", nil, "test_one")
	testB = domain.NewTestIdentifier("/repo/tests/test_b.py", []string{"TestB"}, "test_two")
	other = domain.NewTestIdentifier("/elsewhere/test_c.py", nil, "test_three")
)

type harness struct {
	keys     KeyReader
	terminal *fakeTerminal
	selector *fakeSelector
	executor *fakeExecutor
	store    *memoryLog
	out      *bytes.Buffer
	collect  Collector
	signals  chan os.Signal
	engine   *Engine
}

func newHarness(t *testing.T, k KeyReader) *harness {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	h := &harness{
		keys:     k,
		terminal: &fakeTerminal{},
		selector: &fakeSelector{},
		executor: &fakeExecutor{},
		store:    &memoryLog{},
		out:      &bytes.Buffer{},
		signals:  make(chan os.Signal, 4),
		collect: func(context.Context) ([]domain.TestIdentifier, error) {
			return []domain.TestIdentifier{testA, testB}, nil
		},
	}
	return h
}

func (h *harness) run(t *testing.T) error {
	t.Helper()
	h.engine = New(Config{
		Keys:      h.keys,
		Terminal:  h.terminal,
		Selector:  h.selector,
		Executor:  h.executor,
		Store:     h.store,
		Collect:   func(ctx context.Context) ([]domain.TestIdentifier, error) { return h.collect(ctx) },
		Formatter: ui.NewFormatter(h.out),
		Roots:     []string{"/repo"},
		Logger:    log.New(io.Discard),
		Signals:   h.signals,
	})
	return h.engine.Run(context.Background())
}

func TestEngine_FindAndRun(t *testing.T) {
	h := newHarness(t, keys("fq"))
	h.selector.choose = pick(1)
	h.executor.code = 1

	require.NoError(t, h.run(t))

	assert.Equal(t, []domain.TestIdentifier{testB}, h.executor.ran)
	last, ok := h.store.LastRun()
	require.True(t, ok)
	assert.True(t, last.Equal(testB))
	assert.Equal(t, []bool{false}, h.terminal.rawDuringFn, "the test command runs in cooked mode")
	assert.False(t, h.terminal.raw, "terminal is restored on exit")
	assert.Equal(t, 2, h.store.saves, "saved after the run and on exit")
	assert.Contains(t, h.out.String(), "✗ exited with status 1\r\n")
	assert.Equal(t, StateTerminated, h.engine.State())
}

func TestEngine_CancelledSelectionLeavesHistoryIntact(t *testing.T) {
	h := newHarness(t, keys("fq"))
	h.store.RecordRun(testA)

	require.NoError(t, h.run(t))

	assert.Empty(t, h.executor.ran)
	assert.Equal(t, []domain.TestIdentifier{testA}, h.store.History())
	last, _ := h.store.LastRun()
	assert.True(t, last.Equal(testA))
	assert.Len(t, h.selector.calls, 1)
}

func TestEngine_RerunWithoutLastRunStaysIdle(t *testing.T) {
	h := newHarness(t, keys("rq"))

	require.NoError(t, h.run(t))

	assert.Empty(t, h.executor.ran)
	assert.Zero(t, h.terminal.cookedCalls)
	assert.Contains(t, h.out.String(), "No previous test run\r\n")
}

func TestEngine_RerunLastRun(t *testing.T) {
	h := newHarness(t, keys("rrq"))
	h.store.RecordRun(testA)

	require.NoError(t, h.run(t))

	assert.Equal(t, []domain.TestIdentifier{testA, testA}, h.executor.ran)
	assert.Empty(t, h.selector.calls)
}

func TestEngine_SpawnFailureIsNotRecorded(t *testing.T) {
	h := newHarness(t, keys("fq"))
	h.selector.choose = pick(0)
	h.executor.err = fmt.Errorf("%w: pytest: not found", domain.ErrChildProcess)

	require.NoError(t, h.run(t))

	_, ok := h.store.LastRun()
	assert.False(t, ok)
	assert.Empty(t, h.store.History())
	assert.Contains(t, h.out.String(), "pytest: not found")
	assert.False(t, h.terminal.raw)
}

func TestEngine_QuitKeys(t *testing.T) {
	tests := []struct {
		name string
		key  KeyEvent
	}{
		{name: "escape", key: KeyEvent{Key: KeyEscape}},
		{name: "ctrl-c", key: KeyEvent{Key: KeyCtrlC}},
		{name: "ctrl-d", key: KeyEvent{Key: KeyCtrlD}},
		{name: "q", key: KeyEvent{Key: KeyRune, Rune: 'q'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Keys after the quit key must never be read
			h := newHarness(t, (&fakeKeys{}).then(tt.key).then(KeyEvent{Key: KeyRune, Rune: 'f'}))

			require.NoError(t, h.run(t))

			assert.Len(t, h.keys.(*fakeKeys).events, 1)
			assert.Equal(t, 1, h.store.saves)
			assert.False(t, h.terminal.raw)
		})
	}
}

func TestEngine_EndOfInputTerminates(t *testing.T) {
	h := newHarness(t, &fakeKeys{})
	require.NoError(t, h.run(t))
	assert.Equal(t, 1, h.store.saves)
}

func TestEngine_UnknownAndIgnoredKeys(t *testing.T) {
	h := newHarness(t, keys("x").then(KeyEvent{Key: KeyNone}).then(KeyEvent{Key: KeyEnter}).then(KeyEvent{Key: KeyRune, Rune: 'q'}))

	require.NoError(t, h.run(t))

	out := h.out.String()
	assert.Contains(t, out, "Unknown command 'x', press ? for help\r\n")
	assert.Equal(t, 1, bytes.Count(h.out.Bytes(), []byte("Unknown command")))
}

func TestEngine_Help(t *testing.T) {
	h := newHarness(t, keys("?q"))
	require.NoError(t, h.run(t))
	assert.Contains(t, h.out.String(), "find a test and run it\r\n")
}

func TestEngine_CollectionErrorReturnsToIdle(t *testing.T) {
	h := newHarness(t, keys("fq"))
	h.collect = func(context.Context) ([]domain.TestIdentifier, error) {
		return nil, fmt.Errorf("%w: test path does not exist: /repo", domain.ErrIO)
	}

	require.NoError(t, h.run(t))

	assert.Empty(t, h.selector.calls)
	assert.Contains(t, h.out.String(), "test path does not exist: /repo")
}

func TestEngine_NoTestsFound(t *testing.T) {
	h := newHarness(t, keys("fq"))
	h.collect = func(context.Context) ([]domain.TestIdentifier, error) { return nil, nil }

	require.NoError(t, h.run(t))

	assert.Empty(t, h.selector.calls)
	assert.Contains(t, h.out.String(), "No tests found under /repo")
}

func TestEngine_SelectorErrorReturnsToIdle(t *testing.T) {
	h := newHarness(t, keys("fq"))
	h.selector.choose = func([]string) (string, error) { return "", errors.New("screen unavailable") }

	require.NoError(t, h.run(t))

	assert.Empty(t, h.executor.ran)
	assert.Contains(t, h.out.String(), "screen unavailable")
}

func TestEngine_HistoryPick(t *testing.T) {
	h := newHarness(t, keys("hq"))
	h.store.RecordRun(testA)
	h.store.RecordRun(other)
	h.store.RecordRun(testB)
	h.selector.choose = pick(1)

	require.NoError(t, h.run(t))

	require.Len(t, h.selector.calls, 1)
	assert.Equal(t, []string{testB.String(), testA.String()}, h.selector.calls[0], "most recent first, limited to the roots")
	assert.Equal(t, []domain.TestIdentifier{testA}, h.executor.ran)
}

func TestEngine_HistoryEmpty(t *testing.T) {
	h := newHarness(t, keys("hq"))
	h.store.RecordRun(other)

	require.NoError(t, h.run(t))

	assert.Empty(t, h.selector.calls)
	assert.Contains(t, h.out.String(), "No test history\r\n")
}

func TestEngine_PanicRestoresTerminal(t *testing.T) {
	h := newHarness(t, keys("r"))
	h.store.RecordRun(testA)
	h.executor.panic = true

	assert.Panics(t, func() { _ = h.run(t) })
	assert.False(t, h.terminal.raw)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "selecting", StateSelecting.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "terminated", StateTerminated.String())
	assert.Equal(t, "unknown", State(42).String())
}

// blockingKeys never delivers a key; waiting is closed once ReadKey blocks
type blockingKeys struct {
	waiting chan struct{}
	once    bool
}

func (k *blockingKeys) ReadKey() (KeyEvent, error) {
	if !k.once {
		k.once = true
		close(k.waiting)
	}
	select {}
}

func TestEngine_SignalWhileWaitingForKeyTerminates(t *testing.T) {
	for _, sig := range []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP} {
		t.Run(sig.String(), func(t *testing.T) {
			blocked := &blockingKeys{waiting: make(chan struct{})}
			h := newHarness(t, blocked)

			done := make(chan error, 1)
			go func() { done <- h.run(t) }()

			<-blocked.waiting
			h.signals <- sig

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("engine did not stop on signal")
			}
			assert.False(t, h.terminal.raw, "terminal is restored")
			assert.Equal(t, 1, h.store.saves)
			assert.Equal(t, StateTerminated, h.engine.State())
		})
	}
}

func TestEngine_SignalWhileSelectingTerminates(t *testing.T) {
	h := newHarness(t, keys("fr"))
	h.store.RecordRun(testA)
	h.selector.choose = func([]string) (string, error) {
		h.signals <- syscall.SIGTERM
		return "", domain.ErrSelectionCancelled
	}

	require.NoError(t, h.run(t))

	assert.Empty(t, h.executor.ran, "the key after the signal is never handled")
	assert.Equal(t, 1, h.store.saves)
	assert.False(t, h.terminal.raw)
}

func TestEngine_InterruptDuringRunBelongsToTheTest(t *testing.T) {
	h := newHarness(t, keys("rrq"))
	h.store.RecordRun(testA)
	h.executor.during = func() { h.signals <- os.Interrupt }

	require.NoError(t, h.run(t))

	assert.Equal(t, []domain.TestIdentifier{testA, testA}, h.executor.ran)
}

func TestEngine_TerminateDuringRunEndsSessionAfterRecording(t *testing.T) {
	h := newHarness(t, keys("rr"))
	h.store.RecordRun(testA)
	h.executor.during = func() { h.signals <- syscall.SIGTERM }

	require.NoError(t, h.run(t))

	assert.Equal(t, []domain.TestIdentifier{testA}, h.executor.ran)
	assert.Len(t, h.store.History(), 2)
	assert.Equal(t, 2, h.store.saves, "saved after the run and on exit")
	assert.False(t, h.terminal.raw)
}

func TestEngine_RunIsSavedBeforeRawModeReturns(t *testing.T) {
	h := newHarness(t, keys("rq"))
	h.store.RecordRun(testA)
	var rawAtSave []bool
	h.store.onSave = func() { rawAtSave = append(rawAtSave, h.terminal.raw) }

	require.NoError(t, h.run(t))

	require.Len(t, rawAtSave, 2)
	assert.False(t, rawAtSave[0], "the run is saved while the terminal is still cooked")
}
