package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/charmbracelet/log"

	"testsearch/internal/domain"
	"testsearch/internal/execution"
	"testsearch/internal/storage"
	"testsearch/internal/ui"
)

// State is the phase of the REPL loop
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Collector returns the tests currently available for selection
type Collector func(ctx context.Context) ([]domain.TestIdentifier, error)

// Config holds the collaborators of an Engine
type Config struct {
	Keys      KeyReader
	Terminal  Terminal
	Selector  ui.Selector
	Executor  execution.Executor
	Store     storage.RunLog
	Collect   Collector
	Formatter *ui.Formatter
	Roots     []string // Absolute roots; history is limited to tests below them
	Logger    *log.Logger
	// Signals ends the session when it delivers while the engine waits for a key.
	// Run subscribes to SIGINT, SIGTERM and SIGHUP itself when it is nil.
	Signals <-chan os.Signal
}

// Engine is the interactive find-and-run loop. It holds the terminal in raw
// mode while waiting for keys and hands it back to the test command while it runs.
type Engine struct {
	keys     KeyReader
	terminal Terminal
	selector ui.Selector
	executor execution.Executor
	store    storage.RunLog
	collect  Collector
	out      *ui.Formatter // Raw-mode output
	cooked   *ui.Formatter
	roots    []string
	logger   *log.Logger
	signals  <-chan os.Signal

	state   State
	pending domain.TestIdentifier
}

// New creates a new Engine
func New(cfg Config) *Engine {
	return &Engine{
		keys:     cfg.Keys,
		terminal: cfg.Terminal,
		selector: cfg.Selector,
		executor: cfg.Executor,
		store:    cfg.Store,
		collect:  cfg.Collect,
		out:      cfg.Formatter.Raw(),
		cooked:   cfg.Formatter,
		roots:    cfg.Roots,
		logger:   cfg.Logger,
		signals:  cfg.Signals,
	}
}

// State returns the current phase
func (e *Engine) State() State {
	return e.state
}

// Run drives the loop until the user quits. The terminal is restored and the
// run history saved on every exit path.
func (e *Engine) Run(ctx context.Context) (err error) {
	signals := e.signals
	if signals == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(ch)
		signals = ch
	}

	if err := e.terminal.MakeRaw(); err != nil {
		return err
	}
	defer func() {
		if restoreErr := e.terminal.Restore(); restoreErr != nil && err == nil {
			err = restoreErr
		}
	}()

	e.out.PrintBanner(e.roots)
	e.state = StateIdle
	for e.state != StateTerminated {
		e.logger.Debug("repl state", "state", e.state)
		switch e.state {
		case StateIdle:
			e.state = e.idle(ctx, signals)
		case StateSelecting:
			e.state = e.selecting(ctx)
		case StateRunning:
			e.state = e.running(ctx, signals)
		default:
			return fmt.Errorf("unexpected repl state %s", e.state)
		}
	}

	if err := e.store.Save(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (e *Engine) idle(ctx context.Context, signals <-chan os.Signal) State {
	e.out.PrintPrompt()
	ev, err := e.readKey(ctx, signals)
	if err != nil {
		if errors.Is(err, errInterrupted) {
			e.out.Newline()
			return StateTerminated
		}
		if !errors.Is(err, io.EOF) {
			e.out.Error(fmt.Errorf("read key: %w", err))
		}
		return StateTerminated
	}
	e.out.Newline()

	switch ev.Key {
	case KeyEscape, KeyCtrlC, KeyCtrlD:
		return StateTerminated
	case KeyNone, KeyEnter:
		return StateIdle
	}

	switch ev.Rune {
	case 'f':
		return StateSelecting
	case 'r':
		last, ok := e.store.LastRun()
		if !ok {
			e.out.Notice("No previous test run")
			return StateIdle
		}
		e.pending = last
		return StateRunning
	case 'h':
		return e.fromHistory()
	case '?':
		e.out.PrintHelp()
		return StateIdle
	case 'q':
		return StateTerminated
	default:
		e.out.Notice("Unknown command %q, press ? for help", ev.Rune)
		return StateIdle
	}
}

// errInterrupted ends the session on a signal
var errInterrupted = errors.New("interrupted")

type keyResult struct {
	ev  KeyEvent
	err error
}

// readKey waits for the next key, a signal or the end of ctx. A signal that
// arrived while selecting is handled before reading.
func (e *Engine) readKey(ctx context.Context, signals <-chan os.Signal) (KeyEvent, error) {
	select {
	case sig := <-signals:
		e.logger.Info("terminating on signal", "signal", sig)
		return KeyEvent{}, errInterrupted
	default:
	}

	// The reader goroutine only outlives this call when the session ends
	keys := make(chan keyResult, 1)
	go func() {
		ev, err := e.keys.ReadKey()
		keys <- keyResult{ev: ev, err: err}
	}()

	select {
	case r := <-keys:
		return r.ev, r.err
	case sig := <-signals:
		e.logger.Info("terminating on signal", "signal", sig)
		return KeyEvent{}, errInterrupted
	case <-ctx.Done():
		return KeyEvent{}, errInterrupted
	}
}

func (e *Engine) selecting(ctx context.Context) State {
	ids, err := e.collect(ctx)
	if err != nil {
		e.out.Error(err)
		return StateIdle
	}
	if len(ids) == 0 {
		e.out.PrintNoTests(e.roots)
		return StateIdle
	}
	return e.choose("Tests", ids)
}

// fromHistory offers the runs below the roots, most recent first
func (e *Engine) fromHistory() State {
	var history []domain.TestIdentifier
	for _, id := range e.store.History() {
		if e.underRoots(id) {
			history = append(history, id)
		}
	}
	if len(history) == 0 {
		e.out.Notice("No test history")
		return StateIdle
	}
	slices.Reverse(history)
	return e.choose("History", history)
}

func (e *Engine) choose(title string, ids []domain.TestIdentifier) State {
	candidates := make([]string, len(ids))
	byKey := make(map[string]domain.TestIdentifier, len(ids))
	for i, id := range ids {
		candidates[i] = id.String()
		byKey[id.Key()] = id
	}

	choice, err := e.selector.Select(title, candidates)
	if err != nil {
		if !errors.Is(err, domain.ErrSelectionCancelled) {
			e.out.Error(err)
		}
		return StateIdle
	}

	id, ok := byKey[choice]
	if !ok {
		e.out.Error(fmt.Errorf("unknown selection %q", choice))
		return StateIdle
	}
	e.pending = id
	return StateRunning
}

// running hands the terminal to the test command. The run is recorded and
// saved before raw mode is re-entered.
func (e *Engine) running(ctx context.Context, signals <-chan os.Signal) State {
	id := e.pending
	var code int
	var runErr error

	err := e.terminal.Cooked(func() error {
		e.cooked.PrintRunning(e.executor.Command(id))
		code, runErr = e.executor.Run(ctx, id)
		if runErr != nil {
			return nil
		}
		e.store.RecordRun(id)
		if err := e.store.Save(); err != nil {
			e.logger.Warn("saving run history", "error", err)
		}
		return nil
	})
	terminate := e.drainSignals(signals)
	if err != nil {
		e.out.Error(err)
		return StateTerminated
	}
	if runErr != nil {
		e.out.Error(runErr)
	} else {
		e.out.PrintExitStatus(code)
	}
	if terminate {
		return StateTerminated
	}
	return StateIdle
}

// drainSignals discards the interrupts the test command received while it ran
// and reports whether any other signal asked the session to end.
func (e *Engine) drainSignals(signals <-chan os.Signal) bool {
	terminate := false
	for {
		select {
		case sig := <-signals:
			if sig != os.Interrupt {
				e.logger.Info("terminating on signal", "signal", sig)
				terminate = true
			}
		default:
			return terminate
		}
	}
}

func (e *Engine) underRoots(id domain.TestIdentifier) bool {
	if len(e.roots) == 0 {
		return true
	}
	for _, root := range e.roots {
		if id.Under(root) {
			return true
		}
	}
	return false
}
