package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"testsearch/internal/aggregator"
	"testsearch/internal/config"
	"testsearch/internal/discovery"
	"testsearch/internal/domain"
	"testsearch/internal/execution"
	"testsearch/internal/parser"
	"testsearch/internal/storage"
	"testsearch/internal/ui"
)

// ExecutorFactory builds the executor for a validated template
type ExecutorFactory func(tmpl *execution.Template, logger *log.Logger) execution.Executor

// App holds the dependencies shared by all commands.
// They are built by Init once flags and config are loaded.
type App struct {
	config *config.Config

	// Overridable before Init
	Out         io.Writer
	Selector    ui.Selector
	NewExecutor ExecutorFactory

	logger     *log.Logger
	store      *storage.JSONStore
	formatter  *ui.Formatter
	filter     *discovery.Filter
	aggregator *aggregator.Aggregator
}

// NewApp creates an App for cfg with the interactive selector and a process runner
func NewApp(cfg *config.Config) *App {
	return &App{
		config:   cfg,
		Out:      os.Stdout,
		Selector: ui.NewFuzzySelector(),
		NewExecutor: func(tmpl *execution.Template, logger *log.Logger) execution.Executor {
			return execution.NewRunner(tmpl, logger)
		},
	}
}

// Init builds the logger, the state store and the collection pipeline
func (a *App) Init() error {
	cfg := a.config

	a.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: config.AppName,
		Level:  cfg.GetLogLevel(),
	})
	if cfg.ConfigFile != "" {
		a.logger.Debug("loaded config", "path", cfg.ConfigFile)
	}

	statePath, err := cfg.GetStatePath()
	if err != nil {
		return err
	}
	a.logger.Debug("using state file", "path", statePath)
	a.store = storage.Load(statePath, cfg.HistoryLimit, a.logger)

	scanner := discovery.NewScanner(discovery.Options{
		FilePrefix:  cfg.FilePrefix,
		FileSuffix:  cfg.FileSuffix,
		SkipDirs:    cfg.IgnoreDirs,
		IgnoreGlobs: cfg.IgnoreGlobs,
	}, a.logger)

	opts := aggregator.Options{Workers: cfg.GetWorkers()}
	if ui.StderrIsTerminal() {
		opts.Progress = func(total int) aggregator.Progress {
			return ui.NewProgressBar(total)
		}
	}
	a.aggregator = aggregator.New(
		scanner,
		parser.NewPythonParser(),
		discovery.NewExtractor(cfg.ClassPrefix, cfg.FunctionPrefix),
		a.store,
		opts,
		a.logger,
	)

	a.filter = discovery.NewFilter()
	a.formatter = ui.NewFormatter(a.Out)
	return nil
}

// template validates the configured command
func (a *App) template() (*execution.Template, error) {
	return execution.NewTemplate(a.config.Command)
}

// roots resolves the given paths to absolute roots, defaulting to the working directory
func (a *App) roots(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	roots := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve test path %s: %v", domain.ErrIO, arg, err)
		}
		roots = append(roots, abs)
	}
	return roots, nil
}

// collect gathers the tests below roots, applying the name filter
func (a *App) collect(ctx context.Context, roots []string) ([]domain.TestIdentifier, error) {
	result, err := a.aggregator.Collect(ctx, roots...)
	if err != nil {
		return nil, err
	}
	if result.Stats.Failed > 0 {
		a.logger.Info("some test files were skipped", "failed", result.Stats.Failed)
	}
	return a.filter.FilterIdentifiers(result.Identifiers, a.config.Flags.Filter), nil
}

// pick asks the user to choose one of ids
func (a *App) pick(title string, ids []domain.TestIdentifier) (domain.TestIdentifier, error) {
	candidates := make([]string, len(ids))
	byKey := make(map[string]domain.TestIdentifier, len(ids))
	for i, id := range ids {
		candidates[i] = id.String()
		byKey[id.Key()] = id
	}

	choice, err := a.Selector.Select(title, candidates)
	if err != nil {
		return domain.TestIdentifier{}, err
	}
	id, ok := byKey[choice]
	if !ok {
		return domain.TestIdentifier{}, fmt.Errorf("unknown selection %q", choice)
	}
	return id, nil
}

// runOrPrint prints id with --print, otherwise runs it. The run is recorded
// unless the command could not be started; a non-zero exit becomes an ExitError.
func (a *App) runOrPrint(ctx context.Context, id domain.TestIdentifier) error {
	if a.config.Flags.Print {
		a.record(id)
		a.formatter.PrintSelected(id)
		return nil
	}

	tmpl, err := a.template()
	if err != nil {
		return err
	}
	executor := a.NewExecutor(tmpl, a.logger)
	a.logger.Info("running test", "argv", executor.Command(id))

	code, err := executor.Run(ctx, id)
	if err != nil {
		return err
	}
	a.record(id)
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func (a *App) record(id domain.TestIdentifier) {
	a.store.RecordRun(id)
	if err := a.store.Save(); err != nil {
		a.logger.Warn("saving run history", "error", err)
	}
}
