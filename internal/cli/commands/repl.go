package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"testsearch/internal/config"
	"testsearch/internal/domain"
	"testsearch/internal/repl"
)

// ReplCommand handles the repl command
type ReplCommand struct {
	config *config.Config
	app    *App
}

// NewReplCommand creates a new ReplCommand
func NewReplCommand(cfg *config.Config, app *App) *ReplCommand {
	return &ReplCommand{
		config: cfg,
		app:    app,
	}
}

// Execute runs the command
func (rc *ReplCommand) Execute(cmd *cobra.Command, args []string) error {
	tmpl, err := rc.app.template()
	if err != nil {
		return err
	}

	roots, err := rc.app.roots(args)
	if err != nil {
		return err
	}

	tty, err := repl.NewTTY(os.Stdin)
	if err != nil {
		return err
	}

	engine := repl.New(repl.Config{
		Keys:     repl.NewStreamKeyReader(os.Stdin),
		Terminal: tty,
		Selector: rc.app.Selector,
		Executor: rc.app.NewExecutor(tmpl, rc.app.logger),
		Store:    rc.app.store,
		Collect: func(ctx context.Context) ([]domain.TestIdentifier, error) {
			return rc.app.collect(ctx, roots)
		},
		Formatter: rc.app.formatter,
		Roots:     roots,
		Logger:    rc.app.logger,
	})
	return engine.Run(cmd.Context())
}
