package commands

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"testsearch/internal/config"
	"testsearch/internal/domain"
)

// RerunCommand handles the rerun command
type RerunCommand struct {
	config *config.Config
	app    *App
}

// NewRerunCommand creates a new RerunCommand
func NewRerunCommand(cfg *config.Config, app *App) *RerunCommand {
	return &RerunCommand{
		config: cfg,
		app:    app,
	}
}

// Execute runs the command
func (rc *RerunCommand) Execute(cmd *cobra.Command, args []string) error {
	roots, err := rc.app.roots(args)
	if err != nil {
		return err
	}
	root := roots[0]

	history := rc.app.store.HistoryUnder(root)
	if len(history) == 0 {
		return fmt.Errorf("%w under %s", domain.ErrNoHistory, root)
	}

	var id domain.TestIdentifier
	if rc.config.Flags.Last {
		id = history[len(history)-1]
	} else {
		slices.Reverse(history)
		id, err = rc.app.pick("History", history)
		if errors.Is(err, domain.ErrSelectionCancelled) {
			rc.app.logger.Info("no test selected")
			return &ExitError{Code: 1}
		}
		if err != nil {
			return err
		}
	}

	return rc.app.runOrPrint(cmd.Context(), id)
}
