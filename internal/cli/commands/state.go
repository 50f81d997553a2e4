package commands

import (
	"os"

	"github.com/spf13/cobra"

	"testsearch/internal/config"
)

// StateCommand handles the state clear and state show commands
type StateCommand struct {
	config *config.Config
	app    *App
}

// NewStateCommand creates a new StateCommand
func NewStateCommand(cfg *config.Config, app *App) *StateCommand {
	return &StateCommand{
		config: cfg,
		app:    app,
	}
}

// Clear forgets the run history of the working directory, or everything with --all
func (sc *StateCommand) Clear(cmd *cobra.Command, args []string) error {
	if sc.config.Flags.All {
		sc.app.store.ClearAll()
		if err := sc.app.store.Save(); err != nil {
			return err
		}
		sc.app.formatter.Notice("Cleared all state in %s", sc.app.store.Path())
		return nil
	}

	here, err := os.Getwd()
	if err != nil {
		return err
	}
	sc.app.store.Clear(here)
	if err := sc.app.store.Save(); err != nil {
		return err
	}
	sc.app.formatter.Notice("Cleared test history under %s", here)
	return nil
}

// Show prints the state file summary and the run history of the working directory, or all of it with --all
func (sc *StateCommand) Show(cmd *cobra.Command, args []string) error {
	root := ""
	if !sc.config.Flags.All {
		here, err := os.Getwd()
		if err != nil {
			return err
		}
		root = here
	}
	sc.app.formatter.PrintState(sc.app.store.Path(), sc.app.store.Snapshot(), root)
	return nil
}
