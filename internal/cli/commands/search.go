package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"testsearch/internal/config"
	"testsearch/internal/domain"
)

// SearchCommand handles the search command
type SearchCommand struct {
	config *config.Config
	app    *App
}

// NewSearchCommand creates a new SearchCommand
func NewSearchCommand(cfg *config.Config, app *App) *SearchCommand {
	return &SearchCommand{
		config: cfg,
		app:    app,
	}
}

// Execute runs the command
func (sc *SearchCommand) Execute(cmd *cobra.Command, args []string) error {
	flags := sc.config.Flags

	// Reject a bad template before doing any work
	if !flags.Print && !flags.NoFuzzy {
		if _, err := sc.app.template(); err != nil {
			return err
		}
	}

	roots, err := sc.app.roots(args)
	if err != nil {
		return err
	}

	ids, err := sc.app.collect(cmd.Context(), roots)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		sc.app.formatter.PrintNoTests(roots)
		return fmt.Errorf("%w under %s", domain.ErrNoTests, strings.Join(roots, ", "))
	}

	if flags.NoFuzzy {
		sc.app.formatter.PrintIdentifiers(ids)
		return nil
	}

	id, err := sc.app.pick("Tests", ids)
	if errors.Is(err, domain.ErrSelectionCancelled) {
		sc.app.logger.Info("no test selected")
		return &ExitError{Code: 1}
	}
	if err != nil {
		return err
	}

	return sc.app.runOrPrint(cmd.Context(), id)
}
