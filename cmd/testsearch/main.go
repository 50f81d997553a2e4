package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"testsearch/internal/cli"
	"testsearch/internal/cli/commands"
	"testsearch/internal/config"
)

var version = "dev"

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:     "testsearch [roots...]",
		Short:   "Fuzzy-find Python tests and run them",
		Long:    `Discover pytest test functions below a directory, pick one with a fuzzy finder and run it. Discovered tests are cached between runs and every run is remembered so it can be repeated.`,
		Version: version,
	}

	// Create initial config with defaults
	cfg := config.New()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	// Create commands with dependencies
	cmds := commands.NewCommands(cfg)

	// Register all commands
	cmds.Register(rootCmd, &flags, cfg)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
