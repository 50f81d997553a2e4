package commands

import (
	"github.com/spf13/cobra"

	"testsearch/internal/cli"
	"testsearch/internal/config"
)

// Commands holds all CLI commands
type Commands struct {
	App    *App
	Search *SearchCommand
	Rerun  *RerunCommand
	Repl   *ReplCommand
	State  *StateCommand
}

// NewCommands creates all commands with dependencies
func NewCommands(cfg *config.Config) *Commands {
	app := NewApp(cfg)

	return &Commands{
		App:    app,
		Search: NewSearchCommand(cfg, app),
		Rerun:  NewRerunCommand(cfg, app),
		Repl:   NewReplCommand(cfg, app),
		State:  NewStateCommand(cfg, app),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVar(&flags.CacheDir, "cache-dir", "", "Directory holding the state file (default: user cache dir)")
	rootCmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/testsearch/config.toml)")

	// Update config with flags after parsing, then build the shared dependencies
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(flags.ToConfigFlags())
		if err != nil {
			return err
		}
		*cfg = *loaded
		return c.App.Init()
	}

	// The root command searches when no subcommand is given
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = c.Search.Execute
	addSearchFlags(rootCmd, flags)

	// Search command
	searchCmd := &cobra.Command{
		Use:   "search [roots...]",
		Short: "Find a test fuzzily and run it",
		Long:  "Discover Python test functions below the given roots (default: the working directory), pick one with a fuzzy finder and run it with the configured command",
		Args:  cobra.ArbitraryArgs,
		RunE:  c.Search.Execute,
	}
	addSearchFlags(searchCmd, flags)
	rootCmd.AddCommand(searchCmd)

	// Rerun command
	rerunCmd := &cobra.Command{
		Use:   "rerun [root]",
		Short: "Run a test from history again",
		Long:  "Pick a previously run test below root (default: the working directory) and run it again",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.Rerun.Execute,
	}
	rerunCmd.Flags().BoolVarP(&flags.Last, "last", "l", false, "Rerun the most recent test without asking")
	rerunCmd.Flags().BoolVarP(&flags.Print, "print", "p", false, "Print the test instead of running it")
	rerunCmd.Flags().StringVarP(&flags.Command, "command", "c", "", "Command template with a single {} placeholder (default \"pytest {}\")")
	rootCmd.AddCommand(rerunCmd)

	// REPL command
	replCmd := &cobra.Command{
		Use:   "repl [roots...]",
		Short: "Find and run tests interactively",
		Long:  "Start an interactive session: f finds and runs a test, r reruns the last one, h picks from history, q quits",
		Args:  cobra.ArbitraryArgs,
		RunE:  c.Repl.Execute,
	}
	replCmd.Flags().StringVarP(&flags.Command, "command", "c", "", "Command template with a single {} placeholder (default \"pytest {}\")")
	replCmd.Flags().IntVarP(&flags.Workers, "workers", "w", 0, "Number of parse workers (default: one per CPU)")
	rootCmd.AddCommand(replCmd)

	// State commands
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or clear the persisted state",
	}
	stateClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the test history of the working directory",
		Args:  cobra.NoArgs,
		RunE:  c.State.Clear,
	}
	stateClearCmd.Flags().BoolVar(&flags.All, "all", false, "Clear all history and cached tests")
	stateShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the state file and the test history of the working directory",
		Args:  cobra.NoArgs,
		RunE:  c.State.Show,
	}
	stateShowCmd.Flags().BoolVar(&flags.All, "all", false, "Show the history of every directory")
	stateCmd.AddCommand(stateClearCmd, stateShowCmd)
	rootCmd.AddCommand(stateCmd)
}

func addSearchFlags(cmd *cobra.Command, flags *cli.Flags) {
	cmd.Flags().BoolVarP(&flags.NoFuzzy, "no-fuzzy-selection", "n", false, "Print every discovered test instead of selecting one")
	cmd.Flags().BoolVarP(&flags.Print, "print", "p", false, "Print the selected test instead of running it")
	cmd.Flags().StringVarP(&flags.Command, "command", "c", "", "Command template with a single {} placeholder (default \"pytest {}\")")
	cmd.Flags().StringVarP(&flags.Filter, "filter", "f", "", "Filter tests by name pattern (supports wildcards, e.g., 'test_api.py::*' or '*create*')")
	cmd.Flags().IntVarP(&flags.Workers, "workers", "w", 0, "Number of parse workers (default: one per CPU)")
}
