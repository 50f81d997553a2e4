package config

import "testsearch/internal/storage"

const (
	// AppName names the config and cache directories
	AppName = "testsearch"
	// EnvPrefix prefixes environment overrides, e.g. TESTSEARCH_COMMAND
	EnvPrefix = "TESTSEARCH"
	// ConfigFileName is the config file looked up in the user config directory
	ConfigFileName = "config.toml"
	// StateFileName is the state file inside the cache directory
	StateFileName = "cache.json"
	// DotEnvFile is loaded from the working directory before the environment is read
	DotEnvFile = ".env"

	// DefaultCommand runs the selected test with pytest
	DefaultCommand = "pytest {}"
	// DefaultHistoryLimit bounds the number of remembered runs
	DefaultHistoryLimit = storage.DefaultHistoryLimit
	// DefaultLogLevel applies when neither -v nor log_level is given
	DefaultLogLevel = "warn"

	// DefaultFilePrefix and DefaultFileSuffix select test files by base name
	DefaultFilePrefix = "test_"
	DefaultFileSuffix = ".py"
	// DefaultClassPrefix selects test classes
	DefaultClassPrefix = "Test"
	// DefaultFunctionPrefix selects test functions
	DefaultFunctionPrefix = "test_"
)

// DefaultIgnoreDirs are directory names never entered while scanning for tests
var DefaultIgnoreDirs = []string{
	"__pycache__",
	"node_modules",
	"venv",
	"site-packages",
	"build",
	"dist",
}
