package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Test command with a single {} placeholder
	Command string `mapstructure:"command"`

	// Parse workers; 0 means one per CPU
	Workers int `mapstructure:"workers"`

	// State settings
	CacheDir     string `mapstructure:"cache_dir"`
	HistoryLimit int    `mapstructure:"history_limit"`

	// Paths to ignore when scanning
	IgnoreDirs  []string `mapstructure:"ignore_dirs"`
	IgnoreGlobs []string `mapstructure:"ignore_globs"`

	LogLevel string `mapstructure:"log_level"`

	// Test naming conventions
	FilePrefix     string `mapstructure:"-"`
	FileSuffix     string `mapstructure:"-"`
	ClassPrefix    string `mapstructure:"-"`
	FunctionPrefix string `mapstructure:"-"`

	// ConfigFile is the file the settings were read from, if any
	ConfigFile string `mapstructure:"-"`

	// Command flags
	Flags Flags `mapstructure:"-"`
}

// Flags holds command-line flags
type Flags struct {
	Command    string
	Workers    int
	CacheDir   string
	ConfigFile string
	Verbose    int
	Filter     string
	NoFuzzy    bool
	Print      bool
	Last       bool
	All        bool
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		Command:        DefaultCommand,
		HistoryLimit:   DefaultHistoryLimit,
		LogLevel:       DefaultLogLevel,
		FilePrefix:     DefaultFilePrefix,
		FileSuffix:     DefaultFileSuffix,
		ClassPrefix:    DefaultClassPrefix,
		FunctionPrefix: DefaultFunctionPrefix,
	}
	// Copy default directories to ignore
	cfg.IgnoreDirs = make([]string, len(DefaultIgnoreDirs))
	copy(cfg.IgnoreDirs, DefaultIgnoreDirs)
	return cfg
}

// Load builds the config from defaults, an optional .env file in the working
// directory, the config file, TESTSEARCH_* environment variables and flags,
// in increasing order of precedence.
func Load(flags Flags) (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	defaults := New()
	v := viper.New()
	v.SetDefault("command", defaults.Command)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("history_limit", defaults.HistoryLimit)
	v.SetDefault("ignore_dirs", defaults.IgnoreDirs)
	v.SetDefault("ignore_globs", []string{})
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	path := flags.ConfigFile
	if path == "" {
		path = DefaultConfigPath()
		if path != "" && !fileExists(path) {
			path = ""
		}
	} else if !fileExists(path) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ConfigFile = path
	cfg.Flags = flags

	// Apply flag overrides
	if flags.Command != "" {
		cfg.Command = flags.Command
	}
	if flags.Workers > 0 {
		cfg.Workers = flags.Workers
	}
	if flags.CacheDir != "" {
		cfg.CacheDir = flags.CacheDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be corrected silently
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// GetWorkers returns the number of parse workers
func (c *Config) GetWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// GetStatePath returns the path of the state file.
// Without an explicit cache_dir it lives in the user cache directory.
func (c *Config) GetStatePath() (string, error) {
	dir := c.CacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("locate cache dir: %w", err)
		}
		dir = filepath.Join(base, AppName)
	}
	return filepath.Join(dir, StateFileName), nil
}

// GetLogLevel returns the log level: -v gives info, -vv and more give debug,
// otherwise log_level applies.
func (c *Config) GetLogLevel() log.Level {
	switch {
	case c.Flags.Verbose >= 2:
		return log.DebugLevel
	case c.Flags.Verbose == 1:
		return log.InfoLevel
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.WarnLevel
	}
	return level
}

// DefaultConfigPath returns the config file location in the user config directory
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, ConfigFileName)
}

// loadDotEnv loads path into the environment if it exists. Variables already set win.
func loadDotEnv(path string) error {
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
