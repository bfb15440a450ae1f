// Package config holds the solver configuration, loaded from
// <home>/config.yaml with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dounan/diffle-solver/internal/words"

	"gopkg.in/yaml.v3"
)

// Config holds all diffle-solver configuration.
type Config struct {
	// Dictionary file locations
	Dictionaries DictionariesConfig `yaml:"dictionaries"`

	// Solver behavior
	Solver SolverConfig `yaml:"solver"`

	// SQLite storage
	Store StoreConfig `yaml:"store"`

	// Live board capture
	Browser BrowserConfig `yaml:"browser"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DictionariesConfig locates the word lists.
type DictionariesConfig struct {
	Allowed string `yaml:"allowed"` // valid guesses
	Answers string `yaml:"answers"` // possible hidden words
	Watch   bool   `yaml:"watch"`   // hot-reload on file change
}

// SolverConfig configures guess selection.
type SolverConfig struct {
	Strategy      string `yaml:"strategy"` // minimax, frequency
	Workers       int    `yaml:"workers"`  // 0 = GOMAXPROCS
	Seed          int64  `yaml:"seed"`     // 0 = time-seeded
	MaxWordLength int    `yaml:"max_word_length"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// BrowserConfig configures live board capture.
type BrowserConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DebuggerURL string `yaml:"debugger_url"` // attach to a running Chrome
	Headless    bool   `yaml:"headless"`
	GameURL     string `yaml:"game_url"`
	RowSelector string `yaml:"row_selector"` // CSS selector for guess rows
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
}

// DefaultHome returns the solver home directory (~/.diffle), overridable
// with DIFFLE_HOME.
func DefaultHome() string {
	if home := os.Getenv("DIFFLE_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".diffle"
	}
	return filepath.Join(userHome, ".diffle")
}

// DefaultConfig returns the default configuration rooted at home.
func DefaultConfig(home string) *Config {
	return &Config{
		Dictionaries: DictionariesConfig{
			Allowed: filepath.Join(home, "allowed.csv"),
			Answers: filepath.Join(home, "answers.csv"),
			Watch:   true,
		},
		Solver: SolverConfig{
			Strategy:      "minimax",
			Workers:       0,
			Seed:          0,
			MaxWordLength: 10,
		},
		Store: StoreConfig{
			Path: filepath.Join(home, "diffle.db"),
		},
		Browser: BrowserConfig{
			Enabled:     false,
			Headless:    false,
			GameURL:     "https://diffle.org",
			RowSelector: ".guess-row",
			TimeoutSecs: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from home/config.yaml, falling back to
// defaults when the file does not exist.
func Load(home string) (*Config, error) {
	cfg := DefaultConfig(home)

	data, err := os.ReadFile(filepath.Join(home, "config.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to home/config.yaml.
func (c *Config) Save(home string) error {
	if err := os.MkdirAll(home, 0755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets DIFFLE_* environment variables win over file
// settings.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DIFFLE_ALLOWED"); v != "" {
		c.Dictionaries.Allowed = v
	}
	if v := os.Getenv("DIFFLE_ANSWERS"); v != "" {
		c.Dictionaries.Answers = v
	}
	if v := os.Getenv("DIFFLE_STRATEGY"); v != "" {
		c.Solver.Strategy = v
	}
	if v := os.Getenv("DIFFLE_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("DIFFLE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Solver.Workers = n
		}
	}
	if v := os.Getenv("DIFFLE_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Solver.Seed = n
		}
	}
	if v := os.Getenv("DIFFLE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	switch c.Solver.Strategy {
	case "minimax", "frequency":
	default:
		return fmt.Errorf("unknown solver strategy %q (want minimax or frequency)", c.Solver.Strategy)
	}
	if c.Solver.Workers < 0 {
		return fmt.Errorf("solver workers must be >= 0, got %d", c.Solver.Workers)
	}
	if c.Solver.MaxWordLength <= 0 || c.Solver.MaxWordLength > words.MaxGuessLength {
		return fmt.Errorf("max word length must be between 1 and %d, got %d", words.MaxGuessLength, c.Solver.MaxWordLength)
	}
	if c.Dictionaries.Allowed == "" || c.Dictionaries.Answers == "" {
		return fmt.Errorf("dictionary paths must be set")
	}
	return nil
}
