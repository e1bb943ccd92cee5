// Package config defines the Luna configuration schema and its viper
// wiring. Configuration is read from a YAML file, overridden by LUNA_*
// environment variables, and validated before use.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides
// (e.g. LUNA_EXECUTOR_MAX_CONCURRENCY).
const EnvPrefix = "LUNA"

// Config represents the complete Luna configuration
type Config struct {
	Executor ExecutorConfig `mapstructure:"executor"`
	Roster   RosterConfig   `mapstructure:"roster"`
	Agents   AgentsConfig   `mapstructure:"agents"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	TUI      TUIConfig      `mapstructure:"tui"`
	Paths    PathsConfig    `mapstructure:"paths"`
}

// ExecutorConfig controls plan scheduling and retry behavior
type ExecutorConfig struct {
	// MaxConcurrency is the maximum number of steps running at once
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// MaxRetries is the number of retry attempts per step after the
	// initial attempt
	MaxRetries int `mapstructure:"max_retries"`
	// SummarizeResults enables summarization of long step outputs before
	// they are passed to dependent steps
	SummarizeResults bool `mapstructure:"summarize_results"`
	// SummaryModel names the model tier used for summarization
	SummaryModel string `mapstructure:"summary_model"`
	// LockedCodingAgent pins every coding step to this capability for the
	// whole run. Empty means no lock.
	LockedCodingAgent string `mapstructure:"locked_coding_agent"`
}

// RosterConfig describes the known agent capabilities
type RosterConfig struct {
	// Capabilities lists every routable capability name
	Capabilities []string `mapstructure:"capabilities"`
	// CodingPatterns are glob patterns identifying coding capabilities
	// (e.g. "coder-*")
	CodingPatterns []string `mapstructure:"coding_patterns"`
	// FailoverPairs maps a coding capability to its mutual fallback
	FailoverPairs map[string]string `mapstructure:"failover_pairs"`
}

// AgentsConfig controls how capabilities are dispatched to workers
type AgentsConfig struct {
	// Commands maps a capability name to the shell command that serves it.
	// The command receives the prompt on stdin and reports on stdout.
	Commands map[string]string `mapstructure:"commands"`
	// Fallback is the command used for capabilities without an explicit
	// entry. Empty means unmapped capabilities fail to dispatch.
	Fallback string `mapstructure:"fallback"`
	// FixerCommand is the shell command backing the repair classifier.
	// Empty disables the fixer; failed steps then retry unchanged.
	FixerCommand string `mapstructure:"fixer_command"`
	// SummaryCommand is the shell command backing the summarizer.
	// Empty disables summarization; long results are clipped instead.
	SummaryCommand string `mapstructure:"summary_command"`
}

// LoggingConfig controls structured run logging
type LoggingConfig struct {
	// Enabled turns run logging on or off
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum level to log: debug, info, warn, error
	Level string `mapstructure:"level"`
}

// TUIConfig controls the terminal progress display
type TUIConfig struct {
	// Enabled turns the live progress display on or off. When off, run
	// progress is printed as plain lines.
	Enabled bool `mapstructure:"enabled"`
	// MaxEventLines limits how many recent events are shown
	MaxEventLines int `mapstructure:"max_event_lines"`
}

// PathsConfig controls where run artifacts are written
type PathsConfig struct {
	// RunDir is the directory for per-run artifacts (logs, results).
	// Empty means .luna/runs under the working directory. A leading ~
	// expands to the user's home directory.
	RunDir string `mapstructure:"run_dir"`
}

// ResolveRunDir returns the resolved run directory path.
// If RunDir is empty, it returns the default path relative to baseDir.
// If RunDir starts with ~, it expands to the user's home directory.
// If RunDir is a relative path, it's resolved relative to baseDir.
func (p *PathsConfig) ResolveRunDir(baseDir string) string {
	if p.RunDir == "" {
		return filepath.Join(baseDir, ".luna", "runs")
	}

	path := p.RunDir

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Executor: ExecutorConfig{
			MaxConcurrency:    3,
			MaxRetries:        2,
			SummarizeResults:  true,
			SummaryModel:      "fast",
			LockedCodingAgent: "",
		},
		Roster: RosterConfig{
			Capabilities: []string{
				"researcher",
				"analyst",
				"writer",
				"coder-claude",
				"coder-codex",
			},
			CodingPatterns: []string{"coder-*"},
			FailoverPairs: map[string]string{
				"coder-claude": "coder-codex",
			},
		},
		Agents: AgentsConfig{
			Commands:       map[string]string{},
			Fallback:       "",
			FixerCommand:   "",
			SummaryCommand: "",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		TUI: TUIConfig{
			Enabled:       true,
			MaxEventLines: 12,
		},
		Paths: PathsConfig{
			RunDir: "", // Empty means use default: .luna/runs
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Executor defaults
	viper.SetDefault("executor.max_concurrency", defaults.Executor.MaxConcurrency)
	viper.SetDefault("executor.max_retries", defaults.Executor.MaxRetries)
	viper.SetDefault("executor.summarize_results", defaults.Executor.SummarizeResults)
	viper.SetDefault("executor.summary_model", defaults.Executor.SummaryModel)
	viper.SetDefault("executor.locked_coding_agent", defaults.Executor.LockedCodingAgent)

	// Roster defaults
	viper.SetDefault("roster.capabilities", defaults.Roster.Capabilities)
	viper.SetDefault("roster.coding_patterns", defaults.Roster.CodingPatterns)
	viper.SetDefault("roster.failover_pairs", defaults.Roster.FailoverPairs)

	// Agents defaults
	viper.SetDefault("agents.commands", defaults.Agents.Commands)
	viper.SetDefault("agents.fallback", defaults.Agents.Fallback)
	viper.SetDefault("agents.fixer_command", defaults.Agents.FixerCommand)
	viper.SetDefault("agents.summary_command", defaults.Agents.SummaryCommand)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	// TUI defaults
	viper.SetDefault("tui.enabled", defaults.TUI.Enabled)
	viper.SetDefault("tui.max_event_lines", defaults.TUI.MaxEventLines)

	// Paths defaults
	viper.SetDefault("paths.run_dir", defaults.Paths.RunDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "luna")
	}
	// Fall back to ~/.config/luna
	home, err := os.UserHomeDir()
	if err != nil {
		return ".luna"
	}
	return filepath.Join(home, ".config", "luna")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
