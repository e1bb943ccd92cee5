package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify Luna configuration",
	Long: `View or modify Luna configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  luna config set executor.max_concurrency 5
  luna config set executor.locked_coding_agent coder-codex
  luna config set logging.level debug

Valid keys:
  executor.max_concurrency      - Maximum steps running at once
  executor.max_retries          - Retry attempts per step after the first
  executor.summarize_results    - Summarize long step outputs (true/false)
  executor.summary_model        - Model tier used for summarization
  executor.locked_coding_agent  - Pin coding steps to this capability
  agents.fallback               - Command for unmapped capabilities
  agents.fixer_command          - Command backing the repair classifier
  agents.summary_command        - Command backing the summarizer
  logging.enabled               - Write a run log (true/false)
  logging.level                 - Minimum log level (debug, info, warn, error)
  tui.enabled                   - Live progress display (true/false)
  tui.max_event_lines           - Recent events shown in the display
  paths.run_dir                 - Directory for run artifacts`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/luna/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("executor:")
	fmt.Printf("  max_concurrency: %d\n", cfg.Executor.MaxConcurrency)
	fmt.Printf("  max_retries: %d\n", cfg.Executor.MaxRetries)
	fmt.Printf("  summarize_results: %v\n", cfg.Executor.SummarizeResults)
	fmt.Printf("  summary_model: %s\n", cfg.Executor.SummaryModel)
	fmt.Printf("  locked_coding_agent: %s\n", cfg.Executor.LockedCodingAgent)

	fmt.Println("roster:")
	fmt.Printf("  capabilities: %s\n", strings.Join(cfg.Roster.Capabilities, ", "))
	fmt.Printf("  coding_patterns: %s\n", strings.Join(cfg.Roster.CodingPatterns, ", "))
	for a, b := range cfg.Roster.FailoverPairs {
		fmt.Printf("  failover: %s <-> %s\n", a, b)
	}

	fmt.Println("agents:")
	for capability, command := range cfg.Agents.Commands {
		fmt.Printf("  %s: %s\n", capability, command)
	}
	fmt.Printf("  fallback: %s\n", cfg.Agents.Fallback)
	fmt.Printf("  fixer_command: %s\n", cfg.Agents.FixerCommand)
	fmt.Printf("  summary_command: %s\n", cfg.Agents.SummaryCommand)

	fmt.Println("logging:")
	fmt.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Printf("  level: %s\n", cfg.Logging.Level)

	fmt.Println("tui:")
	fmt.Printf("  enabled: %v\n", cfg.TUI.Enabled)
	fmt.Printf("  max_event_lines: %d\n", cfg.TUI.MaxEventLines)

	fmt.Println("paths:")
	fmt.Printf("  run_dir: %s\n", cfg.Paths.RunDir)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	validKeys := map[string]string{
		"executor.max_concurrency":     "int",
		"executor.max_retries":         "int",
		"executor.summarize_results":   "bool",
		"executor.summary_model":       "string",
		"executor.locked_coding_agent": "string",
		"agents.fallback":              "string",
		"agents.fixer_command":         "string",
		"agents.summary_command":       "string",
		"logging.enabled":              "bool",
		"logging.level":                "string",
		"tui.enabled":                  "bool",
		"tui.max_event_lines":          "int",
		"paths.run_dir":                "string",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'luna config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		if key == "logging.level" && !isValidLogLevel(value) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidLogLevels(), ", "))
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set(key, typedValue)

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

func isValidLogLevel(level string) bool {
	for _, valid := range config.ValidLogLevels() {
		if strings.EqualFold(level, valid) {
			return true
		}
	}
	return false
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'luna config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configContent := `# Luna Configuration

# Plan execution settings
executor:
  # Maximum number of steps running at once
  max_concurrency: 3
  # Retry attempts per step after the initial attempt
  max_retries: 2
  # Summarize long step outputs before passing them to dependents
  summarize_results: true
  # Model tier used for summarization
  summary_model: fast
  # Pin every coding step to this capability (empty = no lock)
  locked_coding_agent: ""

# Agent capability roster
roster:
  capabilities:
    - researcher
    - analyst
    - writer
    - coder-claude
    - coder-codex
  # Glob patterns identifying coding capabilities
  coding_patterns:
    - "coder-*"
  # Mutual fallback pairs for coding capabilities
  failover_pairs:
    coder-claude: coder-codex

# How capabilities are dispatched to worker commands.
# Each command receives the prompt on stdin and reports on stdout.
agents:
  commands: {}
  # Command for capabilities without an explicit entry
  fallback: ""
  # Command backing the repair classifier (empty = retry unchanged)
  fixer_command: ""
  # Command backing the summarizer (empty = clip long results)
  summary_command: ""

# Structured run logging
logging:
  enabled: true
  # debug, info, warn, error
  level: info

# Terminal progress display
tui:
  enabled: true
  # Recent events shown in the display
  max_event_lines: 12

# Run artifact locations
paths:
  # Empty means .luna/runs under the working directory
  run_dir: ""
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(config.ConfigFile())
	return nil
}
