package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "executor.max_concurrency")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateExecutor()...)
	errors = append(errors, c.validateRoster()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTUI()...)

	return errors
}

// validateExecutor validates the ExecutorConfig
func (c *Config) validateExecutor() []ValidationError {
	var errors []ValidationError

	if c.Executor.MaxConcurrency < 1 {
		errors = append(errors, ValidationError{
			Field:   "executor.max_concurrency",
			Value:   c.Executor.MaxConcurrency,
			Message: "must be at least 1",
		})
	}

	if c.Executor.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "executor.max_retries",
			Value:   c.Executor.MaxRetries,
			Message: "must be non-negative",
		})
	}

	if lock := c.Executor.LockedCodingAgent; lock != "" {
		if !slices.Contains(c.Roster.Capabilities, lock) {
			errors = append(errors, ValidationError{
				Field:   "executor.locked_coding_agent",
				Value:   lock,
				Message: "must be a capability listed in roster.capabilities",
			})
		}
	}

	return errors
}

// validateRoster validates the RosterConfig
func (c *Config) validateRoster() []ValidationError {
	var errors []ValidationError

	if len(c.Roster.Capabilities) == 0 {
		errors = append(errors, ValidationError{
			Field:   "roster.capabilities",
			Value:   c.Roster.Capabilities,
			Message: "must list at least one capability",
		})
	}

	for _, pattern := range c.Roster.CodingPatterns {
		if _, err := glob.Compile(pattern); err != nil {
			errors = append(errors, ValidationError{
				Field:   "roster.coding_patterns",
				Value:   pattern,
				Message: "must be a valid glob pattern",
			})
		}
	}

	for a, b := range c.Roster.FailoverPairs {
		if !slices.Contains(c.Roster.Capabilities, a) {
			errors = append(errors, ValidationError{
				Field:   "roster.failover_pairs",
				Value:   a,
				Message: "must reference a capability listed in roster.capabilities",
			})
		}
		if !slices.Contains(c.Roster.Capabilities, b) {
			errors = append(errors, ValidationError{
				Field:   "roster.failover_pairs",
				Value:   b,
				Message: "must reference a capability listed in roster.capabilities",
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.MaxEventLines < 0 {
		errors = append(errors, ValidationError{
			Field:   "tui.max_event_lines",
			Value:   c.TUI.MaxEventLines,
			Message: "must be non-negative",
		})
	}

	return errors
}
