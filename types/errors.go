package types

import (
	"fmt"
	"strings"
)

// ConfigError reports problems detected while building a suite or resolving filters.
// It is fatal to the run and is never attached to a case result.
type ConfigError struct {
	Issues []string
}

func NewConfigError(issues ...string) *ConfigError {
	return &ConfigError{Issues: issues}
}

func (e *ConfigError) Error() string {
	if len(e.Issues) == 1 {
		return "configuration error: " + e.Issues[0]
	}
	return fmt.Sprintf("configuration errors (%d): %s", len(e.Issues), strings.Join(e.Issues, "; "))
}

// Addf records another issue
func (e *ConfigError) Addf(format string, args ...any) {
	e.Issues = append(e.Issues, fmt.Sprintf(format, args...))
}

// Err returns nil when no issues were recorded
func (e *ConfigError) Err() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}
