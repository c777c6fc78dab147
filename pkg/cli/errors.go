package cli

import (
	"errors"
	"fmt"

	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1 // unclassified failure
	ExitViolations    = 2 // run succeeded and --fail-on-violations found some
	ExitConfiguration = 3 // rule document or tablint configuration is invalid
	ExitDataAccess    = 4 // record source could not be read
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ViolationsError reports that a run found violations and the caller asked
// for a non-zero exit in that case.
type ViolationsError struct {
	FieldViolations int
	GroupViolations int
}

func (e *ViolationsError) Error() string {
	return fmt.Sprintf("found %d field and %d group violations", e.FieldViolations, e.GroupViolations)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var violations *ViolationsError
	var configErr *ConfigError
	switch {
	case errors.As(err, &violations):
		return ExitViolations
	case errors.As(err, &configErr),
		rulesErrors.IsType(err, rulesErrors.ErrorTypeConfiguration),
		rulesErrors.IsType(err, rulesErrors.ErrorTypeSyntax):
		return ExitConfiguration
	case rulesErrors.IsType(err, rulesErrors.ErrorTypeDataAccess),
		rulesErrors.IsType(err, rulesErrors.ErrorTypeTypeMismatch):
		return ExitDataAccess
	}
	return ExitFailure
}
