package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid engine configuration")

// MismatchPolicy determines how the engine handles a range rule applied to
// a value that is not numeric.
type MismatchPolicy string

const (
	// MismatchSkip treats the binding as not evaluated for that record and
	// continues. The first mismatch per binding is logged at WARN, the rest
	// at DEBUG. This is the default.
	MismatchSkip MismatchPolicy = "skip"

	// MismatchFail aborts the run with the mismatch error.
	MismatchFail MismatchPolicy = "fail"
)

// ParseMismatchPolicy parses a policy name case-insensitively. Empty means skip.
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch MismatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MismatchSkip:
		return MismatchSkip, nil
	case MismatchFail:
		return MismatchFail, nil
	default:
		return "", fmt.Errorf("%w: unknown type mismatch policy %q", ErrInvalidConfig, s)
	}
}

// Config contains configuration for the evaluation engine.
type Config struct {
	// OnTypeMismatch selects the type mismatch policy.
	// Default: MismatchSkip.
	OnTypeMismatch MismatchPolicy
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		OnTypeMismatch: MismatchSkip,
	}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	switch c.OnTypeMismatch {
	case MismatchSkip, MismatchFail:
		return nil
	default:
		return fmt.Errorf("%w: unknown type mismatch policy %q", ErrInvalidConfig, c.OnTypeMismatch)
	}
}

// WithOnTypeMismatch returns a copy of the config with the given policy.
func (c *Config) WithOnTypeMismatch(p MismatchPolicy) *Config {
	cfg := *c
	cfg.OnTypeMismatch = p
	return &cfg
}
