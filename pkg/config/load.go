package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TABLINT_"

// DotEnvFile is loaded, when present, before environment overrides apply.
// Variables already set in the environment win over the file.
var DotEnvFile = ".env"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration and applies environment
// overrides. path may be empty, in which case only defaults and the
// environment are used.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Load .env, if present
// 4. Apply TABLINT_* environment variable overrides
// 5. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := defaultsBase()
	if path != "" {
		var err error
		if cfg, err = loadFile(path); err != nil {
			return nil, err
		}
	}

	ApplyDefaults(cfg)

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// defaultsBase returns the starting point YAML is decoded over, carrying
// defaults that a zero value cannot express.
func defaultsBase() *Config {
	cfg := &Config{}
	cfg.Telemetry.Logging.Redact = true
	return cfg
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := defaultsBase()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

func loadDotEnv() error {
	if DotEnvFile == "" {
		return nil
	}
	if err := godotenv.Load(DotEnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}
	return nil
}

// applyEnvOverrides applies TABLINT_* environment variables. Only variables
// that are set change the configuration.
func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}
