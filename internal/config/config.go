// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides configuration management for sirseer-gnfs with
// support for multiple configuration sources and a well-defined precedence
// order.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Configuration file
//  4. Built-in defaults
//
// Flags are applied by the command after LoadConfig returns.
package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
)

// LoadConfig loads configuration from multiple sources and applies them in
// the correct precedence order. If configPath is provided, it loads from
// that specific file. Otherwise, it searches standard locations:
//   - .gnfs.yaml (current directory)
//   - .gnfs.yml (current directory)
//   - ~/.sirseer/gnfs.yaml
//
// Environment variables are applied after loading the config file, allowing
// runtime overrides. The checkpoint directory is expanded (~ and environment
// variables).
//
// Returns an error if the specified config file cannot be loaded, but will
// succeed with defaults if no config file is found in standard locations.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		defaultPaths := []string{
			".gnfs.yaml",
			".gnfs.yml",
			filepath.Join(os.Getenv("HOME"), ".sirseer", "gnfs.yaml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.Checkpoint.Dir = expandPath(cfg.Checkpoint.Dir)

	return cfg, nil
}

// loadConfigFile reads and parses a YAML config file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
// A malformed numeric value is an error rather than silently ignored.
func applyEnvOverrides(cfg *Config) error {
	f := &cfg.Factorization
	if n := os.Getenv("GNFS_N"); n != "" {
		f.N = strings.TrimSpace(n)
	}
	if base := os.Getenv("GNFS_BASE"); base != "" {
		f.Base = strings.TrimSpace(base)
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"GNFS_DEGREE", &f.Degree},
		{"GNFS_RATIONAL_BOUND", &f.RationalBound},
		{"GNFS_WORKERS", &cfg.Sieve.Workers},
	}
	for _, v := range ints {
		s := os.Getenv(v.env)
		if s == "" {
			continue
		}
		i, err := parsePositiveInt(s)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", gnfserrors.ErrInvalidParameter, v.env, err)
		}
		*v.dst = i
	}
	if s := os.Getenv("GNFS_VALUE_RANGE"); s != "" {
		i, err := parsePositiveInt(s)
		if err != nil {
			return fmt.Errorf("%w: GNFS_VALUE_RANGE: %v", gnfserrors.ErrInvalidParameter, err)
		}
		f.ValueRange = int64(i)
	}

	if dir := os.Getenv("GNFS_CHECKPOINT_DIR"); dir != "" {
		cfg.Checkpoint.Dir = dir
	}
	if backend := os.Getenv("GNFS_CHECKPOINT_BACKEND"); backend != "" {
		cfg.Checkpoint.Backend = strings.ToLower(strings.TrimSpace(backend))
	}
	if level := os.Getenv("GNFS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(level))
	}
	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home := os.Getenv("HOME")
		if home == "" {
			home = os.Getenv("USERPROFILE") // Windows
		}
		path = filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// parsePositiveInt parses a string to a positive integer
func parsePositiveInt(s string) (int, error) {
	var i int
	_, err := fmt.Sscanf(s, "%d", &i)
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from '%s': %w", s, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("value must be positive, got: %d", i)
	}
	return i, nil
}

// ParseInt parses a decimal integer of arbitrary size.
func ParseInt(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: not a decimal integer: %q", gnfserrors.ErrInvalidParameter, s)
	}
	return v, nil
}

// Validate checks if the configuration contains valid values. It catches
// settings that would fail deep inside a run, so it should be called after
// flags have been applied. Every error wraps ErrInvalidParameter.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", gnfserrors.ErrInvalidParameter, fmt.Sprintf(format, args...))
	}

	f := c.Factorization
	if f.N == "" {
		return invalid("n is required")
	}
	n, err := ParseInt(f.N)
	if err != nil {
		return err
	}
	if n.Cmp(big.NewInt(3)) < 0 {
		return invalid("n must be at least 3, got: %s", f.N)
	}
	if f.Base != "" {
		m, err := ParseInt(f.Base)
		if err != nil {
			return err
		}
		if m.Cmp(big.NewInt(1)) <= 0 {
			return invalid("base must be greater than 1, got: %s", f.Base)
		}
	}
	if f.Degree < 0 {
		return invalid("degree must not be negative, got: %d", f.Degree)
	}
	if f.RationalBound < 0 {
		return invalid("rational bound must not be negative, got: %d", f.RationalBound)
	}
	if f.RelationTarget < 0 || f.RelationMargin < 0 {
		return invalid("relation target and margin must not be negative")
	}
	if f.ValueRange <= 0 {
		return invalid("value range must be positive, got: %d", f.ValueRange)
	}
	if f.MaxRough < 0 {
		return invalid("max rough must not be negative, got: %d", f.MaxRough)
	}
	if f.MaxRetries < 0 {
		return invalid("max retries must not be negative, got: %d", f.MaxRetries)
	}
	if f.PrimeLimit < 1000 {
		return invalid("prime limit %d is too small", f.PrimeLimit)
	}
	if c.Sieve.Workers < 0 {
		return invalid("workers must not be negative, got: %d", c.Sieve.Workers)
	}
	if c.Checkpoint.Enabled {
		switch c.Checkpoint.Backend {
		case BackendFile, BackendBadger:
		default:
			return invalid("unknown checkpoint backend %q", c.Checkpoint.Backend)
		}
		if c.Checkpoint.Dir == "" {
			return invalid("checkpoint directory cannot be empty")
		}
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return invalid("log level: %v", err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return invalid("unknown log format %q", c.Logging.Format)
	}
	return nil
}
