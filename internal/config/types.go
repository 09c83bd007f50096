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

// Package config types define the configuration structures used throughout
// sirseer-gnfs. These types represent settings that can be loaded from
// YAML configuration files, environment variables, or command-line flags.
package config

// Config represents the complete configuration for sirseer-gnfs.
// It consolidates settings from various sources and provides a unified
// interface for accessing configuration values throughout the application.
type Config struct {
	Factorization FactorizationConfig `yaml:"factorization"`
	Sieve         SieveConfig         `yaml:"sieve"`
	Checkpoint    CheckpointConfig    `yaml:"checkpoint"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// FactorizationConfig holds the numeric parameters of a run. An empty Base and
// zero values for Degree, RationalBound and RelationTarget mean "derive from N".
type FactorizationConfig struct {
	N              string `yaml:"n"`
	Base           string `yaml:"base"`
	Degree         int    `yaml:"degree"`
	RationalBound  int    `yaml:"rational_bound"`
	RelationTarget int    `yaml:"relation_target"`
	RelationMargin int    `yaml:"relation_margin"`
	ValueRange     int64  `yaml:"value_range"`
	KeepRough      bool   `yaml:"keep_rough"`
	MaxRough       int    `yaml:"max_rough"`
	MaxRetries     int    `yaml:"max_retries"`
	PrimeLimit     uint64 `yaml:"prime_limit"`
	Shortcuts      bool   `yaml:"shortcuts"`
}

// SieveConfig controls the relation sieve worker pool. Zero workers means one
// per CPU.
type SieveConfig struct {
	Workers int `yaml:"workers"`
}

// CheckpointConfig selects where session state is persisted.
type CheckpointConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Backend string `yaml:"backend"`
}

// LoggingConfig selects the zap logger level and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig names an optional Prometheus textfile written when a run ends.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Checkpoint backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// DefaultConfig returns a Config with defaults suitable for numbers of a few
// dozen digits. N itself has no default.
func DefaultConfig() *Config {
	return &Config{
		Factorization: FactorizationConfig{
			RelationMargin: 10,
			ValueRange:     200,
			MaxRough:       2000,
			MaxRetries:     5,
			PrimeLimit:     1 << 28,
			Shortcuts:      true,
		},
		Checkpoint: CheckpointConfig{
			Enabled: true,
			Dir:     "~/.sirseer/gnfs",
			Backend: BackendFile,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
