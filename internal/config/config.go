// Package config provides configuration structures and loading for cdr3net.
package config

import "time"

// ExecutionKind selects which computations a run produces.
type ExecutionKind string

const (
	KindGraph   ExecutionKind = "graph"
	KindDegrees ExecutionKind = "degrees"
	KindAll     ExecutionKind = "all"
)

// WantsGraph reports whether the kind includes the relationship graph.
func (k ExecutionKind) WantsGraph() bool {
	return k == KindGraph || k == KindAll
}

// WantsDegrees reports whether the kind includes the degree distribution.
func (k ExecutionKind) WantsDegrees() bool {
	return k == KindDegrees || k == KindAll
}

// IsValid reports whether k is one of the known kinds.
func (k ExecutionKind) IsValid() bool {
	switch k {
	case KindGraph, KindDegrees, KindAll:
		return true
	default:
		return false
	}
}

// Config represents the complete application configuration.
type Config struct {
	Run     RunConfig     `yaml:"run" mapstructure:"run"`
	Backend BackendConfig `yaml:"backend" mapstructure:"backend"`
	Results ResultsConfig `yaml:"results" mapstructure:"results"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// RunConfig is the set of options shared by every workflow. It is built once
// per invocation and treated as read-only afterwards.
type RunConfig struct {
	Kind               ExecutionKind `yaml:"kind" mapstructure:"kind"`
	OutputDir          string        `yaml:"output_dir" mapstructure:"output_dir"`
	MinLD              int           `yaml:"min_ld" mapstructure:"min_ld"`
	MaxLD              int           `yaml:"max_ld" mapstructure:"max_ld"`
	DistributedCutoff  int64         `yaml:"distributed_cutoff" mapstructure:"distributed_cutoff"`
	DistributedEnabled bool          `yaml:"distributed" mapstructure:"distributed"`
	MasterAddress      string        `yaml:"master" mapstructure:"master"`
}

// BackendConfig holds settings for the Redis-coordinated cluster backend.
type BackendConfig struct {
	KeyPrefix    string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	ReadyTimeout time.Duration `yaml:"ready_timeout" mapstructure:"ready_timeout"` // 0 waits forever
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	HeartbeatTTL time.Duration `yaml:"heartbeat_ttl" mapstructure:"heartbeat_ttl"`
	JobTTL       time.Duration `yaml:"job_ttl" mapstructure:"job_ttl"`
	TasksPerCore int           `yaml:"tasks_per_core" mapstructure:"tasks_per_core"`
}

// ResultsConfig describes the optional MySQL table benchmark rows are mirrored to.
type ResultsConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	Host           string `yaml:"host" mapstructure:"host"`
	Port           int    `yaml:"port" mapstructure:"port"`
	User           string `yaml:"user" mapstructure:"user"`
	Password       string `yaml:"password" mapstructure:"password"`
	Database       string `yaml:"database" mapstructure:"database"`
	TLS            string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	Table          string `yaml:"table" mapstructure:"table"`
	MaxConnections int    `yaml:"max_connections" mapstructure:"max_connections"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Kind:               KindGraph,
			OutputDir:          ".",
			MinLD:              1,
			MaxLD:              1,
			DistributedCutoff:  10000,
			DistributedEnabled: false,
			MasterAddress:      "redis://localhost:6379/0",
		},
		Backend: BackendConfig{
			KeyPrefix:    "cdr3net:",
			ReadyTimeout: 10 * time.Minute,
			PollInterval: 5 * time.Second,
			HeartbeatTTL: 15 * time.Second,
			JobTTL:       time.Hour,
			TasksPerCore: 2,
		},
		Results: ResultsConfig{
			Enabled:        false,
			Port:           3306,
			TLS:            "preferred",
			Table:          "benchmark_runs",
			MaxConnections: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
