package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// An empty path yields the defaults. It supports YAML files and performs
// environment variable substitution.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		cfg := DefaultConfig()
		substituteEnvVars(cfg)
		return cfg, nil
	}

	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) {
	cfg.Run.OutputDir = expandEnvVar(cfg.Run.OutputDir)
	cfg.Run.MasterAddress = expandEnvVar(cfg.Run.MasterAddress)

	cfg.Results.Host = expandEnvVar(cfg.Results.Host)
	cfg.Results.User = expandEnvVar(cfg.Results.User)
	cfg.Results.Password = expandEnvVar(cfg.Results.Password)
	cfg.Results.Database = expandEnvVar(cfg.Results.Database)

	cfg.Metrics.Textfile = expandEnvVar(cfg.Metrics.Textfile)
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// Overrides holds CLI flag values. A nil field means the flag was not given
// and the file/default value stands.
type Overrides struct {
	Kind               *string
	OutputDir          *string
	MinLD              *int
	MaxLD              *int
	DistributedCutoff  *int64
	DistributedEnabled *bool
	MasterAddress      *string
	ReadyTimeout       *time.Duration
	LogLevel           *string
	LogFormat          *string
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only fields that were set are applied.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Kind != nil {
		c.Run.Kind = ExecutionKind(*o.Kind)
	}
	if o.OutputDir != nil {
		c.Run.OutputDir = *o.OutputDir
	}
	if o.MinLD != nil {
		c.Run.MinLD = *o.MinLD
	}
	if o.MaxLD != nil {
		c.Run.MaxLD = *o.MaxLD
	}
	if o.DistributedCutoff != nil {
		c.Run.DistributedCutoff = *o.DistributedCutoff
	}
	if o.DistributedEnabled != nil {
		c.Run.DistributedEnabled = *o.DistributedEnabled
	}
	if o.MasterAddress != nil {
		c.Run.MasterAddress = *o.MasterAddress
	}
	if o.ReadyTimeout != nil {
		c.Backend.ReadyTimeout = *o.ReadyTimeout
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		c.Logging.Format = *o.LogFormat
	}
}
