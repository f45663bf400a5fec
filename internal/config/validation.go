package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateRun()...)
	errors = append(errors, c.validateBackend()...)

	if c.Results.Enabled {
		errors = append(errors, c.validateResults()...)
	}

	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateRun() ValidationErrors {
	var errors ValidationErrors

	if !c.Run.Kind.IsValid() {
		errors = append(errors, ValidationError{
			Field:   "run.kind",
			Message: "kind must be 'graph', 'degrees', or 'all'",
		})
	}

	if c.Run.OutputDir == "" {
		errors = append(errors, ValidationError{
			Field:   "run.output_dir",
			Message: "output_dir is required",
		})
	}

	if c.Run.MinLD < 0 {
		errors = append(errors, ValidationError{
			Field:   "run.min_ld",
			Message: "min_ld cannot be negative",
		})
	}

	if c.Run.MaxLD < c.Run.MinLD {
		errors = append(errors, ValidationError{
			Field:   "run.max_ld",
			Message: "max_ld must be greater than or equal to min_ld",
		})
	}

	if c.Run.DistributedCutoff < 0 {
		errors = append(errors, ValidationError{
			Field:   "run.distributed_cutoff",
			Message: "distributed_cutoff cannot be negative",
		})
	}

	if c.Run.DistributedEnabled && c.Run.MasterAddress == "" {
		errors = append(errors, ValidationError{
			Field:   "run.master",
			Message: "master is required when distributed execution is enabled",
		})
	}

	return errors
}

func (c *Config) validateBackend() ValidationErrors {
	var errors ValidationErrors

	if c.Backend.ReadyTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "backend.ready_timeout",
			Message: "ready_timeout cannot be negative",
		})
	}

	if c.Backend.PollInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "backend.poll_interval",
			Message: "poll_interval must be positive",
		})
	}

	if c.Backend.HeartbeatTTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "backend.heartbeat_ttl",
			Message: "heartbeat_ttl must be positive",
		})
	}

	if c.Backend.TasksPerCore <= 0 {
		errors = append(errors, ValidationError{
			Field:   "backend.tasks_per_core",
			Message: "tasks_per_core must be positive",
		})
	}

	return errors
}

func (c *Config) validateResults() ValidationErrors {
	var errors ValidationErrors

	if c.Results.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "results.host",
			Message: "host is required when results are enabled",
		})
	}

	if c.Results.Port <= 0 || c.Results.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "results.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if c.Results.User == "" {
		errors = append(errors, ValidationError{
			Field:   "results.user",
			Message: "user is required when results are enabled",
		})
	}

	if c.Results.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "results.database",
			Message: "database name is required when results are enabled",
		})
	}

	if c.Results.Table == "" {
		errors = append(errors, ValidationError{
			Field:   "results.table",
			Message: "table is required when results are enabled",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[c.Results.TLS] {
		errors = append(errors, ValidationError{
			Field:   "results.tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
