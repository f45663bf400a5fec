package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Run defaults
	if cfg.Run.Kind != KindGraph {
		t.Errorf("expected kind 'graph', got %s", cfg.Run.Kind)
	}
	if cfg.Run.MinLD != 1 || cfg.Run.MaxLD != 1 {
		t.Errorf("expected min_ld/max_ld 1/1, got %d/%d", cfg.Run.MinLD, cfg.Run.MaxLD)
	}
	if cfg.Run.DistributedEnabled {
		t.Errorf("expected distributed execution disabled by default")
	}
	if cfg.Run.DistributedCutoff != 10000 {
		t.Errorf("expected distributed_cutoff 10000, got %d", cfg.Run.DistributedCutoff)
	}

	// Backend defaults
	if cfg.Backend.ReadyTimeout != 10*time.Minute {
		t.Errorf("expected ready_timeout 10m, got %s", cfg.Backend.ReadyTimeout)
	}
	if cfg.Backend.PollInterval != 5*time.Second {
		t.Errorf("expected poll_interval 5s, got %s", cfg.Backend.PollInterval)
	}

	// Results defaults
	if cfg.Results.Enabled {
		t.Errorf("expected results sink disabled by default")
	}
	if cfg.Results.Table != "benchmark_runs" {
		t.Errorf("expected results table 'benchmark_runs', got %s", cfg.Results.Table)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got: %v", err)
	}
}

func TestExecutionKind(t *testing.T) {
	tests := []struct {
		kind    ExecutionKind
		graph   bool
		degrees bool
		valid   bool
	}{
		{KindGraph, true, false, true},
		{KindDegrees, false, true, true},
		{KindAll, true, true, true},
		{ExecutionKind("matrix"), false, false, false},
		{ExecutionKind(""), false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.WantsGraph(); got != tt.graph {
				t.Errorf("WantsGraph() = %v, want %v", got, tt.graph)
			}
			if got := tt.kind.WantsDegrees(); got != tt.degrees {
				t.Errorf("WantsDegrees() = %v, want %v", got, tt.degrees)
			}
			if got := tt.kind.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}
