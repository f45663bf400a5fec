package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dbsmedya/cdr3net/internal/config"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.ResultsConfig
		expected string
	}{
		{
			name: "basic DSN",
			cfg: &config.ResultsConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "bench",
				Password: "secret",
				Database: "cdr3",
				TLS:      "preferred",
			},
			expected: "bench:secret@tcp(localhost:3306)/cdr3?parseTime=true&tls=preferred",
		},
		{
			name: "TLS disabled",
			cfg: &config.ResultsConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "bench",
				Password: "secret",
				Database: "cdr3",
				TLS:      "disable",
			},
			expected: "bench:secret@tcp(localhost:3306)/cdr3?parseTime=true&tls=false",
		},
		{
			name: "TLS required",
			cfg: &config.ResultsConfig{
				Host:     "db.internal",
				Port:     3307,
				User:     "bench",
				Password: "p@ss!",
				Database: "cdr3",
				TLS:      "required",
			},
			expected: "bench:p@ss!@tcp(db.internal:3307)/cdr3?parseTime=true&tls=true",
		},
		{
			name: "empty TLS and password",
			cfg: &config.ResultsConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Database: "cdr3",
			},
			expected: "root:@tcp(localhost:3306)/cdr3?parseTime=true&tls=preferred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BuildDSN(tt.cfg)
			if result != tt.expected {
				t.Errorf("BuildDSN() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestConnectWithRetry_Cancelled(t *testing.T) {
	cfg := &config.ResultsConfig{
		Host:     "127.0.0.1",
		Port:     1,
		User:     "bench",
		Database: "cdr3",
		TLS:      "disable",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := connectWithRetry(ctx, cfg, time.Hour)
	if err == nil {
		t.Fatal("connectWithRetry() succeeded against a closed port")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("connectWithRetry() ignored cancellation, took %s", time.Since(start))
	}
}

func TestConnect_WrapsError(t *testing.T) {
	cfg := &config.ResultsConfig{
		Host:     "127.0.0.1",
		Port:     1,
		User:     "bench",
		Database: "cdr3",
		TLS:      "disable",
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Connect(ctx, cfg)
	if err == nil || !strings.Contains(err.Error(), "results database") {
		t.Errorf("Connect() error = %v, want results database context", err)
	}
}
