package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dbsmedya/cdr3net/internal/backend"
	"github.com/dbsmedya/cdr3net/internal/config"
	"github.com/dbsmedya/cdr3net/internal/logger"
	"github.com/dbsmedya/cdr3net/internal/metrics"
	"github.com/dbsmedya/cdr3net/internal/network"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "cdr3net",
	Short: "CDR3 edit-distance graphs and degree distributions",
	Long: `cdr3net computes edit-distance relationship graphs and degree
distributions over CDR3 sequence collections.

Small inputs are computed locally. Inputs above --distributed-cutoff are
sent to a Redis-coordinated worker pool when --distributed is set; start
workers with "cdr3net worker".`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	addRunFlags(rootCmd.PersistentFlags())
}

// addRunFlags registers the options shared by every subcommand. Values are
// read back through overridesFrom so that only flags the user set take
// precedence over the config file.
func addRunFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path to configuration file (YAML)")
	fs.String("master", "", "Distributed backend master address (redis://host:port/db)")
	fs.String("kind", "", "Output kind: graph, degrees or all")
	fs.StringP("output-dir", "o", "", "Directory for output files")
	fs.Int("min-ld", 0, "Minimum edit distance of an edge")
	fs.Int("max-ld", 0, "Maximum edit distance of an edge")
	fs.Int64("distributed-cutoff", 0, "Corpus size above which work is distributed")
	fs.Bool("distributed", false, "Enable distributed execution")
	fs.Duration("ready-timeout", 0, "Bound on the benchmark readiness wait (0 waits forever)")
	fs.String("log-level", "", "Override log level (debug, info, warn, error)")
	fs.String("log-format", "", "Override log format (json, text)")
}

// overridesFrom collects the flags that were set on the command line.
func overridesFrom(fs *pflag.FlagSet) config.Overrides {
	var o config.Overrides
	if fs.Changed("kind") {
		v, _ := fs.GetString("kind")
		o.Kind = &v
	}
	if fs.Changed("output-dir") {
		v, _ := fs.GetString("output-dir")
		o.OutputDir = &v
	}
	if fs.Changed("min-ld") {
		v, _ := fs.GetInt("min-ld")
		o.MinLD = &v
	}
	if fs.Changed("max-ld") {
		v, _ := fs.GetInt("max-ld")
		o.MaxLD = &v
	}
	if fs.Changed("distributed-cutoff") {
		v, _ := fs.GetInt64("distributed-cutoff")
		o.DistributedCutoff = &v
	}
	if fs.Changed("distributed") {
		v, _ := fs.GetBool("distributed")
		o.DistributedEnabled = &v
	}
	if fs.Changed("master") {
		v, _ := fs.GetString("master")
		o.MasterAddress = &v
	}
	if fs.Changed("ready-timeout") {
		v, _ := fs.GetDuration("ready-timeout")
		o.ReadyTimeout = &v
	}
	if fs.Changed("log-level") {
		v, _ := fs.GetString("log-level")
		o.LogLevel = &v
	}
	if fs.Changed("log-format") {
		v, _ := fs.GetString("log-format")
		o.LogFormat = &v
	}
	return o
}

// app is the state every subcommand starts from.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
}

// loadApp loads the config file, applies command-line overrides, validates
// the result and builds the logger.
func loadApp(fs *pflag.FlagSet) (*app, error) {
	cfgFile, _ := fs.GetString("config")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyOverrides(overridesFrom(fs))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &app{cfg: cfg, log: log, metrics: metrics.New()}, nil
}

func (a *app) selector() *backend.Selector {
	factory := backend.RedisFactory{Config: a.cfg.Backend, Logger: a.log}
	return backend.NewSelector(&a.cfg.Run, factory, a.log)
}

func (a *app) engine() *network.Engine {
	return network.NewEngine(a.cfg.Backend, a.log)
}

// close writes the metrics textfile, if configured, and flushes the logger.
func (a *app) close() {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			a.log.Warnf("Failed to write metrics textfile %s: %v", path, err)
		}
	}
	_ = a.log.Sync()
}

// commandContext returns a context cancelled by SIGINT or SIGTERM.
func (a *app) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return setupSignalHandler(parent, func(sig os.Signal) {
		a.log.Warnf("Received %s, stopping", sig)
	})
}
