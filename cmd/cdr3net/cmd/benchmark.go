package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/dbsmedya/cdr3net/internal/backend"
	"github.com/dbsmedya/cdr3net/internal/benchmark"
	"github.com/dbsmedya/cdr3net/internal/cdr3"
	"github.com/dbsmedya/cdr3net/internal/database"
	"github.com/dbsmedya/cdr3net/internal/lock"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Time computations over a range of corpus sizes",
	Long: `Benchmark generates synthetic corpora at --num-runs sizes spaced on a log
scale between --nstrings-min and --nstrings-max, times each configured
computation and writes one row per size and kind to --benchmark-file.

When a distributed backend is used, each size waits until the backend
reports --cores - 1 cores, bounded by --ready-timeout.

Example:
  cdr3net benchmark --nstrings-min 1000 --nstrings-max 100000 --num-runs 5 \
    --kind all --distributed --cores 32 --append`,
	Args: cobra.NoArgs,
	RunE: runBenchmark,
}

type benchmarkOptions struct {
	benchmark.Options
	file       string
	appendMode bool
	force      bool
	seed       uint64
}

func init() {
	benchmarkCmd.Flags().Int("nstrings-min", 100, "Smallest corpus size")
	benchmarkCmd.Flags().Int("nstrings-max", 10000, "Largest corpus size")
	benchmarkCmd.Flags().Int("num-runs", 3, "Number of sizes to sample")
	benchmarkCmd.Flags().String("benchmark-file", "benchmark.csv", "Benchmark table path")
	benchmarkCmd.Flags().Bool("append", false, "Append to an existing benchmark table")
	benchmarkCmd.Flags().Int("cores", runtime.NumCPU(), "Core count recorded and awaited on the backend")
	benchmarkCmd.Flags().Bool("force", false,
		"Run even if another benchmark holds the cluster lock (use with caution)")
	addLengthFlags(benchmarkCmd)
	rootCmd.AddCommand(benchmarkCmd)
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Flags())
	if err != nil {
		return err
	}
	defer a.close()

	fs := cmd.Flags()
	opts := benchmarkOptions{seed: generatorSeed(cmd)}
	opts.MinSize, _ = fs.GetInt("nstrings-min")
	opts.MaxSize, _ = fs.GetInt("nstrings-max")
	opts.Runs, _ = fs.GetInt("num-runs")
	opts.Cores, _ = fs.GetInt("cores")
	opts.MinLen, _ = fs.GetInt("min-length")
	opts.MaxLen, _ = fs.GetInt("max-length")
	opts.file, _ = fs.GetString("benchmark-file")
	opts.appendMode, _ = fs.GetBool("append")
	opts.force, _ = fs.GetBool("force")

	ctx, cancel := a.commandContext(cmd)
	defer cancel()

	return benchmarkWorkflow(ctx, a, opts, cmd.OutOrStdout())
}

// benchmarkWorkflow runs the sweep. When any size will be distributed, the
// cluster lock is held for the whole sweep so that concurrent benchmarks do
// not share workers.
func benchmarkWorkflow(ctx context.Context, a *app, opts benchmarkOptions, out io.Writer) error {
	sel := a.selector()
	if !sel.UseDistributed(int64(opts.MaxSize)) {
		return runSweep(ctx, a, sel, opts, out)
	}
	if opts.force {
		a.log.Warn("Skipping cluster lock acquisition (--force flag used)")
		return runSweep(ctx, a, sel, opts, out)
	}

	client, err := backend.NewRedisClient(a.cfg.Run.MasterAddress)
	if err != nil {
		return err
	}
	defer client.Close()

	l := lock.New(client, lock.Name(a.cfg.Backend.KeyPrefix, "benchmark"), a.cfg.Backend.JobTTL).WithLogger(a.log)
	err = l.WithLock(ctx, func(ctx context.Context) error {
		a.log.Infow("Acquired cluster lock", "key", l.Key())
		return runSweep(ctx, a, sel, opts, out)
	})
	if errors.Is(err, lock.ErrLockHeld) {
		return fmt.Errorf("another benchmark is using the cluster (use --force to override): %w", err)
	}
	return err
}

func runSweep(ctx context.Context, a *app, sel *backend.Selector, opts benchmarkOptions, out io.Writer) (err error) {
	sink, closeSink, err := openSinks(ctx, a, opts.file, opts.appendMode)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, closeSink())
	}()

	h := benchmark.NewHarness(
		&a.cfg.Run,
		sel,
		backend.NewReadinessMonitor(a.cfg.Backend, a.log),
		a.engine(),
		cdr3.NewGenerator(opts.seed),
		sink,
		a.metrics,
		a.log,
	)

	records, err := h.Run(ctx, opts.Options)
	if len(records) > 0 {
		printRecords(out, records)
	}
	return err
}

// openSinks opens the CSV table and, when configured, the results database.
func openSinks(ctx context.Context, a *app, path string, appendMode bool) (benchmark.Sink, func() error, error) {
	table, err := benchmark.OpenCSV(path, appendMode)
	if err != nil {
		return nil, nil, err
	}
	if !a.cfg.Results.Enabled {
		return table, table.Close, nil
	}

	db, err := database.Connect(ctx, &a.cfg.Results)
	if err != nil {
		table.Close()
		return nil, nil, err
	}
	sqlSink, err := benchmark.NewSQLSink(ctx, db, a.cfg.Results.Table)
	if err != nil {
		table.Close()
		db.Close()
		return nil, nil, fmt.Errorf("failed to prepare results table: %w", err)
	}
	a.log.Infow("Mirroring benchmark records to MySQL", "host", a.cfg.Results.Host, "table", a.cfg.Results.Table)

	sinks := benchmark.MultiSink{table, sqlSink}
	return sinks, func() error { return multierr.Append(sinks.Close(), db.Close()) }, nil
}
