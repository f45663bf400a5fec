// Package workflow drives the random, file and directory workflows: it
// prepares the corpus, selects a backend for it and hands the work to the
// computation engine.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/cdr3net/internal/backend"
	"github.com/dbsmedya/cdr3net/internal/config"
	"github.com/dbsmedya/cdr3net/internal/corpus"
	"github.com/dbsmedya/cdr3net/internal/logger"
	"github.com/dbsmedya/cdr3net/internal/metrics"
	"github.com/dbsmedya/cdr3net/internal/network"
)

// DirectorySentinel is the cardinality used to select the shared handle of
// a directory run. It exceeds any cutoff, so a handle is opened whenever
// distributed execution is enabled.
const DirectorySentinel int64 = math.MaxInt64

// ErrOutputDirMissing is returned by Directory when the output directory
// does not exist.
var ErrOutputDirMissing = errors.New("output directory does not exist")

// Computer is the computation engine the workflows delegate to.
type Computer interface {
	Graph(ctx context.Context, strs []string, minLD, maxLD int, h backend.Handle) (*network.Result[*network.Graph], error)
	Degrees(ctx context.Context, strs []string, minLD, maxLD int, h backend.Handle) (*network.Result[[]int], error)
	ProcessFile(ctx context.Context, path string, h backend.Handle, column string, run *config.RunConfig) error
}

// Generator produces synthetic corpora.
type Generator interface {
	Generate(count, minLen, maxLen int) []string
}

// Outcome describes one processed corpus.
type Outcome struct {
	Name        string
	Lines       int64
	Distributed bool
	StartedAt   time.Time
	Duration    time.Duration
}

// Driver runs workflows against one run configuration.
type Driver struct {
	run      *config.RunConfig
	selector *backend.Selector
	computer Computer
	gen      Generator
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// NewDriver creates a Driver. gen is only needed by Random. A nil metrics
// set gets a private one.
func NewDriver(run *config.RunConfig, sel *backend.Selector, comp Computer, gen Generator, m *metrics.Metrics, log *logger.Logger) *Driver {
	if log == nil {
		log = logger.NewDefault()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Driver{
		run:      run,
		selector: sel,
		computer: comp,
		gen:      gen,
		metrics:  m,
		logger:   log,
	}
}

// Random generates n sequences and computes the configured kinds over them.
// Outputs are named random_<n>.
func (d *Driver) Random(ctx context.Context, n, minLen, maxLen int) (*Outcome, error) {
	log := d.logger.WithWorkflow("random").WithSize(int64(n))

	strs := d.gen.Generate(n, minLen, maxLen)
	out := &Outcome{Name: fmt.Sprintf("random_%d", n), Lines: int64(len(strs)), StartedAt: time.Now()}

	err := d.selector.With(ctx, out.Lines, func(h backend.Handle) error {
		out.Distributed = h != nil
		d.metrics.ObserveSelection(out.Distributed)
		log.Infow("Computing random corpus", "distributed", out.Distributed, "kind", d.run.Kind)
		return d.compute(ctx, strs, out.Name, h)
	})
	out.Duration = time.Since(out.StartedAt)
	if err != nil {
		return nil, err
	}
	log.Infow("Random workflow complete", "duration", out.Duration)
	return out, nil
}

// compute runs every requested kind over strs with the same handle and
// writes the outputs under base.
func (d *Driver) compute(ctx context.Context, strs []string, base string, h backend.Handle) error {
	if d.run.Kind.WantsGraph() {
		res, err := d.computer.Graph(ctx, strs, d.run.MinLD, d.run.MaxLD, h)
		if err != nil {
			return err
		}
		g, err := res.Materialize(ctx)
		if err != nil {
			return err
		}
		if err := network.WriteGraphFile(network.GraphPath(d.run.OutputDir, base), g); err != nil {
			return err
		}
	}
	if d.run.Kind.WantsDegrees() {
		res, err := d.computer.Degrees(ctx, strs, d.run.MinLD, d.run.MaxLD, h)
		if err != nil {
			return err
		}
		deg, err := res.Materialize(ctx)
		if err != nil {
			return err
		}
		if err := network.WriteDegreesFile(network.DegreesPath(d.run.OutputDir, base), strs, deg); err != nil {
			return err
		}
	}
	return nil
}

// File counts the lines of path, selects a backend for that count and
// delegates the processing of the file.
func (d *Driver) File(ctx context.Context, path, column string) (*Outcome, error) {
	log := d.logger.WithWorkflow("file").WithFile(path)

	lines, err := corpus.CountFileLines(path)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Name: path, Lines: lines, StartedAt: time.Now()}

	err = d.selector.With(ctx, lines, func(h backend.Handle) error {
		out.Distributed = h != nil
		d.metrics.ObserveSelection(out.Distributed)
		return d.computer.ProcessFile(ctx, path, h, column, d.run)
	})
	out.Duration = time.Since(out.StartedAt)
	if err != nil {
		return nil, err
	}
	log.Infow("File workflow complete", "lines", lines, "distributed", out.Distributed, "duration", out.Duration)
	return out, nil
}

// Directory processes every file of dir in name order. One shared handle is
// selected for the whole directory and each file only gets it when its own
// line count exceeds the cutoff. Processing stops at the first error; the
// outcomes gathered so far are returned with it.
func (d *Driver) Directory(ctx context.Context, dir, column string) (*orderedmap.OrderedMap[string, *Outcome], error) {
	log := d.logger.WithWorkflow("directory")

	if err := checkOutputDir(d.run.OutputDir); err != nil {
		return nil, err
	}

	files, err := corpus.ListFiles(dir)
	if err != nil {
		return nil, err
	}
	log.Infow("Processing directory", "dir", dir, "files", len(files))

	outcomes := orderedmap.NewOrderedMap[string, *Outcome]()
	err = d.selector.With(ctx, DirectorySentinel, func(shared backend.Handle) error {
		for _, path := range files {
			lines, err := corpus.CountFileLines(path)
			if err != nil {
				return err
			}

			var h backend.Handle
			if shared != nil && d.selector.UseDistributed(lines) {
				h = shared
			}
			out := &Outcome{Name: path, Lines: lines, Distributed: h != nil, StartedAt: time.Now()}
			d.metrics.ObserveSelection(out.Distributed)

			if err := d.computer.ProcessFile(ctx, path, h, column, d.run); err != nil {
				return err
			}
			out.Duration = time.Since(out.StartedAt)
			outcomes.Set(path, out)

			log.WithFile(path).Debugw("File done", "lines", lines, "distributed", out.Distributed)
		}
		return nil
	})
	return outcomes, err
}

func checkOutputDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrOutputDirMissing, dir)
		}
		return fmt.Errorf("failed to stat output directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrOutputDirMissing, dir)
	}
	return nil
}
