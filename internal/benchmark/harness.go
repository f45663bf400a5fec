package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/dbsmedya/cdr3net/internal/backend"
	"github.com/dbsmedya/cdr3net/internal/config"
	"github.com/dbsmedya/cdr3net/internal/logger"
	"github.com/dbsmedya/cdr3net/internal/metrics"
	"github.com/dbsmedya/cdr3net/internal/network"
)

// Computer is the part of the computation engine the harness times.
type Computer interface {
	Graph(ctx context.Context, strs []string, minLD, maxLD int, h backend.Handle) (*network.Result[*network.Graph], error)
	Degrees(ctx context.Context, strs []string, minLD, maxLD int, h backend.Handle) (*network.Result[[]int], error)
}

// Generator produces synthetic corpora.
type Generator interface {
	Generate(count, minLen, maxLen int) []string
}

// Options describe one benchmark sweep.
type Options struct {
	MinSize int
	MaxSize int
	Runs    int
	// Cores is recorded with every row and is the readiness target of a
	// distributed backend, less one for the driver.
	Cores  int
	MinLen int
	MaxLen int
}

// Harness times graph and degree computations over a range of corpus sizes.
type Harness struct {
	run      *config.RunConfig
	selector *backend.Selector
	monitor  *backend.ReadinessMonitor
	computer Computer
	gen      Generator
	sink     Sink
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// NewHarness creates a Harness writing to sink.
func NewHarness(run *config.RunConfig, sel *backend.Selector, mon *backend.ReadinessMonitor, comp Computer, gen Generator, sink Sink, m *metrics.Metrics, log *logger.Logger) *Harness {
	if log == nil {
		log = logger.NewDefault()
	}
	if m == nil {
		m = metrics.New()
	}
	if mon == nil {
		mon = backend.NewReadinessMonitor(config.BackendConfig{}, log)
	}
	return &Harness{
		run:      run,
		selector: sel,
		monitor:  mon,
		computer: comp,
		gen:      gen,
		sink:     sink,
		metrics:  m,
		logger:   log.WithWorkflow("benchmark"),
	}
}

// Run measures every sampled size in order and returns the records written.
func (h *Harness) Run(ctx context.Context, opts Options) ([]Record, error) {
	sizes, err := SampleSizes(opts.MinSize, opts.MaxSize, opts.Runs)
	if err != nil {
		return nil, err
	}
	h.logger.Infow("Starting benchmark", "sizes", sizes, "cores", opts.Cores, "kind", h.run.Kind)

	var records []Record
	for _, n := range sizes {
		recs, err := h.measure(ctx, n, opts)
		records = append(records, recs...)
		if err != nil {
			return records, err
		}
	}
	return records, nil
}

// measure runs one sampled size with its own backend selection.
func (h *Harness) measure(ctx context.Context, n int, opts Options) ([]Record, error) {
	log := h.logger.WithSize(int64(n))
	strs := h.gen.Generate(n, opts.MinLen, opts.MaxLen)

	var records []Record
	err := h.selector.With(ctx, int64(len(strs)), func(handle backend.Handle) error {
		distributed := handle != nil
		h.metrics.ObserveSelection(distributed)

		if distributed {
			if err := h.monitor.WaitForParallelism(ctx, handle, opts.Cores-1); err != nil {
				return err
			}
		}

		record := func(kind string, elapsed time.Duration) error {
			r := Record{
				NStrings:    n,
				NCores:      opts.Cores,
				Distributed: distributed,
				Type:        kind,
				MinLD:       h.run.MinLD,
				MaxLD:       h.run.MaxLD,
				Elapsed:     elapsed,
			}
			h.metrics.ObserveComputation(kind, distributed, elapsed)
			if err := h.sink.Write(ctx, r); err != nil {
				return err
			}
			h.metrics.Records.Inc()
			records = append(records, r)
			log.Infow("Measured", "type", kind, "distributed", distributed, "dt", elapsed)
			return nil
		}

		if h.run.Kind.WantsGraph() {
			elapsed, err := timeGraph(ctx, h.computer, strs, h.run.MinLD, h.run.MaxLD, handle)
			if err != nil {
				return err
			}
			if err := record(string(config.KindGraph), elapsed); err != nil {
				return err
			}
		}
		if h.run.Kind.WantsDegrees() {
			elapsed, err := timeDegrees(ctx, h.computer, strs, h.run.MinLD, h.run.MaxLD, handle)
			if err != nil {
				return err
			}
			if err := record(string(config.KindDegrees), elapsed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return records, fmt.Errorf("benchmark of %d strings failed: %w", n, err)
	}
	return records, nil
}

// timeGraph measures the graph computation up to its materialized result.
func timeGraph(ctx context.Context, c Computer, strs []string, minLD, maxLD int, h backend.Handle) (time.Duration, error) {
	start := time.Now()
	res, err := c.Graph(ctx, strs, minLD, maxLD, h)
	if err != nil {
		return 0, err
	}
	if _, err := res.Materialize(ctx); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func timeDegrees(ctx context.Context, c Computer, strs []string, minLD, maxLD int, h backend.Handle) (time.Duration, error) {
	start := time.Now()
	res, err := c.Degrees(ctx, strs, minLD, maxLD, h)
	if err != nil {
		return 0, err
	}
	if _, err := res.Materialize(ctx); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
