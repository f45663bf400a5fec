// Package network computes edit-distance relationship graphs and degree
// distributions over CDR3 corpora, locally or on a distributed backend.
package network

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/cdr3net/internal/backend"
	"github.com/dbsmedya/cdr3net/internal/config"
	"github.com/dbsmedya/cdr3net/internal/corpus"
	"github.com/dbsmedya/cdr3net/internal/logger"
)

// Engine runs graph and degree computations. A nil backend handle selects
// the local path; otherwise work is split into stripes and submitted.
type Engine struct {
	tasksPerCore int
	localWorkers int
	logger       *logger.Logger
}

// NewEngine creates an Engine.
func NewEngine(cfg config.BackendConfig, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault()
	}
	tasksPerCore := cfg.TasksPerCore
	if tasksPerCore <= 0 {
		tasksPerCore = 2
	}
	return &Engine{
		tasksPerCore: tasksPerCore,
		localWorkers: runtime.GOMAXPROCS(0),
		logger:       log,
	}
}

// Graph computes the edges between strings whose distance is in [minLD, maxLD].
func (e *Engine) Graph(ctx context.Context, strs []string, minLD, maxLD int, h backend.Handle) (*Result[*Graph], error) {
	if h != nil {
		return e.submitGraph(ctx, strs, minLD, maxLD, h)
	}

	m := newPairMatcher(strs, minLD, maxLD)
	stripes := stripeCount(len(strs), e.localWorkers)
	parts := make([][]Edge, stripes)

	g, gctx := errgroup.WithContext(ctx)
	for s := 0; s < stripes; s++ {
		g.Go(func() error {
			edges, err := m.graphStripe(gctx, s, stripes)
			parts[s] = edges
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("graph computation failed: %w", err)
	}
	return Ready(mergeEdges(strs, parts)), nil
}

// Degrees computes, for each string, the number of other strings whose
// distance to it is in [minLD, maxLD].
func (e *Engine) Degrees(ctx context.Context, strs []string, minLD, maxLD int, h backend.Handle) (*Result[[]int], error) {
	if h != nil {
		return e.submitDegrees(ctx, strs, minLD, maxLD, h)
	}

	m := newPairMatcher(strs, minLD, maxLD)
	stripes := stripeCount(len(strs), e.localWorkers)
	parts := make([][]int, stripes)

	g, gctx := errgroup.WithContext(ctx)
	for s := 0; s < stripes; s++ {
		g.Go(func() error {
			deg, err := m.degreeStripe(gctx, s, stripes)
			parts[s] = deg
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("degree computation failed: %w", err)
	}
	return Ready(sumDegrees(len(strs), parts)), nil
}

// ProcessFile loads column from path, computes every kind the run asks for
// and writes the outputs into the run's output directory.
func (e *Engine) ProcessFile(ctx context.Context, path string, h backend.Handle, column string, run *config.RunConfig) error {
	strs, err := corpus.Load(path, column)
	if err != nil {
		return err
	}

	log := e.logger.WithFile(path).WithSize(int64(len(strs)))
	log.Infow("Processing file", "distributed", h != nil, "kind", run.Kind)

	base := corpus.BaseName(path)
	if run.Kind.WantsGraph() {
		res, err := e.Graph(ctx, strs, run.MinLD, run.MaxLD, h)
		if err != nil {
			return err
		}
		g, err := res.Materialize(ctx)
		if err != nil {
			return err
		}
		if err := WriteGraphFile(GraphPath(run.OutputDir, base), g); err != nil {
			return err
		}
		log.Infow("Wrote graph", "edges", len(g.Edges))
	}
	if run.Kind.WantsDegrees() {
		res, err := e.Degrees(ctx, strs, run.MinLD, run.MaxLD, h)
		if err != nil {
			return err
		}
		deg, err := res.Materialize(ctx)
		if err != nil {
			return err
		}
		if err := WriteDegreesFile(DegreesPath(run.OutputDir, base), strs, deg); err != nil {
			return err
		}
		log.Info("Wrote degrees")
	}
	return nil
}

func stripeCount(n, parallelism int) int {
	if parallelism < 1 {
		parallelism = 1
	}
	if n < parallelism {
		parallelism = n
	}
	return max(parallelism, 1)
}

func mergeEdges(strs []string, parts [][]Edge) *Graph {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	edges := make([]Edge, 0, total)
	for _, p := range parts {
		edges = append(edges, p...)
	}
	slices.SortFunc(edges, func(a, b Edge) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Target, b.Target)
	})
	return &Graph{Strings: strs, Edges: edges}
}

func sumDegrees(n int, parts [][]int) []int {
	deg := make([]int, n)
	for _, p := range parts {
		for i, d := range p {
			deg[i] += d
		}
	}
	return deg
}
