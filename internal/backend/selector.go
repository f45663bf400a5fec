package backend

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/dbsmedya/cdr3net/internal/config"
	"github.com/dbsmedya/cdr3net/internal/logger"
)

// Selector decides per unit of work whether to open a distributed Handle.
// It holds no state besides its configuration and may be shared freely.
type Selector struct {
	enabled bool
	cutoff  int64
	master  string
	factory Factory
	logger  *logger.Logger
}

// NewSelector builds a Selector from the run configuration. A nil factory
// means no distributed backend is available in this process, so every
// selection is local.
func NewSelector(run *config.RunConfig, factory Factory, log *logger.Logger) *Selector {
	if log == nil {
		log = logger.NewDefault()
	}

	if run.DistributedEnabled && factory == nil {
		log.Warn("Distributed execution requested but no backend is available; computing locally")
	}

	return &Selector{
		enabled: run.DistributedEnabled,
		cutoff:  run.DistributedCutoff,
		master:  run.MasterAddress,
		factory: factory,
		logger:  log,
	}
}

// Cutoff returns the cardinality at or below which work stays local.
func (s *Selector) Cutoff() int64 {
	return s.cutoff
}

// UseDistributed reports whether work of the given cardinality goes to the backend.
func (s *Selector) UseDistributed(n int64) bool {
	return s.enabled && s.factory != nil && n > s.cutoff
}

// Select returns a Handle when n exceeds the cutoff and distributed execution
// is enabled, and nil otherwise. Connecting is not retried.
func (s *Selector) Select(ctx context.Context, n int64) (Handle, error) {
	if !s.UseDistributed(n) {
		return nil, nil
	}

	s.logger.Infow("Connecting to distributed backend",
		"master", s.master,
		"nstrings", n,
		"cutoff", s.cutoff,
	)

	h, err := s.factory.Connect(ctx, s.master)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to backend master %s: %w", s.master, err)
	}
	return h, nil
}

// With selects a backend for n, runs fn with it and releases the handle on
// every exit path. A release error is combined with fn's error.
func (s *Selector) With(ctx context.Context, n int64, fn func(Handle) error) (err error) {
	h, err := s.Select(ctx, n)
	if err != nil {
		return err
	}
	if h != nil {
		defer func() {
			if cerr := h.Close(); cerr != nil {
				err = multierr.Append(err, fmt.Errorf("failed to release backend: %w", cerr))
			}
		}()
	}
	return fn(h)
}
