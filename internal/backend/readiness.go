package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/dbsmedya/cdr3net/internal/config"
	"github.com/dbsmedya/cdr3net/internal/logger"
)

// ReadinessMonitor waits for a backend to report enough parallelism before
// a measurement starts.
type ReadinessMonitor struct {
	interval time.Duration
	timeout  time.Duration // 0 disables the bound
	logger   *logger.Logger
}

// NewReadinessMonitor creates a monitor from the backend configuration.
func NewReadinessMonitor(cfg config.BackendConfig, log *logger.Logger) *ReadinessMonitor {
	if log == nil {
		log = logger.NewDefault()
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &ReadinessMonitor{
		interval: interval,
		timeout:  cfg.ReadyTimeout,
		logger:   log,
	}
}

// CheckParallelism reports whether h currently offers at least want cores,
// along with the number it reported.
func (rm *ReadinessMonitor) CheckParallelism(ctx context.Context, h Handle, want int) (bool, int, error) {
	have, err := h.AvailableParallelism(ctx)
	if err != nil {
		return false, -1, fmt.Errorf("failed to query backend parallelism: %w", err)
	}
	return have >= want, have, nil
}

// WaitForParallelism blocks until h reports at least want cores. It returns
// immediately for a nil handle or a non-positive target. When the monitor has
// a timeout and the target is not reached in time, ErrReadinessTimeout is
// returned.
func (rm *ReadinessMonitor) WaitForParallelism(ctx context.Context, h Handle, want int) error {
	if h == nil || want <= 0 {
		return nil
	}

	var deadline <-chan time.Time
	if rm.timeout > 0 {
		timer := time.NewTimer(rm.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	have := -1
	for {
		ok, n, err := rm.CheckParallelism(ctx, h, want)
		if err != nil {
			rm.logger.Errorf("Readiness check failed: %v (retrying in %s)", err, rm.interval)
		} else if ok {
			rm.logger.Debugf("Backend ready: %d cores (wanted %d)", n, want)
			return nil
		} else {
			have = n
			rm.logger.Infof("Waiting for backend parallelism: %d of %d cores", n, want)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("readiness wait cancelled: %w", ctx.Err())
		case <-deadline:
			return fmt.Errorf("%w: %d of %d cores after %s", ErrReadinessTimeout, have, want, rm.timeout)
		case <-time.After(rm.interval):
		}
	}
}

// Interval returns the configured poll interval.
func (rm *ReadinessMonitor) Interval() time.Duration {
	return rm.interval
}

// Timeout returns the configured readiness bound, 0 meaning unbounded.
func (rm *ReadinessMonitor) Timeout() time.Duration {
	return rm.timeout
}
