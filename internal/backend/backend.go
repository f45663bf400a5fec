// Package backend decides where cdr3net work runs and provides the
// Redis-coordinated cluster used when it runs distributed.
package backend

import (
	"context"
	"errors"
)

var (
	// ErrReadinessTimeout is returned when a cluster does not report the
	// requested parallelism before the configured timeout.
	ErrReadinessTimeout = errors.New("backend readiness timeout")

	// ErrTaskFailed is returned when a worker reports a failed task.
	ErrTaskFailed = errors.New("distributed task failed")
)

// Handle is a live session with a distributed execution backend.
// A nil Handle means work is computed locally.
type Handle interface {
	// AvailableParallelism reports how many cores the backend can use right now.
	AvailableParallelism(ctx context.Context) (int, error)

	// Submit enqueues a job and returns without waiting for it to finish.
	Submit(ctx context.Context, job Job) (Pending, error)

	// Close ends the session.
	Close() error
}

// Job is a unit of distributed work. Shared is stored once per job and made
// available to every task; Tasks are executed independently by workers.
type Job struct {
	Kind   string
	Shared []byte
	Tasks  [][]byte
}

// Pending is a submitted job whose results have not been collected yet.
type Pending interface {
	// Collect blocks until every task has reported and returns the task
	// outputs indexed like Job.Tasks.
	Collect(ctx context.Context) ([][]byte, error)
}

// Factory opens a Handle to the backend master at the given address.
type Factory interface {
	Connect(ctx context.Context, master string) (Handle, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, master string) (Handle, error)

// Connect calls f(ctx, master).
func (f FactoryFunc) Connect(ctx context.Context, master string) (Handle, error) {
	return f(ctx, master)
}
