package network

import "context"

// Result is the outcome of a computation that may still be running on a
// distributed backend. Materialize must be called before the value is used
// or before a timing that includes the computation is taken.
type Result[T any] struct {
	value   T
	ready   bool
	collect func(ctx context.Context) (T, error)
}

// Ready wraps a value that has already been computed.
func Ready[T any](v T) *Result[T] {
	return &Result[T]{value: v, ready: true}
}

// Deferred wraps a computation that finishes when collect returns.
func Deferred[T any](collect func(ctx context.Context) (T, error)) *Result[T] {
	return &Result[T]{collect: collect}
}

// Materialize forces the computation and returns its value. Later calls
// return the cached value.
func (r *Result[T]) Materialize(ctx context.Context) (T, error) {
	if !r.ready {
		v, err := r.collect(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		r.value = v
		r.ready = true
		r.collect = nil
	}
	return r.value, nil
}

// Materialized reports whether the value is available without blocking.
func (r *Result[T]) Materialized() bool {
	return r.ready
}
