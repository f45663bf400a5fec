package network

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dbsmedya/cdr3net/internal/backend"
)

// Task kinds understood by cdr3net workers.
const (
	TaskGraph   = "graph"
	TaskDegrees = "degrees"
)

type stripeTask struct {
	Stripe  int `json:"stripe"`
	Stripes int `json:"stripes"`
	MinLD   int `json:"min_ld"`
	MaxLD   int `json:"max_ld"`
}

func (e *Engine) submit(ctx context.Context, kind string, strs []string, minLD, maxLD int, h backend.Handle) (backend.Pending, error) {
	cores, err := h.AvailableParallelism(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query backend parallelism: %w", err)
	}
	if cores == 0 {
		e.logger.Warnw("No live workers on the backend; results will wait until one registers",
			"kind", kind,
			"nstrings", len(strs),
		)
	}
	stripes := stripeCount(len(strs), max(cores, 1)*e.tasksPerCore)

	shared, err := json.Marshal(strs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode corpus: %w", err)
	}
	tasks := make([][]byte, stripes)
	for s := range tasks {
		tasks[s], err = json.Marshal(stripeTask{Stripe: s, Stripes: stripes, MinLD: minLD, MaxLD: maxLD})
		if err != nil {
			return nil, fmt.Errorf("failed to encode task: %w", err)
		}
	}

	e.logger.Debugw("Submitting distributed computation",
		"kind", kind,
		"nstrings", len(strs),
		"cores", cores,
		"stripes", stripes,
	)

	return h.Submit(ctx, backend.Job{Kind: kind, Shared: shared, Tasks: tasks})
}

func (e *Engine) submitGraph(ctx context.Context, strs []string, minLD, maxLD int, h backend.Handle) (*Result[*Graph], error) {
	pending, err := e.submit(ctx, TaskGraph, strs, minLD, maxLD, h)
	if err != nil {
		return nil, err
	}
	return Deferred(func(ctx context.Context) (*Graph, error) {
		payloads, err := pending.Collect(ctx)
		if err != nil {
			return nil, err
		}
		parts := make([][]Edge, len(payloads))
		for i, p := range payloads {
			if err := json.Unmarshal(p, &parts[i]); err != nil {
				return nil, fmt.Errorf("failed to decode graph stripe %d: %w", i, err)
			}
		}
		return mergeEdges(strs, parts), nil
	}), nil
}

func (e *Engine) submitDegrees(ctx context.Context, strs []string, minLD, maxLD int, h backend.Handle) (*Result[[]int], error) {
	pending, err := e.submit(ctx, TaskDegrees, strs, minLD, maxLD, h)
	if err != nil {
		return nil, err
	}
	return Deferred(func(ctx context.Context) ([]int, error) {
		payloads, err := pending.Collect(ctx)
		if err != nil {
			return nil, err
		}
		parts := make([][]int, len(payloads))
		for i, p := range payloads {
			if err := json.Unmarshal(p, &parts[i]); err != nil {
				return nil, fmt.Errorf("failed to decode degree stripe %d: %w", i, err)
			}
		}
		return sumDegrees(len(strs), parts), nil
	}), nil
}

// RegisterHandlers installs the graph and degree task handlers on w.
func RegisterHandlers(w *backend.Worker) {
	w.Handle(TaskGraph, func(ctx context.Context, shared, payload []byte) ([]byte, error) {
		m, task, err := decodeTask(shared, payload)
		if err != nil {
			return nil, err
		}
		edges, err := m.graphStripe(ctx, task.Stripe, task.Stripes)
		if err != nil {
			return nil, err
		}
		return json.Marshal(edges)
	})
	w.Handle(TaskDegrees, func(ctx context.Context, shared, payload []byte) ([]byte, error) {
		m, task, err := decodeTask(shared, payload)
		if err != nil {
			return nil, err
		}
		deg, err := m.degreeStripe(ctx, task.Stripe, task.Stripes)
		if err != nil {
			return nil, err
		}
		return json.Marshal(deg)
	})
}

func decodeTask(shared, payload []byte) (*pairMatcher, stripeTask, error) {
	var task stripeTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, task, fmt.Errorf("invalid task payload: %w", err)
	}
	if task.Stripes < 1 || task.Stripe < 0 || task.Stripe >= task.Stripes {
		return nil, task, fmt.Errorf("invalid stripe %d of %d", task.Stripe, task.Stripes)
	}
	var strs []string
	if err := json.Unmarshal(shared, &strs); err != nil {
		return nil, task, fmt.Errorf("invalid corpus payload: %w", err)
	}
	return newPairMatcher(strs, task.MinLD, task.MaxLD), task, nil
}
