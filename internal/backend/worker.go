package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/cdr3net/internal/config"
	"github.com/dbsmedya/cdr3net/internal/logger"
)

// HandlerFunc executes one task of the given kind.
type HandlerFunc func(ctx context.Context, shared, payload []byte) ([]byte, error)

// Worker consumes tasks from the cluster queue and announces its cores
// through a heartbeat key.
type Worker struct {
	client   *redis.Client
	keys     keyspace
	id       string
	cores    int
	ttl      time.Duration
	jobTTL   time.Duration
	handlers map[string]HandlerFunc
	logger   *logger.Logger

	mu         sync.Mutex
	sharedJob  string
	sharedBlob []byte
}

// NewWorker creates a worker with a random id announcing cores parallel slots.
func NewWorker(client *redis.Client, cfg config.BackendConfig, cores int, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.NewDefault()
	}
	if cores <= 0 {
		cores = 1
	}
	ttl := cfg.HeartbeatTTL
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	jobTTL := cfg.JobTTL
	if jobTTL <= 0 {
		jobTTL = time.Hour
	}
	return &Worker{
		client:   client,
		keys:     keyspace{prefix: cfg.KeyPrefix},
		id:       uuid.NewString(),
		cores:    cores,
		ttl:      ttl,
		jobTTL:   jobTTL,
		handlers: make(map[string]HandlerFunc),
		logger:   log,
	}
}

// ID returns the worker id used in its heartbeat key.
func (w *Worker) ID() string {
	return w.id
}

// Handle registers fn for tasks of the given kind.
func (w *Worker) Handle(kind string, fn HandlerFunc) {
	w.handlers[kind] = fn
}

// Register writes the heartbeat key announcing this worker's cores.
func (w *Worker) Register(ctx context.Context) error {
	if err := w.client.Set(ctx, w.keys.worker(w.id), w.cores, w.ttl).Err(); err != nil {
		return fmt.Errorf("failed to register worker: %w", err)
	}
	return nil
}

// Run registers the worker and processes tasks with one consumer per core
// until ctx is cancelled. The heartbeat is removed on the way out.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Register(ctx); err != nil {
		return err
	}
	defer w.client.Del(context.Background(), w.keys.worker(w.id))

	w.logger.Infow("Worker started", "worker", w.id, "cores", w.cores)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.heartbeat(gctx) })
	for i := 0; i < w.cores; i++ {
		g.Go(func() error {
			for {
				if _, err := w.ProcessOne(gctx, collectPoll); err != nil {
					if gctx.Err() != nil {
						return nil
					}
					return err
				}
			}
		})
	}

	err := g.Wait()
	w.logger.Infow("Worker stopped", "worker", w.id)
	return err
}

func (w *Worker) heartbeat(ctx context.Context) error {
	ticker := time.NewTicker(w.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Register(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warnf("Heartbeat failed: %v", err)
			}
		}
	}
}

// ProcessOne waits up to timeout for a task and executes it. It reports
// whether a task was handled. Task failures are sent back to the submitter,
// not returned.
func (w *Worker) ProcessOne(ctx context.Context, timeout time.Duration) (bool, error) {
	vals, err := w.client.BRPop(ctx, timeout, w.keys.tasks()).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to pop task: %w", err)
	}

	var task taskEnvelope
	if err := json.Unmarshal([]byte(vals[1]), &task); err != nil {
		w.logger.Errorf("Dropping undecodable task: %v", err)
		return true, nil
	}

	res := resultEnvelope{Index: task.Index, Worker: w.id}
	payload, err := w.execute(ctx, task)
	if err != nil {
		res.Error = err.Error()
		w.logger.Warnw("Task failed", "job_id", task.JobID, "index", task.Index, "error", err)
	} else {
		res.Payload = payload
	}

	msg, err := json.Marshal(res)
	if err != nil {
		return true, fmt.Errorf("failed to encode result: %w", err)
	}

	resultsKey := w.keys.results(task.JobID)
	pipe := w.client.TxPipeline()
	pipe.RPush(ctx, resultsKey, msg)
	pipe.Expire(ctx, resultsKey, w.jobTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("failed to publish result: %w", err)
	}
	return true, nil
}

func (w *Worker) execute(ctx context.Context, task taskEnvelope) ([]byte, error) {
	fn, ok := w.handlers[task.Kind]
	if !ok {
		return nil, fmt.Errorf("no handler for task kind %q", task.Kind)
	}
	shared, err := w.loadShared(ctx, task.JobID)
	if err != nil {
		return nil, err
	}
	return fn(ctx, shared, task.Payload)
}

// loadShared fetches the job's shared blob, keeping the most recent one cached.
func (w *Worker) loadShared(ctx context.Context, jobID string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sharedJob == jobID {
		return w.sharedBlob, nil
	}

	blob, err := w.client.Get(ctx, w.keys.shared(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("shared data for job %s is missing or expired", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shared data for job %s: %w", jobID, err)
	}

	w.sharedJob = jobID
	w.sharedBlob = blob
	return blob, nil
}
