package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dbsmedya/cdr3net/internal/config"
	"github.com/dbsmedya/cdr3net/internal/logger"
)

// collectPoll bounds each blocking pop so cancellation is noticed promptly.
const collectPoll = time.Second

// keyspace names every Redis key the cluster touches.
type keyspace struct {
	prefix string
}

func (k keyspace) tasks() string { return k.prefix + "tasks" }
func (k keyspace) worker(id string) string { return k.prefix + "worker:" + id }
func (k keyspace) workerPattern() string { return k.prefix + "worker:*" }
func (k keyspace) shared(jobID string) string { return k.prefix + "job:" + jobID + ":shared" }
func (k keyspace) results(jobID string) string { return k.prefix + "job:" + jobID + ":results" }

type taskEnvelope struct {
	JobID   string `json:"job_id"`
	Kind    string `json:"kind"`
	Index   int    `json:"index"`
	Payload []byte `json:"payload"`
}

type resultEnvelope struct {
	Index   int    `json:"index"`
	Payload []byte `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
	Worker  string `json:"worker"`
}

// NewRedisClient builds a client for a master given either as a redis:// URL
// or as a bare host:port.
func NewRedisClient(master string) (*redis.Client, error) {
	if strings.Contains(master, "://") {
		opts, err := redis.ParseURL(master)
		if err != nil {
			return nil, fmt.Errorf("invalid master address %q: %w", master, err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: master}), nil
}

// RedisFactory connects to a Redis master that coordinates cdr3net workers.
type RedisFactory struct {
	Config config.BackendConfig
	Logger *logger.Logger
}

// Connect opens a client and verifies the master answers PING.
func (f RedisFactory) Connect(ctx context.Context, master string) (Handle, error) {
	client, err := NewRedisClient(master)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("master unreachable: %w", err)
	}
	return NewCluster(client, f.Config, f.Logger), nil
}

// Cluster is a Handle backed by a Redis task queue. It owns its client.
type Cluster struct {
	client *redis.Client
	keys   keyspace
	jobTTL time.Duration
	logger *logger.Logger
}

// NewCluster wraps an already connected client.
func NewCluster(client *redis.Client, cfg config.BackendConfig, log *logger.Logger) *Cluster {
	if log == nil {
		log = logger.NewDefault()
	}
	jobTTL := cfg.JobTTL
	if jobTTL <= 0 {
		jobTTL = time.Hour
	}
	return &Cluster{
		client: client,
		keys:   keyspace{prefix: cfg.KeyPrefix},
		jobTTL: jobTTL,
		logger: log,
	}
}

// AvailableParallelism sums the core counts announced by live workers.
func (c *Cluster) AvailableParallelism(ctx context.Context) (int, error) {
	total := 0
	iter := c.client.Scan(ctx, 0, c.keys.workerPattern(), 100).Iterator()
	for iter.Next(ctx) {
		cores, err := c.client.Get(ctx, iter.Val()).Int()
		if errors.Is(err, redis.Nil) {
			// heartbeat expired between SCAN and GET
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read worker %s: %w", iter.Val(), err)
		}
		total += cores
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan workers: %w", err)
	}
	return total, nil
}

// Submit stores the shared blob and enqueues one message per task.
func (c *Cluster) Submit(ctx context.Context, job Job) (Pending, error) {
	jobID := uuid.NewString()

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.keys.shared(jobID), job.Shared, c.jobTTL)
	for i, payload := range job.Tasks {
		msg, err := json.Marshal(taskEnvelope{JobID: jobID, Kind: job.Kind, Index: i, Payload: payload})
		if err != nil {
			return nil, fmt.Errorf("failed to encode task %d: %w", i, err)
		}
		pipe.LPush(ctx, c.keys.tasks(), msg)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to submit job: %w", err)
	}

	c.logger.Debugw("Submitted distributed job",
		"job_id", jobID,
		"kind", job.Kind,
		"tasks", len(job.Tasks),
	)

	return &redisPending{cluster: c, jobID: jobID, tasks: len(job.Tasks)}, nil
}

// Close releases the Redis client.
func (c *Cluster) Close() error {
	return c.client.Close()
}

type redisPending struct {
	cluster *Cluster
	jobID   string
	tasks   int
}

func (p *redisPending) Collect(ctx context.Context) ([][]byte, error) {
	c := p.cluster
	resultsKey := c.keys.results(p.jobID)
	defer c.client.Del(context.Background(), c.keys.shared(p.jobID), resultsKey)

	out := make([][]byte, p.tasks)
	for received := 0; received < p.tasks; {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collect cancelled: %w", err)
		}

		vals, err := c.client.BLPop(ctx, collectPoll, resultsKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read results for job %s: %w", p.jobID, err)
		}

		var res resultEnvelope
		if err := json.Unmarshal([]byte(vals[1]), &res); err != nil {
			return nil, fmt.Errorf("failed to decode result for job %s: %w", p.jobID, err)
		}
		if res.Error != "" {
			return nil, fmt.Errorf("%w: job %s task %d on worker %s: %s",
				ErrTaskFailed, p.jobID, res.Index, res.Worker, res.Error)
		}
		if res.Index < 0 || res.Index >= p.tasks {
			return nil, fmt.Errorf("job %s: result index %d out of range", p.jobID, res.Index)
		}
		out[res.Index] = res.Payload
		received++
	}
	return out, nil
}
