// Package queue implements the at-least-once, three-lane durable queue
// (pending / processing / dead_letter) the pipeline is driven from, with
// a worker pool, claim timestamps recorded once at reservation (there is
// no heartbeat), and orphan recovery built on Redis list operations.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/domain"
	"github.com/codeready-toolchain/aegis/internal/metrics"
	"github.com/codeready-toolchain/aegis/internal/store"
)

// ErrNoJobsAvailable indicates a reserve call timed out with nothing to
// claim.
var ErrNoJobsAvailable = errors.New("no jobs available")

// reservation tracks the processing-lane entry claimed timestamp, keyed by
// triage ID, so the Reaper can identify stale claims without a schema
// migration of the job payload itself.
type reservation struct {
	TriageID  string    `json:"triage_id"`
	ClaimedAt time.Time `json:"claimed_at"`
	WorkerID  string    `json:"worker_id"`
}

// Queue drives the three named lanes over a shared Store.
type Queue struct {
	s      *store.Store
	cfg    config.QueueConfig
}

// New builds a Queue.
func New(s *store.Store, cfg config.QueueConfig) *Queue {
	return &Queue{s: s, cfg: cfg}
}

// Enqueue pushes a new job onto the pending lane. Every webhook call
// enqueues unconditionally — Storm Shield, not the queue, is the dedup
// mechanism.
func (q *Queue) Enqueue(ctx context.Context, job domain.TriageJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.TriageID, err)
	}
	pipe := q.s.Client().TxPipeline()
	pipe.Set(ctx, store.KeyJobPayload(job.TriageID), b, 0)
	pipe.RPush(ctx, store.KeyQueuePending(), job.TriageID)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.TriageID, err)
	}
	return nil
}

// Reserve atomically moves one job from pending to processing and returns
// it, blocking up to the configured reserve timeout. Returns
// ErrNoJobsAvailable on timeout.
func (q *Queue) Reserve(ctx context.Context, workerID string) (domain.TriageJob, error) {
	var job domain.TriageJob

	triageID, err := q.s.Client().BLMove(ctx,
		store.KeyQueuePending(), store.KeyQueueProcessing(),
		"LEFT", "RIGHT", q.cfg.ReserveTimeout,
	).Result()
	if errors.Is(err, redis.Nil) {
		return job, ErrNoJobsAvailable
	}
	if err != nil {
		return job, fmt.Errorf("failed to reserve job: %w", err)
	}

	if err := q.recordClaim(ctx, triageID, workerID); err != nil {
		return job, fmt.Errorf("failed to record claim for %s: %w", triageID, err)
	}

	if err := q.s.GetJSON(ctx, store.KeyJobPayload(triageID), &job); err != nil {
		return job, fmt.Errorf("failed to load payload for %s: %w", triageID, err)
	}
	return job, nil
}

func (q *Queue) recordClaim(ctx context.Context, triageID, workerID string) error {
	r := reservation{TriageID: triageID, ClaimedAt: time.Now(), WorkerID: workerID}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return q.s.Client().HSet(ctx, claimsKey(), triageID, b).Err()
}

func claimsKey() string { return "queue:claims" }

// Ack removes a completed job from the processing lane and its claim and
// payload bookkeeping.
func (q *Queue) Ack(ctx context.Context, triageID string) error {
	pipe := q.s.Client().TxPipeline()
	pipe.LRem(ctx, store.KeyQueueProcessing(), 1, triageID)
	pipe.HDel(ctx, claimsKey(), triageID)
	pipe.Del(ctx, store.KeyJobPayload(triageID))
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to ack job %s: %w", triageID, err)
	}
	return nil
}

// Retry increments the job's retry count and moves it back to pending, or
// to the dead-letter lane once the retry cap is exceeded.
func (q *Queue) Retry(ctx context.Context, job domain.TriageJob, cause error) error {
	job.RetryCount++

	pipe := q.s.Client().TxPipeline()
	pipe.LRem(ctx, store.KeyQueueProcessing(), 1, job.TriageID)
	pipe.HDel(ctx, claimsKey(), job.TriageID)

	if job.RetryCount > q.cfg.MaxRetries {
		b, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job %s for dead-letter: %w", job.TriageID, err)
		}
		pipe.Set(ctx, store.KeyJobPayload(job.TriageID), b, 0)
		pipe.RPush(ctx, store.KeyQueueDeadLetter(), job.TriageID)
		_, err = pipe.Exec(ctx)
		return err
	}

	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s for retry: %w", job.TriageID, err)
	}
	pipe.Set(ctx, store.KeyJobPayload(job.TriageID), b, 0)
	pipe.RPush(ctx, store.KeyQueuePending(), job.TriageID)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to retry job %s: %w", job.TriageID, err)
	}
	return nil
}

// DeadLetter moves a job straight to the dead-letter lane, bypassing the
// retry cap — used for unrecoverable processing faults.
func (q *Queue) DeadLetter(ctx context.Context, job domain.TriageJob) error {
	pipe := q.s.Client().TxPipeline()
	pipe.LRem(ctx, store.KeyQueueProcessing(), 1, job.TriageID)
	pipe.HDel(ctx, claimsKey(), job.TriageID)
	pipe.RPush(ctx, store.KeyQueueDeadLetter(), job.TriageID)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to dead-letter job %s: %w", job.TriageID, err)
	}
	return nil
}

// Depths reports the current length of each lane, as surfaced by
// Pool.Health.
type Depths struct {
	Pending     int64 `json:"pending"`
	Processing  int64 `json:"processing"`
	DeadLetter  int64 `json:"dead_letter"`
}

// Depths returns the current lane lengths and updates the queue-depth
// gauges.
func (q *Queue) Depths(ctx context.Context) (Depths, error) {
	pipe := q.s.Client().Pipeline()
	p := pipe.LLen(ctx, store.KeyQueuePending())
	pr := pipe.LLen(ctx, store.KeyQueueProcessing())
	d := pipe.LLen(ctx, store.KeyQueueDeadLetter())
	if _, err := pipe.Exec(ctx); err != nil {
		return Depths{}, fmt.Errorf("failed to read queue depths: %w", err)
	}
	depths := Depths{Pending: p.Val(), Processing: pr.Val(), DeadLetter: d.Val()}
	metrics.QueueDepth.WithLabelValues("pending").Set(float64(depths.Pending))
	metrics.QueueDepth.WithLabelValues("processing").Set(float64(depths.Processing))
	metrics.QueueDepth.WithLabelValues("dead_letter").Set(float64(depths.DeadLetter))
	return depths, nil
}
