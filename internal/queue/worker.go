package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/codeready-toolchain/aegis/internal/domain"
)

// JobProcessor owns the entire per-job pipeline run. The worker only
// handles reservation, retry/ack bookkeeping, and graceful shutdown.
type JobProcessor interface {
	Process(ctx context.Context, job domain.TriageJob) error
}

// WorkerStatus reports whether a worker is idle or mid-job.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth is one worker's point-in-time status.
type WorkerHealth struct {
	ID               string    `json:"id"`
	Status           string    `json:"status"`
	CurrentTriageID  string    `json:"current_triage_id,omitempty"`
	JobsProcessed    int       `json:"jobs_processed"`
	LastActivity     time.Time `json:"last_activity"`
}

// Worker polls the queue and runs jobs through the processor until Stop is
// called, then finishes any in-hand job before exiting.
type Worker struct {
	id        string
	q         *Queue
	processor JobProcessor

	mu      sync.Mutex
	status  WorkerStatus
	current string
	count   int
	last    time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWorker builds a Worker.
func NewWorker(id string, q *Queue, processor JobProcessor) *Worker {
	return &Worker{
		id:        id,
		q:         q,
		processor: processor,
		status:    WorkerStatusIdle,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start spawns the polling goroutine.
func (w *Worker) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop signals the worker to stop reserving new jobs and blocks until it
// finishes any job already in hand.
func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		job, err := w.q.Reserve(ctx, w.id)
		if err != nil {
			if err == ErrNoJobsAvailable {
				continue
			}
			slog.Error("worker reserve failed", "worker_id", w.id, "error", err)
			time.Sleep(jitteredBackoff())
			continue
		}

		w.setWorking(job.TriageID)
		w.runJob(ctx, job)
		w.setIdle()
	}
}

func (w *Worker) runJob(ctx context.Context, job domain.TriageJob) {
	log := slog.With("worker_id", w.id, "triage_id", job.TriageID)

	// A job already in hand runs to completion even after shutdown cancels
	// ctx; only the reservation loop observes the cancellation.
	ctx = context.WithoutCancel(ctx)

	err := w.processor.Process(ctx, job)
	if err != nil {
		log.Error("job processing failed", "error", err)
		if retryErr := w.q.Retry(ctx, job, err); retryErr != nil {
			log.Error("failed to requeue job after failure", "error", retryErr)
		}
		return
	}

	if ackErr := w.q.Ack(ctx, job.TriageID); ackErr != nil {
		log.Error("failed to ack completed job", "error", ackErr)
	}
}

func (w *Worker) setWorking(triageID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = WorkerStatusWorking
	w.current = triageID
	w.last = time.Now()
}

func (w *Worker) setIdle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = WorkerStatusIdle
	w.current = ""
	w.count++
	w.last = time.Now()
}

// Health returns the worker's current status.
func (w *Worker) Health() WorkerHealth {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WorkerHealth{
		ID:              w.id,
		Status:          string(w.status),
		CurrentTriageID: w.current,
		JobsProcessed:   w.count,
		LastActivity:    w.last,
	}
}

func jitteredBackoff() time.Duration {
	return time.Duration(250+rand.Intn(250)) * time.Millisecond
}

// Pool manages a fixed set of workers plus the background reaper.
type Pool struct {
	q       *Queue
	workers []*Worker
	reaper  *Reaper
	wg      sync.WaitGroup
}

// NewPool builds a worker pool of the configured size.
func NewPool(podID string, q *Queue, processor JobProcessor, workerCount int) *Pool {
	p := &Pool{q: q, reaper: NewReaper(q)}
	for i := 0; i < workerCount; i++ {
		id := fmt.Sprintf("%s-worker-%d", podID, i)
		p.workers = append(p.workers, NewWorker(id, q, processor))
	}
	return p
}

// Start launches every worker and the reaper.
func (p *Pool) Start(ctx context.Context) {
	slog.Info("starting worker pool", "worker_count", len(p.workers))
	for _, w := range p.workers {
		w.Start(ctx)
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.reaper.Run(ctx)
	}()
}

// Stop gracefully stops every worker, waiting for in-hand jobs to finish.
func (p *Pool) Stop() {
	slog.Info("stopping worker pool")
	for _, w := range p.workers {
		w.Stop()
	}
	p.wg.Wait()
	slog.Info("worker pool stopped")
}

// Health reports the pool's aggregate health.
func (p *Pool) Health(ctx context.Context) map[string]any {
	depths, err := p.q.Depths(ctx)
	workerStats := make([]WorkerHealth, len(p.workers))
	for i, w := range p.workers {
		workerStats[i] = w.Health()
	}
	lastScan, recovered := p.reaper.Stats()
	health := map[string]any{
		"worker_count":      len(p.workers),
		"workers":           workerStats,
		"queue_depths":      depths,
		"last_orphan_scan":  lastScan,
		"orphans_recovered": recovered,
	}
	if err != nil {
		health["queue_error"] = err.Error()
	}
	return health
}
