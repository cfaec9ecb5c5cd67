package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/aegis/internal/store"
)

// recoverScript moves a triage ID from processing back to pending and drops
// its claim. The push happens only when this call removed the entry, so a
// claim seen by several reapers is recovered once. Returns the LREM count.
var recoverScript = redis.NewScript(`
local removed = redis.call('LREM', KEYS[1], 1, ARGV[1])
if removed == 1 then
	redis.call('RPUSH', KEYS[2], ARGV[1])
end
redis.call('HDEL', KEYS[3], ARGV[1])
return removed
`)

// Reaper periodically scans the processing lane for claims that have gone
// stale (no ack within OrphanThreshold) and restores them to pending.
// All workers run their own Reaper independently — recovery is
// idempotent (an entry is pushed back only by the reaper whose LRem
// removed it).
type Reaper struct {
	q  *Queue
	mu sync.Mutex

	lastScan  time.Time
	recovered int
}

// NewReaper builds a Reaper bound to the given queue.
func NewReaper(q *Queue) *Reaper {
	return &Reaper{q: q}
}

// Run blocks, scanning on the configured interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.q.cfg.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.scanOnce(ctx); err != nil {
				slog.Error("orphan scan failed", "error", err)
			}
		}
	}
}

func (r *Reaper) scanOnce(ctx context.Context) error {
	threshold := time.Now().Add(-r.q.cfg.OrphanThreshold)

	claims, err := r.q.s.Client().HGetAll(ctx, claimsKey()).Result()
	if err != nil {
		return err
	}

	recovered := 0
	for triageID, raw := range claims {
		var res reservation
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			continue
		}
		if res.ClaimedAt.After(threshold) {
			continue
		}

		keys := []string{store.KeyQueueProcessing(), store.KeyQueuePending(), claimsKey()}
		removed, err := recoverScript.Run(ctx, r.q.s.Client(), keys, triageID).Int()
		if err != nil {
			slog.Error("failed to recover orphaned job", "triage_id", triageID, "error", err)
			continue
		}
		if removed == 0 {
			continue
		}
		slog.Warn("recovered orphaned job", "triage_id", triageID, "claimed_at", res.ClaimedAt)
		recovered++
	}

	r.mu.Lock()
	r.lastScan = time.Now()
	r.recovered += recovered
	r.mu.Unlock()
	return nil
}

// Stats returns the last scan time and cumulative recovered count, as
// reported by Pool.Health.
func (r *Reaper) Stats() (time.Time, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastScan, r.recovered
}
