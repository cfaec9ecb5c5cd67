// Package store wraps the Redis-backed key-value layout shared by the
// queue, governance plane, and result cache. Other packages reach Redis
// through a Store, using Client() for commands the wrapper doesn't surface.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/aegis/internal/config"
)

// Store is a thin typed wrapper around a redis client.
type Store struct {
	rdb *redis.Client
}

// New builds a Store from a RedisConfig. The connection is lazy — Redis
// client construction never dials eagerly.
func New(cfg config.RedisConfig) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.rdb.Close() }

// Ping verifies connectivity, used by the /health handler.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Client exposes the underlying redis client for packages that need
// operations this wrapper doesn't surface (list ops for queue lanes).
func (s *Store) Client() *redis.Client { return s.rdb }

// SetJSON marshals v and stores it under key with an optional TTL (zero
// means no expiry).
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// GetJSON fetches and unmarshals the value at key. Returns redis.Nil
// (unwrapped, check with errors.Is) when the key is absent.
func (s *Store) GetJSON(ctx context.Context, key string, v any) error {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// PushAuditLine appends a JSON-encoded line to a bounded list, trimming it
// to maxLen entries. Used for the process-wide activity log and the
// per-incident audit lists.
func (s *Store) PushAuditLine(ctx context.Context, listKey string, v any, maxLen int64) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal audit line: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, listKey, b)
	pipe.LTrim(ctx, listKey, -maxLen, -1)
	_, err = pipe.Exec(ctx)
	return err
}

// ListRange returns up to count raw JSON entries from a list, most recent
// last.
func (s *Store) ListRange(ctx context.Context, listKey string, count int64) ([]string, error) {
	return s.rdb.LRange(ctx, listKey, -count, -1).Result()
}

// Incr increments a counter key, used for the daily processed/blocked/
// failed tallies and the feedback thumbs-up/down counters.
func (s *Store) Incr(ctx context.Context, key string) error {
	return s.rdb.Incr(ctx, key).Err()
}

// IncrBy increments a counter key by delta.
func (s *Store) IncrBy(ctx context.Context, key string, delta int64) error {
	return s.rdb.IncrBy(ctx, key, delta).Err()
}

// Counter reads a counter key, returning 0 if unset.
func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	val, err := s.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return val, err
}

// Key layout, matching the persisted-key table: one place all other
// packages source their Redis keys from.
func KeyTriageResult(triageID string) string   { return "triage:result:" + triageID }
func KeyQueuePending() string                  { return "queue:pending" }
func KeyQueueProcessing() string               { return "queue:processing" }
func KeyQueueDeadLetter() string               { return "queue:dead_letter" }
func KeyJobPayload(triageID string) string     { return "queue:job:" + triageID }
func KeyGovernanceKillSwitch() string          { return "gov:killswitch" }
func KeyGovernanceMode() string                { return "gov:mode" }
func KeyGovernanceThreshold(name string) string {
	return "gov:threshold:" + name
}
func KeyApproval(incident string) string {
	return "approval:" + incident
}
func KeyActivityLog() string                    { return "logs:activity" }
func KeyIncidentAudit(incident string) string   { return "logs:incident:" + incident }
func KeyFeedback(triageID string) string        { return "feedback:" + triageID }
func KeyFeedbackThumbsUp() string               { return "feedback:stats:thumbs_up" }
func KeyFeedbackThumbsDown() string              { return "feedback:stats:thumbs_down" }
func KeyCounter(name, day string) string        { return "stats:" + name + ":" + day }
func KeyDedupeWindow() string                   { return "stormshield:window" }
