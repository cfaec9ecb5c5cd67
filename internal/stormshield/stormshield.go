// Package stormshield implements semantic near-duplicate detection: before
// an incident is enriched or classified, it is embedded and compared
// against the incidents previously recorded in the incidents collection.
// Matches are not filtered by age: the configured Window is not applied,
// so an old record counts the same as a recent one. A close enough match
// short-circuits the pipeline into the blocked state instead of running the
// expensive downstream stages again for the same underlying outage.
//
// Failure policy is fail-open: any error embedding or querying the vector
// index is logged and treated as "no duplicate found," never as a reason to
// block the pipeline.
package stormshield

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/vectorindex"
)

// EmbeddingClient turns text into a vector. Implemented by
// classifier.EmbeddingClient (OpenAI embeddings), whichever provider the
// classifier itself uses.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is the outcome of a duplicate check.
type Result struct {
	Duplicate bool
	MatchID   string
	Score     float32
}

// Shield checks incoming incidents against the incidents collection.
type Shield struct {
	index     vectorindex.Index
	embed     EmbeddingClient
	cfg       config.StormShieldConfig
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

// New builds a Shield wrapping index and embed calls in a circuit breaker
// so a sustained outage trips open immediately instead of waiting out a
// timeout on every job.
func New(index vectorindex.Index, embed EmbeddingClient, cfg config.StormShieldConfig) *Shield {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "stormshield",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Shield{
		index:   index,
		embed:   embed,
		cfg:     cfg,
		breaker: breaker,
		logger:  slog.Default().With("component", "stormshield"),
	}
}

// Check embeds text and queries for a near-duplicate within the configured
// similarity threshold. On any failure (embedding, query, or a tripped
// breaker) it fails open, returning a non-duplicate result.
func (s *Shield) Check(ctx context.Context, triageID, collection, text string) Result {
	if !s.cfg.Enabled {
		return Result{}
	}

	raw, err := s.breaker.Execute(func() (any, error) {
		vec, err := s.embed.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		matches, err := s.index.Query(ctx, collection, vec, 1)
		if err != nil {
			return nil, err
		}
		return matches, nil
	})
	if err != nil {
		s.logger.Warn("storm shield check failed, failing open", "triage_id", triageID, "error", err)
		return Result{}
	}

	matches, _ := raw.([]vectorindex.Match)
	if len(matches) == 0 || matches[0].Score < float32(s.cfg.SimilarityThreshold) {
		return Result{}
	}

	return Result{Duplicate: true, MatchID: matches[0].ID, Score: matches[0].Score}
}

// Remember embeds and upserts an incident's text into the collection,
// stamped with a seen_at payload field, so future checks can compare
// against it.
func (s *Shield) Remember(ctx context.Context, triageID, collection, text string) {
	if !s.cfg.Enabled {
		return
	}
	_, err := s.breaker.Execute(func() (any, error) {
		vec, err := s.embed.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return nil, s.index.Upsert(ctx, collection, triageID, vec, map[string]string{
			"triage_id": triageID,
			"seen_at":   time.Now().Format(time.RFC3339),
		})
	})
	if err != nil {
		s.logger.Warn("storm shield remember failed, continuing without recording", "triage_id", triageID, "error", err)
	}
}
