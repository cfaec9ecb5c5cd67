package stormshield

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/vectorindex"
)

type fakeEmbed struct {
	vec []float32
	err error
}

func (f fakeEmbed) Embed(ctx context.Context, text string) ([]float32, error) { return f.vec, f.err }

type fakeIndex struct {
	matches []vectorindex.Match
	err     error
}

func (f fakeIndex) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]string) error {
	return f.err
}
func (f fakeIndex) Query(ctx context.Context, collection string, vector []float32, limit int) ([]vectorindex.Match, error) {
	return f.matches, f.err
}

func testCfg() config.StormShieldConfig {
	return config.StormShieldConfig{Enabled: true, SimilarityThreshold: 0.9}
}

func TestCheck_DuplicateAboveThreshold(t *testing.T) {
	idx := fakeIndex{matches: []vectorindex.Match{{ID: "prior-1", Score: 0.95}}}
	s := New(idx, fakeEmbed{vec: []float32{0.1}}, testCfg())

	result := s.Check(context.Background(), "t1", "coll", "disk full on host-1")
	require.True(t, result.Duplicate)
	assert.Equal(t, "prior-1", result.MatchID)
}

func TestCheck_NoMatchBelowThreshold(t *testing.T) {
	idx := fakeIndex{matches: []vectorindex.Match{{ID: "prior-1", Score: 0.5}}}
	s := New(idx, fakeEmbed{vec: []float32{0.1}}, testCfg())

	result := s.Check(context.Background(), "t1", "coll", "disk full")
	assert.False(t, result.Duplicate)
}

func TestCheck_FailsOpenOnEmbedError(t *testing.T) {
	s := New(fakeIndex{}, fakeEmbed{err: errors.New("embedding service down")}, testCfg())
	result := s.Check(context.Background(), "t1", "coll", "disk full")
	assert.False(t, result.Duplicate)
}

func TestCheck_DisabledAlwaysReturnsNonDuplicate(t *testing.T) {
	cfg := testCfg()
	cfg.Enabled = false
	s := New(fakeIndex{matches: []vectorindex.Match{{Score: 1.0}}}, fakeEmbed{vec: []float32{0.1}}, cfg)
	result := s.Check(context.Background(), "t1", "coll", "disk full")
	assert.False(t, result.Duplicate)
}
