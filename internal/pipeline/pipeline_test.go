package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aegis/internal/classifier"
	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/domain"
	"github.com/codeready-toolchain/aegis/internal/enrichment"
	"github.com/codeready-toolchain/aegis/internal/executor"
	"github.com/codeready-toolchain/aegis/internal/governance"
	"github.com/codeready-toolchain/aegis/internal/redactor"
	"github.com/codeready-toolchain/aegis/internal/store"
	"github.com/codeready-toolchain/aegis/internal/stormshield"
	"github.com/codeready-toolchain/aegis/internal/vectorindex"
)

type fakeClassifier struct {
	result domain.Classification
	err    error
}

func (f fakeClassifier) Classify(ctx context.Context, req classifier.Request) (domain.Classification, error) {
	return f.result, f.err
}

type noopIndex struct{}

func (noopIndex) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]string) error {
	return nil
}
func (noopIndex) Query(ctx context.Context, collection string, vector []float32, limit int) ([]vectorindex.Match, error) {
	return nil, nil
}

type noopEmbed struct{}

func (noopEmbed) Embed(ctx context.Context, text string) ([]float32, error) { return []float32{0.1}, nil }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return store.New(config.RedisConfig{Addr: mr.Addr()})
}

func TestProcess_ClassifiedJobReachesExecuted(t *testing.T) {
	s := newTestStore(t)
	shield := stormshield.New(noopIndex{}, noopEmbed{}, config.StormShieldConfig{Enabled: true, SimilarityThreshold: 0.99})
	agg := enrichment.New(nil, nil, nil, config.EnrichmentConfig{StageTimeout: time.Second, LookupTimeout: time.Second})
	cls := fakeClassifier{result: domain.Classification{Category: "infrastructure", Action: domain.ActionRoute, Priority: "3", ResolutionNotes: "disk cleanup needed", Confidence: 0.5}}
	gov := governance.New(s)
	exec := executor.New(gov, nil, nil, nil, nil)
	orch := New(redactor.NewService(nil), shield, agg, cls, exec, s)

	job := domain.TriageJob{
		TriageID:   "t-1",
		Incident:   domain.Incident{Number: "INC-1", ShortDescription: "disk full", Description: "host-1 disk at 99%", Priority: "3"},
		ReceivedAt: time.Now(),
	}

	err := orch.Process(context.Background(), job)
	require.NoError(t, err)

	var state domain.PipelineState
	require.NoError(t, s.GetJSON(context.Background(), store.KeyTriageResult("t-1"), &state))
	require.Equal(t, domain.StatusExecuted, state.Status)
	require.NotEmpty(t, state.ActionsTaken)
}

func TestProcess_ClassificationFailureMarksFailed(t *testing.T) {
	s := newTestStore(t)
	shield := stormshield.New(noopIndex{}, noopEmbed{}, config.StormShieldConfig{Enabled: true, SimilarityThreshold: 0.99})
	agg := enrichment.New(nil, nil, nil, config.EnrichmentConfig{StageTimeout: time.Second, LookupTimeout: time.Second})
	cls := fakeClassifier{err: &classifier.ParseError{Reason: "bad json"}}
	gov := governance.New(s)
	exec := executor.New(gov, nil, nil, nil, nil)
	orch := New(redactor.NewService(nil), shield, agg, cls, exec, s)

	job := domain.TriageJob{
		TriageID:   "t-2",
		Incident:   domain.Incident{Number: "INC-2", ShortDescription: "network flap", Priority: "3"},
		ReceivedAt: time.Now(),
	}

	err := orch.Process(context.Background(), job)
	require.Error(t, err)
}
