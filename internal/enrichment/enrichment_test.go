package enrichment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/domain"
)

type fakeKB struct{ articles []string }

func (f fakeKB) Search(ctx context.Context, query string) ([]string, error) { return f.articles, nil }

type failingUsers struct{}

func (failingUsers) Lookup(ctx context.Context, callerID string) (string, error) {
	return "", errors.New("boom")
}

type fakeCI struct{ name string }

func (f fakeCI) Lookup(ctx context.Context, cmdbCI string) (string, error) {
	return f.name, nil
}

func testCfg() config.EnrichmentConfig {
	return config.EnrichmentConfig{StageTimeout: 1e9, LookupTimeout: 1e9}
}

func TestEnrich_AbsorbsIndividualFailures(t *testing.T) {
	agg := New(fakeKB{articles: []string{"KB-1"}}, failingUsers{}, fakeCI{name: "host-1"}, testCfg())

	result := agg.Enrich(context.Background(), domain.TriageJob{
		Incident: domain.Incident{CallerID: "jane", CMDBCI: "ci-host-1"},
	}, "disk full")

	assert.Equal(t, []string{"KB-1"}, result.KBArticles)
	assert.Equal(t, "", result.UserInfo)
	assert.Equal(t, "host-1", result.CIInfo)
}

func TestEnrich_CapsKBArticlesAtThree(t *testing.T) {
	agg := New(fakeKB{articles: []string{"KB-1", "KB-2", "KB-3", "KB-4"}}, nil, nil, testCfg())
	result := agg.Enrich(context.Background(), domain.TriageJob{}, "text")
	assert.Equal(t, []string{"KB-1", "KB-2", "KB-3"}, result.KBArticles)
}

func TestEnrich_NilLookupsLeaveFieldsEmpty(t *testing.T) {
	agg := New(nil, nil, nil, testCfg())
	result := agg.Enrich(context.Background(), domain.TriageJob{}, "text")
	assert.Nil(t, result.KBArticles)
	assert.Equal(t, "", result.UserInfo)
	assert.Equal(t, "", result.CIInfo)
}

func TestEnrich_SkipsLookupsWhenIdentifiersAbsent(t *testing.T) {
	agg := New(nil, failingUsers{}, fakeCI{name: "host-1"}, testCfg())
	result := agg.Enrich(context.Background(), domain.TriageJob{Incident: domain.Incident{}}, "text")
	assert.Equal(t, "", result.UserInfo)
	assert.Equal(t, "", result.CIInfo)
}
