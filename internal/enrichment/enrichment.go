// Package enrichment fans a triage job out to three independent lookups —
// knowledge-base search, requester profile lookup, and affected-CI lookup —
// and joins their results, absorbing any individual failure rather than
// aborting the whole stage.
package enrichment

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/domain"
)

// KBSearcher finds relevant knowledge-base articles for an incident.
type KBSearcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// UserLookup resolves a requester profile summary for a caller_id.
type UserLookup interface {
	Lookup(ctx context.Context, callerID string) (string, error)
}

// CILookup resolves a configuration item summary for a cmdb_ci.
type CILookup interface {
	Lookup(ctx context.Context, cmdbCI string) (string, error)
}

// maxKBArticles bounds the knowledge-base hits carried into classification.
const maxKBArticles = 3

// Aggregator runs the three lookups concurrently.
type Aggregator struct {
	kb     KBSearcher
	users  UserLookup
	ci     CILookup
	cfg    config.EnrichmentConfig
	logger *slog.Logger
}

// New builds an Aggregator. Any of kb, users, ci may be nil — a nil lookup
// is treated the same as a failing one (its field is left empty).
func New(kb KBSearcher, users UserLookup, ci CILookup, cfg config.EnrichmentConfig) *Aggregator {
	return &Aggregator{
		kb:     kb,
		users:  users,
		ci:     ci,
		cfg:    cfg,
		logger: slog.Default().With("component", "enrichment"),
	}
}

// Enrich runs all three lookups, each under its own timeout strictly
// shorter than the overall stage budget, and returns whatever settled —
// never an error. A per-lookup failure simply leaves that field empty.
func (a *Aggregator) Enrich(ctx context.Context, job domain.TriageJob, scrubbedText string) domain.Enrichment {
	stageCtx, cancel := context.WithTimeout(ctx, a.cfg.StageTimeout)
	defer cancel()

	var result domain.Enrichment
	g, gctx := errgroup.WithContext(stageCtx)

	g.Go(func() error {
		result.KBArticles = a.searchKB(gctx, job, scrubbedText)
		return nil
	})
	g.Go(func() error {
		result.UserInfo = a.lookupUser(gctx, job)
		return nil
	})
	g.Go(func() error {
		result.CIInfo = a.lookupCI(gctx, job)
		return nil
	})

	// Every goroutine above always returns nil — failures are absorbed
	// internally — so Wait always returns nil; it only serves as the join.
	_ = g.Wait()
	return result
}

func (a *Aggregator) searchKB(ctx context.Context, job domain.TriageJob, text string) []string {
	if a.kb == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.LookupTimeout)
	defer cancel()
	articles, err := a.kb.Search(ctx, text)
	if err != nil {
		a.logger.Warn("kb search failed", "triage_id", job.TriageID, "error", err)
		return nil
	}
	if len(articles) > maxKBArticles {
		articles = articles[:maxKBArticles]
	}
	return articles
}

func (a *Aggregator) lookupUser(ctx context.Context, job domain.TriageJob) string {
	if a.users == nil || job.Incident.CallerID == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.LookupTimeout)
	defer cancel()
	profile, err := a.users.Lookup(ctx, job.Incident.CallerID)
	if err != nil {
		a.logger.Warn("user lookup failed", "triage_id", job.TriageID, "error", err)
		return ""
	}
	return profile
}

func (a *Aggregator) lookupCI(ctx context.Context, job domain.TriageJob) string {
	if a.ci == nil || job.Incident.CMDBCI == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.LookupTimeout)
	defer cancel()
	ci, err := a.ci.Lookup(ctx, job.Incident.CMDBCI)
	if err != nil {
		a.logger.Warn("ci lookup failed", "triage_id", job.TriageID, "error", err)
		return ""
	}
	return ci
}
