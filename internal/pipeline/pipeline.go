// Package pipeline drives a TriageJob through the four-stage state machine:
// pending → guardrails → (blocked | enrichment) → classified →
// (failed | executed). Implemented as explicit sequential stage calls, each
// guarded by a check of the current Status, rather than a framework or
// reflection-based dispatcher — no agent loop, no dynamic stage
// registration.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/aegis/internal/classifier"
	"github.com/codeready-toolchain/aegis/internal/domain"
	"github.com/codeready-toolchain/aegis/internal/enrichment"
	"github.com/codeready-toolchain/aegis/internal/executor"
	"github.com/codeready-toolchain/aegis/internal/metrics"
	"github.com/codeready-toolchain/aegis/internal/redactor"
	"github.com/codeready-toolchain/aegis/internal/store"
	"github.com/codeready-toolchain/aegis/internal/stormshield"
)

const activityLogMaxLen = 1000

// Orchestrator runs a single job through every pipeline stage.
type Orchestrator struct {
	redactor   *redactor.Service
	shield     *stormshield.Shield
	enricher   *enrichment.Aggregator
	classifier classifier.Client
	executor   *executor.Executor
	store      *store.Store
	logger     *slog.Logger
}

// New builds an Orchestrator.
func New(
	redactorSvc *redactor.Service,
	shield *stormshield.Shield,
	enricher *enrichment.Aggregator,
	classifierClient classifier.Client,
	exec *executor.Executor,
	s *store.Store,
) *Orchestrator {
	return &Orchestrator{
		redactor:   redactorSvc,
		shield:     shield,
		enricher:   enricher,
		classifier: classifierClient,
		executor:   exec,
		store:      s,
		logger:     slog.Default().With("component", "pipeline"),
	}
}

// Process implements queue.JobProcessor: it runs the job through every
// stage and persists the final state, regardless of outcome.
func (o *Orchestrator) Process(ctx context.Context, job domain.TriageJob) error {
	state := &domain.PipelineState{
		TriageID:  job.TriageID,
		Incident:  job.Incident,
		Status:    domain.StatusPending,
		CreatedAt: job.ReceivedAt,
		UpdatedAt: time.Now(),
	}

	o.runGuardrails(ctx, state)

	if state.Status != domain.StatusBlocked {
		o.runEnrichment(ctx, state)
		o.runClassification(ctx, state)
	}

	if state.Status == domain.StatusClassified {
		if err := o.executor.Run(ctx, state); err != nil {
			state.Status = domain.StatusFailed
			state.Error = err.Error()
			state.AppendAction("execution", "error", err.Error())
		}
	}

	state.UpdatedAt = time.Now()
	o.persist(ctx, state)

	if state.Status == domain.StatusFailed {
		return fmt.Errorf("pipeline failed for %s: %s", state.TriageID, state.Error)
	}
	return nil
}

func (o *Orchestrator) runGuardrails(ctx context.Context, state *domain.PipelineState) {
	state.Status = domain.StatusGuardrails
	state.ScrubbedShortDescription = o.redactor.Scrub(state.Incident.ShortDescription)
	state.ScrubbedDescription = o.redactor.Scrub(state.Incident.Description)
	state.AppendAction("guardrails", "info", "incident scrubbed")

	text := state.ScrubbedShortDescription + " " + state.ScrubbedDescription
	result := o.shield.Check(ctx, state.TriageID, "aegis_incidents", text)
	if result.Duplicate {
		state.Status = domain.StatusBlocked
		state.IsDuplicate = true
		state.DuplicateOf = result.MatchID
		state.BlockedReason = fmt.Sprintf("near-duplicate of %s (score %.2f)", result.MatchID, result.Score)
		state.AppendAction("guardrails", "warn", "blocked: "+state.BlockedReason)
		return
	}
	o.shield.Remember(ctx, state.TriageID, "aegis_incidents", text)
}

func (o *Orchestrator) runEnrichment(ctx context.Context, state *domain.PipelineState) {
	state.Status = domain.StatusEnrichment
	job := domain.TriageJob{TriageID: state.TriageID, Incident: state.Incident}
	state.Enrichment = o.enricher.Enrich(ctx, job, state.ScrubbedDescription)
	state.AppendAction("enrichment", "info", "enrichment complete")
}

func (o *Orchestrator) runClassification(ctx context.Context, state *domain.PipelineState) {
	start := time.Now()
	result, err := o.classifier.Classify(ctx, classifier.Request{
		ShortDescription: state.ScrubbedShortDescription,
		Description:      state.ScrubbedDescription,
		Enrichment:       state.Enrichment,
	})
	metrics.ClassifierLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		state.Status = domain.StatusFailed
		state.Error = err.Error()
		state.AppendAction("classification", "error", err.Error())
		return
	}
	state.Classification = &result
	state.Confidence = result.Confidence
	state.Reasoning = result.ResolutionNotes
	state.Status = domain.StatusClassified
	state.AppendAction("classification", "info", fmt.Sprintf("classified as %s/%s (action %s, confidence %.2f)", result.Category, result.Subcategory, result.Action, result.Confidence))
}

func (o *Orchestrator) persist(ctx context.Context, state *domain.PipelineState) {
	if err := o.store.SetJSON(ctx, store.KeyTriageResult(state.TriageID), state, 24*time.Hour); err != nil {
		o.logger.Error("failed to persist pipeline result", "triage_id", state.TriageID, "error", err)
	}

	for _, action := range state.ActionsTaken {
		entry := domain.AuditEntry{
			TriageID:  state.TriageID,
			Stage:     action.Stage,
			Severity:  action.Severity,
			Message:   action.Message,
			Incident:  state.Incident.Number,
			Timestamp: action.Timestamp,
		}
		if err := o.store.PushAuditLine(ctx, store.KeyActivityLog(), entry, activityLogMaxLen); err != nil {
			o.logger.Error("failed to append activity log entry", "triage_id", state.TriageID, "error", err)
		}
		if err := o.store.PushAuditLine(ctx, store.KeyIncidentAudit(state.Incident.Number), entry, activityLogMaxLen); err != nil {
			o.logger.Error("failed to append incident audit entry", "triage_id", state.TriageID, "error", err)
		}
	}

	day := state.UpdatedAt.Format("2006-01-02")
	counter := "processed"
	switch state.Status {
	case domain.StatusBlocked:
		counter = "blocked"
	case domain.StatusFailed:
		counter = "failed"
	}
	if err := o.store.Incr(ctx, store.KeyCounter(counter, day)); err != nil {
		o.logger.Error("failed to increment daily counter", "counter", counter, "error", err)
	}
	metrics.JobsProcessed.WithLabelValues(string(state.Status)).Inc()
}
