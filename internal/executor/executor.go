// Package executor implements the final, governance-gated stage of the
// pipeline: given a classification, decide whether to dispatch a
// remediation action, update the upstream ticket, and notify chat. Every
// side effect is independently non-fatal — a failure in one never aborts
// the others. Dispatch is a single governance-gated lookup against a
// closed remediation registry, not an open-ended tool-calling loop.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/codeready-toolchain/aegis/internal/chat"
	"github.com/codeready-toolchain/aegis/internal/domain"
	"github.com/codeready-toolchain/aegis/internal/governance"
)

// ErrGovernanceHalt indicates the kill switch is engaged or the configured
// mode forbids autonomous execution.
var ErrGovernanceHalt = fmt.Errorf("execution halted by governance")

// RemediationExecutor dispatches a remediation command to the out-of-
// process remote command service. AEGIS never shells out to the host.
type RemediationExecutor interface {
	Dispatch(ctx context.Context, tool, command string) error
}

// TicketingClient updates the upstream ITSM ticket.
type TicketingClient interface {
	UpdateTicket(ctx context.Context, incident string, classification domain.Classification, status string) error
}

// Executor runs the final pipeline stage.
type Executor struct {
	gov        *governance.Store
	remediator RemediationExecutor
	ticketing  TicketingClient
	teams      *chat.TeamsNotifier
	slack      *chat.SlackNotifier
	logger     *slog.Logger
}

// New builds an Executor.
func New(gov *governance.Store, remediator RemediationExecutor, ticketing TicketingClient, teams *chat.TeamsNotifier, slack *chat.SlackNotifier) *Executor {
	return &Executor{
		gov:        gov,
		remediator: remediator,
		ticketing:  ticketing,
		teams:      teams,
		slack:      slack,
		logger:     slog.Default().With("component", "executor"),
	}
}

// Run executes the governance-gated precedence chain documented for the
// executor stage: the kill switch is checked first and, if engaged, the job
// transitions straight to blocked with zero side effects — no remediation,
// no ticket update, no chat notification. Otherwise an auto_heal action is
// resolved against the remediate threshold and the execution mode, then the
// ticket update and chat notifications run unless the mode is monitor, in
// which case the classification is still persisted but nothing external is
// called.
func (e *Executor) Run(ctx context.Context, state *domain.PipelineState) error {
	c := state.Classification
	if c == nil {
		return fmt.Errorf("cannot execute without a classification")
	}

	enabled, err := e.gov.IsEnabled(ctx)
	if err != nil {
		e.logger.Warn("failed to read kill switch, treating as engaged (fail-closed)", "error", err)
		enabled = false
	}
	if !enabled {
		state.Status = domain.StatusBlocked
		state.BlockedReason = "governance kill switch engaged"
		state.AppendAction("execution", "warn", "execution blocked: governance kill switch engaged")
		return nil
	}

	mode, err := e.gov.Mode(ctx)
	if err != nil {
		e.logger.Warn("failed to read governance mode, defaulting to assist", "error", err)
		mode = domain.ModeAssist
	}

	if c.Action == domain.ActionAutoHeal {
		e.resolveAutoHeal(ctx, state, c, mode)
	}

	if mode == domain.ModeMonitor {
		state.AppendAction("execution", "info", "mode=monitor, ticket update and chat notification suppressed")
		state.Status = domain.StatusExecuted
		return nil
	}

	status := "classified"
	if c.Action == domain.ActionAutoHeal {
		status = "executed"
	}
	if e.ticketing != nil {
		if err := e.ticketing.UpdateTicket(ctx, state.Incident.Number, *c, status); err != nil {
			e.logger.Warn("ticket update failed, continuing", "triage_id", state.TriageID, "error", err)
			state.AppendAction("execution", "warn", "ticket update failed: "+err.Error())
		}
	}

	e.teams.Notify(ctx, chat.Notification{
		TriageID:        state.TriageID,
		Category:        c.Category,
		Priority:        c.Priority,
		AssignmentGroup: c.AssignmentGroup,
		Confidence:      c.Confidence,
		Action:          string(c.Action),
	})
	e.slack.Notify(ctx, chat.Notification{
		TriageID:        state.TriageID,
		Category:        c.Category,
		Priority:        c.Priority,
		AssignmentGroup: c.AssignmentGroup,
		Confidence:      c.Confidence,
		Action:          string(c.Action),
	})

	state.Status = domain.StatusExecuted
	return nil
}

// resolveAutoHeal implements the threshold-then-mode precedence for an
// auto_heal classification: a confidence below the remediate threshold
// downgrades the action to route; a mode other than auto queues it as
// pending_approval instead of dispatching.
func (e *Executor) resolveAutoHeal(ctx context.Context, state *domain.PipelineState, c *domain.Classification, mode domain.Mode) {
	thresholds, err := e.gov.Thresholds(ctx)
	if err != nil {
		e.logger.Warn("failed to read thresholds, using defaults", "error", err)
		thresholds = domain.DefaultThresholds
	}

	if int(c.Confidence*100) < thresholds.Remediate {
		state.AppendAction("execution", "info", fmt.Sprintf(
			"confidence %.2f below remediate threshold %d, downgraded auto_heal to route", c.Confidence, thresholds.Remediate))
		c.Action = domain.ActionRoute
		return
	}

	if mode != domain.ModeAuto {
		state.AppendAction("execution", "info", fmt.Sprintf("mode=%s, auto_heal queued for approval", mode))
		c.Action = domain.ActionPendingApproval
		return
	}

	if err := e.dispatch(ctx, state, c); err != nil {
		e.logger.Error("remediation dispatch failed", "triage_id", state.TriageID, "tool", c.Tool, "error", err)
		state.AppendAction("execution", "warn", "remediation dispatch failed: "+err.Error())
		c.Action = domain.ActionRoute
		return
	}
	state.AppendAction("execution", "info", "remediation dispatched: "+c.Tool)
}

// dispatch validates the tool and target against the closed registry,
// enforces the approval gate on high-risk tools, and sends the command to
// the remote command service.
func (e *Executor) dispatch(ctx context.Context, state *domain.PipelineState, c *domain.Classification) error {
	if c.Tool == "" {
		return fmt.Errorf("auto_heal action missing tool")
	}
	spec, ok := Lookup(c.Tool)
	if !ok {
		return fmt.Errorf("unknown tool: %s", c.Tool)
	}
	if !spec.ValidateTarget(c.Target) {
		return fmt.Errorf("target %q invalid for tool %s", c.Target, c.Tool)
	}
	if spec.RiskTier == RiskHigh {
		approval, err := e.gov.GetApproval(ctx, state.Incident.Number)
		if err != nil || approval.Decision != "approved" {
			return fmt.Errorf("high-risk tool %s requires a pre-existing approval", c.Tool)
		}
	}

	command := strings.ReplaceAll(spec.CommandTemplate, "{{.Target}}", c.Target)
	return e.dispatchWithRetry(ctx, spec.Tool, command)
}

func (e *Executor) dispatchWithRetry(ctx context.Context, tool, command string) error {
	if e.remediator == nil {
		return fmt.Errorf("no remediation executor configured")
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	return backoff.Retry(func() error {
		return e.remediator.Dispatch(ctx, tool, command)
	}, bo)
}
