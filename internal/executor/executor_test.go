package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/domain"
	"github.com/codeready-toolchain/aegis/internal/governance"
	"github.com/codeready-toolchain/aegis/internal/store"
)

type fakeDispatcher struct {
	called bool
	fail   bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, tool, command string) error {
	f.called = true
	if f.fail {
		return errors.New("dispatch failed")
	}
	return nil
}

func newTestGov(t *testing.T) *governance.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return governance.New(store.New(config.RedisConfig{Addr: mr.Addr()}))
}

func TestRun_KillSwitchBlocksExecutionWithZeroSideEffects(t *testing.T) {
	gov := newTestGov(t)
	require.NoError(t, gov.SetEnabled(context.Background(), false))
	require.NoError(t, gov.SetMode(context.Background(), domain.ModeAuto))

	dispatcher := &fakeDispatcher{}
	exec := New(gov, dispatcher, nil, nil, nil)

	state := &domain.PipelineState{
		TriageID: "t-1",
		Incident: domain.Incident{Number: "INC-1"},
		Classification: &domain.Classification{
			Category: "infrastructure", Confidence: 0.99, Action: domain.ActionAutoHeal, Tool: "restart_iis", Target: "i-1",
		},
	}

	require.NoError(t, exec.Run(context.Background(), state))
	require.False(t, dispatcher.called)
	require.Equal(t, domain.StatusBlocked, state.Status)
}

func TestRun_BelowThresholdDowngradesToRoute(t *testing.T) {
	gov := newTestGov(t)
	require.NoError(t, gov.SetMode(context.Background(), domain.ModeAuto))

	dispatcher := &fakeDispatcher{}
	exec := New(gov, dispatcher, nil, nil, nil)

	state := &domain.PipelineState{
		TriageID: "t-2",
		Incident: domain.Incident{Number: "INC-2"},
		Classification: &domain.Classification{
			Category: "infrastructure", Confidence: 0.1, Action: domain.ActionAutoHeal, Tool: "restart_iis", Target: "i-2",
		},
	}

	require.NoError(t, exec.Run(context.Background(), state))
	require.False(t, dispatcher.called)
	require.Equal(t, domain.ActionRoute, state.Classification.Action)
}

func TestRun_AutoModeDispatchesAboveThreshold(t *testing.T) {
	gov := newTestGov(t)
	require.NoError(t, gov.SetMode(context.Background(), domain.ModeAuto))

	dispatcher := &fakeDispatcher{}
	exec := New(gov, dispatcher, nil, nil, nil)

	state := &domain.PipelineState{
		TriageID: "t-3",
		Incident: domain.Incident{Number: "INC-3"},
		Classification: &domain.Classification{
			Category: "infrastructure", Confidence: 0.97, Action: domain.ActionAutoHeal, Tool: "restart_iis", Target: "i-3",
		},
	}

	require.NoError(t, exec.Run(context.Background(), state))
	require.True(t, dispatcher.called)
}

func TestRun_AssistModeQueuesForApprovalWithoutDispatch(t *testing.T) {
	gov := newTestGov(t)
	require.NoError(t, gov.SetMode(context.Background(), domain.ModeAssist))

	dispatcher := &fakeDispatcher{}
	exec := New(gov, dispatcher, nil, nil, nil)

	state := &domain.PipelineState{
		TriageID: "t-4",
		Incident: domain.Incident{Number: "INC-4"},
		Classification: &domain.Classification{
			Category: "infrastructure", Confidence: 0.97, Action: domain.ActionAutoHeal, Tool: "restart_iis", Target: "i-4",
		},
	}

	require.NoError(t, exec.Run(context.Background(), state))
	require.False(t, dispatcher.called)
	require.Equal(t, domain.ActionPendingApproval, state.Classification.Action)
}

func TestRun_MonitorModeProducesZeroSideEffects(t *testing.T) {
	gov := newTestGov(t)
	require.NoError(t, gov.SetMode(context.Background(), domain.ModeMonitor))

	dispatcher := &fakeDispatcher{}
	ticketing := &fakeTicketing{}
	exec := New(gov, dispatcher, ticketing, nil, nil)

	state := &domain.PipelineState{
		TriageID: "t-5",
		Incident: domain.Incident{Number: "INC-5"},
		Classification: &domain.Classification{
			Category: "infrastructure", Confidence: 0.97, Action: domain.ActionAutoHeal, Tool: "restart_iis", Target: "i-5",
		},
	}

	require.NoError(t, exec.Run(context.Background(), state))
	require.False(t, dispatcher.called)
	require.False(t, ticketing.called)
	require.Equal(t, domain.StatusExecuted, state.Status)
}

func TestRun_HighRiskToolRequiresApproval(t *testing.T) {
	gov := newTestGov(t)
	require.NoError(t, gov.SetMode(context.Background(), domain.ModeAuto))

	dispatcher := &fakeDispatcher{}
	exec := New(gov, dispatcher, nil, nil, nil)

	state := &domain.PipelineState{
		TriageID: "t-6",
		Incident: domain.Incident{Number: "INC-6"},
		Classification: &domain.Classification{
			Category: "database", Confidence: 0.99, Action: domain.ActionAutoHeal, Tool: "restart_database", Target: "i-6",
		},
	}

	require.NoError(t, exec.Run(context.Background(), state))
	require.False(t, dispatcher.called)
	require.Equal(t, domain.ActionRoute, state.Classification.Action)
}

type fakeTicketing struct{ called bool }

func (f *fakeTicketing) UpdateTicket(ctx context.Context, incident string, classification domain.Classification, status string) error {
	f.called = true
	return nil
}
