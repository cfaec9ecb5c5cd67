package governance

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/domain"
	"github.com/codeready-toolchain/aegis/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return store.New(config.RedisConfig{Addr: mr.Addr()})
}

func TestKillSwitch_DefaultsEnabled(t *testing.T) {
	g := New(newTestStore(t))
	enabled, err := g.IsEnabled(t.Context())
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestKillSwitch_RoundTrip(t *testing.T) {
	g := New(newTestStore(t))
	require.NoError(t, g.SetEnabled(t.Context(), false))
	enabled, err := g.IsEnabled(t.Context())
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestThreshold_DefaultsWhenUnset(t *testing.T) {
	g := New(newTestStore(t))
	v, err := g.Threshold(t.Context(), "remediate")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultThresholds.Remediate, v)
}

func TestThreshold_RejectsUnknownName(t *testing.T) {
	g := New(newTestStore(t))
	_, err := g.Threshold(t.Context(), "bogus")
	require.ErrorIs(t, err, ErrUnknownThreshold)
}

func TestSetThreshold_RoundTrip(t *testing.T) {
	g := New(newTestStore(t))
	require.NoError(t, g.SetThreshold(t.Context(), "remediate", 99))
	v, err := g.Threshold(t.Context(), "remediate")
	require.NoError(t, err)
	require.Equal(t, 99, v)
}

func TestApproval_NotFoundWhenAbsent(t *testing.T) {
	g := New(newTestStore(t))
	_, err := g.GetApproval(t.Context(), "INC0001")
	require.ErrorIs(t, err, ErrApprovalNotFound)
}

func TestApproval_RoundTrip(t *testing.T) {
	g := New(newTestStore(t))
	approval := domain.Approval{
		Incident:  "INC0001",
		Decision:  "approved",
		Approver:  "jdoe",
		Timestamp: time.Now(),
	}
	require.NoError(t, g.RecordApproval(t.Context(), approval))
	got, err := g.GetApproval(t.Context(), "INC0001")
	require.NoError(t, err)
	require.Equal(t, "approved", got.Decision)
}
