// Package governance implements the process-wide, externally-mutable
// control surface consulted before every side-effecting pipeline
// transition. Every read is a fresh point-in-time fetch against Redis,
// never cached, so a kill-switch flip takes effect on the very next job.
package governance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/aegis/internal/domain"
	"github.com/codeready-toolchain/aegis/internal/store"
)

// ErrApprovalNotFound indicates no live approval record exists for the
// requested incident.
var ErrApprovalNotFound = errors.New("approval not found")

// ErrUnknownThreshold is returned by SetThreshold for any name outside the
// three governance gates.
var ErrUnknownThreshold = errors.New("unknown threshold name")

// ApprovalTTL is the retention window for a recorded approval decision.
const ApprovalTTL = time.Hour

// Store is the governance view over the shared key-value store.
type Store struct {
	s *store.Store
}

// New builds a governance Store.
func New(s *store.Store) *Store {
	return &Store{s: s}
}

// IsEnabled reports whether the kill switch permits side-effecting
// transitions. Defaults to true (enabled) when unset.
func (g *Store) IsEnabled(ctx context.Context) (bool, error) {
	val, err := g.s.Client().Get(ctx, store.KeyGovernanceKillSwitch()).Result()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read kill switch: %w", err)
	}
	return val == "1", nil
}

// SetEnabled flips the kill switch.
func (g *Store) SetEnabled(ctx context.Context, enabled bool) error {
	val := "0"
	if enabled {
		val = "1"
	}
	return g.s.Client().Set(ctx, store.KeyGovernanceKillSwitch(), val, 0).Err()
}

// Mode returns the current execution posture, defaulting to assist.
func (g *Store) Mode(ctx context.Context) (domain.Mode, error) {
	val, err := g.s.Client().Get(ctx, store.KeyGovernanceMode()).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ModeAssist, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read mode: %w", err)
	}
	return domain.Mode(val), nil
}

// SetMode updates the execution posture.
func (g *Store) SetMode(ctx context.Context, mode domain.Mode) error {
	return g.s.Client().Set(ctx, store.KeyGovernanceMode(), string(mode), 0).Err()
}

func defaultForThreshold(name string) (int, bool) {
	switch name {
	case "assign":
		return domain.DefaultThresholds.Assign, true
	case "categorize":
		return domain.DefaultThresholds.Categorize, true
	case "remediate":
		return domain.DefaultThresholds.Remediate, true
	default:
		return 0, false
	}
}

// Threshold returns the named gate's current value (0-100), defaulting per
// domain.DefaultThresholds when unset. name must be one of assign,
// categorize, remediate.
func (g *Store) Threshold(ctx context.Context, name string) (int, error) {
	def, ok := defaultForThreshold(name)
	if !ok {
		return 0, ErrUnknownThreshold
	}
	val, err := g.s.Client().Get(ctx, store.KeyGovernanceThreshold(name)).Int()
	if errors.Is(err, redis.Nil) {
		return def, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read threshold %s: %w", name, err)
	}
	return val, nil
}

// Thresholds fetches all three named gates, one read per gate.
func (g *Store) Thresholds(ctx context.Context) (domain.Thresholds, error) {
	assign, err := g.Threshold(ctx, "assign")
	if err != nil {
		return domain.Thresholds{}, err
	}
	categorize, err := g.Threshold(ctx, "categorize")
	if err != nil {
		return domain.Thresholds{}, err
	}
	remediate, err := g.Threshold(ctx, "remediate")
	if err != nil {
		return domain.Thresholds{}, err
	}
	return domain.Thresholds{Assign: assign, Categorize: categorize, Remediate: remediate}, nil
}

// SetThreshold updates one of the three named gates. value must be 0-100.
func (g *Store) SetThreshold(ctx context.Context, name string, value int) error {
	if _, ok := defaultForThreshold(name); !ok {
		return ErrUnknownThreshold
	}
	if value < 0 || value > 100 {
		return fmt.Errorf("threshold %s value %d out of range [0,100]", name, value)
	}
	return g.s.Client().Set(ctx, store.KeyGovernanceThreshold(name), value, 0).Err()
}

// RecordApproval stores a time-boxed approval decision, keyed by incident
// number, retained for ApprovalTTL.
func (g *Store) RecordApproval(ctx context.Context, a domain.Approval) error {
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal approval: %w", err)
	}
	return g.s.Client().Set(ctx, store.KeyApproval(a.Incident), b, ApprovalTTL).Err()
}

// GetApproval fetches a live approval record, or ErrApprovalNotFound if
// none exists or it has expired.
func (g *Store) GetApproval(ctx context.Context, incident string) (domain.Approval, error) {
	var a domain.Approval
	b, err := g.s.Client().Get(ctx, store.KeyApproval(incident)).Bytes()
	if errors.Is(err, redis.Nil) {
		return a, ErrApprovalNotFound
	}
	if err != nil {
		return a, fmt.Errorf("failed to read approval: %w", err)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return a, fmt.Errorf("failed to unmarshal approval: %w", err)
	}
	return a, nil
}

// Snapshot returns the full governance state, for the /status handler.
func (g *Store) Snapshot(ctx context.Context) (domain.GovernanceState, error) {
	enabled, err := g.IsEnabled(ctx)
	if err != nil {
		return domain.GovernanceState{}, err
	}
	mode, err := g.Mode(ctx)
	if err != nil {
		return domain.GovernanceState{}, err
	}
	thresholds, err := g.Thresholds(ctx)
	if err != nil {
		return domain.GovernanceState{}, err
	}
	return domain.GovernanceState{
		Enabled:    enabled,
		Mode:       mode,
		Thresholds: thresholds,
	}, nil
}
