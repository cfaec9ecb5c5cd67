package queue

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/domain"
	"github.com/codeready-toolchain/aegis/internal/store"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	s := store.New(config.RedisConfig{Addr: mr.Addr()})
	return New(s, config.QueueConfig{
		ReserveTimeout:          200 * time.Millisecond,
		MaxRetries:              3,
		OrphanThreshold:         5 * time.Minute,
		OrphanDetectionInterval: time.Minute,
	})
}

func testJob(id string) domain.TriageJob {
	return domain.TriageJob{
		TriageID:   id,
		Incident:   domain.Incident{Number: "INC-" + id, ShortDescription: "disk full", Priority: "3"},
		ReceivedAt: time.Now(),
	}
}

func TestEnqueueReserveAck(t *testing.T) {
	q := newTestQueue(t)
	ctx := t.Context()

	require.NoError(t, q.Enqueue(ctx, testJob("t1")))

	job, err := q.Reserve(ctx, "worker-1")
	require.NoError(t, err)
	require.Equal(t, "t1", job.TriageID)

	depths, err := q.Depths(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, depths.Processing)

	require.NoError(t, q.Ack(ctx, job.TriageID))

	depths, err = q.Depths(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, depths.Processing)
}

func TestReserve_TimesOutWhenEmpty(t *testing.T) {
	q := newTestQueue(t)
	_, err := q.Reserve(t.Context(), "worker-1")
	require.ErrorIs(t, err, ErrNoJobsAvailable)
}

func TestRetry_MovesToDeadLetterAfterCap(t *testing.T) {
	q := newTestQueue(t)
	ctx := t.Context()

	require.NoError(t, q.Enqueue(ctx, testJob("t2")))
	job, err := q.Reserve(ctx, "worker-1")
	require.NoError(t, err)

	job.RetryCount = 3 // already at cap
	require.NoError(t, q.Retry(ctx, job, nil))

	depths, err := q.Depths(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, depths.DeadLetter)
	require.EqualValues(t, 0, depths.Pending)
}

func TestRetry_RequeuesWhenUnderCap(t *testing.T) {
	q := newTestQueue(t)
	ctx := t.Context()

	require.NoError(t, q.Enqueue(ctx, testJob("t3")))
	job, err := q.Reserve(ctx, "worker-1")
	require.NoError(t, err)

	require.NoError(t, q.Retry(ctx, job, nil))

	depths, err := q.Depths(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, depths.Pending)
	require.EqualValues(t, 0, depths.DeadLetter)
}
