package jobstore

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), ":memory:", slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestUpsertAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &Record{
		ID: uuid.NewString(), Kind: "index.discovery", Priority: 5, Status: StatusQueued,
		TaskState: []byte(`{}`), CreatedAt: 1, UpdatedAt: 1,
	}

	require.NoError(t, s.Upsert(ctx, r))

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, r.Kind, got.Kind)
	require.Equal(t, StatusQueued, got.Status)

	r.Status = StatusRunning
	r.ProgressPercent = 42.5
	r.UpdatedAt = 2
	require.NoError(t, s.Upsert(ctx, r))

	got, err = s.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRunning, got.Status)
	require.InDelta(t, 42.5, got.ProgressPercent, 0.001)
}

func TestListResumableExcludesTerminalJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	statuses := []Status{StatusQueued, StatusRunning, StatusPaused, StatusCompleted, StatusFailed, StatusCancelled}

	for _, st := range statuses {
		r := &Record{ID: uuid.NewString(), Kind: "k", Status: st, TaskState: []byte("{}"), CreatedAt: 1, UpdatedAt: 1}
		require.NoError(t, s.Upsert(ctx, r))
	}

	resumable, err := s.ListResumable(ctx)
	require.NoError(t, err)
	require.Len(t, resumable, 3)
}

func TestListByStatusOrdersByPriorityThenAge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	low := &Record{ID: uuid.NewString(), Kind: "k", Priority: 1, Status: StatusQueued, TaskState: []byte("{}"), CreatedAt: 1, UpdatedAt: 1}
	high := &Record{ID: uuid.NewString(), Kind: "k", Priority: 9, Status: StatusQueued, TaskState: []byte("{}"), CreatedAt: 2, UpdatedAt: 2}

	require.NoError(t, s.Upsert(ctx, low))
	require.NoError(t, s.Upsert(ctx, high))

	list, err := s.ListByStatus(ctx, StatusQueued)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, high.ID, list[0].ID)
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Get(context.Background(), uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDeleteRemovesRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &Record{ID: uuid.NewString(), Kind: "k", Status: StatusCompleted, TaskState: []byte("{}"), CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.Upsert(ctx, r))
	require.NoError(t, s.Delete(ctx, r.ID))

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}
