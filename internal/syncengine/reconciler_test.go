package syncengine

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/store"
	"github.com/spacedriveapp/sdcore/internal/wire"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), ":memory:", slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestApplyStateChangeAppliesNewerWrite(t *testing.T) {
	s := newTestStore(t)
	r := NewReconciler(s)
	ctx := context.Background()

	loc := model.Location{ID: "loc-1", VolumeID: "vol-1", Path: "sd://physical/device-a/data", Name: "data", UpdatedAt: 100}
	data, err := msgpack.Marshal(loc)
	require.NoError(t, err)

	require.NoError(t, r.ApplyStateChange(ctx, "device-local", wire.StateChangePayload{
		ModelName: ModelLocation, RecordID: loc.ID, Data: data, UpdatedAtMS: 100, DeviceID: "device-a",
	}))

	stored, err := s.GetLocation(ctx, "loc-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "data", stored.Name)
}

func TestApplyStateChangeRejectsStaleWrite(t *testing.T) {
	s := newTestStore(t)
	r := NewReconciler(s)
	ctx := context.Background()

	fresh := model.Location{ID: "loc-1", VolumeID: "vol-1", Path: "sd://physical/device-a/data", Name: "newer", UpdatedAt: 200}
	require.NoError(t, s.UpsertLocation(ctx, &fresh))

	stale := model.Location{ID: "loc-1", VolumeID: "vol-1", Path: "sd://physical/device-a/data", Name: "older", UpdatedAt: 100}
	data, err := msgpack.Marshal(stale)
	require.NoError(t, err)

	require.NoError(t, r.ApplyStateChange(ctx, "device-local", wire.StateChangePayload{
		ModelName: ModelLocation, RecordID: stale.ID, Data: data, UpdatedAtMS: 100, DeviceID: "device-a",
	}))

	stored, err := s.GetLocation(ctx, "loc-1")
	require.NoError(t, err)
	require.Equal(t, "newer", stored.Name)
}

func TestApplyLogEntryPersistsAndUpsertsContentIdentity(t *testing.T) {
	s := newTestStore(t)
	r := NewReconciler(s)
	ctx := context.Background()

	ci := model.ContentIdentity{ID: "ci-1", Kind: model.ContentKindFile, ContentHash: "abc", TotalSize: 10, UpdatedAt: 100, DeviceID: "device-a"}
	data, err := msgpack.Marshal(ci)
	require.NoError(t, err)

	entry := model.SyncLogEntry{
		HLCPhysicalMS: 100, HLCDeviceID: "device-a", ChangeType: model.ChangeInsert,
		ModelName: ModelContentIdentity, RecordID: ci.ID, Data: data,
	}

	require.NoError(t, r.ApplyLogEntry(ctx, entry, 1000))

	stored, err := s.GetContentIdentity(ctx, "ci-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "abc", stored.ContentHash)

	logged, err := s.ListLogEntriesSince(ctx, 0, 0, "", 10)
	require.NoError(t, err)
	require.Len(t, logged, 1)
}

func TestApplyLogEntryContentIdentityLWWIgnoresOlderWrite(t *testing.T) {
	s := newTestStore(t)
	r := NewReconciler(s)
	ctx := context.Background()

	newer := model.ContentIdentity{ID: "ci-1", Kind: model.ContentKindFile, ContentHash: "hash-1", TotalSize: 10, ExtractedText: "newer text", UpdatedAt: 200, DeviceID: "device-a"}
	require.NoError(t, s.UpsertContentIdentity(ctx, &newer))

	older := model.ContentIdentity{ID: "ci-1", Kind: model.ContentKindFile, ContentHash: "hash-1", TotalSize: 10, ExtractedText: "older text", UpdatedAt: 100, DeviceID: "device-a"}
	data, err := msgpack.Marshal(older)
	require.NoError(t, err)

	entry := model.SyncLogEntry{
		HLCPhysicalMS: 100, HLCDeviceID: "device-a", ChangeType: model.ChangeUpdate,
		ModelName: ModelContentIdentity, RecordID: older.ID, Data: data,
	}

	require.NoError(t, r.ApplyLogEntry(ctx, entry, 1000))

	stored, err := s.GetContentIdentity(ctx, "ci-1")
	require.NoError(t, err)
	require.Equal(t, "newer text", stored.ExtractedText)
}
