package store

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/spacedriveapp/sdcore/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	s, err := Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestDeviceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := &model.Device{
		ID:         uuid.NewString(),
		Slug:       "alices-laptop",
		Platform:   "darwin",
		Paired:     false,
		CreatedAt:  1000,
		LastSeenAt: 1000,
	}

	require.NoError(t, s.UpsertDevice(ctx, d))

	got, err := s.GetDevice(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, d.Slug, got.Slug)

	require.NoError(t, s.TouchDevice(ctx, d.ID, 2000))

	got, err = s.GetDevice(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2000), got.LastSeenAt)
}

func TestGetDeviceNotFoundReturnsNilNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetDevice(context.Background(), uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, got)
}

func seedDevice(t *testing.T, s *Store) *model.Device {
	t.Helper()

	d := &model.Device{ID: uuid.NewString(), Slug: "device-a", Platform: "linux", CreatedAt: 1, LastSeenAt: 1}
	require.NoError(t, s.UpsertDevice(context.Background(), d))

	return d
}

func TestVolumeRoundTripAndFingerprintLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := seedDevice(t, s)

	v := &model.Volume{
		ID:          uuid.NewString(),
		DeviceID:    d.ID,
		Fingerprint: "fp-1",
		Name:        "Macintosh HD",
		MountPoint:  "/",
		FileSystem:  "apfs",
		DiskType:    model.DiskTypeSSD,
		MountType:   model.MountTypeSystem,
		VolumeType:  model.VolumeTypePrimary,
		TotalBytes:  1_000_000,
		IsTracked:   true,
		Online:      true,
		DetectedAt:  10,
		UpdatedAt:   10,
	}

	require.NoError(t, s.UpsertVolume(ctx, v))

	byID, err := s.GetVolume(ctx, v.ID)
	require.NoError(t, err)
	require.Equal(t, v.Name, byID.Name)

	byFP, err := s.GetVolumeByFingerprint(ctx, d.ID, "fp-1")
	require.NoError(t, err)
	require.Equal(t, v.ID, byFP.ID)

	tracked, err := s.ListTrackedVolumes(ctx)
	require.NoError(t, err)
	require.Len(t, tracked, 1)

	require.NoError(t, s.SetVolumeOnline(ctx, v.ID, false, 20))

	updated, err := s.GetVolume(ctx, v.ID)
	require.NoError(t, err)
	require.False(t, updated.Online)
}

func seedVolume(t *testing.T, s *Store, deviceID string) *model.Volume {
	t.Helper()

	v := &model.Volume{
		ID: uuid.NewString(), DeviceID: deviceID, Fingerprint: uuid.NewString(),
		Name: "vol", MountPoint: "/", FileSystem: "ext4",
		DiskType: model.DiskTypeSSD, MountType: model.MountTypeSystem, VolumeType: model.VolumeTypePrimary,
		DetectedAt: 1, UpdatedAt: 1,
	}
	require.NoError(t, s.UpsertVolume(context.Background(), v))

	return v
}

func TestLocationRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := seedDevice(t, s)
	v := seedVolume(t, s, d.ID)

	loc := &model.Location{
		ID: uuid.NewString(), VolumeID: v.ID, Path: "/home/alice/Documents", Name: "Documents",
		IndexMode: model.IndexModeContent, ScanState: model.ScanStatePending,
		CreatedAt: 1, UpdatedAt: 1,
	}

	require.NoError(t, s.UpsertLocation(ctx, loc))

	got, err := s.GetLocationByPath(ctx, v.ID, loc.Path)
	require.NoError(t, err)
	require.Equal(t, loc.ID, got.ID)

	require.NoError(t, s.SetLocationScanState(ctx, loc.ID, model.ScanStateIndexing, 5))

	got, err = s.GetLocation(ctx, loc.ID)
	require.NoError(t, err)
	require.Equal(t, model.ScanStateIndexing, got.ScanState)
}

func seedLocation(t *testing.T, s *Store, volumeID string) *model.Location {
	t.Helper()

	loc := &model.Location{
		ID: uuid.NewString(), VolumeID: volumeID, Path: "/data", Name: "data",
		IndexMode: model.IndexModeDeep, ScanState: model.ScanStatePending, CreatedAt: 1, UpdatedAt: 1,
	}
	require.NoError(t, s.UpsertLocation(context.Background(), loc))

	return loc
}

func TestEntryClosureAncestryQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := seedDevice(t, s)
	v := seedVolume(t, s, d.ID)
	loc := seedLocation(t, s, v.ID)

	root := newTestEntry(loc.ID, "", "data", model.EntryKindDirectory)
	child := newTestEntry(loc.ID, root.ID, "photos", model.EntryKindDirectory)
	grandchild := newTestEntry(loc.ID, child.ID, "beach.jpg", model.EntryKindFile)

	for _, e := range []*model.Entry{root, child, grandchild} {
		require.NoError(t, s.UpsertEntry(ctx, e))
	}

	require.NoError(t, s.InsertClosureForEntry(ctx, root.ID, ""))
	require.NoError(t, s.InsertClosureForEntry(ctx, child.ID, root.ID))
	require.NoError(t, s.InsertClosureForEntry(ctx, grandchild.ID, child.ID))

	descendants, err := s.ListDescendants(ctx, root.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{child.ID, grandchild.ID}, descendants)

	ancestors, err := s.ListAncestors(ctx, grandchild.ID)
	require.NoError(t, err)
	require.Equal(t, []string{child.ID, root.ID}, ancestors)
}

func TestReparentSubtreeRewritesAncestorLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := seedDevice(t, s)
	v := seedVolume(t, s, d.ID)
	loc := seedLocation(t, s, v.ID)

	root := newTestEntry(loc.ID, "", "data", model.EntryKindDirectory)
	oldParent := newTestEntry(loc.ID, root.ID, "old", model.EntryKindDirectory)
	newParent := newTestEntry(loc.ID, root.ID, "new", model.EntryKindDirectory)
	moved := newTestEntry(loc.ID, oldParent.ID, "file.txt", model.EntryKindFile)

	for _, e := range []*model.Entry{root, oldParent, newParent, moved} {
		require.NoError(t, s.UpsertEntry(ctx, e))
	}

	require.NoError(t, s.InsertClosureForEntry(ctx, root.ID, ""))
	require.NoError(t, s.InsertClosureForEntry(ctx, oldParent.ID, root.ID))
	require.NoError(t, s.InsertClosureForEntry(ctx, newParent.ID, root.ID))
	require.NoError(t, s.InsertClosureForEntry(ctx, moved.ID, oldParent.ID))

	require.NoError(t, s.ReparentSubtree(ctx, moved.ID, newParent.ID, 99))

	ancestors, err := s.ListAncestors(ctx, moved.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{newParent.ID, root.ID}, ancestors)

	oldDescendants, err := s.ListDescendants(ctx, oldParent.ID)
	require.NoError(t, err)
	require.Empty(t, oldDescendants)

	entry, err := s.GetEntry(ctx, moved.ID)
	require.NoError(t, err)
	require.Equal(t, newParent.ID, entry.ParentID)
}

func newTestEntry(locationID, parentID, name string, kind model.EntryKind) *model.Entry {
	return &model.Entry{
		ID: uuid.NewString(), LocationID: locationID, ParentID: parentID, Name: name, Kind: kind,
		PathHash: uuid.NewString(), CreatedAt: 1, ModifiedAt: 1, AccessedAt: 1, UpdatedAt: 1,
	}
}

func TestContentIdentityDedupAndReferenceCounting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := seedDevice(t, s)
	v := seedVolume(t, s, d.ID)
	loc := seedLocation(t, s, v.ID)

	ci := &model.ContentIdentity{
		ID: uuid.NewString(), Kind: model.ContentKindFile, ContentHash: "abc123",
		TotalSize: 42, EntryCount: 0, FirstSeenAt: 1, LastVerifiedAt: 1, UpdatedAt: 1, DeviceID: d.ID,
	}
	require.NoError(t, s.UpsertContentIdentity(ctx, ci))

	byHash, err := s.GetContentIdentityByHash(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, ci.ID, byHash.ID)

	entry := newTestEntry(loc.ID, "", "file.bin", model.EntryKindFile)
	entry.ContentID = ci.ID
	require.NoError(t, s.UpsertEntry(ctx, entry))
	require.NoError(t, s.IncrementEntryCount(ctx, ci.ID, 2))

	unique, err := s.ListContentUniqueToLocation(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, unique, 1)
	require.Equal(t, ci.ContentHash, unique[0].ContentHash)

	require.NoError(t, s.DecrementEntryCount(ctx, ci.ID, 3))

	refreshed, err := s.GetContentIdentity(ctx, ci.ID)
	require.NoError(t, err)
	require.Equal(t, 0, refreshed.EntryCount)
}

func TestBatchUpsertEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := seedDevice(t, s)
	v := seedVolume(t, s, d.ID)
	loc := seedLocation(t, s, v.ID)

	entries := []*model.Entry{
		newTestEntry(loc.ID, "", "a", model.EntryKindFile),
		newTestEntry(loc.ID, "", "b", model.EntryKindFile),
		newTestEntry(loc.ID, "", "c", model.EntryKindFile),
	}

	require.NoError(t, s.BatchUpsertEntries(ctx, entries))

	all, err := s.ListEntriesByLocation(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
}
