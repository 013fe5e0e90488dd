package action

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/spacedriveapp/sdcore/internal/eventbus"
	"github.com/spacedriveapp/sdcore/internal/job"
	"github.com/spacedriveapp/sdcore/internal/jobstore"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/sdpath"
	"github.com/spacedriveapp/sdcore/internal/store"
)

const testDeviceID = "device-under-test"

// newTestDispatcher wires a Dispatcher against real in-memory stores and an
// un-started job dispatcher (Submit persists the job record but no worker
// drains it, which is all validate/execute ever need from it).
func newTestDispatcher(t *testing.T) (*Dispatcher, *store.Store) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	st, err := store.Open(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	js, err := jobstore.Open(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Close() })

	jobs := job.NewDispatcher(js, logger, job.Config{Workers: 1}, func(string) *slog.Logger { return logger }, func() int64 { return 1 })

	bus := eventbus.New(logger)
	t.Cleanup(func() { _ = bus.Close() })

	libraries := NewLibraryRegistry(t.TempDir(), logger)

	nowMS := func() int64 { return 1 }

	d := NewDispatcher(libraries, st, jobs, js, bus, nil, testDeviceID, nowMS, logger)

	return d, st
}

func seedDevice(t *testing.T, s *store.Store) *model.Device {
	t.Helper()

	dev := &model.Device{ID: testDeviceID, Slug: "test-device", Platform: "linux", CreatedAt: 1, LastSeenAt: 1}
	require.NoError(t, s.UpsertDevice(context.Background(), dev))

	return dev
}

func seedVolume(t *testing.T, s *store.Store, deviceID string) *model.Volume {
	t.Helper()

	v := &model.Volume{
		ID: uuid.NewString(), DeviceID: deviceID, Fingerprint: uuid.NewString(),
		Name: "vol", MountPoint: t.TempDir(), FileSystem: "ext4",
		DiskType: model.DiskTypeSSD, MountType: model.MountTypeSystem, VolumeType: model.VolumeTypePrimary,
		DetectedAt: 1, UpdatedAt: 1,
	}
	require.NoError(t, s.UpsertVolume(context.Background(), v))

	return v
}

// seedLocation creates a Location rooted at an on-disk temp directory (not
// volume.MountPoint, since tests want a location-specific subtree) and
// returns both the row and its absolute filesystem root.
func seedLocation(t *testing.T, s *store.Store, volumeID string) (*model.Location, string) {
	t.Helper()

	root := t.TempDir()

	loc := &model.Location{
		ID: uuid.NewString(), VolumeID: volumeID, Path: sdpath.Physical(testDeviceID, root).ToURI(),
		Name: "test-location", IndexMode: model.IndexModeDeep, ScanState: model.ScanStatePending,
		CreatedAt: 1, UpdatedAt: 1,
	}
	require.NoError(t, s.UpsertLocation(context.Background(), loc))

	return loc, root
}

func seedEntry(t *testing.T, s *store.Store, locationID, parentID, name string, kind model.EntryKind) *model.Entry {
	t.Helper()

	e := &model.Entry{
		ID: uuid.NewString(), LocationID: locationID, ParentID: parentID, Name: name, Kind: kind,
		PathHash: uuid.NewString(), CreatedAt: 1, ModifiedAt: 1, AccessedAt: 1, UpdatedAt: 1,
	}
	require.NoError(t, s.UpsertEntry(context.Background(), e))

	return e
}
