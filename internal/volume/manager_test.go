package volume

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spacedriveapp/sdcore/internal/eventbus"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), ":memory:", slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestDetectFindsRootVolume(t *testing.T) {
	volumes, err := Detect(context.Background(), "device-a")
	require.NoError(t, err)
	require.NotEmpty(t, volumes)

	var foundRoot bool

	for _, v := range volumes {
		require.NotEmpty(t, v.Fingerprint)
		require.Equal(t, "device-a", v.DeviceID)

		if v.MountPoint == "/" {
			foundRoot = true
			require.Equal(t, model.VolumeTypePrimary, v.VolumeType)
		}
	}

	require.True(t, foundRoot, "expected a volume mounted at /")
}

func TestReconcileInsertsDetectedVolumes(t *testing.T) {
	s := newTestStore(t)
	bus := eventbus.New(slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = bus.Close() })

	ch, unsubscribe := bus.Subscribe(context.Background())
	defer unsubscribe()

	m := NewManager(s, bus, slog.New(slog.DiscardHandler), "device-a", Config{
		RescanSpec:  "@every 1h",
		WatchMounts: false,
	}, func() int64 { return 100 })

	require.NoError(t, m.Reconcile(context.Background()))

	known, err := s.ListVolumesForDevice(context.Background(), "device-a")
	require.NoError(t, err)
	require.NotEmpty(t, known)

	sawAdded := false

	for i := 0; i < len(known) && !sawAdded; i++ {
		select {
		case ev := <-ch:
			if ev.Kind == eventbus.KindVolumeAdded {
				sawAdded = true
			}
		case <-time.After(time.Second):
		}
	}

	require.True(t, sawAdded, "expected at least one VolumeAdded event")
}

func TestReconcileIsIdempotentOnSecondRun(t *testing.T) {
	s := newTestStore(t)
	bus := eventbus.New(slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = bus.Close() })

	m := NewManager(s, bus, slog.New(slog.DiscardHandler), "device-a", Config{
		RescanSpec:  "@every 1h",
		WatchMounts: false,
	}, func() int64 { return 100 })

	require.NoError(t, m.Reconcile(context.Background()))

	firstPass, err := s.ListVolumesForDevice(context.Background(), "device-a")
	require.NoError(t, err)

	require.NoError(t, m.Reconcile(context.Background()))

	secondPass, err := s.ListVolumesForDevice(context.Background(), "device-a")
	require.NoError(t, err)

	require.Len(t, secondPass, len(firstPass))

	for i := range firstPass {
		require.Equal(t, firstPass[i].ID, secondPass[i].ID)
	}
}
