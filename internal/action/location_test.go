package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacedriveapp/sdcore/internal/model"
)

func TestLocationAddRejectsMissingPath(t *testing.T) {
	d, s := newTestDispatcher(t)
	ctx := context.Background()

	dev := seedDevice(t, s)
	vol := seedVolume(t, s, dev.ID)

	_, err := d.Dispatch(ctx, Action{Kind: KindLocationAdd, VolumeID: vol.ID, Path: "/does/not/exist"})
	require.Error(t, err)
}

func TestLocationAddPersistsLocation(t *testing.T) {
	d, s := newTestDispatcher(t)
	ctx := context.Background()

	dev := seedDevice(t, s)
	vol := seedVolume(t, s, dev.ID)

	out, err := d.Dispatch(ctx, Action{Kind: KindLocationAdd, VolumeID: vol.ID, Path: t.TempDir(), IndexMode: "deep"})
	require.NoError(t, err)
	require.NotEmpty(t, out.EntityID)

	loc, err := s.GetLocation(ctx, out.EntityID)
	require.NoError(t, err)
	require.Equal(t, model.IndexModeDeep, loc.IndexMode)
}

func TestLocationAddRejectsUnknownIndexMode(t *testing.T) {
	d, s := newTestDispatcher(t)
	ctx := context.Background()

	dev := seedDevice(t, s)
	vol := seedVolume(t, s, dev.ID)

	_, err := d.Dispatch(ctx, Action{Kind: KindLocationAdd, VolumeID: vol.ID, Path: t.TempDir(), IndexMode: "bogus"})
	require.Error(t, err)
}

func TestLocationRemoveDeletesRow(t *testing.T) {
	d, s := newTestDispatcher(t)
	ctx := context.Background()

	dev := seedDevice(t, s)
	vol := seedVolume(t, s, dev.ID)
	loc, _ := seedLocation(t, s, vol.ID)

	_, err := d.Dispatch(ctx, Action{Kind: KindLocationRemove, LocationID: loc.ID})
	require.NoError(t, err)

	got, err := s.GetLocation(ctx, loc.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLocationIndexSubmitsJob(t *testing.T) {
	d, s := newTestDispatcher(t)
	ctx := context.Background()

	dev := seedDevice(t, s)
	vol := seedVolume(t, s, dev.ID)
	loc, _ := seedLocation(t, s, vol.ID)

	out, err := d.Dispatch(ctx, Action{Kind: KindLocationIndex, LocationID: loc.ID})
	require.NoError(t, err)
	require.NotEmpty(t, out.JobID)

	_, found := d.jobs.Job(out.JobID)
	require.True(t, found)
}

func TestIndexSubmitsOneJobPerLocation(t *testing.T) {
	d, s := newTestDispatcher(t)
	ctx := context.Background()

	dev := seedDevice(t, s)
	vol := seedVolume(t, s, dev.ID)
	seedLocation(t, s, vol.ID)
	seedLocation(t, s, vol.ID)

	out, err := d.Dispatch(ctx, Action{Kind: KindIndex})
	require.NoError(t, err)
	require.Len(t, out.EntityIDs, 2)
}
