package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVolumeTrackAndUntrack(t *testing.T) {
	d, s := newTestDispatcher(t)
	ctx := context.Background()

	dev := seedDevice(t, s)
	vol := seedVolume(t, s, dev.ID)

	_, err := d.Dispatch(ctx, Action{Kind: KindVolumeTrack, VolumeID: vol.ID})
	require.NoError(t, err)

	got, err := s.GetVolume(ctx, vol.ID)
	require.NoError(t, err)
	require.True(t, got.IsTracked)

	_, err = d.Dispatch(ctx, Action{Kind: KindVolumeUntrack, VolumeID: vol.ID})
	require.NoError(t, err)

	got, err = s.GetVolume(ctx, vol.ID)
	require.NoError(t, err)
	require.False(t, got.IsTracked)
}

func TestVolumeTrackRejectsUnknownVolume(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, Action{Kind: KindVolumeTrack, VolumeID: "nope"})
	require.Error(t, err)
}

func TestVolumeSpeedTestMeasuresThroughput(t *testing.T) {
	d, s := newTestDispatcher(t)
	ctx := context.Background()

	dev := seedDevice(t, s)
	vol := seedVolume(t, s, dev.ID)

	out, err := d.Dispatch(ctx, Action{Kind: KindVolumeSpeedTest, VolumeID: vol.ID})
	require.NoError(t, err)
	require.NotEmpty(t, out.Summary)

	got, err := s.GetVolume(ctx, vol.ID)
	require.NoError(t, err)
	require.Greater(t, got.ReadSpeedMBps, 0.0)
	require.Greater(t, got.WriteSpeedMBps, 0.0)
}
