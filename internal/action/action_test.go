package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatchRejectsUnknownKind(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), Action{Kind: "not.a.real.kind"})
	require.Error(t, err)
}

func TestValidateDoesNotExecute(t *testing.T) {
	d, s := newTestDispatcher(t)
	ctx := context.Background()

	dev := seedDevice(t, s)
	vol := seedVolume(t, s, dev.ID)

	res := d.Validate(ctx, Action{Kind: KindVolumeTrack, VolumeID: vol.ID})
	require.True(t, res.OK)

	got, err := s.GetVolume(ctx, vol.ID)
	require.NoError(t, err)
	require.False(t, got.IsTracked, "Validate must not perform the action's side effects")
}

func TestDispatchRefusesExecuteOnFailedValidation(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, Action{Kind: KindVolumeTrack, VolumeID: "unknown-volume"})
	require.Error(t, err)
}
