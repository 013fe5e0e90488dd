package syncengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBestSourcePicksHighestScoringPeer(t *testing.T) {
	bc := NewBackfillCoordinator()

	bc.UpsertPeer(PeerState{DeviceID: "slow", State: StateReady, LatencyMS: 500})
	bc.UpsertPeer(PeerState{DeviceID: "fast", State: StateReady, LatencyMS: 10})
	bc.UpsertPeer(PeerState{DeviceID: "not-ready", State: StateCatchingUp, LatencyMS: 1})

	best, ok := bc.BestSource()
	require.True(t, ok)
	require.Equal(t, "fast", best)
}

func TestBestSourceEmptyWhenNoPeers(t *testing.T) {
	bc := NewBackfillCoordinator()

	_, ok := bc.BestSource()
	require.False(t, ok)
}

func TestNextModelWalksDependencyOrderAndAdvances(t *testing.T) {
	bc := NewBackfillCoordinator()
	ctx := context.Background()

	model, ok := bc.NextModel("peer-a")
	require.True(t, ok)
	require.Equal(t, ModelDevice, model)

	require.NoError(t, bc.Advance(ctx, "peer-a", ModelDevice, Cursor{}))

	model, ok = bc.NextModel("peer-a")
	require.True(t, ok)
	require.Equal(t, ModelVolume, model)
}

func TestNextModelExhaustedAfterAllAdvanced(t *testing.T) {
	bc := NewBackfillCoordinator()
	ctx := context.Background()

	for _, m := range backfillModelOrder {
		require.NoError(t, bc.Advance(ctx, "peer-a", m, Cursor{}))
	}

	_, ok := bc.NextModel("peer-a")
	require.False(t, ok)
}

func TestRemovePeerClearsScoringAndCursors(t *testing.T) {
	bc := NewBackfillCoordinator()
	ctx := context.Background()

	bc.UpsertPeer(PeerState{DeviceID: "peer-a", State: StateReady})
	require.NoError(t, bc.Advance(ctx, "peer-a", ModelDevice, Cursor{}))

	bc.RemovePeer("peer-a")

	_, ok := bc.BestSource()
	require.False(t, ok)

	m, ok := bc.NextModel("peer-a")
	require.True(t, ok)
	require.Equal(t, ModelDevice, m)
}
