package syncengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeerStateTransitionFollowsStateMachine(t *testing.T) {
	p := &PeerState{DeviceID: "device-a", State: StateUninitialized}

	require.NoError(t, p.Transition(StateBackfilling))
	require.NoError(t, p.Transition(StateCatchingUp))
	require.NoError(t, p.Transition(StateReady))
	require.NoError(t, p.Transition(StatePaused))
	require.NoError(t, p.Transition(StateReady))
}

func TestPeerStateTransitionRejectsIllegalJump(t *testing.T) {
	p := &PeerState{DeviceID: "device-a", State: StateUninitialized}

	err := p.Transition(StateReady)
	require.Error(t, err)

	var invalid *ErrInvalidTransition

	require.ErrorAs(t, err, &invalid)
	require.Equal(t, StateUninitialized, invalid.From)
	require.Equal(t, StateReady, invalid.To)
}

func TestPeerStateScorePrefersReadyLowLatencyFewConcurrent(t *testing.T) {
	ready := &PeerState{State: StateReady, LatencyMS: 10, ConcurrentSyncs: 0}
	busy := &PeerState{State: StateReady, LatencyMS: 10, ConcurrentSyncs: 5}
	notReady := &PeerState{State: StateCatchingUp, LatencyMS: 10, ConcurrentSyncs: 0}

	require.Greater(t, ready.Score(), busy.Score())
	require.Greater(t, ready.Score(), notReady.Score())
}
