// Package syncengine implements the hybrid state+log replication
// described in spec.md §4.3: device-owned resources sync by last-writer-
// wins state, shared resources (content identities) sync by append-only
// log. Grounded on the teacher's internal/sync package as a whole — the
// Engine/Ledger/Buffer/Reconciler/Orchestrator shape carries over, re-
// pointed from "one drive's Graph delta" to "N paired peers' device
// state and content log."
package syncengine

import "fmt"

// DeviceState is this device's phase in the per-peer sync state machine,
// mirroring the teacher's SyncMode-as-engine-phase modeling
// (internal/sync/state.go) generalized from a single mode enum to a
// per-peer lifecycle.
type DeviceState string

// Device states, in their only valid forward progression (Paused can be
// entered from Ready and exited back to Ready).
const (
	StateUninitialized DeviceState = "uninitialized"
	StateBackfilling   DeviceState = "backfilling"
	StateCatchingUp    DeviceState = "catching_up"
	StateReady         DeviceState = "ready"
	StatePaused        DeviceState = "paused"
)

// validTransitions enumerates the edges of the device state machine.
var validTransitions = map[DeviceState]map[DeviceState]bool{
	StateUninitialized: {StateBackfilling: true},
	StateBackfilling:   {StateCatchingUp: true, StateUninitialized: true},
	StateCatchingUp:    {StateReady: true, StateBackfilling: true},
	StateReady:         {StatePaused: true, StateBackfilling: true},
	StatePaused:        {StateReady: true},
}

// CanTransition reports whether moving from 'from' to 'to' is a legal
// single step in the device state machine.
func CanTransition(from, to DeviceState) bool {
	return validTransitions[from][to]
}

// ErrInvalidTransition is returned by PeerState.Transition for an illegal
// state change.
type ErrInvalidTransition struct {
	From, To DeviceState
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("syncengine: invalid device state transition %s -> %s", e.From, e.To)
}

// PeerState tracks one paired peer's replication phase plus bookkeeping
// used by BackfillCoordinator's scoring.
type PeerState struct {
	DeviceID        string
	State           DeviceState
	LatencyMS       int64 // last observed round-trip, 0 if never measured
	ConcurrentSyncs int   // backfills/catch-ups this peer is currently serving to others
}

// Transition moves p to 'to' if legal, returning ErrInvalidTransition
// otherwise.
func (p *PeerState) Transition(to DeviceState) error {
	if !CanTransition(p.State, to) {
		return &ErrInvalidTransition{From: p.State, To: to}
	}

	p.State = to

	return nil
}

// Score ranks p as a backfill source: higher is better. Per spec.md's
// "inverse latency + 100*complete_state - 10*concurrent_syncs" — a Ready
// peer is a complete source, Paused/CatchingUp are not.
func (p *PeerState) Score() float64 {
	var inverseLatency float64

	if p.LatencyMS > 0 {
		inverseLatency = 1000.0 / float64(p.LatencyMS)
	}

	var completeBonus float64

	if p.State == StateReady {
		completeBonus = 100
	}

	return inverseLatency + completeBonus - 10*float64(p.ConcurrentSyncs)
}
