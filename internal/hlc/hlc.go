// Package hlc implements a Hybrid Logical Clock: (physical_ms, counter,
// device_id). Shared resources are small and conflict resolution is
// last-writer-wins with a deterministic tiebreak, so a full vector clock's
// causal history is unnecessary — see spec.md §9.
package hlc

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	stdsync "sync"
)

// Timestamp is a single HLC value. The zero Timestamp sorts before every
// non-zero Timestamp.
type Timestamp struct {
	PhysicalMS int64
	Counter    uint32
	DeviceID   string
}

// Compare returns -1, 0, or 1 per the total order: physical, then counter,
// then device_id.
func (t Timestamp) Compare(other Timestamp) int {
	if c := cmp.Compare(t.PhysicalMS, other.PhysicalMS); c != 0 {
		return c
	}

	if c := cmp.Compare(t.Counter, other.Counter); c != 0 {
		return c
	}

	return cmp.Compare(t.DeviceID, other.DeviceID)
}

// Before reports whether t strictly precedes other in the total order.
func (t Timestamp) Before(other Timestamp) bool { return t.Compare(other) < 0 }

// After reports whether t strictly follows other in the total order.
func (t Timestamp) After(other Timestamp) bool { return t.Compare(other) > 0 }

// String renders the timestamp as "physical_ms.counter.device_id", a
// stable, sortable textual form suitable for log entry primary keys.
func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%d.%s", t.PhysicalMS, t.Counter, t.DeviceID)
}

// Parse parses the String() form back into a Timestamp.
func Parse(s string) (Timestamp, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return Timestamp{}, fmt.Errorf("hlc: invalid timestamp %q", s)
	}

	physical, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("hlc: invalid physical component in %q: %w", s, err)
	}

	counter, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Timestamp{}, fmt.Errorf("hlc: invalid counter component in %q: %w", s, err)
	}

	return Timestamp{PhysicalMS: physical, Counter: uint32(counter), DeviceID: parts[2]}, nil
}

// NowFunc returns the current wall-clock time in milliseconds. Overridable
// in tests for deterministic clock advancement.
type NowFunc func() int64

// Clock is a mutex-guarded HLC generator for one device. Held only across
// the brief compare-and-advance step, never across I/O, per spec.md §5.
type Clock struct {
	mu       stdsync.Mutex
	deviceID string
	last     Timestamp
	now      NowFunc
}

// New creates a Clock for deviceID. now is typically a wrapper around
// time.Now().UnixMilli(); a fixed function makes clock behavior
// deterministic in tests.
func New(deviceID string, now NowFunc) *Clock {
	return &Clock{
		deviceID: deviceID,
		now:      now,
		last:     Timestamp{DeviceID: deviceID},
	}
}

// Tick advances the clock for a local event and returns the new timestamp.
// physical advances to max(local_physical, wall_clock); the counter resets
// to 0 unless the physical time did not advance, in which case it
// increments — guaranteeing strict monotonicity for same-device events.
func (c *Clock) Tick() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	wall := c.now()

	switch {
	case wall > c.last.PhysicalMS:
		c.last = Timestamp{PhysicalMS: wall, Counter: 0, DeviceID: c.deviceID}
	default:
		c.last = Timestamp{PhysicalMS: c.last.PhysicalMS, Counter: c.last.Counter + 1, DeviceID: c.deviceID}
	}

	return c.last
}

// Observe absorbs a remote timestamp into the clock so that the next local
// Tick() strictly exceeds it, per spec.md §4.3 "On every received event the
// clock absorbs the remote physical time before issuing the next id."
func (c *Clock) Observe(remote Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wall := c.now()

	maxPhysical := remote.PhysicalMS
	if wall > maxPhysical {
		maxPhysical = wall
	}

	switch {
	case maxPhysical > c.last.PhysicalMS:
		counter := uint32(0)
		if maxPhysical == remote.PhysicalMS {
			counter = remote.Counter + 1
		}

		c.last = Timestamp{PhysicalMS: maxPhysical, Counter: counter, DeviceID: c.deviceID}
	case maxPhysical == c.last.PhysicalMS:
		next := c.last.Counter

		if remote.PhysicalMS == maxPhysical && remote.Counter >= next {
			next = remote.Counter + 1
		} else {
			next++
		}

		c.last = Timestamp{PhysicalMS: maxPhysical, Counter: next, DeviceID: c.deviceID}
	}
}

// Last returns the most recently issued timestamp without advancing the
// clock. Useful for resume cursors and diagnostics.
func (c *Clock) Last() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}
