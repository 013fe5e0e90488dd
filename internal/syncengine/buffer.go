package syncengine

import (
	"sort"
	"sync"

	"github.com/spacedriveapp/sdcore/internal/hlc"
	"github.com/spacedriveapp/sdcore/internal/model"
)

// Buffer collects incoming log entries for a peer not yet in StateReady
// and releases them in HLC order once the peer transitions to Ready —
// generalizing the teacher's Buffer (internal/sync/buffer.go, which groups
// ChangeEvents by path for the planner) from "group by path" to "order by
// HLC." A CatchingUp device must not apply log entries out of order: a
// Delete observed before its matching Insert (possible if messages arrive
// interleaved with a concurrent backfill) would otherwise corrupt state.
type Buffer struct {
	mu      sync.Mutex
	pending []model.SyncLogEntry
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Add appends one log entry, safe for concurrent use.
func (b *Buffer) Add(e model.SyncLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, e)
}

// Len reports how many entries are currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.pending)
}

// Drain returns every buffered entry sorted by HLC timestamp and empties
// the buffer.
func (b *Buffer) Drain() []model.SyncLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}

	result := b.pending
	b.pending = nil

	sort.Slice(result, func(i, j int) bool {
		return entryTimestamp(result[i]).Before(entryTimestamp(result[j]))
	})

	return result
}

func entryTimestamp(e model.SyncLogEntry) hlc.Timestamp {
	return hlc.Timestamp{PhysicalMS: e.HLCPhysicalMS, Counter: e.HLCCounter, DeviceID: e.HLCDeviceID}
}
