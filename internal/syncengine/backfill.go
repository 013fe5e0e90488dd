package syncengine

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// backfillModelOrder is the dependency order backfill proceeds in: a
// Location references a Volume, an Entry references a Location, a
// ContentIdentity is referenced by Entries — each model is only safe to
// apply once everything it can reference already exists locally.
var backfillModelOrder = []string{ModelDevice, ModelVolume, ModelLocation, ModelEntry, ModelContentIdentity}

// Cursor is a resumable position within one model's backfill stream,
// generalizing the teacher's delta-token resume cursor
// (internal/sync/delta.go's GetDeltaToken/SetDeltaToken) from "one opaque
// Graph token per drive" to "(updated_at, uuid) per model per peer."
type Cursor struct {
	UpdatedAtMS int64
	RecordID    string
}

// String renders the cursor as the opaque wire form BackfillRequestPayload
// carries.
func (c Cursor) String() string {
	if c.RecordID == "" {
		return ""
	}

	return fmt.Sprintf("%d.%s", c.UpdatedAtMS, c.RecordID)
}

// BackfillCoordinator tracks, per peer, which model is currently being
// backfilled and its resume cursor, and scores candidate peers to pick a
// backfill source. Generalizes the teacher's single-remote delta
// processing (internal/sync/delta.go) to N peers plus a model dependency
// order, and its buffering idiom (internal/sync/buffer.go) into Buffer.
type BackfillCoordinator struct {
	mu      sync.Mutex
	peers   map[string]*PeerState
	cursors map[string]map[string]Cursor // peerID -> modelName -> cursor
}

// NewBackfillCoordinator constructs an empty BackfillCoordinator. Row
// listing for an in-progress backfill is Engine's job (via internal/store
// directly); this type only tracks peer scoring and per-model progress.
func NewBackfillCoordinator() *BackfillCoordinator {
	return &BackfillCoordinator{
		peers:   make(map[string]*PeerState),
		cursors: make(map[string]map[string]Cursor),
	}
}

// UpsertPeer records or updates a peer's observed state for scoring.
func (c *BackfillCoordinator) UpsertPeer(p PeerState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := p
	c.peers[p.DeviceID] = &cp
}

// RemovePeer drops a disconnected peer from scoring and resets its
// backfill cursors.
func (c *BackfillCoordinator) RemovePeer(deviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.peers, deviceID)
	delete(c.cursors, deviceID)
}

// BestSource returns the highest-scoring known peer, or ("", false) if no
// peer is known yet.
func (c *BackfillCoordinator) BestSource() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.peers) == 0 {
		return "", false
	}

	ids := make([]string, 0, len(c.peers))
	for id := range c.peers {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return c.peers[ids[i]].Score() > c.peers[ids[j]].Score()
	})

	return ids[0], true
}

// NextModel returns the first model in backfillModelOrder that peerID
// hasn't fully drained yet (cursor present means "still draining"; a
// model absent from the map means "not started"). Returns ("", false)
// once every model has been fully backfilled from this peer.
func (c *BackfillCoordinator) NextModel(peerID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	done := c.cursors[peerID]

	for _, m := range backfillModelOrder {
		if cur, started := done[m]; !started || cur.RecordID != "" {
			return m, true
		}
	}

	return "", false
}

// CursorFor returns peerID's current resume cursor for model.
func (c *BackfillCoordinator) CursorFor(peerID, model string) Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cursors[peerID][model]
}

// Advance records peerID's new cursor for model. An empty RecordID marks
// the model fully drained — recorded explicitly (rather than simply
// absent) so NextModel can distinguish "not started" from "complete."
func (c *BackfillCoordinator) Advance(ctx context.Context, peerID, model string, cur Cursor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cursors[peerID] == nil {
		c.cursors[peerID] = make(map[string]Cursor)
	}

	c.cursors[peerID][model] = cur

	return nil
}
