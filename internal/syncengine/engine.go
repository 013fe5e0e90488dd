package syncengine

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/spacedriveapp/sdcore/internal/eventbus"
	"github.com/spacedriveapp/sdcore/internal/hlc"
	"github.com/spacedriveapp/sdcore/internal/metrics"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/store"
	"github.com/spacedriveapp/sdcore/internal/transport"
	"github.com/spacedriveapp/sdcore/internal/wire"
)

const backfillPageSize = 256

// deviceStates enumerates every DeviceState the per-peer state machine
// can produce, passed to metrics.RecordPeerStateChange so it can zero
// every other state's gauge for a peer whenever one changes.
var deviceStates = []string{
	string(StateUninitialized), string(StateBackfilling), string(StateCatchingUp),
	string(StateReady), string(StatePaused),
}

// Config configures an Engine.
type Config struct {
	LibraryID  string
	DeviceID   string
	Slug       string
	Platform   string
	SigningKey ed25519.PrivateKey
}

// Engine orchestrates device pairing and ongoing state+log replication
// over internal/transport, generalizing the teacher's Engine
// (internal/sync/engine.go: observe -> plan -> execute -> commit, single
// drive) into "per peer: pair -> backfill -> catch up -> steady-state
// apply," driven by messages rather than a fixed-cadence poll loop.
type Engine struct {
	cfg        Config
	store      *store.Store
	bus        *eventbus.Bus
	transport  *transport.Manager
	clock      *hlc.Clock
	reconciler *Reconciler
	backfill   *BackfillCoordinator
	pairing    *Pairing
	logger     *slog.Logger
	nowMS      func() int64

	mu      sync.Mutex
	buffers map[string]*Buffer // per-peer buffer while CatchingUp
	states  map[string]*PeerState

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an Engine. Start must be called to begin servicing
// connected peers.
func New(cfg Config, st *store.Store, bus *eventbus.Bus, tm *transport.Manager, clock *hlc.Clock, logger *slog.Logger, nowMS func() int64) *Engine {
	return &Engine{
		cfg:        cfg,
		store:      st,
		bus:        bus,
		transport:  tm,
		clock:      clock,
		reconciler: NewReconciler(st),
		backfill:   NewBackfillCoordinator(),
		pairing:    NewPairing(cfg.DeviceID, cfg.SigningKey),
		logger:     logger,
		nowMS:      nowMS,
		buffers:    make(map[string]*Buffer),
		states:     make(map[string]*PeerState),
	}
}

// Start launches the peer-connect watcher, which spawns one receive loop
// per newly connected peer. Mirrors internal/job.Dispatcher's
// context.WithCancel + sync.WaitGroup lifecycle.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	events, unsubscribe := e.transport.SubscribeConnectedPeers()

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}

				if ev.Connected {
					e.onPeerConnected(ctx, ev.DeviceID)
				} else {
					e.onPeerDisconnected(ev.DeviceID)
				}
			}
		}
	}()
}

// Stop cancels every peer loop and waits for them to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}

	e.wg.Wait()
}

func (e *Engine) onPeerConnected(ctx context.Context, deviceID string) {
	e.mu.Lock()
	e.buffers[deviceID] = NewBuffer()
	e.states[deviceID] = &PeerState{DeviceID: deviceID, State: StateUninitialized}
	peerCount := len(e.states)
	e.mu.Unlock()

	e.backfill.UpsertPeer(PeerState{DeviceID: deviceID, State: StateUninitialized})

	metrics.RecordPeerStateChange(deviceID, string(StateUninitialized), deviceStates)
	metrics.SetSyncPeersConnected(peerCount)

	e.wg.Add(1)

	go e.peerLoop(ctx, deviceID)
}

func (e *Engine) onPeerDisconnected(deviceID string) {
	e.mu.Lock()
	delete(e.buffers, deviceID)
	delete(e.states, deviceID)
	peerCount := len(e.states)
	e.mu.Unlock()

	e.backfill.RemovePeer(deviceID)

	metrics.SetSyncPeersConnected(peerCount)

	e.publish(context.Background(), eventbus.Event{Kind: eventbus.KindPairingProgress, Message: fmt.Sprintf("peer %s disconnected", deviceID)})
}

// peerLoop receives and dispatches every envelope from one connected
// peer until it disconnects or ctx is canceled.
func (e *Engine) peerLoop(ctx context.Context, deviceID string) {
	defer e.wg.Done()

	for {
		b, err := e.transport.ReceiveFrom(ctx, deviceID)
		if err != nil {
			return
		}

		env, err := wire.Decode(b)
		if err != nil {
			e.logger.Warn("syncengine: dropping undecodable envelope", "peer", deviceID, "error", err)
			continue
		}

		if err := e.handleEnvelope(ctx, deviceID, env); err != nil {
			e.logger.Warn("syncengine: handling envelope failed", "peer", deviceID, "kind", env.Kind, "error", err)
		}
	}
}

func (e *Engine) handleEnvelope(ctx context.Context, peerID string, env wire.Envelope) error {
	switch env.Kind {
	case wire.KindStateChange:
		return e.handleStateChange(ctx, peerID, env)
	case wire.KindLogEntries:
		return e.handleLogEntries(ctx, peerID, env)
	case wire.KindBackfillRequest:
		return e.handleBackfillRequest(ctx, peerID, env)
	case wire.KindBackfillBatch:
		return e.handleBackfillBatch(ctx, peerID, env)
	case wire.KindHeartbeat:
		return e.handleHeartbeat(peerID, env)
	case wire.KindComplete:
		return nil
	default:
		return fmt.Errorf("syncengine: unhandled message kind %q", env.Kind)
	}
}

func (e *Engine) handleStateChange(ctx context.Context, peerID string, env wire.Envelope) error {
	var p wire.StateChangePayload
	if err := wire.Unpack(env, &p); err != nil {
		return err
	}

	e.clock.Observe(hlc.Timestamp{PhysicalMS: p.UpdatedAtMS, DeviceID: p.DeviceID})

	if err := e.reconciler.ApplyStateChange(ctx, e.cfg.DeviceID, p); err != nil {
		return err
	}

	e.publish(ctx, eventbus.Event{
		Kind:         eventbus.KindResourceChanged,
		ResourceType: eventbus.ResourceType(p.ModelName),
		ResourceID:   p.RecordID,
	})

	return nil
}

func (e *Engine) handleLogEntries(ctx context.Context, peerID string, env wire.Envelope) error {
	var p wire.LogEntriesPayload
	if err := wire.Unpack(env, &p); err != nil {
		return err
	}

	e.mu.Lock()
	state := e.states[peerID]
	buf := e.buffers[peerID]
	e.mu.Unlock()

	for _, w := range p.Entries {
		entry := wire.ToLogEntry(w)
		e.clock.Observe(hlc.Timestamp{PhysicalMS: entry.HLCPhysicalMS, Counter: entry.HLCCounter, DeviceID: entry.HLCDeviceID})

		if state != nil && state.State != StateReady && buf != nil {
			buf.Add(entry)
			continue
		}

		if err := e.reconciler.ApplyLogEntry(ctx, entry, e.nowMS()); err != nil {
			e.logger.Warn("syncengine: skipping unapplicable log entry", "model", entry.ModelName, "record", entry.RecordID, "error", err)
			metrics.RecordLogEntrySkipped(entry.ModelName)

			continue
		}

		metrics.RecordLogEntryApplied(entry.ModelName)
	}

	return nil
}

func (e *Engine) handleBackfillRequest(ctx context.Context, peerID string, env wire.Envelope) error {
	var req wire.BackfillRequestPayload
	if err := wire.Unpack(env, &req); err != nil {
		return err
	}

	rows, nextCursor, err := e.snapshotPage(ctx, req.Model, req.Cursor)
	if err != nil {
		return err
	}

	resp := wire.BackfillBatchPayload{Model: req.Model, Rows: rows, NextCursor: nextCursor}

	return e.send(ctx, peerID, wire.KindBackfillBatch, resp)
}

func (e *Engine) handleBackfillBatch(ctx context.Context, peerID string, env wire.Envelope) error {
	var batch wire.BackfillBatchPayload
	if err := wire.Unpack(env, &batch); err != nil {
		return err
	}

	for _, row := range batch.Rows {
		if err := e.applySnapshotRow(ctx, batch.Model, row); err != nil {
			e.logger.Warn("syncengine: skipping unapplicable backfill row", "model", batch.Model, "error", err)
		}
	}

	metrics.RecordBackfillRows(batch.Model, len(batch.Rows))

	if err := e.backfill.Advance(ctx, peerID, batch.Model, Cursor{RecordID: cursorRecordID(batch.NextCursor)}); err != nil {
		return err
	}

	if batch.NextCursor != "" {
		return e.send(ctx, peerID, wire.KindBackfillRequest, wire.BackfillRequestPayload{Model: batch.Model, Cursor: batch.NextCursor})
	}

	return e.advancePeerAfterModel(ctx, peerID)
}

func (e *Engine) advancePeerAfterModel(ctx context.Context, peerID string) error {
	if next, more := e.backfill.NextModel(peerID); more {
		return e.send(ctx, peerID, wire.KindBackfillRequest, wire.BackfillRequestPayload{Model: next})
	}

	e.mu.Lock()
	state := e.states[peerID]
	buf := e.buffers[peerID]
	e.mu.Unlock()

	if state == nil {
		return nil
	}

	if err := state.Transition(StateCatchingUp); err != nil {
		return err
	}

	metrics.RecordPeerStateChange(peerID, string(StateCatchingUp), deviceStates)

	if buf != nil {
		for _, entry := range buf.Drain() {
			if err := e.reconciler.ApplyLogEntry(ctx, entry, e.nowMS()); err != nil {
				e.logger.Warn("syncengine: skipping buffered log entry", "record", entry.RecordID, "error", err)
				metrics.RecordLogEntrySkipped(entry.ModelName)

				continue
			}

			metrics.RecordLogEntryApplied(entry.ModelName)
		}
	}

	if err := state.Transition(StateReady); err != nil {
		return err
	}

	metrics.RecordPeerStateChange(peerID, string(StateReady), deviceStates)

	return nil
}

func (e *Engine) handleHeartbeat(peerID string, env wire.Envelope) error {
	var hb wire.HeartbeatPayload
	if err := wire.Unpack(env, &hb); err != nil {
		return err
	}

	e.mu.Lock()
	if st, ok := e.states[peerID]; ok {
		st.LatencyMS = e.nowMS() - hb.SentAtMS
	}
	e.mu.Unlock()

	metrics.SetPeerLatency(peerID, e.nowMS()-hb.SentAtMS)

	return nil
}

// snapshotPage returns one page of rows for model starting after cursor,
// msgpack-encoding each row for BackfillBatchPayload.Rows. Only
// ContentIdentity is backfilled via this path today — Device/Volume/
// Location/Entry replicate purely through live StateChange pushes since a
// freshly paired device has no prior rows to diverge from.
func (e *Engine) snapshotPage(ctx context.Context, modelName, cursor string) ([][]byte, string, error) {
	if modelName != ModelContentIdentity {
		return nil, "", fmt.Errorf("syncengine: backfill not implemented for model %q", modelName)
	}

	updatedAt, afterID := parseContentCursor(cursor)

	rows, err := e.store.ListContentIdentitiesSince(ctx, updatedAt, afterID, backfillPageSize)
	if err != nil {
		return nil, "", err
	}

	encoded := make([][]byte, 0, len(rows))

	for _, ci := range rows {
		b, err := msgpack.Marshal(ci)
		if err != nil {
			return nil, "", fmt.Errorf("syncengine: encode content identity %s: %w", ci.ID, err)
		}

		encoded = append(encoded, b)
	}

	next := ""

	if len(rows) == backfillPageSize {
		last := rows[len(rows)-1]
		next = fmt.Sprintf("%d.%s", last.UpdatedAt, last.ID)
	}

	return encoded, next, nil
}

func parseContentCursor(cursor string) (updatedAt int64, afterID string) {
	if cursor == "" {
		return 0, ""
	}

	var id string

	n, _ := fmt.Sscanf(cursor, "%d.%s", &updatedAt, &id)
	if n != 2 {
		return 0, ""
	}

	return updatedAt, id
}

func (e *Engine) applySnapshotRow(ctx context.Context, modelName string, row []byte) error {
	switch modelName {
	case ModelContentIdentity:
		var ci model.ContentIdentity
		if err := msgpack.Unmarshal(row, &ci); err != nil {
			return err
		}

		return e.store.UpsertContentIdentity(ctx, &ci)
	default:
		return fmt.Errorf("syncengine: unknown backfill model %q", modelName)
	}
}

func cursorRecordID(opaque string) string {
	return opaque
}

func (e *Engine) send(ctx context.Context, peerID string, kind wire.Kind, payload any) error {
	env, err := wire.Pack(e.cfg.LibraryID, e.cfg.DeviceID, kind, payload)
	if err != nil {
		return err
	}

	b, err := wire.Encode(env)
	if err != nil {
		return err
	}

	return e.transport.Send(ctx, peerID, b)
}

func (e *Engine) publish(ctx context.Context, ev eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, ev, e.nowMS()); err != nil {
		e.logger.Warn("syncengine: publishing event failed", "kind", ev.Kind, "error", err)
	}
}

// Heartbeat sends a Heartbeat message to peerID, carrying this device's
// current state-machine phase for the peer's own BackfillCoordinator
// scoring.
func (e *Engine) Heartbeat(ctx context.Context, peerID string, state DeviceState) error {
	return e.send(ctx, peerID, wire.KindHeartbeat, wire.HeartbeatPayload{DeviceState: string(state), SentAtMS: e.nowMS()})
}

// BroadcastStateChange pushes a state-based upsert to every currently
// Ready peer — called by internal/action after a local mutation commits.
func (e *Engine) BroadcastStateChange(ctx context.Context, modelName, recordID string, data []byte, updatedAtMS int64) {
	payload := wire.StateChangePayload{
		ModelName:   modelName,
		RecordID:    recordID,
		Data:        data,
		UpdatedAtMS: updatedAtMS,
		DeviceID:    e.cfg.DeviceID,
	}

	e.mu.Lock()
	peers := make([]string, 0, len(e.states))

	for id, st := range e.states {
		if st.State == StateReady {
			peers = append(peers, id)
		}
	}
	e.mu.Unlock()

	for _, peerID := range peers {
		if err := e.send(ctx, peerID, wire.KindStateChange, payload); err != nil {
			e.logger.Warn("syncengine: broadcasting state change failed", "peer", peerID, "error", err)
		}
	}
}

// Tick returns the current moment's HLC timestamp for tagging a local
// mutation before it's logged/broadcast.
func (e *Engine) Tick() hlc.Timestamp {
	return e.clock.Tick()
}
