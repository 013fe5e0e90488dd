// Package transport provides the bidirectional framed channel between
// paired devices spec.md §6 calls for: send(peer_id, message_bytes),
// subscribe_connected_partners(), receive_from(peer_id). Framing of those
// opaque bytes into envelopes is internal/wire's job, not this package's —
// transport only moves byte slices reliably over an authenticated
// connection. Built on coder/websocket (a teacher dependency previously
// unused beyond its go.mod entry), repointed here from the teacher's
// never-implemented webhook subscription to actual device-to-device
// framing.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const inboxBuffer = 64

// Conn is one raw, unauthenticated-or-authenticated framed connection.
// Before a peer's device identity is confirmed by the pairing handshake
// (owned by internal/syncengine, not this package), callers exchange
// PairingRequest/Response bytes directly over a Conn returned by Accept or
// Dial; once verified, Register promotes it into the named peer registry.
type Conn struct {
	ws         *websocket.Conn
	remoteAddr string
	writeMu    sync.Mutex
}

// Send writes one binary message, safe for concurrent use.
func (c *Conn) Send(ctx context.Context, b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.Write(ctx, websocket.MessageBinary, b); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}

	return nil
}

// Receive blocks for the next binary message. Not safe for concurrent use
// by multiple callers on the same Conn — Manager serializes this behind
// each registered peer's readLoop.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	_, b, err := c.ws.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: read: %w", err)
	}

	return b, nil
}

// Close closes the underlying connection with a normal-closure code.
func (c *Conn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "closing")
}

// RemoteAddr identifies the network peer this Conn was accepted from or
// dialed to, for logging.
func (c *Conn) RemoteAddr() string { return c.remoteAddr }

// PeerEvent reports a named peer's connection state changing.
type PeerEvent struct {
	DeviceID  string
	Connected bool
}

type registeredPeer struct {
	conn   *Conn
	inbox  chan []byte
	cancel context.CancelFunc
}

// Manager tracks unauthenticated inbound connections awaiting a pairing
// handshake and the registry of handshake-confirmed named peers, and
// fans out connect/disconnect notifications to subscribers. Start/Stop
// and the readLoop-per-peer shape follow internal/job.Dispatcher /
// the teacher's WorkerPool goroutine-lifecycle convention.
type Manager struct {
	logger *slog.Logger

	incoming chan *Conn

	mu          sync.Mutex
	peers       map[string]*registeredPeer
	subscribers map[string]chan PeerEvent
	closed      bool
}

// NewManager constructs a Manager. Handler must be mounted on an
// http.ServeMux to accept inbound connections; Dial opens outbound ones.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:      logger,
		incoming:    make(chan *Conn, 16),
		peers:       make(map[string]*registeredPeer),
		subscribers: make(map[string]chan PeerEvent),
	}
}

// Handler upgrades inbound HTTP requests to websocket connections and
// queues them on Accept. Mount under the engine's pairing/sync endpoint.
func (m *Manager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			m.logger.Warn("transport: accept failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		conn := &Conn{ws: ws, remoteAddr: r.RemoteAddr}

		select {
		case m.incoming <- conn:
		case <-r.Context().Done():
			_ = conn.Close()
		}
	})
}

// Accept blocks until an inbound connection arrives, or ctx is canceled.
// The caller performs the pairing handshake over the returned Conn, then
// calls Register once the peer's device identity is confirmed.
func (m *Manager) Accept(ctx context.Context) (*Conn, error) {
	select {
	case conn := <-m.incoming:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dial opens an outbound connection to addr. As with Accept, the caller
// handshakes over the returned Conn before Register.
func (m *Manager) Dial(ctx context.Context, addr string) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	return &Conn{ws: ws, remoteAddr: addr}, nil
}

// Register promotes a handshake-confirmed Conn into the named peer
// registry, starts its read loop, and publishes a Connected PeerEvent. A
// prior registration for the same deviceID is closed and replaced.
func (m *Manager) Register(deviceID string, conn *Conn) {
	m.mu.Lock()

	if old, ok := m.peers[deviceID]; ok {
		old.cancel()
		_ = old.conn.Close()
	}

	readCtx, cancel := context.WithCancel(context.Background())
	rp := &registeredPeer{conn: conn, inbox: make(chan []byte, inboxBuffer), cancel: cancel}
	m.peers[deviceID] = rp
	m.mu.Unlock()

	m.publish(PeerEvent{DeviceID: deviceID, Connected: true})

	go m.readLoop(readCtx, deviceID, rp)
}

func (m *Manager) readLoop(ctx context.Context, deviceID string, rp *registeredPeer) {
	for {
		b, err := rp.conn.Receive(ctx)
		if err != nil {
			m.removePeer(deviceID)
			return
		}

		select {
		case rp.inbox <- b:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) removePeer(deviceID string) {
	m.mu.Lock()
	rp, ok := m.peers[deviceID]
	if ok {
		delete(m.peers, deviceID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	rp.cancel()
	_ = rp.conn.Close()

	m.publish(PeerEvent{DeviceID: deviceID, Connected: false})
}

// Send writes msg to the named peer. Returns an error if the peer is not
// currently registered.
func (m *Manager) Send(ctx context.Context, peerID string, msg []byte) error {
	m.mu.Lock()
	rp, ok := m.peers[peerID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("transport: peer %s not connected", peerID)
	}

	return rp.conn.Send(ctx, msg)
}

// ReceiveFrom blocks for the next message from the named peer's inbox.
func (m *Manager) ReceiveFrom(ctx context.Context, peerID string) ([]byte, error) {
	m.mu.Lock()
	rp, ok := m.peers[peerID]
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("transport: peer %s not connected", peerID)
	}

	select {
	case b, ok := <-rp.inbox:
		if !ok {
			return nil, fmt.Errorf("transport: peer %s disconnected", peerID)
		}

		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Disconnect closes and deregisters a named peer.
func (m *Manager) Disconnect(peerID string) {
	m.removePeer(peerID)
}

// IsConnected reports whether peerID currently has a registered
// connection.
func (m *Manager) IsConnected(peerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.peers[peerID]

	return ok
}

// SubscribeConnectedPeers registers for connect/disconnect notifications.
// The returned unsubscribe func must be called when done.
func (m *Manager) SubscribeConnectedPeers() (<-chan PeerEvent, func()) {
	id := uuid.NewString()
	ch := make(chan PeerEvent, 32)

	m.mu.Lock()
	m.subscribers[id] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if sub, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(sub)
		}
	}
}

func (m *Manager) publish(ev PeerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
			m.logger.Warn("transport: subscriber channel full, dropping peer event", "device_id", ev.DeviceID)
		}
	}
}

// Close disconnects every registered peer and marks the Manager closed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}

	m.closed = true
	peerIDs := make([]string, 0, len(m.peers))

	for id := range m.peers {
		peerIDs = append(peerIDs, id)
	}

	subs := m.subscribers
	m.subscribers = make(map[string]chan PeerEvent)
	m.mu.Unlock()

	for _, id := range peerIDs {
		m.removePeer(id)
	}

	for _, ch := range subs {
		close(ch)
	}

	return nil
}
