package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// busTopic is the single gochannel topic every Event is published on;
// subscriber fan-out and per-kind filtering happen in this package, not in
// watermill's topic routing.
const busTopic = "events"

// defaultSubscriberBuffer bounds each subscriber's own channel. Matches
// spec.md §5's bounded-broadcast requirement.
const defaultSubscriberBuffer = 256

// Bus is the in-process event broadcaster. Internally it runs a single
// gochannel Pub/Sub as the ingest pipe and fans out to each external
// subscriber's own bounded channel, dropping (and logging) an event for a
// subscriber whose channel is full rather than blocking the publisher or
// other subscribers — spec.md §5's "disconnect/drop the slow subscriber"
// policy, made explicit here since gochannel's own multi-subscriber
// fan-out would otherwise block Publish on the slowest reader.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger

	mu          sync.Mutex
	subscribers map[string]chan Event
	closed      bool
}

// New constructs a Bus and starts its internal dispatch loop. Callers
// should call Close when the bus is no longer needed.
func New(logger *slog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: defaultSubscriberBuffer},
		watermill.NewStdLogger(false, false),
	)

	b := &Bus{
		pubsub:      pubsub,
		logger:      logger,
		subscribers: make(map[string]chan Event),
	}

	go b.dispatchLoop()

	return b
}

// Publish serializes and publishes ev on the bus. EmittedAt is stamped
// with nowMS if unset.
func (b *Bus) Publish(ctx context.Context, ev Event, nowMS int64) error {
	if ev.EmittedAt == 0 {
		ev.EmittedAt = nowMS
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := message.NewMessage(uuid.NewString(), payload)

	return b.pubsub.Publish(busTopic, msg)
}

// Subscribe registers a new subscriber and returns its event channel plus
// an unsubscribe function. The channel is closed once Unsubscribe is
// called or the Bus itself is closed.
func (b *Bus) Subscribe(_ context.Context) (<-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, defaultSubscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}

	return ch, unsubscribe
}

// Close shuts down the bus: the underlying gochannel pub/sub and every
// still-registered subscriber channel.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}

	b.closed = true

	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()

	return b.pubsub.Close()
}

func (b *Bus) dispatchLoop() {
	messages, err := b.pubsub.Subscribe(context.Background(), busTopic)
	if err != nil {
		b.logger.Error("eventbus: internal subscribe failed", "error", err)
		return
	}

	for msg := range messages {
		var ev Event

		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			b.logger.Error("eventbus: dropping malformed event", "error", err)
			msg.Ack()

			continue
		}

		b.fanOut(ev)
		msg.Ack()
	}
}

func (b *Bus) fanOut(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("eventbus: subscriber channel full, dropping event",
				slog.String("subscriber_id", id),
				slog.String("kind", string(ev.Kind)),
			)
		}
	}
}

