package eventbus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()

	b := New(slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = b.Close() })

	return b
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := newTestBus(t)

	ch, unsubscribe := b.Subscribe(context.Background())
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), Event{
		Kind:    KindJobStarted,
		JobID:   "job-1",
		JobKind: "indexer.location",
	}, 100))

	select {
	case ev := <-ch:
		require.Equal(t, KindJobStarted, ev.Kind)
		require.Equal(t, "job-1", ev.JobID)
		require.Equal(t, int64(100), ev.EmittedAt)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishFansOutToMultipleSubscribers(t *testing.T) {
	b := newTestBus(t)

	chA, unsubA := b.Subscribe(context.Background())
	defer unsubA()

	chB, unsubB := b.Subscribe(context.Background())
	defer unsubB()

	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindVolumeAdded, VolumeID: "v1"}, 1))

	for _, ch := range []<-chan Event{chA, chB} {
		select {
		case ev := <-ch:
			require.Equal(t, "v1", ev.VolumeID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestSlowSubscriberDropsWithoutBlockingOthers(t *testing.T) {
	b := newTestBus(t)

	slow, unsubSlow := b.Subscribe(context.Background())
	defer unsubSlow()

	fast, unsubFast := b.Subscribe(context.Background())
	defer unsubFast()

	// Fill the slow subscriber's buffer without draining it, draining the
	// fast one concurrently so its channel never backs up.
	var fastReceived int

	done := make(chan struct{})

	go func() {
		defer close(done)

		for range fast {
			fastReceived++
		}
	}()

	for i := 0; i < defaultSubscriberBuffer+10; i++ {
		require.NoError(t, b.Publish(context.Background(), Event{Kind: KindFilesIndexed, FilesDone: i}, int64(i)))
	}

	require.Eventually(t, func() bool {
		return len(slow) == defaultSubscriberBuffer
	}, time.Second, 10*time.Millisecond, "slow subscriber's channel should fill and excess events should drop")

	unsubFast()
	<-done

	require.Greater(t, fastReceived, 0)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := newTestBus(t)

	ch, unsubscribe := b.Subscribe(context.Background())
	unsubscribe()

	_, ok := <-ch
	require.False(t, ok)
}
