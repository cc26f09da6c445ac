package observability_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidbz/governor/internal/observability"
)

type collector struct {
	mu     sync.Mutex
	events []observability.Event
}

func (c *collector) receive(e observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) snapshot() []observability.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]observability.Event(nil), c.events...)
}

func TestEventBus_DeliversInOrder(t *testing.T) {
	bus := observability.NewEventBus(zap.NewNop(), nil)
	sink := &collector{}
	bus.Subscribe(sink.receive)

	ctx := observability.WithRequestID(context.Background(), "req-1")
	for _, name := range []string{"first", "second", "third"} {
		bus.Publish(ctx, name, map[string]interface{}{"n": name})
	}
	bus.Close()

	events := sink.snapshot()
	require.Len(t, events, 3)
	for i, name := range []string{"first", "second", "third"} {
		require.Equal(t, name, events[i].Type)
		require.Equal(t, "req-1", events[i].RequestID)
		require.Equal(t, name, events[i].Data["n"])
		require.False(t, events[i].OccurredAt.IsZero())
	}
}

func TestEventBus_DropsWhenSaturated(t *testing.T) {
	bus := observability.NewEventBus(zap.NewNop(), &observability.EventBusConfig{Buffer: 1})

	release := make(chan struct{})
	bus.Subscribe(func(observability.Event) { <-release })

	for range 5 {
		bus.Publish(context.Background(), "burst", nil)
	}

	require.Positive(t, bus.Dropped())

	close(release)
	bus.Close()
}

func TestEventBus_SubscriberPanicIsIsolated(t *testing.T) {
	bus := observability.NewEventBus(zap.NewNop(), nil)
	sink := &collector{}
	bus.Subscribe(func(observability.Event) { panic("boom") })
	bus.Subscribe(sink.receive)

	bus.Publish(context.Background(), "a", nil)
	bus.Publish(context.Background(), "b", nil)
	bus.Close()

	require.Len(t, sink.snapshot(), 2)
}

func TestEventBus_PublishAfterCloseIsIgnored(t *testing.T) {
	bus := observability.NewEventBus(nil, nil)
	sink := &collector{}
	bus.Subscribe(sink.receive)
	bus.Close()

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), "late", nil)
	})
	require.Empty(t, sink.snapshot())
	require.Zero(t, bus.Dropped())
}
