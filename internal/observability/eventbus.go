package observability

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultEventBuffer = 1024

// EventBusConfig contains event sink settings.
type EventBusConfig struct {
	Buffer int `env:"EVENTS_BUFFER" envDefault:"1024"`
}

// Event is a single notification delivered to subscribers.
type Event struct {
	Type       string
	Data       map[string]interface{}
	RequestID  string
	TraceID    string
	OccurredAt time.Time
}

// Subscriber receives events on the bus goroutine.
type Subscriber func(Event)

// EventBus implements the EventPublisher interface.
// Publish never blocks: events are queued on a bounded channel and
// dropped with a warning when the queue is full.
type EventBus struct {
	logger      *zap.Logger
	queue       chan Event
	done        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
	mu          sync.RWMutex
	subscribers []Subscriber
	dropped     atomic.Int64
}

// NewEventBus creates a new event bus and starts its delivery goroutine.
func NewEventBus(logger *zap.Logger, cfg *EventBusConfig) *EventBus {
	buffer := defaultEventBuffer
	if cfg != nil && cfg.Buffer > 0 {
		buffer = cfg.Buffer
	}

	e := &EventBus{
		logger: logger,
		queue:  make(chan Event, buffer),
		done:   make(chan struct{}),
	}

	e.wg.Add(1)
	go e.run()

	return e
}

// Subscribe registers an observer for every subsequent event.
func (e *EventBus) Subscribe(sub Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, sub)
}

// Publish publishes an event with the given type and data.
func (e *EventBus) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	event := Event{
		Type:       eventType,
		Data:       data,
		RequestID:  GetRequestID(ctx),
		TraceID:    GetTraceID(ctx),
		OccurredAt: time.Now(),
	}

	select {
	case <-e.done:
		return
	default:
	}

	select {
	case e.queue <- event:
	default:
		e.dropped.Add(1)
		if e.logger != nil {
			e.logger.Warn("event dropped, sink is saturated",
				zap.String("event_type", eventType),
				zap.Int64("dropped_total", e.dropped.Load()))
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (e *EventBus) Dropped() int64 {
	return e.dropped.Load()
}

// Close stops delivery after draining queued events.
func (e *EventBus) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
		e.wg.Wait()
	})
}

func (e *EventBus) run() {
	defer e.wg.Done()

	for {
		select {
		case event := <-e.queue:
			e.deliver(event)
		case <-e.done:
			for {
				select {
				case event := <-e.queue:
					e.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (e *EventBus) deliver(event Event) {
	if e.logger != nil {
		fields := make([]zap.Field, 0, len(event.Data)+2)
		fields = append(fields, zap.String("request_id", event.RequestID))
		if event.TraceID != "" {
			fields = append(fields, zap.String("trace_id", event.TraceID))
		}
		for k, v := range event.Data {
			fields = append(fields, zap.Any(k, v))
		}
		e.logger.Info(event.Type, fields...)
	}

	e.mu.RLock()
	subs := e.subscribers
	e.mu.RUnlock()

	for _, sub := range subs {
		e.notify(sub, event)
	}
}

// notify isolates subscriber panics so one faulty observer cannot stop delivery.
func (e *EventBus) notify(sub Subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil && e.logger != nil {
			e.logger.Error("event subscriber panicked",
				zap.String("event_type", event.Type),
				zap.Any("panic", r))
		}
	}()
	sub(event)
}
