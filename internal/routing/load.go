package routing

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
)

// LoadTracker counts in-flight selections per model. Each Acquire schedules a
// single matching decrement after the decay window; counters never go negative.
type LoadTracker struct {
	decay time.Duration

	mu       sync.Mutex
	counters map[string]*atomic.Int64

	queue *delayQueue
}

// NewLoadTracker starts a tracker whose increments decay after d.
func NewLoadTracker(d time.Duration) *LoadTracker {
	t := &LoadTracker{
		decay:    d,
		counters: make(map[string]*atomic.Int64),
	}
	t.queue = newDelayQueue(t.release)
	return t
}

// Acquire increments the model's load and schedules its decay.
func (t *LoadTracker) Acquire(modelID string) int64 {
	n := t.counter(modelID).Add(1)
	t.queue.schedule(modelID, time.Now().Add(t.decay))
	return n
}

// Load returns the model's current load.
func (t *LoadTracker) Load(modelID string) int64 {
	t.mu.Lock()
	c, ok := t.counters[modelID]
	t.mu.Unlock()
	if !ok {
		return 0
	}
	return c.Load()
}

// Snapshot returns the load of every tracked model.
func (t *LoadTracker) Snapshot() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int64, len(t.counters))
	for id, c := range t.counters {
		out[id] = c.Load()
	}
	return out
}

// Close stops the decay goroutine. Pending decrements are discarded.
func (t *LoadTracker) Close() {
	t.queue.close()
}

func (t *LoadTracker) counter(modelID string) *atomic.Int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.counters[modelID]
	if !ok {
		c = &atomic.Int64{}
		t.counters[modelID] = c
	}
	return c
}

// release decrements the model's load, clamping at zero.
func (t *LoadTracker) release(modelID string) {
	c := t.counter(modelID)
	for {
		current := c.Load()
		if current <= 0 {
			return
		}
		if c.CompareAndSwap(current, current-1) {
			return
		}
	}
}

type delayItem struct {
	key string
	at  time.Time
}

type delayHeap []delayItem

func (h delayHeap) Len() int           { return len(h) }
func (h delayHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h delayHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *delayHeap) Push(x any)        { *h = append(*h, x.(delayItem)) }

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// delayQueue fires fn(key) once per scheduled item at or after its due time,
// using a single goroutine and timer regardless of how many items are pending.
type delayQueue struct {
	fn func(string)

	mu    sync.Mutex
	items delayHeap

	wake chan struct{}
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func newDelayQueue(fn func(string)) *delayQueue {
	q := &delayQueue{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *delayQueue) schedule(key string, at time.Time) {
	q.mu.Lock()
	heap.Push(&q.items, delayItem{key: key, at: at})
	isNext := q.items[0].at.Equal(at)
	q.mu.Unlock()

	if isNext {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
}

func (q *delayQueue) close() {
	q.once.Do(func() {
		close(q.done)
	})
	q.wg.Wait()
}

func (q *delayQueue) run() {
	defer q.wg.Done()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait := q.fireDue()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-q.done:
			return
		case <-q.wake:
		case <-timer.C:
		}
	}
}

// fireDue runs every due item and returns the wait until the next one.
func (q *delayQueue) fireDue() time.Duration {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			return time.Hour
		}
		next := q.items[0]
		now := time.Now()
		if next.at.After(now) {
			q.mu.Unlock()
			return next.at.Sub(now)
		}
		heap.Pop(&q.items)
		q.mu.Unlock()

		q.fn(next.key)
	}
}
