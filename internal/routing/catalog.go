package routing

import (
	"sync"
	"sync/atomic"

	"github.com/davidbz/governor/internal/domain"
)

// catalogSnapshot is immutable once published.
type catalogSnapshot struct {
	byID  map[string]*domain.ModelDescriptor
	order []string
}

// Catalog is a copy-on-write model catalog. Readers take a consistent snapshot
// without locking; writers serialize on mu and publish a new snapshot.
type Catalog struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[catalogSnapshot]
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	c := &Catalog{}
	c.snapshot.Store(&catalogSnapshot{byID: map[string]*domain.ModelDescriptor{}})
	return c
}

// Put inserts or replaces a model.
func (c *Catalog) Put(model *domain.ModelDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snapshot.Load()
	next := &catalogSnapshot{
		byID:  make(map[string]*domain.ModelDescriptor, len(current.byID)+1),
		order: make([]string, 0, len(current.order)+1),
	}
	for id, m := range current.byID {
		next.byID[id] = m
	}
	next.order = append(next.order, current.order...)

	if _, exists := next.byID[model.ID]; !exists {
		next.order = append(next.order, model.ID)
	}
	next.byID[model.ID] = model.Clone()

	c.snapshot.Store(next)
}

// Get returns a copy of the model with the given ID.
func (c *Catalog) Get(id string) (*domain.ModelDescriptor, bool) {
	m, ok := c.snapshot.Load().byID[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Models returns copies of every model in registration order.
func (c *Catalog) Models() []*domain.ModelDescriptor {
	snap := c.snapshot.Load()
	out := make([]*domain.ModelDescriptor, 0, len(snap.order))
	for _, id := range snap.order {
		out = append(out, snap.byID[id].Clone())
	}
	return out
}

// view returns the shared, read-only models of the current snapshot.
func (c *Catalog) view() *catalogSnapshot {
	return c.snapshot.Load()
}
