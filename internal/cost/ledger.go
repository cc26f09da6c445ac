package cost

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidbz/governor/internal/domain"
)

// MemoryLedger is an in-process domain.CostLedger.
type MemoryLedger struct {
	mu     sync.RWMutex
	events []domain.CostEvent
	spent  map[string]float64
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		spent: make(map[string]float64),
	}
}

// Record appends a cost event and charges its budget.
func (l *MemoryLedger) Record(_ context.Context, event domain.CostEvent) error {
	if event.CostUSD < 0 {
		return errors.New("cost cannot be negative")
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)
	if event.Budget != "" {
		l.spent[event.Budget] += event.CostUSD
	}

	return nil
}

// Spent returns the accumulated spend charged to a budget.
func (l *MemoryLedger) Spent(_ context.Context, budget string) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.spent[budget], nil
}

// Events returns a copy of every recorded event, oldest first.
func (l *MemoryLedger) Events() []domain.CostEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.events)
}
