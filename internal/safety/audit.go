package safety

import (
	"slices"
	"sync"

	"github.com/davidbz/governor/internal/domain"
)

// auditLog is a bounded append-only record. On overflow the oldest tenth
// of the capacity is dropped.
type auditLog struct {
	mu       sync.Mutex
	capacity int
	entries  []domain.AuditEntry
}

func newAuditLog(capacity int) *auditLog {
	return &auditLog{capacity: capacity}
}

func (l *auditLog) append(entry domain.AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	l.trim()
}

func (l *auditLog) setCapacity(capacity int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.capacity = capacity
	l.trim()
}

// trim must be called with mu held.
func (l *auditLog) trim() {
	if len(l.entries) <= l.capacity {
		return
	}
	drop := max(1, l.capacity/10)
	drop = max(drop, len(l.entries)-l.capacity)
	l.entries = slices.Delete(l.entries, 0, drop)
}

// recent returns up to limit of the newest entries, oldest first.
// A non-positive limit returns everything.
func (l *auditLog) recent(limit int) []domain.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := 0
	if limit > 0 && limit < len(l.entries) {
		start = len(l.entries) - limit
	}
	return slices.Clone(l.entries[start:])
}
