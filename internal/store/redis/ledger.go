package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/davidbz/governor/internal/domain"
)

// Ledger implements domain.CostLedger. Events are appended to a list and
// per-budget spend is kept in INCRBYFLOAT counters so Spent is a single read.
type Ledger struct {
	client      *redis.Client
	eventsKey   string
	spentPrefix string
}

// NewLedger creates a ledger under the given key prefix.
func NewLedger(client *redis.Client, prefix string) *Ledger {
	return &Ledger{
		client:      client,
		eventsKey:   prefixed(prefix, "ledger:events"),
		spentPrefix: prefixed(prefix, "ledger:spent:"),
	}
}

// Record appends a cost event and charges its budget in one transaction.
func (l *Ledger) Record(ctx context.Context, event domain.CostEvent) error {
	if event.CostUSD < 0 {
		return errors.New("cost cannot be negative")
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode cost event: %w", err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, l.eventsKey, data)
		if event.Budget != "" {
			pipe.IncrByFloat(ctx, l.spentPrefix+event.Budget, event.CostUSD)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record cost event: %w", err)
	}

	return nil
}

// Spent returns the accumulated spend charged to a budget.
func (l *Ledger) Spent(ctx context.Context, budget string) (float64, error) {
	raw, err := l.client.Get(ctx, l.spentPrefix+budget).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read spend for budget %s: %w", budget, err)
	}

	spent, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid spend value for budget %s: %w", budget, err)
	}
	return spent, nil
}

// Events returns the most recent events, oldest first. A non-positive limit
// returns every event.
func (l *Ledger) Events(ctx context.Context, limit int) ([]domain.CostEvent, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	raw, err := l.client.LRange(ctx, l.eventsKey, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cost events: %w", err)
	}

	events := make([]domain.CostEvent, 0, len(raw))
	for _, item := range raw {
		var event domain.CostEvent
		if err = json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("failed to decode cost event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}
