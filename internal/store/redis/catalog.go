package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/observability"
)

// CatalogStore implements domain.CatalogStore as a hash of model id to
// descriptor JSON.
type CatalogStore struct {
	client *redis.Client
	key    string
}

// NewCatalogStore creates a catalog store under the given key prefix.
func NewCatalogStore(client *redis.Client, prefix string) *CatalogStore {
	return &CatalogStore{
		client: client,
		key:    prefixed(prefix, "catalog:models"),
	}
}

// LoadActive returns every persisted model whose status is active, ordered by id.
// Entries that fail to decode are skipped and logged.
func (s *CatalogStore) LoadActive(ctx context.Context) ([]*domain.ModelDescriptor, error) {
	entries, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	logger := observability.FromContext(ctx)
	models := make([]*domain.ModelDescriptor, 0, len(entries))
	for id, raw := range entries {
		var model domain.ModelDescriptor
		if unmarshalErr := json.Unmarshal([]byte(raw), &model); unmarshalErr != nil {
			logger.Warn("skipping undecodable catalog entry",
				observability.String("model_id", id),
				observability.Error(unmarshalErr))
			continue
		}
		if model.Status != domain.ModelActive {
			continue
		}
		models = append(models, &model)
	}

	slices.SortFunc(models, func(a, b *domain.ModelDescriptor) int {
		return strings.Compare(a.ID, b.ID)
	})

	return models, nil
}

// Upsert creates or replaces a registration.
func (s *CatalogStore) Upsert(ctx context.Context, model *domain.ModelDescriptor) error {
	if model == nil || model.ID == "" {
		return errors.New("model id cannot be empty")
	}

	data, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to encode model %s: %w", model.ID, err)
	}

	if err = s.client.HSet(ctx, s.key, model.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to store model %s: %w", model.ID, err)
	}

	return nil
}
