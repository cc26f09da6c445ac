package redis_test

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/store/redis"
)

func newTestClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client, err := redis.NewClient(context.Background(), redis.Config{Addr: server.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, server
}

func testModel(id string, status domain.ModelStatus) *domain.ModelDescriptor {
	return &domain.ModelDescriptor{
		ID:          id,
		Provider:    "echo",
		TaskTypes:   []string{"text-generation"},
		CostProfile: &domain.CostProfile{PricePer1K: 0.001},
		RiskTier:    domain.RiskLow,
		Status:      status,
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	client, err := redis.NewClient(context.Background(), redis.Config{Addr: addr})

	require.Error(t, err)
	require.Nil(t, client)
}

func TestConfig_Enabled(t *testing.T) {
	require.False(t, redis.Config{}.Enabled())
	require.True(t, redis.Config{Addr: "localhost:6379"}.Enabled())
}

func TestCatalogStore(t *testing.T) {
	ctx := context.Background()

	t.Run("should round trip active models", func(t *testing.T) {
		client, _ := newTestClient(t)
		store := redis.NewCatalogStore(client, "test")

		require.NoError(t, store.Upsert(ctx, testModel("model-b", domain.ModelActive)))
		require.NoError(t, store.Upsert(ctx, testModel("model-a", domain.ModelActive)))
		require.NoError(t, store.Upsert(ctx, testModel("model-c", domain.ModelDisabled)))

		models, err := store.LoadActive(ctx)

		require.NoError(t, err)
		require.Len(t, models, 2)
		require.Equal(t, "model-a", models[0].ID)
		require.Equal(t, "model-b", models[1].ID)
		require.InDelta(t, 0.001, models[0].CostProfile.PricePer1K, 1e-12)
	})

	t.Run("should replace an existing registration", func(t *testing.T) {
		client, _ := newTestClient(t)
		store := redis.NewCatalogStore(client, "test")

		require.NoError(t, store.Upsert(ctx, testModel("model-a", domain.ModelActive)))
		require.NoError(t, store.Upsert(ctx, testModel("model-a", domain.ModelDeprecated)))

		models, err := store.LoadActive(ctx)

		require.NoError(t, err)
		require.Empty(t, models)
	})

	t.Run("should skip undecodable entries", func(t *testing.T) {
		client, server := newTestClient(t)
		store := redis.NewCatalogStore(client, "test")

		require.NoError(t, store.Upsert(ctx, testModel("model-a", domain.ModelActive)))
		server.HSet("test:catalog:models", "broken", "{not json")

		models, err := store.LoadActive(ctx)

		require.NoError(t, err)
		require.Len(t, models, 1)
	})

	t.Run("should reject a model without id", func(t *testing.T) {
		client, _ := newTestClient(t)
		store := redis.NewCatalogStore(client, "test")

		require.Error(t, store.Upsert(ctx, &domain.ModelDescriptor{}))
		require.Error(t, store.Upsert(ctx, nil))
	})
}

func TestLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("should accumulate spend per budget", func(t *testing.T) {
		client, _ := newTestClient(t)
		ledger := redis.NewLedger(client, "test")

		require.NoError(t, ledger.Record(ctx, domain.CostEvent{RequestID: "r1", Budget: "team", ModelID: "m", CostUSD: 0.25}))
		require.NoError(t, ledger.Record(ctx, domain.CostEvent{RequestID: "r2", Budget: "team", ModelID: "m", CostUSD: 0.5}))
		require.NoError(t, ledger.Record(ctx, domain.CostEvent{RequestID: "r3", ModelID: "m", CostUSD: 1}))

		spent, err := ledger.Spent(ctx, "team")
		require.NoError(t, err)
		require.InDelta(t, 0.75, spent, 1e-9)

		spent, err = ledger.Spent(ctx, "unknown")
		require.NoError(t, err)
		require.Zero(t, spent)

		events, err := ledger.Events(ctx, 0)
		require.NoError(t, err)
		require.Len(t, events, 3)
		require.Equal(t, "r1", events[0].RequestID)
		require.NotEmpty(t, events[0].ID)
		require.False(t, events[0].RecordedAt.IsZero())

		recent, err := ledger.Events(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		require.Equal(t, "r2", recent[0].RequestID)
	})

	t.Run("should reject negative costs", func(t *testing.T) {
		client, _ := newTestClient(t)
		ledger := redis.NewLedger(client, "test")

		require.Error(t, ledger.Record(ctx, domain.CostEvent{CostUSD: -1}))
	})

	t.Run("should not lose concurrent updates", func(t *testing.T) {
		client, _ := newTestClient(t)
		ledger := redis.NewLedger(client, "test")

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				require.NoError(t, ledger.Record(ctx, domain.CostEvent{Budget: "team", CostUSD: 0.5}))
			}()
		}
		wg.Wait()

		spent, err := ledger.Spent(ctx, "team")
		require.NoError(t, err)
		require.InDelta(t, 10.0, spent, 1e-9)
	})
}
