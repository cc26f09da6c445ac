package registry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/governor/internal/mocks"
	"github.com/davidbz/governor/internal/provider/registry"
)

func namedProvider(t *testing.T, name string) *mocks.MockProvider {
	t.Helper()
	provider := mocks.NewMockProvider(t)
	provider.EXPECT().Name().Return(name).Maybe()
	return provider
}

func TestRegistry_Register(t *testing.T) {
	t.Run("should register provider successfully", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		err := reg.Register(ctx, namedProvider(t, "test-provider"))
		require.NoError(t, err)

		registered, err := reg.Get(ctx, "test-provider")
		require.NoError(t, err)
		require.NotNil(t, registered)
		require.Equal(t, "test-provider", registered.Name())
	})

	t.Run("should return error when provider is nil", func(t *testing.T) {
		reg := registry.NewRegistry()

		err := reg.Register(context.Background(), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "provider cannot be nil")
	})

	t.Run("should return error when provider name is empty", func(t *testing.T) {
		reg := registry.NewRegistry()

		err := reg.Register(context.Background(), namedProvider(t, ""))
		require.Error(t, err)
		require.Contains(t, err.Error(), "provider name cannot be empty")
	})

	t.Run("should return error when provider already registered", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		require.NoError(t, reg.Register(ctx, namedProvider(t, "echo")))

		err := reg.Register(ctx, namedProvider(t, "echo"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "already registered")
	})
}

func TestRegistry_Get(t *testing.T) {
	reg := registry.NewRegistry()
	ctx := context.Background()
	require.NoError(t, reg.Register(ctx, namedProvider(t, "openai")))

	tests := []struct {
		name     string
		provider string
		errMsg   string
	}{
		{name: "registered provider", provider: "openai"},
		{name: "empty name", provider: "", errMsg: "provider name cannot be empty"},
		{name: "unknown provider", provider: "anthropic", errMsg: "provider anthropic not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := reg.Get(ctx, tt.provider)
			if tt.errMsg != "" {
				require.Error(t, err)
				require.Nil(t, provider)
				require.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.provider, provider.Name())
		})
	}
}

func TestRegistry_List(t *testing.T) {
	reg := registry.NewRegistry()
	ctx := context.Background()

	names, err := reg.List(ctx)
	require.NoError(t, err)
	require.Empty(t, names)

	require.NoError(t, reg.Register(ctx, namedProvider(t, "openai")))
	require.NoError(t, reg.Register(ctx, namedProvider(t, "echo")))

	names, err = reg.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"echo", "openai"}, names)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := registry.NewRegistry()
	ctx := context.Background()
	require.NoError(t, reg.Register(ctx, namedProvider(t, "echo")))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			provider, err := reg.Get(ctx, "echo")
			require.NoError(t, err)
			require.NotNil(t, provider)
		}()
	}
	wg.Wait()
}
