package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/governor/internal/config"
	"github.com/davidbz/governor/internal/cost"
	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/http"
	"github.com/davidbz/governor/internal/http/middleware"
	"github.com/davidbz/governor/internal/observability"
	"github.com/davidbz/governor/internal/provider/echo"
	"github.com/davidbz/governor/internal/provider/openai"
	"github.com/davidbz/governor/internal/provider/registry"
	"github.com/davidbz/governor/internal/routing"
	"github.com/davidbz/governor/internal/safety"
	redisstore "github.com/davidbz/governor/internal/store/redis"
)

const shutdownTimeout = 15 * time.Second

// storage groups the persistence backends. With Redis disabled the catalog
// lives in memory only and costs go to an in-process ledger.
type storage struct {
	client  *goredis.Client
	catalog domain.CatalogStore
	ledger  domain.CostLedger
}

func main() {
	container := buildContainer()

	err := container.Invoke(run)
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func run(
	server *http.Server,
	router *routing.Router,
	bus *observability.EventBus,
	st *storage,
	openaiCfg *openai.Config,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedCatalog(ctx, router, openaiCfg); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.FromContext(shutdownCtx).Error("server shutdown failed", observability.Error(err))
	}
	router.Close()
	bus.Close()
	if st.client != nil {
		if err := st.client.Close(); err != nil {
			observability.FromContext(shutdownCtx).Warn("failed to close redis client", observability.Error(err))
		}
	}

	return nil
}

// seedCatalog loads persisted models and registers the built-in ones when
// nothing was persisted yet.
func seedCatalog(ctx context.Context, router *routing.Router, openaiCfg *openai.Config) error {
	loaded, err := router.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	if loaded > 0 {
		return nil
	}

	models := echo.CatalogEntries()
	if openaiCfg.APIKey != "" {
		models = append(models, openai.CatalogEntries()...)
	}
	for _, m := range models {
		if err := router.RegisterModel(ctx, m); err != nil {
			return fmt.Errorf("failed to seed model %s: %w", m.ID, err)
		}
	}

	return nil
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func(logger *zap.Logger, cfg *observability.EventBusConfig) *observability.EventBus {
		return observability.NewEventBus(logger, cfg)
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}
	if err := container.Provide(func(bus *observability.EventBus) domain.EventPublisher {
		return bus
	}); err != nil {
		log.Fatalf("Failed to provide event publisher: %v", err)
	}

	// Storage
	if err := container.Provide(newStorage); err != nil {
		log.Fatalf("Failed to provide storage: %v", err)
	}

	// Cost Estimator
	if err := container.Provide(func(cfg *cost.Config, publisher domain.EventPublisher) *cost.Estimator {
		return cost.NewEstimator(cfg, publisher)
	}); err != nil {
		log.Fatalf("Failed to provide cost estimator: %v", err)
	}

	// Model Router
	if err := container.Provide(func(
		cfg *routing.Config,
		estimator *cost.Estimator,
		st *storage,
	) (*routing.Router, error) {
		strategies, err := routing.LoadStrategies(cfg.StrategiesFile)
		if err != nil {
			return nil, err
		}
		return routing.NewRouter(cfg, strategies, estimator, st.catalog), nil
	}); err != nil {
		log.Fatalf("Failed to provide router: %v", err)
	}

	// Safety Evaluator
	if err := container.Provide(func(
		cfg *safety.Config,
		moderation *safety.ModerationConfig,
		publisher domain.EventPublisher,
	) (*safety.Evaluator, error) {
		var classifier safety.Classifier
		if cfg.Classifier == safety.ClassifierOpenAI {
			c, err := safety.NewModerationClassifier(*moderation)
			if err != nil {
				return nil, err
			}
			classifier = c
		}
		return safety.NewEvaluator(cfg, classifier, publisher)
	}); err != nil {
		log.Fatalf("Failed to provide safety evaluator: %v", err)
	}

	// Provider Registry
	if err := container.Provide(newProviderRegistry); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	// Orchestrator
	if err := container.Provide(func(
		router *routing.Router,
		estimator *cost.Estimator,
		reg domain.ProviderRegistry,
		publisher domain.EventPublisher,
		evaluator *safety.Evaluator,
		st *storage,
	) *domain.Orchestrator {
		return domain.NewOrchestrator(router, estimator, reg, publisher,
			domain.WithSafetyEvaluator(evaluator),
			domain.WithCostLedger(st.ledger))
	}); err != nil {
		log.Fatalf("Failed to provide orchestrator: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

func newStorage(cfg *redisstore.Config) (*storage, error) {
	if !cfg.Enabled() {
		return &storage{ledger: cost.NewMemoryLedger()}, nil
	}

	client, err := redisstore.NewClient(context.Background(), *cfg)
	if err != nil {
		return nil, err
	}

	return &storage{
		client:  client,
		catalog: redisstore.NewCatalogStore(client, cfg.KeyPrefix),
		ledger:  redisstore.NewLedger(client, cfg.KeyPrefix),
	}, nil
}

// newProviderRegistry registers the echo provider and, when an API key is
// configured, the OpenAI provider.
func newProviderRegistry(cfg *openai.Config) (domain.ProviderRegistry, error) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	if err := reg.Register(ctx, echo.NewProvider()); err != nil {
		return nil, fmt.Errorf("failed to register echo provider: %w", err)
	}

	if cfg.APIKey == "" {
		observability.FromContext(ctx).Info("OpenAI provider not configured, skipping")
		return reg, nil
	}

	openaiProvider, err := openai.NewProvider(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI provider: %w", err)
	}
	if err := reg.Register(ctx, openaiProvider); err != nil {
		return nil, fmt.Errorf("failed to register OpenAI provider: %w", err)
	}

	return reg, nil
}
