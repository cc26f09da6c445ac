package domain

import "context"

// Provider represents any inference backend.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider identifier.
	Name() string
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (Provider, error)

	// List returns all available providers.
	List(ctx context.Context) ([]string, error)
}

// EventPublisher publishes events for observability.
// Implementations must never block the caller.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}

// ModelSelector picks a model for a request.
type ModelSelector interface {
	SelectModel(
		ctx context.Context,
		criteria *SelectionCriteria,
		selCtx *SelectionContext,
		strategy string,
	) (*SelectionResult, error)
}

// CostEstimator prices units of work and checks budgets.
type CostEstimator interface {
	// Estimate prices one unit of work; model may be nil.
	Estimate(ctx context.Context, cc CostContext, model *ModelDescriptor) (*CostEstimate, error)

	// CheckBudget evaluates adding cost to the budget.
	CheckBudget(ctx context.Context, budget Budget, cost float64) *BudgetCheck
}

// SafetyEvaluator screens prompts and generations. It never returns errors:
// internal failures are folded into a conservative unsafe result.
type SafetyEvaluator interface {
	EvaluatePrompt(ctx context.Context, requestID, text string) *SafetyResult
	EvaluateGeneration(ctx context.Context, requestID, text string) *SafetyResult
}

// CatalogStore persists model registrations.
type CatalogStore interface {
	// LoadActive returns every persisted model whose status is active.
	LoadActive(ctx context.Context) ([]*ModelDescriptor, error)

	// Upsert creates or replaces a registration.
	Upsert(ctx context.Context, model *ModelDescriptor) error
}

// CostLedger is the append-only record of incurred costs.
type CostLedger interface {
	// Record appends a cost event.
	Record(ctx context.Context, event CostEvent) error

	// Spent returns the accumulated spend charged to a budget.
	Spent(ctx context.Context, budget string) (float64, error)
}

// TokenCounter estimates token counts for text.
type TokenCounter interface {
	Count(text string) int
}
