// Package routing selects a model from the catalog by filtering, scoring and
// ranking candidates under a named strategy, with budget and load awareness.
package routing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/observability"
)

const diversionWindow = 3

// Config contains router settings.
type Config struct {
	StrategiesFile        string        `env:"ROUTER_STRATEGIES_FILE"`
	DefaultStrategy       string        `env:"ROUTER_DEFAULT_STRATEGY"        envDefault:"balanced"`
	MaxLoad               int           `env:"ROUTER_MAX_LOAD"                envDefault:"100"`
	NormalLoadThreshold   float64       `env:"ROUTER_NORMAL_LOAD_THRESHOLD"   envDefault:"0.8"`
	CriticalLoadThreshold float64       `env:"ROUTER_CRITICAL_LOAD_THRESHOLD" envDefault:"0.95"`
	LoadDecay             time.Duration `env:"ROUTER_LOAD_DECAY"              envDefault:"60s"`
	DefaultMaxCostPer1K   float64       `env:"ROUTER_DEFAULT_MAX_COST_PER_1K" envDefault:"0.02"`
	DefaultMaxLatencyMs   float64       `env:"ROUTER_DEFAULT_MAX_LATENCY_MS"  envDefault:"5000"`
	DefaultInputTokens    int           `env:"ROUTER_DEFAULT_INPUT_TOKENS"    envDefault:"1000"`
	DefaultOutputTokens   int           `env:"ROUTER_DEFAULT_OUTPUT_TOKENS"   envDefault:"500"`
}

func (c Config) withDefaults() Config {
	if c.DefaultStrategy == "" {
		c.DefaultStrategy = StrategyBalanced
	}
	if c.MaxLoad <= 0 {
		c.MaxLoad = 100
	}
	if c.NormalLoadThreshold <= 0 {
		c.NormalLoadThreshold = 0.8
	}
	if c.CriticalLoadThreshold <= 0 {
		c.CriticalLoadThreshold = 0.95
	}
	if c.LoadDecay <= 0 {
		c.LoadDecay = 60 * time.Second
	}
	if c.DefaultMaxCostPer1K <= 0 {
		c.DefaultMaxCostPer1K = 0.02
	}
	if c.DefaultMaxLatencyMs <= 0 {
		c.DefaultMaxLatencyMs = 5000
	}
	if c.DefaultInputTokens <= 0 {
		c.DefaultInputTokens = 1000
	}
	if c.DefaultOutputTokens <= 0 {
		c.DefaultOutputTokens = 500
	}
	return c
}

// Router implements domain.ModelSelector.
type Router struct {
	cfg        Config
	strategies *StrategySet
	estimator  domain.CostEstimator
	store      domain.CatalogStore
	catalog    *Catalog
	loads      *LoadTracker
}

// NewRouter creates a router. strategies defaults to the built-in table and
// store may be nil for an in-memory catalog.
func NewRouter(
	cfg *Config,
	strategies *StrategySet,
	estimator domain.CostEstimator,
	store domain.CatalogStore,
) *Router {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c = c.withDefaults()

	if strategies == nil {
		strategies = DefaultStrategies()
	}

	return &Router{
		cfg:        c,
		strategies: strategies,
		estimator:  estimator,
		store:      store,
		catalog:    NewCatalog(),
		loads:      NewLoadTracker(c.LoadDecay),
	}
}

// RegisterModel validates a model, persists it when a store is configured and
// publishes it to selections that start afterwards.
func (r *Router) RegisterModel(ctx context.Context, model *domain.ModelDescriptor) error {
	if model == nil {
		return domain.NewError(domain.KindInvalidConfig, "model cannot be nil", nil)
	}
	if err := domain.Validate(model); err != nil {
		return err
	}
	if slices.Contains(model.FallbackChain, model.ID) {
		return domain.NewError(domain.KindInvalidConfig,
			fmt.Sprintf("model %s lists itself in its fallback chain", model.ID), nil)
	}

	if r.store != nil {
		if err := r.store.Upsert(ctx, model); err != nil {
			return fmt.Errorf("failed to persist model %s: %w", model.ID, err)
		}
	}

	r.catalog.Put(model)

	observability.FromContext(ctx).Info("model registered",
		observability.String("model_id", model.ID),
		observability.String("provider", model.Provider),
		observability.String("status", string(model.Status)))

	return nil
}

// LoadCatalog registers every active model held by the store. Invalid entries
// are skipped and logged. It returns the number of models loaded.
func (r *Router) LoadCatalog(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}

	models, err := r.store.LoadActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load catalog: %w", err)
	}

	logger := observability.FromContext(ctx)
	loaded := 0
	for _, m := range models {
		if err := domain.Validate(m); err != nil {
			logger.Warn("skipping invalid persisted model", observability.Error(err))
			continue
		}
		r.catalog.Put(m)
		loaded++
	}

	logger.Info("catalog loaded", observability.Int("models", loaded))

	return loaded, nil
}

// Model returns a registered model by ID.
func (r *Router) Model(id string) (*domain.ModelDescriptor, error) {
	m, ok := r.catalog.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, id)
	}
	return m, nil
}

// Models returns every registered model in registration order.
func (r *Router) Models() []*domain.ModelDescriptor {
	return r.catalog.Models()
}

// Load returns the current load counter of a model.
func (r *Router) Load(modelID string) int64 {
	return r.loads.Load(modelID)
}

// Strategies returns the names of the configured strategies.
func (r *Router) Strategies() []string {
	return r.strategies.Names()
}

// Close stops the load decay scheduler.
func (r *Router) Close() {
	r.loads.Close()
}

// SelectModel picks the best model for the criteria under the named strategy.
// An empty name uses the configured default; unknown names resolve to balanced.
// A failed selection is retried once under cost_optimized unless that was
// already the strategy.
func (r *Router) SelectModel(
	ctx context.Context,
	criteria *domain.SelectionCriteria,
	selCtx *domain.SelectionContext,
	strategyName string,
) (*domain.SelectionResult, error) {
	if criteria == nil {
		return nil, domain.NewError(domain.KindInvalidConfig, "selection criteria cannot be nil", nil)
	}
	if err := domain.Validate(criteria); err != nil {
		return nil, err
	}
	if selCtx == nil {
		selCtx = &domain.SelectionContext{}
	}
	if strategyName == "" {
		strategyName = r.cfg.DefaultStrategy
	}

	strategy := r.strategies.Resolve(strategyName)
	ctx = observability.WithStrategy(ctx, strategy.Name)
	logger := observability.FromContext(ctx)

	result, err := r.selectWith(ctx, criteria, selCtx, strategy, false)
	if err == nil {
		return result, nil
	}

	if strategy.Name == StrategyCostOptimized {
		return nil, err
	}

	logger.Warn("selection failed, attempting emergency fallback",
		observability.Error(err))

	fallback, fbErr := r.selectWith(ctx, criteria, selCtx, r.strategies.Resolve(StrategyCostOptimized), false)
	if fbErr != nil {
		logger.Warn("emergency fallback failed", observability.Error(fbErr))
		return nil, err
	}
	fallback.Reasoning = "emergency fallback after " + strategy.Name + " failed; " + fallback.Reasoning

	return fallback, nil
}

func (r *Router) selectWith(
	ctx context.Context,
	criteria *domain.SelectionCriteria,
	selCtx *domain.SelectionContext,
	strategy Strategy,
	relaxed bool,
) (*domain.SelectionResult, error) {
	candidates := r.filter(criteria, selCtx)
	if len(candidates) == 0 {
		return nil, domain.NewError(domain.KindNoCandidate,
			fmt.Sprintf("no active model matches task %q and the given constraints", criteria.TaskType), nil).
			WithRemedy("relax quality, cost or latency limits, or register a model for this task")
	}

	scored, err := r.scoreAll(ctx, candidates, criteria, selCtx, strategy)
	if err != nil {
		return nil, err
	}

	if strategy.BudgetAware && selCtx.MaxCost > 0 {
		scored = slices.DeleteFunc(scored, func(c domain.ScoredCandidate) bool {
			return c.EstimatedCost > selCtx.MaxCost
		})

		if len(scored) == 0 {
			if strategy.AllowFallback && !relaxed {
				observability.FromContext(ctx).Info("budget filter removed every candidate, retrying relaxed",
					observability.Float64("max_cost", selCtx.MaxCost))
				return r.selectWith(ctx, relax(criteria), selCtx, r.strategies.Resolve(StrategyCostOptimized), true)
			}
			return nil, domain.NewError(domain.KindBudgetExceeded,
				fmt.Sprintf("every candidate exceeds the request cost ceiling of $%.6f", selCtx.MaxCost), nil).
				WithRemedy("raise the cost ceiling or choose a cheaper task configuration")
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Composite > scored[j].Composite
	})

	pick, loadNote := r.pickWithLoad(scored, selCtx.Priority)
	chosen := scored[pick]
	load := r.loads.Acquire(chosen.Model.ID)

	reasons := slices.Clone(chosen.Reasoning)
	if relaxed {
		reasons = append([]string{"relaxed constraints after budget filtering"}, reasons...)
	}
	if loadNote != "" {
		reasons = append(reasons, loadNote)
	}

	chain := r.resolveFallbackChain(chosen.Model)
	top := scored
	if len(top) > maxCandidateShown {
		top = top[:maxCandidateShown]
	}

	result := &domain.SelectionResult{
		ModelID:            chosen.Model.ID,
		Model:              chosen.Model.Clone(),
		Strategy:           strategy.Name,
		Reasoning:          strings.Join(reasons, "; "),
		FallbackAvailable:  len(scored) > 1 || len(chain) > 0,
		FallbackChain:      chain,
		Candidates:         cloneCandidates(top),
		EstimatedCost:      chosen.EstimatedCost,
		EstimatedLatencyMs: chosen.EstimatedLatencyMs,
		Confidence:         chosen.Confidence,
	}

	observability.FromContext(ctx).Info("model selected",
		observability.String("model_id", result.ModelID),
		observability.Int("candidates", len(scored)),
		observability.Float64("composite", chosen.Composite),
		observability.Int64("load", load))

	return result, nil
}

// FilterCandidates returns copies of the active models that satisfy every hard
// constraint of criteria and the context's risk ceiling.
func (r *Router) FilterCandidates(
	criteria *domain.SelectionCriteria,
	selCtx *domain.SelectionContext,
) []*domain.ModelDescriptor {
	shared := r.filter(criteria, selCtx)
	out := make([]*domain.ModelDescriptor, len(shared))
	for i, m := range shared {
		out[i] = m.Clone()
	}
	return out
}

// filter returns shared snapshot entries; callers must not mutate them.
func (r *Router) filter(
	criteria *domain.SelectionCriteria,
	selCtx *domain.SelectionContext,
) []*domain.ModelDescriptor {
	view := r.catalog.view()

	var out []*domain.ModelDescriptor
	for _, id := range view.order {
		m := view.byID[id]
		if matches(m, criteria, selCtx) {
			out = append(out, m)
		}
	}
	return out
}

func matches(m *domain.ModelDescriptor, criteria *domain.SelectionCriteria, selCtx *domain.SelectionContext) bool {
	if m.Status != domain.ModelActive || !m.SupportsTask(criteria.TaskType) {
		return false
	}
	if criteria.RequireCommercial && !m.CommercialUse {
		return false
	}
	if criteria.MinQuality > 0 && qualityScore(m) < criteria.MinQuality {
		return false
	}
	if criteria.MaxCostPer1K > 0 && declaredPrice(m) > criteria.MaxCostPer1K {
		return false
	}
	if criteria.MaxLatencyMs > 0 && m.AvgLatencyMs > criteria.MaxLatencyMs {
		return false
	}
	if criteria.RequireSafety && m.RiskTier.Rank() > domain.RiskMedium.Rank() {
		return false
	}
	if selCtx != nil && selCtx.MaxRiskTier != "" && m.RiskTier.Rank() > selCtx.MaxRiskTier.Rank() {
		return false
	}
	for _, tag := range criteria.RequiredTags {
		if !m.HasTag(tag) {
			return false
		}
	}
	for _, tag := range criteria.ExcludedTags {
		if m.HasTag(tag) {
			return false
		}
	}
	return true
}

func (r *Router) scoreAll(
	ctx context.Context,
	candidates []*domain.ModelDescriptor,
	criteria *domain.SelectionCriteria,
	selCtx *domain.SelectionContext,
	strategy Strategy,
) ([]domain.ScoredCandidate, error) {
	if r.estimator == nil {
		return nil, errors.New("router has no cost estimator")
	}

	inputTokens, outputTokens := selCtx.InputTokens, selCtx.OutputTokens
	if inputTokens == 0 && outputTokens == 0 {
		inputTokens, outputTokens = r.cfg.DefaultInputTokens, r.cfg.DefaultOutputTokens
	}

	maxPrice := r.cfg.DefaultMaxCostPer1K
	if criteria.MaxCostPer1K > 0 {
		maxPrice = criteria.MaxCostPer1K
	}
	maxLatency := r.cfg.DefaultMaxLatencyMs
	if criteria.MaxLatencyMs > 0 {
		maxLatency = criteria.MaxLatencyMs
	}

	scored := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, m := range candidates {
		estimate, err := r.estimator.Estimate(ctx, domain.CostContext{
			ModelID:      m.ID,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}, m)
		if err != nil {
			return nil, fmt.Errorf("failed to estimate cost for %s: %w", m.ID, err)
		}

		price := declaredPrice(m)
		if price < 0 {
			price = estimate.CostPer1K
		}

		scores := domain.AxisScores{
			Quality:      qualityScore(m),
			Cost:         costScore(price, maxPrice),
			Latency:      latencyScore(m.AvgLatencyMs, maxLatency),
			Safety:       safetyScore(m),
			Availability: availabilityScore(r.loads.Load(m.ID), r.cfg.MaxLoad, m.UptimeFraction),
		}

		scored = append(scored, domain.ScoredCandidate{
			Model:              m,
			Scores:             scores,
			Composite:          strategy.Weights.Dot(scores),
			EstimatedCost:      estimate.CostUSD,
			EstimatedLatencyMs: m.AvgLatencyMs,
			Confidence:         candidateConfidence(m, estimate),
			Reasoning:          candidateReasons(strategy, m, scores, price),
		})
	}

	return scored, nil
}

// pickWithLoad returns the index of the candidate to commit to. When the top
// candidate is over the priority's load threshold, the least-loaded of the next
// three candidates wins if it is less loaded than the top one.
func (r *Router) pickWithLoad(ranked []domain.ScoredCandidate, priority domain.Priority) (int, string) {
	ratio := r.cfg.NormalLoadThreshold
	if priority == domain.PriorityCritical {
		ratio = r.cfg.CriticalLoadThreshold
	}
	threshold := ratio * float64(r.cfg.MaxLoad)

	topID := ranked[0].Model.ID
	topLoad := r.loads.Load(topID)
	if float64(topLoad) <= threshold {
		return 0, ""
	}

	best, bestLoad := -1, topLoad
	for i := 1; i < len(ranked) && i <= diversionWindow; i++ {
		if l := r.loads.Load(ranked[i].Model.ID); l < bestLoad {
			best, bestLoad = i, l
		}
	}

	if best < 0 {
		return 0, fmt.Sprintf("%s is over its load threshold (%d/%d) with no less-loaded alternative",
			topID, topLoad, r.cfg.MaxLoad)
	}

	return best, fmt.Sprintf("%s over load threshold (%d/%d), diverted to less-loaded %s (%d)",
		topID, topLoad, r.cfg.MaxLoad, ranked[best].Model.ID, bestLoad)
}

// resolveFallbackChain keeps the chain entries that are registered and active.
func (r *Router) resolveFallbackChain(m *domain.ModelDescriptor) []string {
	view := r.catalog.view()

	var chain []string
	for _, id := range m.FallbackChain {
		if alt, ok := view.byID[id]; ok && alt.Status == domain.ModelActive {
			chain = append(chain, id)
		}
	}
	return chain
}

func relax(criteria *domain.SelectionCriteria) *domain.SelectionCriteria {
	relaxed := *criteria
	relaxed.MinQuality = 0
	relaxed.MaxCostPer1K = 0
	relaxed.MaxLatencyMs = 0
	return &relaxed
}

func cloneCandidates(in []domain.ScoredCandidate) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, len(in))
	for i, c := range in {
		c.Model = c.Model.Clone()
		c.Reasoning = slices.Clone(c.Reasoning)
		out[i] = c
	}
	return out
}
