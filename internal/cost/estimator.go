// Package cost prices units of inference work, caches the estimates, and
// evaluates spend against named budgets.
package cost

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/observability"
)

const (
	tokensToPerK = 1000.0
	secondsPerHr = 3600.0

	maxBatchDiscount  = 0.20
	batchDiscountStep = 0.02
	batchDiscountSize = 10
)

// Config contains cost estimator settings.
type Config struct {
	CacheTTL         time.Duration `env:"COST_CACHE_TTL"           envDefault:"5m"`
	CacheCapacity    int           `env:"COST_CACHE_CAPACITY"      envDefault:"1000"`
	DefaultRatePer1K float64       `env:"COST_DEFAULT_RATE_PER_1K" envDefault:"0.01"`
	HardwareOverhead float64       `env:"COST_HARDWARE_OVERHEAD"   envDefault:"0.05"`
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = 1000
	}
	if c.DefaultRatePer1K <= 0 {
		c.DefaultRatePer1K = 0.01
	}
	if c.HardwareOverhead < 0 {
		c.HardwareOverhead = 0
	}
	return c
}

// heuristicRates maps model-name substrings to a USD price per 1K tokens.
// Order matters: the first matching pattern wins.
//
//nolint:gochecknoglobals // static lookup table
var heuristicRates = []struct {
	pattern string
	rate    float64
}{
	{"gpt-4", 0.03},
	{"claude-3", 0.015},
	{"gpt-3.5", 0.002},
	{"llama", 0.0008},
	{"mistral", 0.0007},
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithClock overrides the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		e.now = now
	}
}

// Estimator implements domain.CostEstimator.
type Estimator struct {
	cfg       Config
	cache     *estimateCache
	publisher domain.EventPublisher
	now       func() time.Time

	mu         sync.Mutex
	byMethod   map[domain.EstimationMethod]int
	totalSpend float64
}

// NewEstimator creates a cost estimator. publisher may be nil.
func NewEstimator(cfg *Config, publisher domain.EventPublisher, opts ...Option) *Estimator {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c = c.withDefaults()

	e := &Estimator{
		cfg:       c,
		publisher: publisher,
		now:       time.Now,
		byMethod:  make(map[domain.EstimationMethod]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cache = newEstimateCache(c.CacheTTL, c.CacheCapacity, e.now)

	return e
}

// Estimate prices a unit of work. The method is chosen in priority order:
// the model's cost profile, then hardware metrics, then a name heuristic.
func (e *Estimator) Estimate(
	ctx context.Context,
	cc domain.CostContext,
	model *domain.ModelDescriptor,
) (*domain.CostEstimate, error) {
	if cc.InputTokens < 0 || cc.OutputTokens < 0 {
		return nil, errors.New("token counts cannot be negative")
	}

	modelID := cc.ModelID
	if modelID == "" && model != nil {
		modelID = model.ID
	}

	key := cacheKey(modelID, cc)
	if cached, ok := e.cache.get(key); ok {
		return &cached, nil
	}

	var estimate domain.CostEstimate
	switch {
	case model != nil && model.CostProfile != nil:
		estimate = e.fromCostProfile(cc, model)
	case cc.HourlyHardwareCost > 0 && cc.TokensPerSecond > 0:
		estimate = e.fromHardwareMetrics(cc, model)
	default:
		estimate = e.fromHeuristic(cc, modelID)
	}
	estimate.ModelID = modelID

	e.cache.put(key, estimate)
	e.record(estimate)

	observability.FromContext(ctx).Debug("cost estimated",
		observability.String("model_id", modelID),
		observability.String("method", string(estimate.Method)),
		observability.Float64("cost_usd", estimate.CostUSD))

	return &estimate, nil
}

// EstimateBatch sums independent estimates and applies a volume discount of
// 2% per ten requests, capped at 20%.
func (e *Estimator) EstimateBatch(
	ctx context.Context,
	contexts []domain.CostContext,
	model *domain.ModelDescriptor,
) (*domain.CostEstimate, error) {
	if len(contexts) == 0 {
		return nil, errors.New("batch cannot be empty")
	}

	var (
		breakdown  domain.CostBreakdown
		tokens     int
		confidence = domain.ConfidenceHigh
		modelID    string
	)

	for i, cc := range contexts {
		est, err := e.Estimate(ctx, cc, model)
		if err != nil {
			return nil, fmt.Errorf("failed to estimate batch item %d: %w", i, err)
		}
		breakdown.Base += est.Breakdown.Base
		breakdown.Overhead += est.Breakdown.Overhead
		breakdown.EfficiencyAdjustment += est.Breakdown.EfficiencyAdjustment
		breakdown.Total += est.CostUSD
		tokens += cc.TotalTokens()
		if est.Confidence.Weight() < confidence.Weight() {
			confidence = est.Confidence
		}
		if modelID == "" {
			modelID = est.ModelID
		}
	}

	rate := min(maxBatchDiscount, float64(len(contexts)/batchDiscountSize)*batchDiscountStep)
	discount := breakdown.Total * rate
	breakdown.EfficiencyAdjustment -= discount
	breakdown.Total -= discount

	estimate := &domain.CostEstimate{
		ModelID:    modelID,
		CostUSD:    breakdown.Total,
		Method:     domain.MethodBatch,
		Breakdown:  breakdown,
		Confidence: confidence,
		Factors: []string{
			fmt.Sprintf("batch_size:%d", len(contexts)),
			fmt.Sprintf("batch_discount:%.0f%%", rate*100),
		},
	}
	if tokens > 0 {
		estimate.CostPer1K = breakdown.Total / (float64(tokens) / tokensToPerK)
	}

	return estimate, nil
}

// Statistics reports cache effectiveness and estimate volume.
func (e *Estimator) Statistics() domain.CostStatistics {
	size, hits, misses := e.cache.stats()

	e.mu.Lock()
	defer e.mu.Unlock()

	byMethod := make(map[domain.EstimationMethod]int, len(e.byMethod))
	for k, v := range e.byMethod {
		byMethod[k] = v
	}

	stats := domain.CostStatistics{
		CacheSize:         size,
		CacheHits:         hits,
		CacheMisses:       misses,
		EstimatesByMethod: byMethod,
		TotalEstimatedUSD: e.totalSpend,
	}
	if lookups := hits + misses; lookups > 0 {
		stats.HitRate = float64(hits) / float64(lookups)
	}

	return stats
}

func (e *Estimator) record(estimate domain.CostEstimate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byMethod[estimate.Method]++
	e.totalSpend += estimate.CostUSD
}

func (e *Estimator) fromCostProfile(cc domain.CostContext, model *domain.ModelDescriptor) domain.CostEstimate {
	profile := model.CostProfile
	tokensK := float64(cc.TotalTokens()) / tokensToPerK
	price := profile.PricePer1K
	factors := []string{"cost_profile"}

	var efficiency float64
	if model.IsMoE() && profile.MoEEfficiency > 0 {
		adjusted := price * profile.MoEEfficiency
		efficiency = (adjusted - price) * tokensK
		price = adjusted
		factors = append(factors, "moe_efficiency")
	}

	overheadFactor := profile.OverheadFactor
	if overheadFactor == 0 {
		overheadFactor = cc.OverheadFactor
	}
	if overheadFactor == 0 {
		overheadFactor = 1.0
	}
	overheadPer1K := price * (overheadFactor - 1)
	if overheadPer1K != 0 {
		factors = append(factors, "overhead_factor")
	}

	base := price * tokensK
	overhead := overheadPer1K * tokensK
	total := base + overhead

	costPer1K := price + overheadPer1K
	if tokensK > 0 {
		costPer1K = total / tokensK
	}

	return domain.CostEstimate{
		CostUSD:   total,
		CostPer1K: costPer1K,
		Method:    domain.MethodCostProfile,
		Breakdown: domain.CostBreakdown{
			Base:                 base,
			Overhead:             overhead,
			EfficiencyAdjustment: efficiency,
			Total:                total,
		},
		Confidence: domain.ConfidenceHigh,
		Factors:    factors,
	}
}

func (e *Estimator) fromHardwareMetrics(cc domain.CostContext, model *domain.ModelDescriptor) domain.CostEstimate {
	tokensK := float64(cc.TotalTokens()) / tokensToPerK
	costPer1K := cc.HourlyHardwareCost / ((cc.TokensPerSecond * secondsPerHr) / tokensToPerK)
	factors := []string{"hardware_hourly_cost", "measured_throughput"}

	overheadFactor := cc.OverheadFactor
	if overheadFactor == 0 {
		overheadFactor = 1 + e.cfg.HardwareOverhead
	}

	base := costPer1K * tokensK
	overhead := base * (overheadFactor - 1)
	subtotal := base + overhead

	moe := cc.MoEEfficiency
	if moe == 0 && model != nil && model.IsMoE() && model.CostProfile != nil {
		moe = model.CostProfile.MoEEfficiency
	}

	var efficiency float64
	multiplier := 1.0
	if moe > 0 {
		multiplier = moe
		efficiency = subtotal*moe - subtotal
		factors = append(factors, "moe_efficiency")
	}
	total := subtotal + efficiency

	perK := costPer1K * overheadFactor * multiplier
	if tokensK > 0 {
		perK = total / tokensK
	}

	return domain.CostEstimate{
		CostUSD:   total,
		CostPer1K: perK,
		Method:    domain.MethodHardwareMetrics,
		Breakdown: domain.CostBreakdown{
			Base:                 base,
			Overhead:             overhead,
			EfficiencyAdjustment: efficiency,
			Total:                total,
		},
		Confidence: domain.ConfidenceMedium,
		Factors:    factors,
	}
}

func (e *Estimator) fromHeuristic(cc domain.CostContext, modelID string) domain.CostEstimate {
	rate, pattern := e.heuristicRate(modelID)
	total := rate * float64(cc.TotalTokens()) / tokensToPerK

	return domain.CostEstimate{
		CostUSD:   total,
		CostPer1K: rate,
		Method:    domain.MethodFallbackHeuristic,
		Breakdown: domain.CostBreakdown{
			Base:  total,
			Total: total,
		},
		Confidence: domain.ConfidenceLow,
		Factors:    []string{"heuristic_rate:" + pattern},
	}
}

// heuristicRate returns the lookup rate for a model name and the pattern that matched.
func (e *Estimator) heuristicRate(modelID string) (float64, string) {
	name := strings.ToLower(modelID)
	for _, h := range heuristicRates {
		if strings.Contains(name, h.pattern) {
			return h.rate, h.pattern
		}
	}
	return e.cfg.DefaultRatePer1K, "default"
}

// PricePer1K returns the declared price of a model, or the heuristic rate when
// it has no cost profile.
func (e *Estimator) PricePer1K(model *domain.ModelDescriptor) float64 {
	if model.CostProfile != nil {
		return model.CostProfile.PricePer1K
	}
	rate, _ := e.heuristicRate(model.ID)
	return rate
}

func cacheKey(modelID string, cc domain.CostContext) string {
	hw := "default"
	if cc.HourlyHardwareCost > 0 {
		hw = strconv.FormatFloat(cc.HourlyHardwareCost, 'g', -1, 64)
	}
	return fmt.Sprintf("%s:%d:%d:%s", modelID, cc.InputTokens, cc.OutputTokens, hw)
}
