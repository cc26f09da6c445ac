package cost

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/observability"
)

const (
	maxModelSuggestions   = 3
	quantizationSavings   = 25.0
	batchingSavings       = 15.0
	batchingMinDailyCalls = 100
	daysPerMonth          = 30

	freshBenchmarkWindow = 30 * 24 * time.Hour
	staleBenchmarkWindow = 90 * 24 * time.Hour
)

// SuggestOptimizations proposes cheaper ways to serve the traffic described by
// usage. Up to three cheaper catalog models are ranked by savings, followed by
// quantization and batch-processing suggestions when they apply.
func (e *Estimator) SuggestOptimizations(
	ctx context.Context,
	usage domain.UsageSummary,
	current *domain.ModelDescriptor,
	catalog []*domain.ModelDescriptor,
) []domain.Suggestion {
	if current == nil {
		return nil
	}

	monthlySpend := usage.AvgCostPerRequest * float64(usage.DailyRequests) * daysPerMonth
	currentPrice := e.PricePer1K(current)

	suggestions := e.cheaperModels(current, currentPrice, monthlySpend, catalog)

	if slices.Contains(current.Quantizations, "int8") {
		suggestions = append(suggestions, domain.Suggestion{
			Type:                    domain.SuggestQuantization,
			ModelID:                 current.ID,
			Description:             fmt.Sprintf("serve %s with its int8 quantized variant", current.ID),
			SavingsPct:              quantizationSavings,
			EstimatedMonthlySavings: monthlySpend * quantizationSavings / 100,
			TradeOffs:               []string{"possible minor quality degradation"},
			Confidence:              0.7,
		})
	}

	if usage.DailyRequests > batchingMinDailyCalls {
		suggestions = append(suggestions, domain.Suggestion{
			Type:                    domain.SuggestBatching,
			ModelID:                 current.ID,
			Description:             fmt.Sprintf("batch %d daily requests", usage.DailyRequests),
			SavingsPct:              batchingSavings,
			EstimatedMonthlySavings: monthlySpend * batchingSavings / 100,
			TradeOffs:               []string{"higher per-request latency"},
			Confidence:              0.8,
		})
	}

	observability.FromContext(ctx).Info("generated cost optimization suggestions",
		observability.String("model_id", current.ID),
		observability.Int("suggestions", len(suggestions)))

	return suggestions
}

func (e *Estimator) cheaperModels(
	current *domain.ModelDescriptor,
	currentPrice float64,
	monthlySpend float64,
	catalog []*domain.ModelDescriptor,
) []domain.Suggestion {
	if currentPrice <= 0 {
		return nil
	}

	var out []domain.Suggestion
	for _, alt := range catalog {
		if alt == nil || alt.ID == current.ID || alt.Status != domain.ModelActive || !alt.CommercialUse {
			continue
		}
		if alt.CostProfile == nil || alt.CostProfile.PricePer1K >= currentPrice {
			continue
		}

		savings := (currentPrice - alt.CostProfile.PricePer1K) / currentPrice * 100
		out = append(out, domain.Suggestion{
			Type:                    domain.SuggestModelSwitch,
			ModelID:                 alt.ID,
			Description:             fmt.Sprintf("switch from %s to %s", current.ID, alt.ID),
			SavingsPct:              savings,
			EstimatedMonthlySavings: monthlySpend * savings / 100,
			TradeOffs:               tradeOffs(current, alt),
			Confidence:              e.suggestionConfidence(alt),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SavingsPct > out[j].SavingsPct
	})
	if len(out) > maxModelSuggestions {
		out = out[:maxModelSuggestions]
	}

	return out
}

func tradeOffs(current, alt *domain.ModelDescriptor) []string {
	var notes []string
	if alt.ParameterCount > 0 && current.ParameterCount > 0 && alt.ParameterCount < current.ParameterCount {
		notes = append(notes, fmt.Sprintf("smaller parameter count (%d vs %d)", alt.ParameterCount, current.ParameterCount))
	}
	if alt.RiskTier.Rank() > current.RiskTier.Rank() {
		notes = append(notes, fmt.Sprintf("higher safety risk tier (%s vs %s)", alt.RiskTier, current.RiskTier))
	}
	if alt.ContextLength > 0 && current.ContextLength > 0 && alt.ContextLength < current.ContextLength {
		notes = append(notes, fmt.Sprintf("shorter context length (%d vs %d)", alt.ContextLength, current.ContextLength))
	}
	return notes
}

// suggestionConfidence rewards alternatives with quality metrics and recent benchmarks.
func (e *Estimator) suggestionConfidence(alt *domain.ModelDescriptor) float64 {
	confidence := 0.5
	if alt.Quality == nil {
		return confidence
	}
	confidence += 0.3

	if alt.Quality.BenchmarkedAt.IsZero() {
		return confidence
	}
	age := e.now().Sub(alt.Quality.BenchmarkedAt)
	switch {
	case age <= freshBenchmarkWindow:
		confidence += 0.2
	case age <= staleBenchmarkWindow:
		confidence += 0.1
	}

	return min(1.0, confidence)
}
