package routing

import (
	"fmt"

	"github.com/davidbz/governor/internal/domain"
)

const (
	defaultQuality    = 0.5
	highAxisScore     = 0.7
	safetyTagBonus    = 0.1
	qualityKnownConf  = 0.9
	qualityGuessConf  = 0.5
	maxCandidateShown = 5
)

//nolint:gochecknoglobals // static lookup table
var riskTierSafety = map[domain.RiskTier]float64{
	domain.RiskLow:      1.0,
	domain.RiskMedium:   0.7,
	domain.RiskHigh:     0.4,
	domain.RiskCritical: 0.1,
}

//nolint:gochecknoglobals // tags that signal extra safety tuning
var safetyTags = []string{"safety", "moderated", "aligned"}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func qualityScore(m *domain.ModelDescriptor) float64 {
	if m.Quality == nil {
		return defaultQuality
	}
	return clamp01(m.Quality.CompositeScore)
}

// costScore maps a price onto [0,1] where free is 1 and maxPrice or above is 0.
func costScore(pricePer1K, maxPrice float64) float64 {
	if maxPrice <= 0 {
		return 1
	}
	return clamp01(1 - pricePer1K/maxPrice)
}

func latencyScore(latencyMs, maxLatencyMs float64) float64 {
	if maxLatencyMs <= 0 {
		return 1
	}
	return clamp01(1 - latencyMs/maxLatencyMs)
}

func safetyScore(m *domain.ModelDescriptor) float64 {
	score, ok := riskTierSafety[m.RiskTier]
	if !ok {
		score = riskTierSafety[domain.RiskCritical]
	}
	for _, tag := range safetyTags {
		if m.HasTag(tag) {
			score += safetyTagBonus
		}
	}
	return clamp01(score)
}

// availabilityScore discounts headroom under the load cap by historical uptime.
func availabilityScore(load int64, maxLoad int, uptime float64) float64 {
	headroom := 1.0
	if maxLoad > 0 {
		headroom = clamp01(1 - float64(load)/float64(maxLoad))
	}
	if uptime <= 0 {
		uptime = 1
	}
	return clamp01(headroom * uptime)
}

// declaredPrice returns the profile price, or -1 when the model declares none.
func declaredPrice(m *domain.ModelDescriptor) float64 {
	if m.CostProfile == nil {
		return -1
	}
	return m.CostProfile.PricePer1K
}

func candidateReasons(
	strategy Strategy,
	m *domain.ModelDescriptor,
	scores domain.AxisScores,
	pricePer1K float64,
) []string {
	var reasons []string

	if strategy.Name == StrategyCostOptimized {
		reasons = append(reasons, "optimizing for cost-effectiveness")
	}
	if scores.Quality >= highAxisScore {
		reasons = append(reasons, fmt.Sprintf("high quality score (%.2f)", scores.Quality))
	}
	if scores.Cost >= highAxisScore {
		reasons = append(reasons, fmt.Sprintf("cost-effective at $%.4f per 1K tokens", pricePer1K))
	}
	if scores.Latency >= highAxisScore && m.AvgLatencyMs > 0 {
		reasons = append(reasons, fmt.Sprintf("low latency (%.0fms)", m.AvgLatencyMs))
	}
	if scores.Safety >= highAxisScore {
		reasons = append(reasons, fmt.Sprintf("%s risk tier", m.RiskTier))
	}
	if scores.Availability >= highAxisScore {
		reasons = append(reasons, "available capacity")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("best composite score under %s", strategy.Name))
	}

	return reasons
}

func candidateConfidence(m *domain.ModelDescriptor, estimate *domain.CostEstimate) float64 {
	quality := qualityGuessConf
	if m.Quality != nil {
		quality = qualityKnownConf
	}
	return (quality + estimate.Confidence.Weight()) / 2
}
