package openai

import "github.com/davidbz/governor/internal/domain"

// CatalogEntries returns catalog registrations for the OpenAI chat models
// served by this provider, priced per 1K tokens (blended input and output).
func CatalogEntries() []*domain.ModelDescriptor {
	return []*domain.ModelDescriptor{
		{
			ID:            "gpt-4o",
			Provider:      providerName,
			TaskTypes:     []string{"text-generation", "summarization", "code", "reasoning"},
			CommercialUse: true,
			ContextLength: 128000,
			CostProfile:   &domain.CostProfile{PricePer1K: 0.00625, PricingModel: "per_token"},
			Quality:       &domain.QualityMetrics{CompositeScore: 0.9},
			AvgLatencyMs:  900,
			RiskTier:      domain.RiskLow,
			Tags:          []string{"moderated", "aligned"},
			FallbackChain: []string{"gpt-4o-mini"},
			Status:        domain.ModelActive,
		},
		{
			ID:            "gpt-4o-mini",
			Provider:      providerName,
			TaskTypes:     []string{"text-generation", "summarization", "classification"},
			CommercialUse: true,
			ContextLength: 128000,
			CostProfile:   &domain.CostProfile{PricePer1K: 0.000375, PricingModel: "per_token"},
			Quality:       &domain.QualityMetrics{CompositeScore: 0.78},
			AvgLatencyMs:  450,
			RiskTier:      domain.RiskLow,
			Tags:          []string{"moderated"},
			Status:        domain.ModelActive,
		},
	}
}
