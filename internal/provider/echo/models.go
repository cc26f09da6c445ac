package echo

import "github.com/davidbz/governor/internal/domain"

// CatalogEntries returns the echo models, registered with the router for
// local development. Echo models cost nothing to run, so their declared
// prices only exist to give the router something to rank.
func CatalogEntries() []*domain.ModelDescriptor {
	return []*domain.ModelDescriptor{
		{
			ID:            "echo-small",
			Provider:      providerName,
			TaskTypes:     []string{"text-generation", "summarization", "classification"},
			CommercialUse: true,
			ContextLength: 8192,
			CostProfile:   &domain.CostProfile{PricePer1K: 0.0005},
			Quality:       &domain.QualityMetrics{CompositeScore: 0.6},
			AvgLatencyMs:  50,
			RiskTier:      domain.RiskLow,
			Tags:          []string{"safety"},
			Status:        domain.ModelActive,
		},
		{
			ID:             "echo-large",
			Provider:       providerName,
			TaskTypes:      []string{"text-generation", "summarization", "code"},
			ParameterCount: 47_000_000_000,
			Architecture:   domain.ArchitectureMoE,
			CommercialUse:  true,
			ContextLength:  32768,
			CostProfile:    &domain.CostProfile{PricePer1K: 0.004, MoEEfficiency: 0.7},
			Quality:        &domain.QualityMetrics{CompositeScore: 0.85},
			AvgLatencyMs:   400,
			RiskTier:       domain.RiskMedium,
			FallbackChain:  []string{"echo-small"},
			Status:         domain.ModelActive,
		},
	}
}
