package cost_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/governor/internal/cost"
	"github.com/davidbz/governor/internal/domain"
)

func TestEstimator_CheckBudget(t *testing.T) {
	ctx := context.Background()
	budget := domain.Budget{
		Name:              "team-a",
		Limit:             100,
		Spent:             95,
		WarningThreshold:  0.75,
		CriticalThreshold: 0.90,
		HardStopThreshold: 1.00,
	}

	t.Run("request pushing past hard stop is rejected", func(t *testing.T) {
		publisher := &recordingPublisher{}
		estimator := cost.NewEstimator(nil, publisher)

		check := estimator.CheckBudget(ctx, budget, 10)

		require.False(t, check.Allowed)
		require.Equal(t, domain.BudgetExceeded, check.Status)
		require.NotEmpty(t, check.Reason)
		require.Contains(t, check.Remedy, "economy-tier")
		require.InDelta(t, 0, check.Remaining, 1e-9)
		require.Empty(t, publisher.types())
	})

	t.Run("request reaching critical is allowed with an alert", func(t *testing.T) {
		publisher := &recordingPublisher{}
		estimator := cost.NewEstimator(nil, publisher)

		check := estimator.CheckBudget(ctx, budget, 2)

		require.True(t, check.Allowed)
		require.Equal(t, domain.BudgetCritical, check.Status)
		require.True(t, check.Alert)
		require.InDelta(t, 97, check.UtilizationPct, 1e-9)
		require.InDelta(t, 3, check.Remaining, 1e-9)
		require.Equal(t, []string{domain.EventBudgetAlert}, publisher.types())
	})

	t.Run("status classification", func(t *testing.T) {
		estimator := cost.NewEstimator(nil, nil)

		tests := []struct {
			spent  float64
			status domain.BudgetStatus
		}{
			{spent: 10, status: domain.BudgetSafe},
			{spent: 80, status: domain.BudgetWarning},
			{spent: 91, status: domain.BudgetCritical},
			{spent: 100, status: domain.BudgetExceeded},
		}

		for _, tt := range tests {
			check := estimator.CheckBudget(ctx, domain.Budget{Name: "b", Limit: 100, Spent: tt.spent}, 0)
			require.Equal(t, tt.status, check.Status, "spent=%v", tt.spent)
		}
	})

	t.Run("zero limit is never allowed", func(t *testing.T) {
		check := cost.NewEstimator(nil, nil).CheckBudget(ctx, domain.Budget{Name: "empty"}, 0.01)

		require.False(t, check.Allowed)
		require.Equal(t, domain.BudgetExceeded, check.Status)
	})
}

func TestEstimator_SuggestOptimizations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	estimator := cost.NewEstimator(nil, nil, cost.WithClock(func() time.Time { return now }))

	current := profiledModel("premium", 0.02)
	current.ParameterCount = 70_000_000_000
	current.ContextLength = 128_000
	current.Quantizations = []string{"fp16", "int8"}

	cheap := profiledModel("cheap", 0.002)
	cheap.CommercialUse = true
	cheap.ParameterCount = 7_000_000_000
	cheap.ContextLength = 8_000
	cheap.RiskTier = domain.RiskMedium
	cheap.Quality = &domain.QualityMetrics{CompositeScore: 0.7, BenchmarkedAt: now.Add(-24 * time.Hour)}

	mid := profiledModel("mid", 0.01)
	mid.CommercialUse = true

	low := profiledModel("low", 0.015)
	low.CommercialUse = true

	tiny := profiledModel("tiny", 0.012)
	tiny.CommercialUse = true

	research := profiledModel("research-only", 0.001)

	deprecated := profiledModel("old", 0.001)
	deprecated.CommercialUse = true
	deprecated.Status = domain.ModelDeprecated

	pricier := profiledModel("pricier", 0.05)
	pricier.CommercialUse = true

	catalog := []*domain.ModelDescriptor{current, cheap, mid, low, tiny, research, deprecated, pricier}
	usage := domain.UsageSummary{ModelID: "premium", AvgCostPerRequest: 0.01, DailyRequests: 500}

	suggestions := estimator.SuggestOptimizations(ctx, usage, current, catalog)

	var switches []domain.Suggestion
	var kinds []domain.SuggestionType
	for _, s := range suggestions {
		kinds = append(kinds, s.Type)
		if s.Type == domain.SuggestModelSwitch {
			switches = append(switches, s)
		}
	}

	require.Len(t, switches, 3)
	require.Equal(t, "cheap", switches[0].ModelID)
	require.Equal(t, "mid", switches[1].ModelID)
	require.Equal(t, "tiny", switches[2].ModelID)
	require.InDelta(t, 90, switches[0].SavingsPct, 1e-9)
	require.InDelta(t, 150*0.9, switches[0].EstimatedMonthlySavings, 1e-9)
	require.InDelta(t, 1.0, switches[0].Confidence, 1e-9)
	require.InDelta(t, 0.5, switches[1].Confidence, 1e-9)
	require.Len(t, switches[0].TradeOffs, 3)

	require.Contains(t, kinds, domain.SuggestQuantization)
	require.Contains(t, kinds, domain.SuggestBatching)

	t.Run("low volume without int8 gets only model switches", func(t *testing.T) {
		plain := profiledModel("plain", 0.02)
		out := estimator.SuggestOptimizations(ctx, domain.UsageSummary{ModelID: "plain", DailyRequests: 10}, plain, catalog)

		for _, s := range out {
			require.Equal(t, domain.SuggestModelSwitch, s.Type)
		}
	})
}

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	ledger := cost.NewMemoryLedger()

	require.NoError(t, ledger.Record(ctx, domain.CostEvent{Budget: "team-a", CostUSD: 1.5}))
	require.NoError(t, ledger.Record(ctx, domain.CostEvent{Budget: "team-a", CostUSD: 0.5}))
	require.NoError(t, ledger.Record(ctx, domain.CostEvent{CostUSD: 3}))
	require.Error(t, ledger.Record(ctx, domain.CostEvent{Budget: "team-a", CostUSD: -1}))

	spent, err := ledger.Spent(ctx, "team-a")
	require.NoError(t, err)
	require.InDelta(t, 2.0, spent, 1e-9)

	events := ledger.Events()
	require.Len(t, events, 3)
	require.NotEmpty(t, events[0].ID)
	require.False(t, events[0].RecordedAt.IsZero())
}
