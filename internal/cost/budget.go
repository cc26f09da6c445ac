package cost

import (
	"context"
	"fmt"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/observability"
)

const (
	defaultWarningThreshold  = 0.75
	defaultCriticalThreshold = 0.90
	defaultHardStopThreshold = 1.00

	economyRemedy = "use an economy-tier model or raise the budget limit"
)

// CheckBudget evaluates spending cost against the budget. A cost that pushes
// utilization to the hard stop is rejected; one that reaches the critical
// threshold is allowed but raises a budget alert.
func (e *Estimator) CheckBudget(ctx context.Context, budget domain.Budget, cost float64) *domain.BudgetCheck {
	warning, critical, hardStop := thresholds(budget)
	projected := budget.Spent + cost

	check := &domain.BudgetCheck{
		Budget:    budget.Name,
		Allowed:   true,
		Remaining: max(0, budget.Limit-projected),
	}

	if budget.Limit <= 0 {
		check.Allowed = false
		check.Status = domain.BudgetExceeded
		check.Reason = fmt.Sprintf("budget %q has no spending limit configured", budget.Name)
		check.Remedy = "configure a positive budget limit"
		return check
	}

	utilization := projected / budget.Limit
	check.UtilizationPct = utilization * 100

	switch {
	case utilization >= hardStop:
		check.Status = domain.BudgetExceeded
	case utilization >= critical:
		check.Status = domain.BudgetCritical
	case utilization >= warning:
		check.Status = domain.BudgetWarning
	default:
		check.Status = domain.BudgetSafe
	}

	logger := observability.FromContext(ctx)

	switch check.Status {
	case domain.BudgetExceeded:
		check.Allowed = false
		check.Reason = fmt.Sprintf(
			"request cost %.6f would bring budget %q to %.1f%% of its %.2f limit (hard stop at %.0f%%)",
			cost, budget.Name, check.UtilizationPct, budget.Limit, hardStop*100)
		check.Remedy = economyRemedy
		logger.Warn("budget exceeded, request rejected",
			observability.String("budget", budget.Name),
			observability.Float64("utilization_pct", check.UtilizationPct))
	case domain.BudgetCritical:
		check.Alert = true
		check.Reason = fmt.Sprintf("budget %q at %.1f%% utilization", budget.Name, check.UtilizationPct)
		logger.Warn("budget critical",
			observability.String("budget", budget.Name),
			observability.Float64("utilization_pct", check.UtilizationPct))
		if e.publisher != nil {
			e.publisher.Publish(ctx, domain.EventBudgetAlert, map[string]interface{}{
				"budget":          budget.Name,
				"status":          string(check.Status),
				"utilization_pct": check.UtilizationPct,
				"remaining":       check.Remaining,
			})
		}
	case domain.BudgetWarning, domain.BudgetSafe:
	}

	return check
}

func thresholds(b domain.Budget) (warning, critical, hardStop float64) {
	warning, critical, hardStop = b.WarningThreshold, b.CriticalThreshold, b.HardStopThreshold
	if warning <= 0 {
		warning = defaultWarningThreshold
	}
	if critical <= 0 {
		critical = defaultCriticalThreshold
	}
	if hardStop <= 0 {
		hardStop = defaultHardStopThreshold
	}
	return warning, critical, hardStop
}
