package domain

import "time"

// EstimationMethod tags how a cost estimate was produced.
type EstimationMethod string

const (
	MethodCostProfile       EstimationMethod = "cost_profile"
	MethodHardwareMetrics   EstimationMethod = "hardware_metrics"
	MethodFallbackHeuristic EstimationMethod = "fallback_heuristic"
	MethodBatch             EstimationMethod = "batch"
)

// ConfidenceTier grades how trustworthy an estimate is.
type ConfidenceTier string

const (
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceHigh   ConfidenceTier = "high"
)

// Weight maps a confidence tier onto [0,1].
func (c ConfidenceTier) Weight() float64 {
	switch c {
	case ConfidenceHigh:
		return 0.9
	case ConfidenceMedium:
		return 0.7
	default:
		return 0.4
	}
}

// CostContext describes a unit of work to price.
type CostContext struct {
	ModelID            string  `json:"model_id,omitempty"`
	InputTokens        int     `json:"input_tokens"                   validate:"gte=0"`
	OutputTokens       int     `json:"output_tokens"                  validate:"gte=0"`
	HourlyHardwareCost float64 `json:"hourly_hardware_cost,omitempty" validate:"gte=0"`
	TokensPerSecond    float64 `json:"tokens_per_second,omitempty"    validate:"gte=0"`
	OverheadFactor     float64 `json:"overhead_factor,omitempty"      validate:"gte=0"`
	MoEEfficiency      float64 `json:"moe_efficiency,omitempty"       validate:"gte=0"`
}

// TotalTokens returns input plus output tokens.
func (c CostContext) TotalTokens() int {
	return c.InputTokens + c.OutputTokens
}

// CostBreakdown splits an estimate into its parts.
type CostBreakdown struct {
	Base                 float64 `json:"base"`
	Overhead             float64 `json:"overhead"`
	EfficiencyAdjustment float64 `json:"efficiency_adjustment"`
	Total                float64 `json:"total"`
}

// CostEstimate is a monetary estimate for a unit of work.
type CostEstimate struct {
	ModelID    string           `json:"model_id"`
	CostUSD    float64          `json:"cost_usd"`
	CostPer1K  float64          `json:"cost_per_1k_tokens"`
	Method     EstimationMethod `json:"estimation_method"`
	Breakdown  CostBreakdown    `json:"breakdown"`
	Confidence ConfidenceTier   `json:"confidence"`
	Factors    []string         `json:"factors"`
}

// Budget is a named spending envelope. Thresholds are fractions of Limit.
type Budget struct {
	Name              string  `json:"name"                         validate:"required"`
	Limit             float64 `json:"limit"                        validate:"gt=0"`
	Spent             float64 `json:"spent"                        validate:"gte=0"`
	WarningThreshold  float64 `json:"warning_threshold,omitempty"  validate:"gte=0"`
	CriticalThreshold float64 `json:"critical_threshold,omitempty" validate:"gte=0"`
	HardStopThreshold float64 `json:"hard_stop_threshold,omitempty" validate:"gte=0"`
}

// BudgetStatus classifies utilization against thresholds.
type BudgetStatus string

const (
	BudgetSafe     BudgetStatus = "safe"
	BudgetWarning  BudgetStatus = "warning"
	BudgetCritical BudgetStatus = "critical"
	BudgetExceeded BudgetStatus = "exceeded"
)

// BudgetCheck is the verdict for adding a cost to a budget.
type BudgetCheck struct {
	Budget         string       `json:"budget"`
	Allowed        bool         `json:"allowed"`
	Status         BudgetStatus `json:"status"`
	Remaining      float64      `json:"remaining"`
	UtilizationPct float64      `json:"utilization_pct"`
	Alert          bool         `json:"alert"`
	Reason         string       `json:"reason,omitempty"`
	Remedy         string       `json:"remedy,omitempty"`
}

// UsageSummary is a model's trailing-window spend profile.
type UsageSummary struct {
	ModelID           string  `json:"model_id"            validate:"required"`
	AvgCostPerRequest float64 `json:"avg_cost_per_request" validate:"gte=0"`
	DailyRequests     int     `json:"daily_requests"       validate:"gte=0"`
}

// SuggestionType names a kind of savings suggestion.
type SuggestionType string

const (
	SuggestModelSwitch  SuggestionType = "model_switch"
	SuggestQuantization SuggestionType = "quantization"
	SuggestBatching     SuggestionType = "batch_processing"
)

// Suggestion is a proposed way to spend less.
type Suggestion struct {
	Type                    SuggestionType `json:"type"`
	ModelID                 string         `json:"model_id,omitempty"`
	Description             string         `json:"description"`
	SavingsPct              float64        `json:"savings_pct"`
	EstimatedMonthlySavings float64        `json:"estimated_monthly_savings"`
	TradeOffs               []string       `json:"trade_offs,omitempty"`
	Confidence              float64        `json:"confidence"`
}

// CostStatistics summarizes estimator activity.
type CostStatistics struct {
	CacheSize         int                      `json:"cache_size"`
	CacheHits         int64                    `json:"cache_hits"`
	CacheMisses       int64                    `json:"cache_misses"`
	HitRate           float64                  `json:"hit_rate"`
	EstimatesByMethod map[EstimationMethod]int `json:"estimates_by_method"`
	TotalEstimatedUSD float64                  `json:"total_estimated_usd"`
}

// CostEvent is one entry of the cost ledger.
type CostEvent struct {
	ID           string           `json:"id"`
	RequestID    string           `json:"request_id"`
	Budget       string           `json:"budget,omitempty"`
	ModelID      string           `json:"model_id"`
	CostUSD      float64          `json:"cost_usd"`
	InputTokens  int              `json:"input_tokens"`
	OutputTokens int              `json:"output_tokens"`
	Method       EstimationMethod `json:"method"`
	RecordedAt   time.Time        `json:"recorded_at"`
}
