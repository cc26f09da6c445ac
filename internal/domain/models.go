package domain

import (
	"slices"
	"strings"
	"time"
)

// RiskTier grades how risky a model or a safety category is.
type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// Rank orders tiers from least (0) to most (3) risky.
// Unknown tiers rank as critical.
func (t RiskTier) Rank() int {
	switch t {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return 3
	}
}

// ModelStatus is the lifecycle state of a catalog entry.
type ModelStatus string

const (
	ModelActive     ModelStatus = "active"
	ModelDeprecated ModelStatus = "deprecated"
	ModelDisabled   ModelStatus = "disabled"
)

// ArchitectureMoE marks mixture-of-experts models.
const ArchitectureMoE = "moe"

// CostProfile is a model's declared pricing metadata.
type CostProfile struct {
	PricePer1K     float64 `json:"price_per_1k"              validate:"gte=0"`
	PricingModel   string  `json:"pricing_model,omitempty"`
	MoEEfficiency  float64 `json:"moe_efficiency,omitempty"  validate:"gte=0"`
	OverheadFactor float64 `json:"overhead_factor,omitempty" validate:"gte=0"`
}

// QualityMetrics holds benchmark-derived quality data.
type QualityMetrics struct {
	CompositeScore float64   `json:"composite_score"          validate:"gte=0,lte=1"`
	BenchmarkedAt  time.Time `json:"benchmarked_at,omitempty"`
}

// ModelDescriptor is the unit the router selects among.
type ModelDescriptor struct {
	ID             string          `json:"id"                        validate:"required"`
	Provider       string          `json:"provider"                  validate:"required"`
	TaskTypes      []string        `json:"task_types"                validate:"required,min=1,dive,required"`
	ParameterCount int64           `json:"parameter_count,omitempty" validate:"gte=0"`
	Architecture   string          `json:"architecture,omitempty"`
	CommercialUse  bool            `json:"commercial_use"`
	ContextLength  int             `json:"context_length,omitempty"  validate:"gte=0"`
	CostProfile    *CostProfile    `json:"cost_profile,omitempty"`
	Quality        *QualityMetrics `json:"quality,omitempty"`
	AvgLatencyMs   float64         `json:"avg_latency_ms,omitempty"  validate:"gte=0"`
	RiskTier       RiskTier        `json:"risk_tier"                 validate:"required,oneof=low medium high critical"`
	Tags           []string        `json:"tags,omitempty"`
	FallbackChain  []string        `json:"fallback_chain,omitempty"`
	Status         ModelStatus     `json:"status"                    validate:"required,oneof=active deprecated disabled"`
	// UptimeFraction is the historical availability in [0,1]; zero means no history.
	UptimeFraction float64 `json:"uptime_fraction,omitempty" validate:"gte=0,lte=1"`
	// Quantizations lists the variants the model can be served as, e.g. "int8".
	Quantizations []string `json:"quantizations,omitempty"`
}

// SupportsTask reports whether the model serves the given task type.
func (m *ModelDescriptor) SupportsTask(task string) bool {
	return slices.Contains(m.TaskTypes, task)
}

// HasTag reports whether the model carries the routing tag.
func (m *ModelDescriptor) HasTag(tag string) bool {
	return slices.Contains(m.Tags, tag)
}

// IsMoE reports whether the model is a mixture-of-experts architecture.
func (m *ModelDescriptor) IsMoE() bool {
	return strings.EqualFold(m.Architecture, ArchitectureMoE)
}

// Clone returns a deep copy so catalog snapshots are never mutated by callers.
func (m *ModelDescriptor) Clone() *ModelDescriptor {
	if m == nil {
		return nil
	}
	c := *m
	c.TaskTypes = slices.Clone(m.TaskTypes)
	c.Tags = slices.Clone(m.Tags)
	c.FallbackChain = slices.Clone(m.FallbackChain)
	c.Quantizations = slices.Clone(m.Quantizations)
	if m.CostProfile != nil {
		p := *m.CostProfile
		c.CostProfile = &p
	}
	if m.Quality != nil {
		q := *m.Quality
		c.Quality = &q
	}
	return &c
}

// Priority classifies how urgently a request must be served.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityCritical Priority = "critical"
)

// SelectionCriteria are the caller's hard requirements for a model.
// Zero-valued numeric limits mean "no constraint".
type SelectionCriteria struct {
	TaskType          string   `json:"task_type"                   validate:"required"`
	MinQuality        float64  `json:"min_quality,omitempty"       validate:"gte=0,lte=1"`
	MaxCostPer1K      float64  `json:"max_cost_per_1k,omitempty"   validate:"gte=0"`
	MaxLatencyMs      float64  `json:"max_latency_ms,omitempty"    validate:"gte=0"`
	RequireCommercial bool     `json:"require_commercial"`
	RequireSafety     bool     `json:"require_safety"`
	RequiredTags      []string `json:"required_tags,omitempty"`
	ExcludedTags      []string `json:"excluded_tags,omitempty"`
}

// SelectionContext carries per-request runtime information for selection.
type SelectionContext struct {
	RequestID    string   `json:"request_id,omitempty"`
	Priority     Priority `json:"priority,omitempty"`
	MaxRiskTier  RiskTier `json:"max_risk_tier,omitempty"`
	MaxCost      float64  `json:"max_cost,omitempty"      validate:"gte=0"`
	InputTokens  int      `json:"input_tokens,omitempty"  validate:"gte=0"`
	OutputTokens int      `json:"output_tokens,omitempty" validate:"gte=0"`
}

// AxisScores are the per-axis normalized scores of a candidate.
type AxisScores struct {
	Quality      float64 `json:"quality"`
	Cost         float64 `json:"cost"`
	Latency      float64 `json:"latency"`
	Safety       float64 `json:"safety"`
	Availability float64 `json:"availability"`
}

// ScoredCandidate is a model evaluated against one selection call.
type ScoredCandidate struct {
	Model              *ModelDescriptor `json:"model"`
	Scores             AxisScores       `json:"scores"`
	Composite          float64          `json:"composite"`
	EstimatedCost      float64          `json:"estimated_cost"`
	EstimatedLatencyMs float64          `json:"estimated_latency_ms"`
	Confidence         float64          `json:"confidence"`
	Reasoning          []string         `json:"reasoning"`
}

// SelectionResult is the router's decision.
type SelectionResult struct {
	ModelID            string            `json:"model_id"`
	Model              *ModelDescriptor  `json:"model"`
	Strategy           string            `json:"strategy"`
	Reasoning          string            `json:"reasoning"`
	FallbackAvailable  bool              `json:"fallback_available"`
	FallbackChain      []string          `json:"fallback_chain,omitempty"`
	Candidates         []ScoredCandidate `json:"candidates"`
	EstimatedCost      float64           `json:"estimated_cost"`
	EstimatedLatencyMs float64           `json:"estimated_latency_ms"`
	Confidence         float64           `json:"confidence"`
}

// CompletionRequest is a single inference call against a selected model.
type CompletionRequest struct {
	Model       string            `json:"model"`
	Prompt      string            `json:"prompt"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CompletionResponse is what an inference provider returns.
type CompletionResponse struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Provider   string    `json:"provider"`
	Content    string    `json:"content"`
	Usage      Usage     `json:"usage"`
	FinishTime time.Time `json:"finish_time"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost,omitempty"`
}
