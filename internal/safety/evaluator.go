// Package safety screens prompts and generated content against risk
// categories and turns each verdict into an ordered list of remedial actions.
package safety

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/observability"
)

const (
	passthroughEvaluator = "passthrough"

	blockRiskThreshold      = 0.9
	preBlockRiskThreshold   = 0.7
	redactRiskThreshold     = 0.6
	regenerateRiskThreshold = 0.7
	warningRiskThreshold    = 0.5
	reviewRiskThreshold     = 0.6
	reviewConfidenceCeiling = 0.7
	auditRiskThreshold      = 0.5
	auditFlagRiskThreshold  = 0.8
)

// Evaluator implements domain.SafetyEvaluator.
type Evaluator struct {
	classifier Classifier
	publisher  domain.EventPublisher
	audit      *auditLog

	mu         sync.RWMutex
	cfg        Config
	categories []domain.SafetyCategory
}

// NewEvaluator creates an evaluator seeded with the default categories.
// A nil cfg uses DefaultConfig, a nil classifier uses the pattern classifier
// and publisher may be nil.
func NewEvaluator(cfg *Config, classifier Classifier, publisher domain.EventPublisher) (*Evaluator, error) {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if err := domain.Validate(c); err != nil {
		return nil, err
	}

	if classifier == nil {
		classifier = NewPatternClassifier()
	}

	return &Evaluator{
		classifier: classifier,
		publisher:  publisher,
		audit:      newAuditLog(c.AuditCapacity),
		cfg:        c,
		categories: DefaultCategories(),
	}, nil
}

// EvaluatePrompt screens a prompt before any inference happens.
func (e *Evaluator) EvaluatePrompt(ctx context.Context, requestID, text string) *domain.SafetyResult {
	return e.evaluate(ctx, domain.PhasePreGeneration, requestID, text)
}

// EvaluateGeneration screens generated content.
func (e *Evaluator) EvaluateGeneration(ctx context.Context, requestID, text string) *domain.SafetyResult {
	return e.evaluate(ctx, domain.PhasePostGeneration, requestID, text)
}

// AddCategory adds a custom category or replaces one with the same name.
func (e *Evaluator) AddCategory(ctx context.Context, category domain.SafetyCategory) error {
	if err := domain.Validate(category); err != nil {
		return err
	}
	if err := NewPatternClassifier().Compile(category); err != nil {
		return domain.NewError(domain.KindInvalidConfig, "invalid category pattern", err)
	}

	e.mu.Lock()
	idx := slices.IndexFunc(e.categories, func(c domain.SafetyCategory) bool {
		return c.Name == category.Name
	})
	if idx >= 0 {
		e.categories[idx] = category
	} else {
		e.categories = append(e.categories, category)
	}
	e.mu.Unlock()

	observability.FromContext(ctx).Info("safety category added",
		observability.String("category", category.Name),
		observability.String("severity", string(category.Severity)),
		observability.Bool("enabled", category.Enabled))

	return nil
}

// Categories returns a copy of every configured category.
func (e *Evaluator) Categories() []domain.SafetyCategory {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneCategories(e.categories)
}

// UpdateConfig replaces the configuration. An invalid configuration is
// rejected and the previous one stays active.
func (e *Evaluator) UpdateConfig(ctx context.Context, cfg Config) error {
	if err := domain.Validate(cfg); err != nil {
		return err
	}

	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.audit.setCapacity(cfg.AuditCapacity)

	observability.FromContext(ctx).Info("safety config updated",
		observability.Bool("pre_enabled", cfg.PreEnabled),
		observability.Bool("post_enabled", cfg.PostEnabled),
		observability.Float64("pre_threshold", cfg.PreThreshold),
		observability.Float64("post_threshold", cfg.PostThreshold))

	return nil
}

// Config returns the active configuration.
func (e *Evaluator) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// AuditLog returns up to limit of the newest audit entries, oldest first.
func (e *Evaluator) AuditLog(limit int) []domain.AuditEntry {
	return e.audit.recent(limit)
}

func (e *Evaluator) snapshot() (Config, []domain.SafetyCategory) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg, cloneCategories(e.categories)
}

func (e *Evaluator) evaluate(
	ctx context.Context,
	phase domain.SafetyPhase,
	requestID string,
	text string,
) *domain.SafetyResult {
	start := time.Now()
	cfg, categories := e.snapshot()

	enabled, threshold := cfg.PreEnabled, cfg.PreThreshold
	if phase == domain.PhasePostGeneration {
		enabled, threshold = cfg.PostEnabled, cfg.PostThreshold
	}

	if !enabled {
		return &domain.SafetyResult{
			RequestID:   requestID,
			Phase:       phase,
			IsSafe:      true,
			Confidence:  1,
			Explanation: "safety screening disabled for this phase",
			Actions:     []domain.SuggestedAction{{Action: domain.ActionAllow, Reason: "screening disabled"}},
			Duration:    time.Since(start),
			Evaluator:   passthroughEvaluator,
			EvaluatedAt: start,
		}
	}

	active := slices.DeleteFunc(categories, func(c domain.SafetyCategory) bool {
		return !c.Enabled
	})

	logger := observability.FromContext(ctx)

	var result *domain.SafetyResult
	classification, err := e.classifier.Classify(ctx, text, active)
	if err != nil {
		logger.Warn("safety classifier failed, returning conservative verdict",
			observability.String("phase", string(phase)),
			observability.Error(err))
		result = conservativeResult(requestID, phase, e.classifier.Name(), err)
	} else {
		result = e.verdict(cfg, phase, threshold, requestID, text, active, classification)
	}
	result.Duration = time.Since(start)
	result.EvaluatedAt = start

	e.record(ctx, cfg, result)

	logger.Debug("safety evaluation complete",
		observability.String("phase", string(phase)),
		observability.Bool("is_safe", result.IsSafe),
		observability.Float64("risk_score", result.RiskScore),
		observability.Strings("categories", result.TriggeredCategories))

	return result
}

func (e *Evaluator) verdict(
	cfg Config,
	phase domain.SafetyPhase,
	threshold float64,
	requestID string,
	text string,
	active []domain.SafetyCategory,
	classification *Classification,
) *domain.SafetyResult {
	risk := clampRisk(classification.OverallRisk)
	scores := make(map[string]float64)
	var triggered []domain.SafetyCategory

	for _, category := range active {
		score, ok := classification.Scores[category.Name]
		if !ok {
			continue
		}
		scores[category.Name] = score
		if score > 0 && score >= category.Threshold {
			triggered = append(triggered, category)
			risk = max(risk, clampRisk(score))
		}
	}

	names := make([]string, 0, len(triggered))
	for _, c := range triggered {
		names = append(names, c.Name)
	}

	result := &domain.SafetyResult{
		RequestID:           requestID,
		Phase:               phase,
		IsSafe:              risk < threshold,
		RiskScore:           risk,
		TriggeredCategories: names,
		CategoryScores:      scores,
		Confidence:          classification.Confidence,
		Evaluator:           e.classifier.Name(),
	}
	result.Actions = decideActions(cfg, phase, result, triggered)
	result.Explanation = explain(result)

	if redaction := result.Action(domain.ActionRedact); redaction != nil {
		redaction.Replacement = redact(text, names)
	}

	return result
}

// decideActions applies the action policy. The first matching primary rule
// wins; low-confidence unsafe verdicts also get a human review. Unsafe
// generations at or below the warning risk get no primary action.
func decideActions(
	cfg Config,
	phase domain.SafetyPhase,
	result *domain.SafetyResult,
	triggered []domain.SafetyCategory,
) []domain.SuggestedAction {
	if result.IsSafe {
		return []domain.SuggestedAction{{Action: domain.ActionAllow, Reason: "content within safety threshold"}}
	}

	risk := result.RiskScore
	actions := make([]domain.SuggestedAction, 0, 2)
	if primary, ok := primaryAction(cfg, phase, risk, triggered); ok {
		actions = append(actions, primary)
	}

	if risk > reviewRiskThreshold && result.Confidence < reviewConfidenceCeiling {
		actions = append(actions, domain.SuggestedAction{Action: domain.ActionHumanReview, Reason: "low-confidence verdict"})
	}

	return actions
}

func primaryAction(
	cfg Config,
	phase domain.SafetyPhase,
	risk float64,
	triggered []domain.SafetyCategory,
) (domain.SuggestedAction, bool) {
	if risk > blockRiskThreshold {
		return domain.SuggestedAction{Action: domain.ActionBlock, Reason: "high risk detected"}, true
	}
	for _, c := range triggered {
		if c.Severity == domain.RiskCritical {
			return domain.SuggestedAction{Action: domain.ActionBlock, Reason: "critical safety violation"}, true
		}
	}

	if phase == domain.PhasePreGeneration {
		if risk > preBlockRiskThreshold {
			return domain.SuggestedAction{Action: domain.ActionBlock, Reason: "prompt risk above blocking threshold"}, true
		}
		return domain.SuggestedAction{Action: domain.ActionWarning, Reason: "prompt risk above screening threshold"}, true
	}

	switch {
	case cfg.RedactionEnabled && risk > redactRiskThreshold:
		return domain.SuggestedAction{Action: domain.ActionRedact, Reason: "redacting unsafe content"}, true
	case cfg.RegenerationEnabled && risk > regenerateRiskThreshold:
		return domain.SuggestedAction{Action: domain.ActionRegenerate, Reason: "regenerate with a safer prompt"}, true
	case risk > warningRiskThreshold:
		return domain.SuggestedAction{Action: domain.ActionWarning, Reason: "generated content is borderline"}, true
	default:
		return domain.SuggestedAction{}, false
	}
}

func (e *Evaluator) record(ctx context.Context, cfg Config, result *domain.SafetyResult) {
	if cfg.LogAll || result.RiskScore > auditRiskThreshold {
		e.audit.append(domain.AuditEntry{
			Result:          cloneResult(result),
			FlaggedForAudit: cfg.AuditHighRisk && result.RiskScore > auditFlagRiskThreshold,
			LoggedAt:        time.Now(),
		})
	}

	if e.publisher == nil {
		return
	}

	if !result.IsSafe {
		e.publisher.Publish(ctx, domain.EventRiskDetected, map[string]interface{}{
			"request_id": result.RequestID,
			"phase":      string(result.Phase),
			"risk_score": result.RiskScore,
			"categories": slices.Clone(result.TriggeredCategories),
		})
	}
	if result.HasAction(domain.ActionHumanReview) {
		e.publisher.Publish(ctx, domain.EventHumanReviewRequired, map[string]interface{}{
			"request_id": result.RequestID,
			"phase":      string(result.Phase),
			"risk_score": result.RiskScore,
			"confidence": result.Confidence,
		})
	}
}

func conservativeResult(requestID string, phase domain.SafetyPhase, evaluator string, err error) *domain.SafetyResult {
	return &domain.SafetyResult{
		RequestID:           requestID,
		Phase:               phase,
		IsSafe:              false,
		RiskScore:           1,
		TriggeredCategories: []string{CategoryEvaluationError},
		Explanation:         fmt.Sprintf("safety evaluation failed: %v", err),
		Actions:             []domain.SuggestedAction{{Action: domain.ActionBlock, Reason: "safety evaluation failed"}},
		Evaluator:           evaluator,
	}
}

func explain(result *domain.SafetyResult) string {
	if result.IsSafe {
		return "no safety concerns above threshold"
	}
	if len(result.TriggeredCategories) == 0 {
		return fmt.Sprintf("overall risk %.2f above threshold", result.RiskScore)
	}
	return fmt.Sprintf("risk %.2f from %s", result.RiskScore, strings.Join(result.TriggeredCategories, ", "))
}

func clampRisk(v float64) float64 {
	return min(1, max(0, v))
}

func cloneCategories(in []domain.SafetyCategory) []domain.SafetyCategory {
	out := make([]domain.SafetyCategory, len(in))
	for i, c := range in {
		c.Patterns = slices.Clone(c.Patterns)
		out[i] = c
	}
	return out
}

func cloneResult(r *domain.SafetyResult) domain.SafetyResult {
	c := *r
	c.TriggeredCategories = slices.Clone(r.TriggeredCategories)
	c.Actions = slices.Clone(r.Actions)
	if r.CategoryScores != nil {
		c.CategoryScores = make(map[string]float64, len(r.CategoryScores))
		for k, v := range r.CategoryScores {
			c.CategoryScores[k] = v
		}
	}
	return c
}
