package domain

import "time"

// SafetyPhase is the point in a request lifecycle where content is screened.
type SafetyPhase string

const (
	PhasePreGeneration  SafetyPhase = "pre_generation"
	PhasePostGeneration SafetyPhase = "post_generation"
)

// SafetyAction is a remedial step suggested by an evaluation.
type SafetyAction string

const (
	ActionAllow       SafetyAction = "allow"
	ActionBlock       SafetyAction = "block"
	ActionRedact      SafetyAction = "redact"
	ActionRegenerate  SafetyAction = "regenerate"
	ActionHumanReview SafetyAction = "human_review"
	ActionWarning     SafetyAction = "warning"
)

// SafetyCategory is a risk class content is screened against.
type SafetyCategory struct {
	Name        string   `json:"name"                  validate:"required"`
	Description string   `json:"description,omitempty"`
	Severity    RiskTier `json:"severity"              validate:"required,oneof=low medium high critical"`
	Threshold   float64  `json:"threshold"             validate:"gte=0,lte=1"`
	Enabled     bool     `json:"enabled"`
	// Patterns are extra regular expressions the pattern classifier matches for this category.
	Patterns []string `json:"patterns,omitempty"`
	// MatchScore is the score a pattern hit yields; zero means the classifier default.
	MatchScore float64 `json:"match_score,omitempty" validate:"gte=0,lte=1"`
}

// SuggestedAction pairs an action with its rationale.
type SuggestedAction struct {
	Action SafetyAction `json:"action"`
	Reason string       `json:"reason"`
	// Replacement holds redacted content for ActionRedact.
	Replacement string `json:"replacement,omitempty"`
}

// SafetyResult is the verdict on one piece of content.
type SafetyResult struct {
	RequestID           string             `json:"request_id"`
	Phase               SafetyPhase        `json:"phase"`
	IsSafe              bool               `json:"is_safe"`
	RiskScore           float64            `json:"risk_score"`
	TriggeredCategories []string           `json:"triggered_categories"`
	CategoryScores      map[string]float64 `json:"category_scores,omitempty"`
	Confidence          float64            `json:"confidence"`
	Explanation         string             `json:"explanation"`
	Actions             []SuggestedAction  `json:"actions"`
	Duration            time.Duration      `json:"duration"`
	Evaluator           string             `json:"evaluator"`
	EvaluatedAt         time.Time          `json:"evaluated_at"`
}

// HasAction reports whether the result suggests the given action.
func (r *SafetyResult) HasAction(action SafetyAction) bool {
	return r.Action(action) != nil
}

// Action returns the first suggested action of the given kind, or nil.
func (r *SafetyResult) Action(action SafetyAction) *SuggestedAction {
	for i := range r.Actions {
		if r.Actions[i].Action == action {
			return &r.Actions[i]
		}
	}
	return nil
}

// AuditEntry is one record of the safety audit log.
type AuditEntry struct {
	Result          SafetyResult `json:"result"`
	FlaggedForAudit bool         `json:"flagged_for_audit"`
	LoggedAt        time.Time    `json:"logged_at"`
}
