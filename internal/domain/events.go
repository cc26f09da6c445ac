package domain

// Lifecycle and signal event types delivered to the EventPublisher.
const (
	EventPlanned             = "inference.planned"
	EventStarted             = "inference.started"
	EventCompleted           = "inference.completed"
	EventFailed              = "inference.failed"
	EventRiskDetected        = "safety.risk_detected"
	EventHumanReviewRequired = "safety.human_review_required"
	EventBudgetAlert         = "cost.budget_alert"
)
