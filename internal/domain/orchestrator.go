package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davidbz/governor/internal/observability"
)

// InferenceRequest is one end-to-end request handled by the Orchestrator.
type InferenceRequest struct {
	RequestID   string            `json:"request_id,omitempty"`
	Prompt      string            `json:"prompt"                validate:"required"`
	Criteria    SelectionCriteria `json:"criteria"`
	Context     SelectionContext  `json:"context"`
	Strategy    string            `json:"strategy,omitempty"`
	Budget      *Budget           `json:"budget,omitempty"`
	Temperature float64           `json:"temperature,omitempty" validate:"gte=0,lte=2"`
	MaxTokens   int               `json:"max_tokens,omitempty"  validate:"gte=0"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// InferenceResult is the outcome of a successful request.
type InferenceResult struct {
	RequestID  string              `json:"request_id"`
	Selection  *SelectionResult    `json:"selection"`
	Response   *CompletionResponse `json:"response"`
	Cost       *CostEstimate       `json:"cost"`
	Budget     *BudgetCheck        `json:"budget,omitempty"`
	PreSafety  *SafetyResult       `json:"pre_safety,omitempty"`
	PostSafety *SafetyResult       `json:"post_safety,omitempty"`
	Redacted   bool                `json:"redacted"`
	Latency    time.Duration       `json:"latency"`
}

// Orchestrator sequences model selection, budget and safety checks, the
// provider call and cost accounting for a single request. It is the only
// component that calls providers.
type Orchestrator struct {
	selector  ModelSelector
	estimator CostEstimator
	evaluator SafetyEvaluator
	registry  ProviderRegistry
	ledger    CostLedger
	publisher EventPublisher
	tokens    TokenCounter
}

// OrchestratorOption configures optional collaborators.
type OrchestratorOption func(*Orchestrator)

// WithSafetyEvaluator enables pre- and post-generation screening.
func WithSafetyEvaluator(evaluator SafetyEvaluator) OrchestratorOption {
	return func(o *Orchestrator) {
		o.evaluator = evaluator
	}
}

// WithCostLedger records incurred costs and reads budget spend from the ledger.
func WithCostLedger(ledger CostLedger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.ledger = ledger
	}
}

// WithTokenCounter replaces the default token counter.
func WithTokenCounter(counter TokenCounter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.tokens = counter
	}
}

// NewOrchestrator creates an orchestrator (DI constructor).
func NewOrchestrator(
	selector ModelSelector,
	estimator CostEstimator,
	registry ProviderRegistry,
	publisher EventPublisher,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		selector:  selector,
		estimator: estimator,
		registry:  registry,
		publisher: publisher,
		tokens:    HeuristicTokenCounter{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs one request end to end. Every request that reaches the
// provider stage emits exactly one of the completed or failed events.
func (o *Orchestrator) Execute(ctx context.Context, req *InferenceRequest) (*InferenceResult, error) {
	if req == nil {
		return nil, NewError(KindInvalidConfig, "request cannot be nil", nil)
	}
	if err := Validate(req); err != nil {
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = observability.GenerateRequestID()
	}
	ctx = observability.WithRequestID(ctx, requestID)

	inputTokens := o.tokens.Count(req.Prompt)
	selCtx := req.Context
	selCtx.RequestID = requestID
	if selCtx.InputTokens == 0 {
		selCtx.InputTokens = inputTokens
	}
	if selCtx.OutputTokens == 0 && req.MaxTokens > 0 {
		selCtx.OutputTokens = req.MaxTokens
	}

	selection, err := o.selector.SelectModel(ctx, &req.Criteria, &selCtx, req.Strategy)
	if err != nil {
		return nil, fmt.Errorf("model selection failed: %w", err)
	}

	ctx = observability.WithModel(ctx, selection.ModelID)
	ctx = observability.WithProvider(ctx, selection.Model.Provider)
	ctx = observability.WithStrategy(ctx, selection.Strategy)
	logger := observability.FromContext(ctx)

	o.publish(ctx, EventPlanned, map[string]interface{}{
		"request_id":              requestID,
		"model_id":                selection.ModelID,
		"strategy":                selection.Strategy,
		"estimated_input_tokens":  selCtx.InputTokens,
		"estimated_output_tokens": selCtx.OutputTokens,
		"estimated_cost":          selection.EstimatedCost,
	})

	result := &InferenceResult{
		RequestID: requestID,
		Selection: selection,
	}

	if req.Budget != nil {
		check, budgetErr := o.checkBudget(ctx, *req.Budget, selection.EstimatedCost)
		if budgetErr != nil {
			return nil, budgetErr
		}
		result.Budget = check
	}

	if o.evaluator != nil {
		pre := o.evaluator.EvaluatePrompt(ctx, requestID, req.Prompt)
		result.PreSafety = pre
		if !pre.IsSafe {
			logger.Warn("prompt rejected by safety screening",
				observability.Float64("risk_score", pre.RiskScore),
				observability.Strings("categories", pre.TriggeredCategories))
			return nil, NewError(KindSafetyRejected, pre.Explanation, nil).
				WithRemedy("rephrase the prompt to avoid the flagged content")
		}
	}

	return o.run(ctx, req, result, inputTokens)
}

// run covers everything between the started and the terminal event.
func (o *Orchestrator) run(
	ctx context.Context,
	req *InferenceRequest,
	result *InferenceResult,
	inputTokens int,
) (*InferenceResult, error) {
	logger := observability.FromContext(ctx)
	selection := result.Selection

	o.publish(ctx, EventStarted, map[string]interface{}{
		"request_id": result.RequestID,
		"model_id":   selection.ModelID,
		"provider":   selection.Model.Provider,
	})
	start := time.Now()

	fail := func(err error) (*InferenceResult, error) {
		latency := time.Since(start)
		o.publish(ctx, EventFailed, map[string]interface{}{
			"request_id":   result.RequestID,
			"model_id":     selection.ModelID,
			"error":        err.Error(),
			"input_tokens": inputTokens,
			"latency_ms":   latency.Milliseconds(),
		})
		logger.Error("inference request failed",
			observability.Duration("latency", latency),
			observability.Error(err))
		return nil, err
	}

	provider, err := o.registry.Get(ctx, selection.Model.Provider)
	if err != nil {
		return fail(NewError(KindInference, "provider unavailable", err))
	}

	response, err := provider.Complete(ctx, &CompletionRequest{
		Model:       selection.ModelID,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Metadata:    req.Metadata,
	})
	result.Latency = time.Since(start)
	if err != nil {
		return fail(NewError(KindInference, "completion failed", err))
	}
	if response == nil {
		return fail(NewError(KindInference, "provider returned no response", nil))
	}

	promptTokens := response.Usage.PromptTokens
	if promptTokens == 0 {
		promptTokens = inputTokens
	}
	completionTokens := response.Usage.CompletionTokens
	if completionTokens == 0 {
		completionTokens = o.tokens.Count(response.Content)
	}

	estimate, err := o.estimator.Estimate(ctx, CostContext{
		ModelID:      selection.ModelID,
		InputTokens:  promptTokens,
		OutputTokens: completionTokens,
	}, selection.Model)
	if err != nil {
		return fail(fmt.Errorf("failed to compute final cost: %w", err))
	}
	response.Usage.PromptTokens = promptTokens
	response.Usage.CompletionTokens = completionTokens
	response.Usage.TotalTokens = promptTokens + completionTokens
	response.Usage.Cost = estimate.CostUSD
	result.Cost = estimate
	result.Response = response

	o.recordCost(ctx, req, result)

	if o.evaluator != nil && response.Content != "" {
		post := o.evaluator.EvaluateGeneration(ctx, result.RequestID, response.Content)
		result.PostSafety = post

		if redaction := post.Action(ActionRedact); redaction != nil && redaction.Replacement != "" {
			result.Redacted = redaction.Replacement != response.Content
			response.Content = redaction.Replacement
		} else if post.HasAction(ActionBlock) {
			return fail(NewError(KindSafetyRejected, post.Explanation, nil).
				WithRemedy("retry with a different prompt or a safer model"))
		}
	}

	o.publish(ctx, EventCompleted, map[string]interface{}{
		"request_id":    result.RequestID,
		"model_id":      selection.ModelID,
		"input_tokens":  promptTokens,
		"output_tokens": completionTokens,
		"latency_ms":    result.Latency.Milliseconds(),
		"cost_usd":      estimate.CostUSD,
		"method":        string(estimate.Method),
		"redacted":      result.Redacted,
	})

	logger.Info("inference request completed",
		observability.Int("input_tokens", promptTokens),
		observability.Int("output_tokens", completionTokens),
		observability.Float64("cost_usd", estimate.CostUSD),
		observability.Duration("latency", result.Latency))

	return result, nil
}

func (o *Orchestrator) checkBudget(ctx context.Context, budget Budget, cost float64) (*BudgetCheck, error) {
	if o.ledger != nil {
		spent, err := o.ledger.Spent(ctx, budget.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read budget spend: %w", err)
		}
		budget.Spent = spent
	}

	check := o.estimator.CheckBudget(ctx, budget, cost)
	if !check.Allowed {
		return nil, NewError(KindBudgetExceeded, check.Reason, nil).WithRemedy(check.Remedy)
	}
	return check, nil
}

// recordCost appends the incurred cost to the ledger. Ledger failures are
// logged and never fail the request.
func (o *Orchestrator) recordCost(ctx context.Context, req *InferenceRequest, result *InferenceResult) {
	if o.ledger == nil {
		return
	}

	event := CostEvent{
		RequestID:    result.RequestID,
		ModelID:      result.Selection.ModelID,
		CostUSD:      result.Cost.CostUSD,
		InputTokens:  result.Response.Usage.PromptTokens,
		OutputTokens: result.Response.Usage.CompletionTokens,
		Method:       result.Cost.Method,
	}
	if req.Budget != nil {
		event.Budget = req.Budget.Name
	}

	if err := o.ledger.Record(ctx, event); err != nil {
		observability.FromContext(ctx).Warn("failed to record cost", observability.Error(err))
	}
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(ctx, eventType, data)
}

// IsCanceled reports whether err stems from a canceled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
