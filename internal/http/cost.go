package http

import (
	"net/http"

	"github.com/davidbz/governor/internal/domain"
)

type estimateRequest struct {
	ModelID string             `json:"model_id,omitempty"`
	Context domain.CostContext `json:"context"`
}

type batchEstimateRequest struct {
	ModelID  string               `json:"model_id,omitempty"`
	Contexts []domain.CostContext `json:"contexts" validate:"required,min=1,dive"`
}

type budgetRequest struct {
	Budget domain.Budget `json:"budget"`
	Cost   float64       `json:"cost" validate:"gte=0"`
}

type suggestionsRequest struct {
	Usage domain.UsageSummary `json:"usage"`
}

// HandleEstimate prices one unit of work, using the catalog descriptor when
// a registered model id is given.
func (h *Handler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	if err := domain.Validate(&req.Context); err != nil {
		writeError(ctx, w, err)
		return
	}

	model := h.catalogModel(req.ModelID)
	if req.Context.ModelID == "" {
		req.Context.ModelID = req.ModelID
	}

	estimate, err := h.estimator.Estimate(ctx, req.Context, model)
	if err != nil {
		writeError(ctx, w, domain.NewError(domain.KindInvalidConfig, "estimation failed", err))
		return
	}

	writeJSON(ctx, w, http.StatusOK, estimate)
}

// HandleEstimateBatch prices a batch of work with the volume discount.
func (h *Handler) HandleEstimateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchEstimateRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	if err := domain.Validate(&req); err != nil {
		writeError(ctx, w, err)
		return
	}

	estimate, err := h.estimator.EstimateBatch(ctx, req.Contexts, h.catalogModel(req.ModelID))
	if err != nil {
		writeError(ctx, w, domain.NewError(domain.KindInvalidConfig, "batch estimation failed", err))
		return
	}

	writeJSON(ctx, w, http.StatusOK, estimate)
}

// HandleCheckBudget evaluates a prospective cost against a budget.
func (h *Handler) HandleCheckBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	if err := domain.Validate(&req); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, h.estimator.CheckBudget(ctx, req.Budget, req.Cost))
}

// HandleSuggestions proposes cheaper alternatives for a model's traffic.
func (h *Handler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	if err := domain.Validate(&req.Usage); err != nil {
		writeError(ctx, w, err)
		return
	}

	current, err := h.router.Model(req.Usage.ModelID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	suggestions := h.estimator.SuggestOptimizations(ctx, req.Usage, current, h.router.Models())
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}

	writeJSON(ctx, w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

// HandleCostStatistics reports estimator cache and volume statistics.
func (h *Handler) HandleCostStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, h.estimator.Statistics())
}

// catalogModel resolves an optional model id. Unknown ids yield nil so the
// estimator falls back to pricing by name.
func (h *Handler) catalogModel(id string) *domain.ModelDescriptor {
	if id == "" {
		return nil
	}
	model, err := h.router.Model(id)
	if err != nil {
		return nil
	}
	return model
}
