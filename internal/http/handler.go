package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/davidbz/governor/internal/cost"
	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/observability"
	"github.com/davidbz/governor/internal/routing"
	"github.com/davidbz/governor/internal/safety"
)

const maxBodyBytes = 1 << 20

// Handler handles HTTP requests.
type Handler struct {
	orchestrator *domain.Orchestrator
	router       *routing.Router
	estimator    *cost.Estimator
	evaluator    *safety.Evaluator
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(
	orchestrator *domain.Orchestrator,
	router *routing.Router,
	estimator *cost.Estimator,
	evaluator *safety.Evaluator,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		router:       router,
		estimator:    estimator,
		evaluator:    evaluator,
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/select", h.HandleSelect)
	mux.HandleFunc("POST /v1/inference", h.HandleInference)

	mux.HandleFunc("POST /v1/cost/estimate", h.HandleEstimate)
	mux.HandleFunc("POST /v1/cost/batch", h.HandleEstimateBatch)
	mux.HandleFunc("POST /v1/cost/budget", h.HandleCheckBudget)
	mux.HandleFunc("POST /v1/cost/suggestions", h.HandleSuggestions)

	mux.HandleFunc("POST /v1/safety/prompt", h.HandleEvaluatePrompt)
	mux.HandleFunc("POST /v1/safety/generation", h.HandleEvaluateGeneration)

	mux.HandleFunc("GET /v1/admin/models", h.HandleListModels)
	mux.HandleFunc("POST /v1/admin/models", h.HandleRegisterModel)
	mux.HandleFunc("GET /v1/admin/safety/categories", h.HandleListCategories)
	mux.HandleFunc("POST /v1/admin/safety/categories", h.HandleAddCategory)
	mux.HandleFunc("GET /v1/admin/safety/config", h.HandleGetSafetyConfig)
	mux.HandleFunc("PUT /v1/admin/safety/config", h.HandleUpdateSafetyConfig)
	mux.HandleFunc("GET /v1/admin/cost/stats", h.HandleCostStatistics)
	mux.HandleFunc("GET /v1/admin/audit", h.HandleAuditLog)

	mux.HandleFunc("GET /health", h.HandleHealth)

	return mux
}

type selectRequest struct {
	Criteria domain.SelectionCriteria `json:"criteria"`
	Context  domain.SelectionContext  `json:"context"`
	Strategy string                   `json:"strategy,omitempty"`
}

// HandleSelect picks a model without running inference.
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	if req.Context.RequestID == "" {
		req.Context.RequestID = observability.GetRequestID(ctx)
	}

	result, err := h.router.SelectModel(ctx, &req.Criteria, &req.Context, req.Strategy)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, result)
}

// HandleInference runs a request end to end.
func (h *Handler) HandleInference(w http.ResponseWriter, r *http.Request) {
	var req domain.InferenceRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	if req.RequestID == "" {
		req.RequestID = observability.GetRequestID(ctx)
	}

	logger := observability.FromContext(ctx)
	logger.Info("inference request received",
		observability.String("task_type", req.Criteria.TaskType),
		observability.String("strategy", req.Strategy))

	result, err := h.orchestrator.Execute(ctx, &req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	logger.Info("inference succeeded",
		observability.String("model_id", result.Selection.ModelID),
		observability.Int("tokens", result.Response.Usage.TotalTokens),
		observability.Float64("cost", result.Response.Usage.Cost))

	writeJSON(ctx, w, http.StatusOK, result)
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"models": len(h.router.Models()),
	}); err != nil {
		// Already written status, can't change it, just log.
		return
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Remedy string `json:"remedy,omitempty"`
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("invalid request body: %v", err),
			Kind:  string(domain.KindInvalidConfig),
		})
		return false
	}
	return true
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		observability.FromContext(ctx).Error("failed to encode response", observability.Error(err))
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), Kind: string(domain.KindOf(err))}

	var de *domain.Error
	if errors.As(err, &de) {
		resp.Remedy = de.Remedy
	}

	logger := observability.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", observability.Int("status", status), observability.Error(err))
	} else {
		logger.Warn("request rejected", observability.Int("status", status), observability.Error(err))
	}

	writeJSON(ctx, w, status, resp)
}

func statusFor(err error) int {
	switch {
	case domain.IsCanceled(err):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrModelNotFound):
		return http.StatusNotFound
	}

	switch domain.KindOf(err) {
	case domain.KindInvalidConfig:
		return http.StatusBadRequest
	case domain.KindNoCandidate:
		return http.StatusUnprocessableEntity
	case domain.KindBudgetExceeded:
		return http.StatusPaymentRequired
	case domain.KindSafetyRejected:
		return http.StatusForbidden
	case domain.KindInference:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
