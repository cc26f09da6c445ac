package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/observability"
)

const defaultAuditLimit = 100

type evaluateRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Text      string `json:"text"                 validate:"required"`
}

// HandleEvaluatePrompt screens a prompt.
func (h *Handler) HandleEvaluatePrompt(w http.ResponseWriter, r *http.Request) {
	h.evaluate(w, r, h.evaluator.EvaluatePrompt)
}

// HandleEvaluateGeneration screens generated content.
func (h *Handler) HandleEvaluateGeneration(w http.ResponseWriter, r *http.Request) {
	h.evaluate(w, r, h.evaluator.EvaluateGeneration)
}

type evaluateFunc = func(ctx context.Context, requestID, text string) *domain.SafetyResult

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request, fn evaluateFunc) {
	var req evaluateRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	if err := domain.Validate(&req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = observability.GetRequestID(ctx)
	}

	writeJSON(ctx, w, http.StatusOK, fn(ctx, req.RequestID, req.Text))
}

// HandleListCategories returns the configured safety categories.
func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, h.evaluator.Categories())
}

// HandleAddCategory adds or replaces a safety category.
func (h *Handler) HandleAddCategory(w http.ResponseWriter, r *http.Request) {
	var category domain.SafetyCategory
	if !decode(w, r, &category) {
		return
	}

	ctx := r.Context()
	if err := h.evaluator.AddCategory(ctx, category); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusCreated, category)
}

// HandleGetSafetyConfig returns the active safety configuration.
func (h *Handler) HandleGetSafetyConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, h.evaluator.Config())
}

// HandleUpdateSafetyConfig replaces the safety configuration. Fields missing
// from the body keep their current values.
func (h *Handler) HandleUpdateSafetyConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.evaluator.Config()
	if !decode(w, r, &cfg) {
		return
	}

	ctx := r.Context()
	if err := h.evaluator.UpdateConfig(ctx, cfg); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, h.evaluator.Config())
}

// HandleAuditLog returns the newest audit entries, oldest first.
func (h *Handler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(ctx, w, domain.NewError(domain.KindInvalidConfig, "limit must be a positive integer", err))
			return
		}
		limit = parsed
	}

	entries := h.evaluator.AuditLog(limit)
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(ctx, w, http.StatusOK, map[string]interface{}{"entries": entries})
}
