package http

import (
	"net/http"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/observability"
)

// HandleListModels returns the catalog with current load counters.
func (h *Handler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	type modelView struct {
		*domain.ModelDescriptor
		Load int64 `json:"load"`
	}

	models := h.router.Models()
	views := make([]modelView, 0, len(models))
	for _, m := range models {
		views = append(views, modelView{ModelDescriptor: m, Load: h.router.Load(m.ID)})
	}

	writeJSON(r.Context(), w, http.StatusOK, map[string]interface{}{
		"models":     views,
		"strategies": h.router.Strategies(),
	})
}

// HandleRegisterModel adds or replaces a catalog entry.
func (h *Handler) HandleRegisterModel(w http.ResponseWriter, r *http.Request) {
	var model domain.ModelDescriptor
	if !decode(w, r, &model) {
		return
	}

	ctx := r.Context()
	if err := h.router.RegisterModel(ctx, &model); err != nil {
		writeError(ctx, w, err)
		return
	}

	observability.FromContext(ctx).Info("model registered", observability.String("model_id", model.ID))
	writeJSON(ctx, w, http.StatusCreated, &model)
}
