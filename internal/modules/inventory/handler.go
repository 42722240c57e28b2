package inventory

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/furnish-backend/internal/modules/catalog"
)

// Handler exposes stock adjustment endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterAdminRoutes mounts under an authenticated admin router.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/products/{id}/stock", h.adjustStock) // POST /api/v1/admin/products/{id}/stock {"delta": 5}
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	level, err := h.service.AdjustStock(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		var short *InsufficientStockError
		switch {
		case errors.As(err, &short):
			respond(w, http.StatusConflict, map[string]interface{}{
				"error":     err.Error(),
				"available": short.Available,
			})
		case errors.Is(err, catalog.ErrNotFound):
			respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrZeroDelta):
			respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}
	respond(w, http.StatusOK, level)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
