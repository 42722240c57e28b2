package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/furnish-backend/internal/modules/inventory"
	"github.com/georgemunganga/furnish-backend/internal/modules/order"
	"github.com/georgemunganga/furnish-backend/internal/modules/pricing"
)

const maxBodyBytes = 1 << 20

// Handler exposes the storefront checkout endpoints.
type Handler struct{ orchestrator *Orchestrator }

func NewHandler(o *Orchestrator) *Handler { return &Handler{orchestrator: o} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Post("/", h.placeOrder)
		// Price a cart without placing it
		r.Post("/quote", h.quote)
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, &ValidationError{Fields: map[string]string{"body": "invalid JSON: " + err.Error()}})
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	res, err := h.orchestrator.PlaceOrder(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		respond(w, http.StatusOK, res)
		return
	}
	respond(w, http.StatusCreated, res)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, &ValidationError{Fields: map[string]string{"body": "invalid JSON: " + err.Error()}})
		return
	}
	q, err := h.orchestrator.Quote(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, q)
}

// writeError renders one body per failure kind. Persistence details stay in the logs.
func writeError(w http.ResponseWriter, err error) {
	var (
		verr *ValidationError
		nf   *pricing.ProductNotFoundError
		ins  *inventory.InsufficientStockError
		dup  *order.DuplicateError
	)
	switch {
	case errors.As(err, &verr):
		respond(w, http.StatusBadRequest, map[string]interface{}{
			"error":   CodeValidation,
			"message": "please check your details",
			"fields":  verr.Fields,
		})
	case errors.As(err, &nf):
		respond(w, http.StatusNotFound, map[string]interface{}{
			"error":       CodeProductNotFound,
			"message":     nf.Error(),
			"product_ids": nf.ProductIDs,
		})
	case errors.As(err, &ins):
		respond(w, http.StatusConflict, map[string]interface{}{
			"error":      CodeInsufficientStock,
			"message":    stockMessage(ins),
			"product_id": ins.ProductID,
			"available":  ins.Available,
			"requested":  ins.Requested,
		})
	case errors.As(err, &dup):
		body := map[string]interface{}{
			"error":   CodeDuplicateOrder,
			"message": "an identical order was just placed",
		}
		if dup.ExistingOrderID != "" {
			body["existing_order_id"] = dup.ExistingOrderID
		}
		respond(w, http.StatusConflict, body)
	default:
		respond(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   CodePersistence,
			"message": "the order could not be saved, nothing was charged",
		})
	}
}

func stockMessage(e *inventory.InsufficientStockError) string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	if e.Available == 0 {
		return name + " is out of stock"
	}
	return fmt.Sprintf("only %d of %s left in stock", e.Available, name)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
