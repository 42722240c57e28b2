package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
)

const maxWebhookBody = 64 << 10

// Handler exposes payment HTTP endpoints.
type Handler struct {
	service Service
	secret  string
}

// NewHandler creates a payment handler. secret signs webhook bodies; an empty secret
// rejects every webhook.
func NewHandler(service Service, secret string) *Handler {
	return &Handler{service: service, secret: secret}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	// (Re)open a card payment page for a pending order
	r.Post("/api/v1/orders/{id}/payment-session", h.createSession)

	// Gateway callback, authenticated by X-Signature instead of a token
	r.Post("/api/v1/payments/webhook", h.webhook)
}

// RegisterAdminRoutes mounts under an authenticated admin router.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders/{id}/payments", h.listByOrder) // GET /api/v1/admin/orders/{id}/payments
	r.Get("/payments/{id}", h.getByID)            // GET /api/v1/admin/payments/{id}
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	tx, err := h.service.CreateSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, tx)
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	if !VerifySignature(body, r.Header.Get("X-Signature"), h.secret) {
		writeError(w, ErrInvalidSignature)
		return
	}
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	tx, err := h.service.HandleWebhook(r.Context(), payload)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// 200 stops provider retries for references we never issued
			respond(w, http.StatusOK, map[string]string{"status": "ignored", "reason": err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"status": "processed", "transaction_id": tx.ID, "payment_status": tx.Status})
}

func (h *Handler) listByOrder(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.ListByOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, txs)
}

func (h *Handler) getByID(w http.ResponseWriter, r *http.Request) {
	tx, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, tx)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, order.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrInvalidSignature):
		code = http.StatusUnauthorized
	case errors.Is(err, ErrSessionNotSupported), errors.Is(err, ErrOrderNotPayable):
		code = http.StatusConflict
	case errors.Is(err, ErrUnknownEvent):
		code = http.StatusBadRequest
	case errors.Is(err, ErrAmountMismatch):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, ErrNoGateway):
		code = http.StatusServiceUnavailable
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
