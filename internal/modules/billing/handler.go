package billing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
)

// Handler exposes invoice endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterAdminRoutes mounts under an authenticated admin router.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/orders/{id}/invoice", h.createInvoice)          // POST /api/v1/admin/orders/{id}/invoice
	r.Get("/orders/{id}/invoice", h.getOrderInvoice)         // GET  /api/v1/admin/orders/{id}/invoice
	r.Get("/invoices", h.listInvoices)                       // GET  /api/v1/admin/invoices?limit=50
	r.Get("/invoices/{id}", h.getInvoice)                    // GET  /api/v1/admin/invoices/{id}
	r.Get("/invoices/number/{number}", h.getInvoiceByNumber) // GET  /api/v1/admin/invoices/number/{number}
	r.Post("/invoices/{id}/render", h.renderInvoice)         // POST /api/v1/admin/invoices/{id}/render
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	inv, created, err := h.service.CreateInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond(w, status, inv)
}

func (h *Handler) getOrderInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.GetInvoiceForOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, inv)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	invs, err := h.service.ListInvoices(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if invs == nil {
		invs = []*Invoice{}
	}
	respond(w, http.StatusOK, invs)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, inv)
}

func (h *Handler) getInvoiceByNumber(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.GetInvoiceByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, inv)
}

func (h *Handler) renderInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.RenderInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, inv)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, order.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrOrderNotInvoiceable):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, ErrSequenceExhausted):
		code = http.StatusServiceUnavailable
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
