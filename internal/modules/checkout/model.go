// Package checkout turns a submitted cart into a persisted order: validate, price, check
// stock, reject duplicates, then write the order and its stock decrements in one unit.
package checkout

import (
	"strings"

	"github.com/georgemunganga/furnish-backend/internal/modules/dedupe"
	"github.com/georgemunganga/furnish-backend/internal/modules/order"
	"github.com/georgemunganga/furnish-backend/internal/modules/pricing"
)

// ItemRequest is one submitted cart line. Any price the client sends is not even decoded.
// The validate tags are the cart limits and the error messages quote them.
type ItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"min=1,max=100"`
}

// Request is the cart submission.
type Request struct {
	Items         []ItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	CustomerName  string        `json:"customer_name" validate:"required,max=120"`
	Email         string        `json:"email" validate:"required,email,max=254"`
	Phone         string        `json:"phone" validate:"required,min=5,max=32"`
	Address       string        `json:"address" validate:"required,max=255"`
	City          string        `json:"city" validate:"required,max=100"`
	Country       string        `json:"country" validate:"required,max=100"`
	Notes         string        `json:"notes,omitempty" validate:"max=1000"`
	PaymentMethod string        `json:"payment_method,omitempty" validate:"omitempty,oneof=CARD CASH_ON_DELIVERY BANK_TRANSFER"`

	// IdempotencyKey comes from the Idempotency-Key header.
	IdempotencyKey string `json:"-" validate:"max=128"`
}

// normalize trims free-text fields and defaults the payment method.
func (r Request) normalize() Request {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	r.City = strings.TrimSpace(r.City)
	r.Country = strings.TrimSpace(r.Country)
	r.Notes = strings.TrimSpace(r.Notes)
	r.PaymentMethod = strings.ToUpper(strings.TrimSpace(r.PaymentMethod))
	if r.PaymentMethod == "" {
		r.PaymentMethod = string(order.PaymentCashOnDelivery)
	}
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	items := make([]ItemRequest, len(r.Items))
	for i, it := range r.Items {
		items[i] = ItemRequest{ProductID: strings.TrimSpace(it.ProductID), Quantity: it.Quantity}
	}
	r.Items = items
	return r
}

func (r Request) lineRequests() []pricing.LineRequest {
	lines := make([]pricing.LineRequest, len(r.Items))
	for i, it := range r.Items {
		lines[i] = pricing.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines
}

func (r Request) fingerprint() string {
	lines := make([]dedupe.Line, len(r.Items))
	for i, it := range r.Items {
		lines[i] = dedupe.Line{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return dedupe.Fingerprint(r.Email, lines)
}

// Result is returned once the order is persisted. Notifications may still be in flight.
type Result struct {
	OrderID    string       `json:"order_id"`
	Total      int64        `json:"total"`
	Currency   string       `json:"currency"`
	Status     order.Status `json:"status"`
	PaymentURL string       `json:"payment_url,omitempty"`
	// Replayed is set when an Idempotency-Key matched an earlier successful attempt.
	Replayed bool `json:"-"`
}

func resultFor(o *order.Order) *Result {
	return &Result{OrderID: o.ID.String(), Total: o.Total, Currency: o.Currency, Status: o.Status}
}

// QuoteRequest prices a cart without placing it.
type QuoteRequest struct {
	Items []ItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}
