package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Provider represents a supported payment gateway.
type Provider string

const (
	ProviderCard Provider = "CARD"
)

// TxStatus represents the internal lifecycle of a payment transaction.
type TxStatus string

const (
	TxPending    TxStatus = "PENDING"
	TxProcessing TxStatus = "PROCESSING"
	TxCompleted  TxStatus = "COMPLETED"
	TxFailed     TxStatus = "FAILED"
)

var (
	ErrNotFound            = errors.New("payment transaction not found")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrSessionNotSupported = errors.New("payment method does not use a gateway session")
	ErrOrderNotPayable     = errors.New("order is not awaiting payment")
	ErrAmountMismatch      = errors.New("webhook amount does not match transaction")
	ErrNoGateway           = errors.New("no gateway registered for provider")
	ErrUnknownEvent        = errors.New("unknown webhook event")
)

// Transaction is one gateway payment attempt for an order. Amount is in minor units.
type Transaction struct {
	ID                uuid.UUID  `json:"id"`
	OrderID           uuid.UUID  `json:"order_id"`
	Provider          Provider   `json:"provider"`
	ProviderRef       string     `json:"provider_ref,omitempty"`
	ProviderStatus    string     `json:"provider_status,omitempty"`
	Status            TxStatus   `json:"status"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	PaymentURL        string     `json:"payment_url,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	WebhookReceivedAt *time.Time `json:"webhook_received_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ── Request/Response DTOs ─────────────────────────────────────────────────────

// SessionRequest is what a gateway needs to open a hosted payment page.
type SessionRequest struct {
	TransactionID string
	OrderID       string
	Amount        int64
	Currency      string
	CustomerEmail string
}

// Session is what a gateway adapter returns after opening a payment page.
type Session struct {
	ProviderRef    string `json:"provider_ref"`
	ProviderStatus string `json:"provider_status"`
	PaymentURL     string `json:"payment_url"`
}

// WebhookPayload is the signed callback body posted by the gateway.
type WebhookPayload struct {
	Event       string `json:"event"`        // payment.succeeded | payment.failed
	ProviderRef string `json:"provider_ref"` // gateway's session reference
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}
