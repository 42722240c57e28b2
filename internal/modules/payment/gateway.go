package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Gateway is the provider-agnostic interface every payment adapter must implement.
type Gateway interface {
	// CreateSession opens a hosted payment page and returns its reference and URL.
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// GatewayRegistry maps provider names to their Gateway implementations.
type GatewayRegistry map[Provider]Gateway

// ── Sandbox Adapter ───────────────────────────────────────────────────────────
// Issues local references and URLs. Payments are completed by posting a signed
// webhook, which is how the real provider reports them too.

type sandboxGateway struct {
	baseURL string
}

func NewSandboxGateway(baseURL string) Gateway {
	return &sandboxGateway{baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *sandboxGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be greater than 0")
	}
	if req.Currency == "" {
		return nil, fmt.Errorf("currency is required")
	}
	ref := "SBX-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return &Session{
		ProviderRef:    ref,
		ProviderStatus: "OPEN",
		PaymentURL:     g.baseURL + "/" + ref,
	}, nil
}

// ── Status Normaliser ─────────────────────────────────────────────────────────

// NormaliseEvent maps a webhook event name to the internal TxStatus.
func NormaliseEvent(event string) (TxStatus, bool) {
	switch strings.ToLower(event) {
	case "payment.succeeded", "paid":
		return TxCompleted, true
	case "payment.failed", "failed":
		return TxFailed, true
	case "payment.pending", "pending":
		return TxProcessing, true
	default:
		return "", false
	}
}
