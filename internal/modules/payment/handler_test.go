package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
)

func newTestRouter(t *testing.T) (*chi.Mux, *fakeOrders, *Transaction) {
	t.Helper()
	o := cardOrder()
	orders := &fakeOrders{o: o}
	svc := NewService(newFakeRepo(), orders, GatewayRegistry{ProviderCard: NewSandboxGateway("https://pay.test")}, nil)
	tx, err := svc.CreateSession(context.Background(), o.ID.String())
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(svc, "whsec").RegisterRoutes(r)
	return r, orders, tx
}

func TestWebhookRequiresValidSignature(t *testing.T) {
	r, orders, tx := newTestRouter(t)
	body := `{"event":"payment.succeeded","provider_ref":"` + tx.ProviderRef + `","amount":100000,"currency":"USD"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("X-Signature", Sign([]byte(body), "wrong"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, order.StatusPending, orders.o.Status)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("X-Signature", Sign([]byte(body), "whsec"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "processed", resp["status"])
	assert.Equal(t, order.StatusPaid, orders.o.Status)
}

func TestWebhookOrderUpdateFailureIsRetryable(t *testing.T) {
	r, orders, tx := newTestRouter(t)
	orders.failNext = 1
	body := `{"event":"payment.succeeded","provider_ref":"` + tx.ProviderRef + `","amount":100000,"currency":"USD"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("X-Signature", Sign([]byte(body), "whsec"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, order.StatusPending, orders.o.Status)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("X-Signature", Sign([]byte(body), "whsec"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.StatusPaid, orders.o.Status)
}

func TestWebhookUnknownReferenceIsIgnored(t *testing.T) {
	r, _, _ := newTestRouter(t)
	body := `{"event":"payment.succeeded","provider_ref":"SBX-unknown","amount":1,"currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("X-Signature", "sha256="+Sign([]byte(body), "whsec"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestCreateSessionEndpoint(t *testing.T) {
	r, orders, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orders.o.ID.String()+"/payment-session", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var tx Transaction
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tx))
	assert.True(t, strings.HasPrefix(tx.PaymentURL, "https://pay.test/SBX-"))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/orders/00000000-0000-0000-0000-000000000000/payment-session", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"a":1}`)
	sig := Sign(body, "s3cret")
	assert.True(t, VerifySignature(body, sig, "s3cret"))
	assert.True(t, VerifySignature(body, strings.ToUpper(sig), "s3cret"))
	assert.False(t, VerifySignature(body, sig, ""))
	assert.False(t, VerifySignature([]byte(`{"a":2}`), sig, "s3cret"))
}
