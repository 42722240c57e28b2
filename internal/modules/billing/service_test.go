package billing

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
	"github.com/georgemunganga/furnish-backend/internal/platform/metrics"
)

// fakeRepo mirrors the postgres transaction with a single mutex.
type fakeRepo struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]*order.Order
	counters map[int]int64
	invoices map[uuid.UUID]*Invoice // by order id
}

func newFakeRepo(orders ...*order.Order) *fakeRepo {
	r := &fakeRepo{orders: map[uuid.UUID]*order.Order{}, counters: map[int]int64{}, invoices: map[uuid.UUID]*Invoice{}}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeRepo) IssueInvoice(_ context.Context, orderID string, year int, build BuildFunc) (*Invoice, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, false, order.ErrNotFound
	}
	o, ok := r.orders[oid]
	if !ok {
		return nil, false, order.ErrNotFound
	}
	if inv, ok := r.invoices[oid]; ok {
		return inv, false, nil
	}
	if o.Status == order.StatusCancelled {
		return nil, false, ErrOrderNotInvoiceable
	}
	seq := r.counters[year] + 1
	inv, err := build(OrderSnapshot{ID: o.ID, Total: o.Total, Currency: o.Currency, Status: o.Status}, seq)
	if err != nil {
		return nil, false, err
	}
	r.counters[year] = seq
	r.invoices[oid] = inv
	return inv, true, nil
}

func (r *fakeRepo) GetInvoiceByID(_ context.Context, id string) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.ID.String() == id {
			return inv, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) GetInvoiceByOrder(_ context.Context, orderID string) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	oid, _ := uuid.Parse(orderID)
	if inv, ok := r.invoices[oid]; ok {
		return inv, nil
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) GetInvoiceByNumber(_ context.Context, number string) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.Number == number {
			return inv, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) ListInvoices(context.Context, int) ([]*Invoice, error) { return nil, nil }

func (r *fakeRepo) SetPDFLocation(_ context.Context, id, location string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.ID.String() == id {
			inv.PDFLocation = location
			return nil
		}
	}
	return ErrNotFound
}

func (r *fakeRepo) GetOrderByID(_ context.Context, id string) (*order.Order, error) {
	oid, _ := uuid.Parse(id)
	if o, ok := r.orders[oid]; ok {
		return o, nil
	}
	return nil, order.ErrNotFound
}

func testOrder(total int64) *order.Order {
	id := uuid.New()
	return &order.Order{ID: id, CustomerName: "Jane Doe", Address: "1 Elm St", City: "Springfield", Country: "US",
		Currency: "USD", Total: total, Status: order.StatusPending,
		Items: []*order.Item{{ProductID: "p1", ProductName: "Oak Table", Quantity: 1, UnitPrice: total, Subtotal: total}}}
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestCreateInvoiceIssuesSequentialNumbers(t *testing.T) {
	a, b := testOrder(115000), testOrder(50000)
	repo := newFakeRepo(a, b)
	m := metrics.New(prometheus.NewRegistry())
	svc := NewServiceWithClock(repo, repo, nil, Config{Prefix: "FRN", TaxRateBps: 1500}, m, nil,
		fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))

	inv, created, err := svc.CreateInvoice(context.Background(), a.ID.String())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "FRN-2025-000001", inv.Number)
	assert.Equal(t, int64(100000), inv.Subtotal)
	assert.Equal(t, int64(15000), inv.Tax)
	assert.Equal(t, int64(115000), inv.Total)

	inv2, _, err := svc.CreateInvoice(context.Background(), b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "FRN-2025-000002", inv2.Number)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InvoicesIssued))
}

func TestCreateInvoiceIsIdempotentPerOrder(t *testing.T) {
	o := testOrder(10000)
	repo := newFakeRepo(o)
	svc := NewService(repo, repo, nil, Config{Prefix: "FRN"}, nil, nil)

	first, created, err := svc.CreateInvoice(context.Background(), o.ID.String())
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := svc.CreateInvoice(context.Background(), o.ID.String())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Number, again.Number)
}

func TestCreateInvoiceYearRollover(t *testing.T) {
	a, b := testOrder(100), testOrder(200)
	repo := newFakeRepo(a, b)
	now := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	svc := NewServiceWithClock(repo, repo, nil, Config{Prefix: "FRN"}, nil, nil, func() time.Time { return now })

	inv, _, err := svc.CreateInvoice(context.Background(), a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "FRN-2025-000001", inv.Number)

	now = now.Add(2 * time.Second)
	inv, _, err = svc.CreateInvoice(context.Background(), b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "FRN-2026-000001", inv.Number)
}

func TestCreateInvoiceConcurrentNumbersAreUnique(t *testing.T) {
	var orders []*order.Order
	for i := 0; i < 40; i++ {
		orders = append(orders, testOrder(int64(1000+i)))
	}
	repo := newFakeRepo(orders...)
	svc := NewService(repo, repo, nil, Config{Prefix: "FRN"}, nil, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
	)
	for _, o := range orders {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			inv, _, err := svc.CreateInvoice(context.Background(), id)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[inv.Number] = true
			mu.Unlock()
		}(o.ID.String())
	}
	wg.Wait()
	assert.Len(t, numbers, len(orders))
}

func TestCreateInvoiceRejectsCancelledOrder(t *testing.T) {
	o := testOrder(100)
	o.Status = order.StatusCancelled
	repo := newFakeRepo(o)
	svc := NewService(repo, repo, nil, Config{Prefix: "FRN"}, nil, nil)

	_, _, err := svc.CreateInvoice(context.Background(), o.ID.String())
	assert.ErrorIs(t, err, ErrOrderNotInvoiceable)
}

func TestCreateInvoiceWritesArtifact(t *testing.T) {
	o := testOrder(115000)
	repo := newFakeRepo(o)
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc := NewService(repo, repo, store, Config{Prefix: "FRN", TaxRateBps: 1500}, nil, nil)

	inv, _, err := svc.CreateInvoice(context.Background(), o.ID.String())
	require.NoError(t, err)
	require.NotEmpty(t, inv.PDFLocation)
	assert.True(t, strings.HasSuffix(inv.PDFLocation, inv.Number+".html"))

	body, err := os.ReadFile(inv.PDFLocation)
	require.NoError(t, err)
	assert.Contains(t, string(body), inv.Number)
	assert.Contains(t, string(body), "Oak Table")
	assert.Contains(t, string(body), "1150.00 USD")
}

func TestGetInvoiceByNumberRejectsMalformed(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, Config{Prefix: "FRN"}, nil, nil)
	_, err := svc.GetInvoiceByNumber(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.05", money(5))
	assert.Equal(t, "1234.50", money(123450))
	assert.Equal(t, "-1.00", money(-100))
}
