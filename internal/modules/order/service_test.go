package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	orders    map[string]*Order
	cancelled []string
}

func (f *fakeRepo) CreateOrder(context.Context, *Order, CreateOptions) error { return nil }

func (f *fakeRepo) GetOrderByID(_ context.Context, id string) (*Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (f *fakeRepo) ListRecentByEmail(context.Context, string, time.Time) ([]*Order, error) {
	return nil, nil
}

func (f *fakeRepo) ListOrders(_ context.Context, fl ListFilter) ([]*Order, error) {
	var out []*Order
	for _, o := range f.orders {
		if fl.Status == "" || o.Status == fl.Status {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, from, to Status) error {
	o, ok := f.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrStatusChanged
	}
	o.Status = to
	return nil
}

func (f *fakeRepo) CancelOrder(_ context.Context, id string) (*Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return nil, ErrInvalidTransition
	}
	o.Status = StatusCancelled
	f.cancelled = append(f.cancelled, id)
	return o.Clone(), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return p.err
}

func seeded(status Status) (*fakeRepo, string) {
	id := uuid.New()
	repo := &fakeRepo{orders: map[string]*Order{
		id.String(): {ID: id, Status: status, Total: 10, Items: []*Item{{ProductID: "p1", Quantity: 1, UnitPrice: 10, Subtotal: 10}}},
	}}
	return repo, id.String()
}

func TestUpdateStatusFollowsStateMachine(t *testing.T) {
	repo, id := seeded(StatusPending)
	pub := &recordingPublisher{}
	svc := NewService(repo, pub, nil)
	ctx := context.Background()

	o, err := svc.UpdateStatus(ctx, id, UpdateStatusRequest{Status: "CONFIRMED"})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o.Status)

	_, err = svc.UpdateStatus(ctx, id, UpdateStatusRequest{Status: "DELIVERED"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, id, UpdateStatusRequest{Status: "LOST"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, id, UpdateStatusRequest{Status: "SHIPPED"})
	require.NoError(t, err)
	assert.Equal(t, []string{EventOrderStatusChanged, EventOrderStatusChanged}, pub.events)
}

func TestUpdateStatusToCancelledRestoresViaCancel(t *testing.T) {
	repo, id := seeded(StatusPending)
	svc := NewService(repo, nil, nil)

	o, err := svc.UpdateStatus(context.Background(), id, UpdateStatusRequest{Status: "CANCELLED"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, []string{id}, repo.cancelled)
}

func TestCancelShippedOrderFails(t *testing.T) {
	repo, id := seeded(StatusShipped)
	_, err := NewService(repo, nil, nil).CancelOrder(context.Background(), id)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPublishFailureDoesNotFailStatusChange(t *testing.T) {
	repo, id := seeded(StatusPending)
	pub := &recordingPublisher{err: errors.New("broker down")}
	o, err := NewService(repo, pub, nil).UpdateStatus(context.Background(), id, UpdateStatusRequest{Status: "PAID"})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	repo, _ := seeded(StatusPending)
	_, err := NewService(repo, nil, nil).ListOrders(context.Background(), ListFilter{Status: "NOPE"})
	assert.Error(t, err)
}
