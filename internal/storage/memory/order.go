package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
)

type orderRepo struct{ s *Store }

func (r orderRepo) CreateOrder(_ context.Context, o *order.Order, opts order.CreateOptions) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.orders[o.ID]; exists {
		return fmt.Errorf("insert order: id %s already exists", o.ID)
	}
	if !opts.DuplicateSince.IsZero() {
		if dup := r.s.findDuplicateLocked(o, opts.DuplicateSince); dup != nil {
			return &order.DuplicateError{ExistingOrderID: dup.ID.String()}
		}
	}
	if err := r.s.decrementLocked(o.StockChanges()); err != nil {
		return err
	}

	stored := o.Clone()
	for _, it := range stored.Items {
		it.OrderID = o.ID
	}
	r.s.orders[o.ID] = stored
	r.s.orderSeq = append(r.s.orderSeq, o.ID)
	return nil
}

// findDuplicateLocked returns the newest uncancelled order matching email and fingerprint.
func (s *Store) findDuplicateLocked(o *order.Order, since time.Time) *order.Order {
	var match *order.Order
	for _, ex := range s.orders {
		if ex.Status == order.StatusCancelled || ex.Fingerprint != o.Fingerprint {
			continue
		}
		if !strings.EqualFold(ex.Email, o.Email) || ex.CreatedAt.Before(since) {
			continue
		}
		if match == nil || ex.CreatedAt.After(match.CreatedAt) {
			match = ex
		}
	}
	return match
}

func (r orderRepo) GetOrderByID(_ context.Context, id string) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, err := r.s.orderLocked(id)
	if err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

func (s *Store) orderLocked(id string) (*order.Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, order.ErrNotFound
	}
	o, ok := s.orders[uid]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (r orderRepo) ListRecentByEmail(_ context.Context, email string, since time.Time) ([]*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.listOrdersLocked(func(o *order.Order) bool {
		return strings.EqualFold(o.Email, email) && !o.CreatedAt.Before(since)
	}, 0), nil
}

func (r orderRepo) ListOrders(_ context.Context, f order.ListFilter) ([]*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.listOrdersLocked(func(o *order.Order) bool {
		return f.Status == "" || o.Status == f.Status
	}, f.Limit), nil
}

// listOrdersLocked returns matching orders without items, newest first.
func (s *Store) listOrdersLocked(keep func(*order.Order) bool, limit int) []*order.Order {
	out := []*order.Order{}
	for i := len(s.orderSeq) - 1; i >= 0; i-- {
		o := s.orders[s.orderSeq[i]]
		if !keep(o) {
			continue
		}
		c := *o
		c.Items = nil
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r orderRepo) UpdateStatus(_ context.Context, id string, from, to order.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, err := r.s.orderLocked(id)
	if err != nil {
		return err
	}
	if o.Status != from {
		return order.ErrStatusChanged
	}
	o.Status = to
	o.UpdatedAt = r.s.now().UTC()
	return nil
}

func (r orderRepo) CancelOrder(_ context.Context, id string) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, err := r.s.orderLocked(id)
	if err != nil {
		return nil, err
	}
	if !order.CanTransition(o.Status, order.StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, o.Status, order.StatusCancelled)
	}
	r.s.restoreLocked(o.StockChanges())
	o.Status = order.StatusCancelled
	o.UpdatedAt = r.s.now().UTC()
	return o.Clone(), nil
}
