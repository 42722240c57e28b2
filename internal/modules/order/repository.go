package order

import (
	"context"
	"time"
)

// Repository defines data access for orders.
type Repository interface {
	// CreateOrder persists the order and its items and decrements stock for every line, all in
	// one transaction. It fails with *inventory.InsufficientStockError or *DuplicateError
	// without leaving any trace.
	CreateOrder(ctx context.Context, o *Order, opts CreateOptions) error

	// GetOrderByID retrieves an order with its items.
	GetOrderByID(ctx context.Context, id string) (*Order, error)

	// ListRecentByEmail returns orders (without items) for email, case-insensitive,
	// created at or after since, newest first.
	ListRecentByEmail(ctx context.Context, email string, since time.Time) ([]*Order, error)

	// ListOrders returns orders newest first, optionally filtered by status.
	ListOrders(ctx context.Context, f ListFilter) ([]*Order, error)

	// UpdateStatus moves an order from one status to another only if it is still in from.
	UpdateStatus(ctx context.Context, id string, from, to Status) error

	// CancelOrder marks the order cancelled and restores its stock atomically.
	CancelOrder(ctx context.Context, id string) (*Order, error)
}

// Publisher emits domain events to the message broker.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}
