// Package memory keeps every repository in process memory behind one mutex. Each
// repository method runs entirely under the lock, which gives it the same all-or-nothing
// behavior as the corresponding SQL transaction. Used for STORAGE=memory and in tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/furnish-backend/internal/modules/billing"
	"github.com/georgemunganga/furnish-backend/internal/modules/catalog"
	"github.com/georgemunganga/furnish-backend/internal/modules/inventory"
	"github.com/georgemunganga/furnish-backend/internal/modules/order"
	"github.com/georgemunganga/furnish-backend/internal/modules/payment"
	"github.com/georgemunganga/furnish-backend/internal/modules/user"
)

// Store holds all tables. Values handed out are copies; callers never alias stored rows.
type Store struct {
	mu sync.Mutex

	products map[string]*catalog.Product
	orders   map[uuid.UUID]*order.Order
	// orderSeq keeps insertion order for stable newest-first listings
	orderSeq []uuid.UUID

	invoiceSeq map[int]int64
	invoices   map[uuid.UUID]*billing.Invoice // by invoice id
	byOrder    map[uuid.UUID]uuid.UUID        // order id -> invoice id

	payments map[uuid.UUID]*payment.Transaction
	users    map[uuid.UUID]*user.User

	now func() time.Time
}

func New() *Store {
	return &Store{
		products:   map[string]*catalog.Product{},
		orders:     map[uuid.UUID]*order.Order{},
		invoiceSeq: map[int]int64{},
		invoices:   map[uuid.UUID]*billing.Invoice{},
		byOrder:    map[uuid.UUID]uuid.UUID{},
		payments:   map[uuid.UUID]*payment.Transaction{},
		users:      map[uuid.UUID]*user.User{},
		now:        time.Now,
	}
}

// WithClock replaces the time source for row timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Products returns the catalog repository view.
func (s *Store) Products() catalog.Repository { return productRepo{s} }

// Orders returns the order repository view.
func (s *Store) Orders() order.Repository { return orderRepo{s} }

// Invoices returns the billing repository view.
func (s *Store) Invoices() billing.Repository { return invoiceRepo{s} }

// Payments returns the payment repository view.
func (s *Store) Payments() payment.Repository { return paymentRepo{s} }

// Users returns the user repository view.
func (s *Store) Users() user.Repository { return userRepo{s} }

// Stock returns the inventory repository view.
func (s *Store) Stock() inventory.Repository { return stockRepo{s} }
