package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/furnish-backend/internal/modules/inventory"
)

// Status represents the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusConfirmed Status = "CONFIRMED" // cash on delivery / bank transfer accepted by staff
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentMethod tags how the customer intends to pay.
type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "CARD"
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentBankTransfer   PaymentMethod = "BANK_TRANSFER"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStatusChanged means the order moved on between read and write.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// DuplicateError rejects an order equivalent to one placed moments ago by the same customer.
// ExistingOrderID is empty when the earlier attempt is still in flight.
type DuplicateError struct {
	ExistingOrderID string `json:"existing_order_id,omitempty"`
}

func (e *DuplicateError) Error() string {
	if e.ExistingOrderID == "" {
		return "duplicate order: an identical order is already being processed"
	}
	return fmt.Sprintf("duplicate order: identical to recent order %s", e.ExistingOrderID)
}

// validTransitions defines the allowed status state machine.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusConfirmed, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition reports whether current may move to next.
func CanTransition(current, next Status) bool {
	for _, s := range validTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// ParseStatus validates a status string from input.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validTransitions[st]; !ok {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Order is a placed customer order. After creation only Status changes.
type Order struct {
	ID            uuid.UUID     `json:"id"`
	CustomerName  string        `json:"customer_name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	City          string        `json:"city"`
	Country       string        `json:"country"`
	Notes         string        `json:"notes,omitempty"`
	Currency      string        `json:"currency"`
	Total         int64         `json:"total"`
	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Fingerprint   string        `json:"-"`
	Items         []*Item       `json:"items,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Item is a line frozen at order time. ProductID is a weak reference.
type Item struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	Subtotal    int64     `json:"subtotal"`
	CreatedAt   time.Time `json:"created_at"`
}

// CheckTotals verifies subtotal = unit price × quantity on every line and that the order
// total is their sum.
func (o *Order) CheckTotals() error {
	if len(o.Items) == 0 {
		return fmt.Errorf("order %s has no items", o.ID)
	}
	var sum int64
	for _, it := range o.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("item %s: quantity %d", it.ProductID, it.Quantity)
		}
		if it.Subtotal != it.UnitPrice*int64(it.Quantity) {
			return fmt.Errorf("item %s: subtotal %d != %d × %d", it.ProductID, it.Subtotal, it.UnitPrice, it.Quantity)
		}
		sum += it.Subtotal
	}
	if sum != o.Total {
		return fmt.Errorf("order %s: total %d != sum of items %d", o.ID, o.Total, sum)
	}
	return nil
}

// StockChanges lists the stock this order reserves.
func (o *Order) StockChanges() []inventory.Change {
	changes := make([]inventory.Change, 0, len(o.Items))
	for _, it := range o.Items {
		changes = append(changes, inventory.Change{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return changes
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]*Item, len(o.Items))
	for i, it := range o.Items {
		item := *it
		c.Items[i] = &item
	}
	return &c
}

// CreateOptions tunes CreateOrder.
type CreateOptions struct {
	// DuplicateSince enables the in-transaction duplicate recheck: an uncancelled order with
	// the same email and fingerprint created at or after this instant rejects the insert.
	DuplicateSince time.Time
}

// ListFilter narrows admin listings.
type ListFilter struct {
	Status Status
	Limit  int
}

// UpdateStatusRequest is the payload for advancing an order's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
