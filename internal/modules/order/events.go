package order

import "time"

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// PlacedEvent is published once an order has been committed.
type PlacedEvent struct {
	OrderID       string        `json:"order_id"`
	Email         string        `json:"email"`
	Total         int64         `json:"total"`
	Currency      string        `json:"currency"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Items         []EventItem   `json:"items"`
	PlacedAt      time.Time     `json:"placed_at"`
}

type EventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func NewPlacedEvent(o *Order) PlacedEvent {
	items := make([]EventItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, EventItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return PlacedEvent{
		OrderID:       o.ID.String(),
		Email:         o.Email,
		Total:         o.Total,
		Currency:      o.Currency,
		PaymentMethod: o.PaymentMethod,
		Items:         items,
		PlacedAt:      o.CreatedAt,
	}
}

// StatusChangedEvent is published after an admin or webhook status change.
type StatusChangedEvent struct {
	OrderID   string    `json:"order_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}
