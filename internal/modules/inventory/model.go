package inventory

import (
	"fmt"
	"sort"
)

// Request is one resolved cart line checked against a stock snapshot.
type Request struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

// InsufficientStockError reports the first line whose requested quantity exceeds stock.
// Available and Requested are meant for the customer-facing message.
type InsufficientStockError struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// UnavailableError reports a product that was deleted or unpublished between pricing and
// the stock write.
type UnavailableError struct {
	ProductID string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("product %s is no longer available", e.ProductID)
}

// Change is a relative stock movement for one product. Quantity is always positive;
// direction is given by the function applying it.
type Change struct {
	ProductID string
	Quantity  int
}

// Check verifies every line fits in its available stock. Quantity equal to stock is allowed.
// The whole set fails on the first short line; partial fulfilment is never offered.
func Check(reqs []Request) error {
	for _, r := range reqs {
		if r.Requested > r.Available {
			return &InsufficientStockError{
				ProductID: r.ProductID,
				Name:      r.Name,
				Available: r.Available,
				Requested: r.Requested,
			}
		}
	}
	return nil
}

// Normalize merges changes for the same product and orders them by product id, so that
// concurrent transactions touching overlapping products acquire row locks in the same order.
func Normalize(changes []Change) []Change {
	merged := make(map[string]int, len(changes))
	for _, c := range changes {
		merged[c.ProductID] += c.Quantity
	}
	out := make([]Change, 0, len(merged))
	for id, qty := range merged {
		out = append(out, Change{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// AdjustStockRequest is the admin payload for a signed restock or write-off.
type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason,omitempty"`
}

// StockLevel is returned after an adjustment.
type StockLevel struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}
