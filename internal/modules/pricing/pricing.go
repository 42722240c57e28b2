// Package pricing recomputes cart totals from server-held catalog prices.
// Client-submitted amounts are never read.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/georgemunganga/furnish-backend/internal/modules/catalog"
	"github.com/georgemunganga/furnish-backend/internal/modules/inventory"
)

// ProductReader is the catalog batch lookup the authority depends on.
type ProductReader interface {
	GetByIDs(ctx context.Context, ids []string) ([]*catalog.Product, error)
}

// LineRequest is one cart line as submitted: an id and a quantity, nothing else.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// PricedLine carries the authoritative unit price and the stock seen in the same batch read.
type PricedLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
	Available int    `json:"-"`
}

// Quote is the priced cart.
type Quote struct {
	Lines    []PricedLine `json:"lines"`
	Total    int64        `json:"total"`
	Currency string       `json:"currency"`
}

// StockRequests turns the quote into inventory checks against its stock snapshot.
func (q *Quote) StockRequests() []inventory.Request {
	reqs := make([]inventory.Request, 0, len(q.Lines))
	for _, l := range q.Lines {
		reqs = append(reqs, inventory.Request{
			ProductID: l.ProductID,
			Name:      l.Name,
			Requested: l.Quantity,
			Available: l.Available,
		})
	}
	return reqs
}

// ProductNotFoundError lists every requested id that is missing or unpublished.
type ProductNotFoundError struct {
	ProductIDs []string `json:"product_ids"`
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", strings.Join(e.ProductIDs, ", "))
}

// Authority prices carts for every checkout entry point.
type Authority struct {
	products ProductReader
	currency string
}

func NewAuthority(products ProductReader, currency string) *Authority {
	return &Authority{products: products, currency: currency}
}

// Quote resolves all lines with one batch read. Lines naming the same product are merged
// (first-seen order kept) so stock is checked against the combined quantity.
// Any unresolved id fails the whole quote.
func (a *Authority) Quote(ctx context.Context, reqs []LineRequest) (*Quote, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("quote: no lines")
	}

	order := make([]string, 0, len(reqs))
	qty := make(map[string]int, len(reqs))
	for _, r := range reqs {
		if _, seen := qty[r.ProductID]; !seen {
			order = append(order, r.ProductID)
		}
		qty[r.ProductID] += r.Quantity
	}

	products, err := a.products.GetByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[string]*catalog.Product, len(products))
	for _, p := range products {
		if p.IsPublished {
			byID[p.ID] = p
		}
	}

	var missing []string
	for _, id := range order {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &ProductNotFoundError{ProductIDs: missing}
	}

	q := &Quote{Currency: a.currency, Lines: make([]PricedLine, 0, len(order))}
	for _, id := range order {
		p := byID[id]
		line := PricedLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  qty[id],
			Subtotal:  p.Price * int64(qty[id]),
			Available: p.Stock,
		}
		q.Total += line.Subtotal
		q.Lines = append(q.Lines, line)
	}
	return q, nil
}
