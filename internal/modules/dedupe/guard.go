// Package dedupe detects resubmission of an equivalent order shortly after the first one.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
)

// DefaultWindow is how far back an equivalent order counts as a duplicate.
const DefaultWindow = 2 * time.Minute

// History reads recent orders for a customer.
type History interface {
	ListRecentByEmail(ctx context.Context, email string, since time.Time) ([]*order.Order, error)
}

// Line is one product and quantity in the set being fingerprinted.
type Line struct {
	ProductID string
	Quantity  int
}

// NormalizeEmail lowercases and trims an address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Fingerprint identifies "the same cart from the same customer": the normalized email plus
// the item set, independent of line order and of how quantities were split across lines.
func Fingerprint(email string, lines []Line) string {
	qty := make(map[string]int, len(lines))
	for _, l := range lines {
		qty[l.ProductID] += l.Quantity
	}
	ids := make([]string, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(NormalizeEmail(email))
	for _, id := range ids {
		b.WriteByte('|')
		b.WriteString(id)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(qty[id]))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Guard checks recent order history for an equivalent order.
type Guard struct {
	history History
	window  time.Duration
	now     func() time.Time
}

// NewGuard returns a guard over history. A non-positive window falls back to DefaultWindow.
func NewGuard(history History, window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{history: history, window: window, now: time.Now}
}

// WithClock replaces the time source.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Window returns the configured trailing window.
func (g *Guard) Window() time.Duration { return g.window }

// Since is the start of the window relative to now.
func (g *Guard) Since() time.Time { return g.now().Add(-g.window) }

// Check returns *order.DuplicateError when an uncancelled order with the same fingerprint
// was created within the window.
func (g *Guard) Check(ctx context.Context, email, fingerprint string) error {
	recent, err := g.history.ListRecentByEmail(ctx, NormalizeEmail(email), g.Since())
	if err != nil {
		return fmt.Errorf("load recent orders: %w", err)
	}
	for _, o := range recent {
		if o.Status == order.StatusCancelled {
			continue
		}
		if o.Fingerprint == fingerprint {
			return &order.DuplicateError{ExistingOrderID: o.ID.String()}
		}
	}
	return nil
}
