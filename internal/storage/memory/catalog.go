package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/georgemunganga/furnish-backend/internal/modules/catalog"
	"github.com/georgemunganga/furnish-backend/internal/modules/inventory"
)

type productRepo struct{ s *Store }

func (r productRepo) Create(_ context.Context, p *catalog.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.products[p.ID]; exists {
		return fmt.Errorf("insert product: id %s already exists", p.ID)
	}
	now := r.s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

func (r productRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r productRepo) GetByIDs(_ context.Context, ids []string) ([]*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r productRepo) List(_ context.Context, f catalog.ListFilter) ([]*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*catalog.Product{}
	for _, p := range r.s.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.PublishedOnly && !p.IsPublished {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r productRepo) Update(_ context.Context, p *catalog.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return catalog.ErrNotFound
	}
	cur.Name, cur.Description, cur.Category = p.Name, p.Description, p.Category
	cur.SKU, cur.ImageURL, cur.Price, cur.IsPublished = p.SKU, p.ImageURL, p.Price, p.IsPublished
	cur.UpdatedAt = r.s.now().UTC()
	p.Stock, p.UpdatedAt = cur.Stock, cur.UpdatedAt
	return nil
}

type stockRepo struct{ s *Store }

func (r stockRepo) AdjustStock(_ context.Context, productID string, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return 0, catalog.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return 0, &inventory.InsufficientStockError{ProductID: productID, Name: p.Name, Available: p.Stock, Requested: -delta}
	}
	p.Stock += delta
	p.UpdatedAt = r.s.now().UTC()
	return p.Stock, nil
}

// decrementLocked applies every change or none. Caller holds mu.
func (s *Store) decrementLocked(changes []inventory.Change) error {
	changes = inventory.Normalize(changes)
	for _, c := range changes {
		p, ok := s.products[c.ProductID]
		if !ok || !p.IsPublished {
			return &inventory.UnavailableError{ProductID: c.ProductID}
		}
		if p.Stock < c.Quantity {
			return &inventory.InsufficientStockError{ProductID: c.ProductID, Name: p.Name, Available: p.Stock, Requested: c.Quantity}
		}
	}
	now := s.now().UTC()
	for _, c := range changes {
		p := s.products[c.ProductID]
		p.Stock -= c.Quantity
		p.UpdatedAt = now
	}
	return nil
}

// restoreLocked adds quantities back, skipping products that no longer exist. Caller holds mu.
func (s *Store) restoreLocked(changes []inventory.Change) {
	now := s.now().UTC()
	for _, c := range inventory.Normalize(changes) {
		if p, ok := s.products[c.ProductID]; ok {
			p.Stock += c.Quantity
			p.UpdatedAt = now
		}
	}
}
