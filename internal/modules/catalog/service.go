package catalog

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	// GetPublishedProduct hides unpublished products behind ErrNotFound.
	GetPublishedProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, f ListFilter) ([]*Product, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error)
}

type service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) Service {
	return &service{repo: repo, validate: validator.New()}
}

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	p := &Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		SKU:         req.SKU,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		Stock:       req.Stock,
		IsPublished: req.IsPublished,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetPublishedProduct(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublished {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *service) ListProducts(ctx context.Context, f ListFilter) ([]*Product, error) {
	return s.repo.List(ctx, f)
}

func (s *service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = req.Name
	p.Description = req.Description
	p.Category = req.Category
	p.SKU = req.SKU
	p.ImageURL = req.ImageURL
	p.Price = req.Price
	p.IsPublished = req.IsPublished
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
