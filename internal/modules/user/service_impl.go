package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type service struct {
	repo     Repository
	validate *validator.Validate
	cost     int
}

// NewService creates a new user service.
func NewService(repo Repository) Service {
	return &service{repo: repo, validate: validator.New(), cost: bcrypt.DefaultCost}
}

// NewServiceWithCost lets tests use bcrypt.MinCost.
func NewServiceWithCost(repo Repository, cost int) Service {
	return &service{repo: repo, validate: validator.New(), cost: cost}
}

func (s *service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Name:         strings.TrimSpace(req.Name),
		Role:         RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	_, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	_, err = s.CreateUser(ctx, CreateUserRequest{Email: email, Password: password, Name: "Administrator"})
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	return err == nil, err
}
