package user

import "context"

// Service defines the interface for user-related business logic.
type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	// EnsureAdmin creates the bootstrap admin unless the address already exists.
	// created reports whether an account was made.
	EnsureAdmin(ctx context.Context, email, password string) (created bool, err error)
}
