package user

import "context"

// Repository defines data access for users.
type Repository interface {
	// CreateUser fails with ErrEmailTaken when the address exists (case-insensitive).
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
}
