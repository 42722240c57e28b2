package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/furnish-backend/internal/modules/user"
	"github.com/georgemunganga/furnish-backend/internal/storage/memory"
)

func newService() user.Service {
	return user.NewServiceWithCost(memory.New().Users(), bcrypt.MinCost)
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc := newService()
	u, err := svc.CreateUser(context.Background(), user.CreateUserRequest{
		Email: "  Staff@Example.com ", Password: "correct horse", Name: "Staff",
	})
	require.NoError(t, err)

	assert.Equal(t, "staff@example.com", u.Email)
	assert.Equal(t, user.RoleAdmin, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")))

	got, err := svc.GetUser(context.Background(), u.ID.String())
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
}

func TestCreateUserValidation(t *testing.T) {
	svc := newService()
	_, err := svc.CreateUser(context.Background(), user.CreateUserRequest{Email: "nope", Password: "short"})
	assert.ErrorIs(t, err, user.ErrInvalidInput)

	_, err = svc.CreateUser(context.Background(), user.CreateUserRequest{Email: "a@example.com", Password: "long enough"})
	require.NoError(t, err)
	_, err = svc.CreateUser(context.Background(), user.CreateUserRequest{Email: "A@example.com", Password: "long enough"})
	assert.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestEnsureAdmin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin@example.com", "bootstrap-pass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "ADMIN@example.com", "other-pass")
	require.NoError(t, err)
	assert.False(t, created)
}
