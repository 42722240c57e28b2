package user

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "email", "password_hash", "name", "role", "created_at", "updated_at"}

func TestCreateUserMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	repo := NewPostgresRepository(db)
	err = repo.CreateUser(context.Background(), &User{ID: uuid.New(), Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE email = lower($1)")).
		WithArgs("Admin@Example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "admin@example.com", "hash", "Admin", RoleAdmin, now, now))

	repo := NewPostgresRepository(db)
	u, err := repo.GetUserByEmail(context.Background(), "Admin@Example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(userColumns))

	repo := NewPostgresRepository(db)
	_, err = repo.GetUserByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetUserByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
