package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/furnish-backend/internal/modules/inventory"
)

func newPlacedOrder() *Order {
	now := time.Now().UTC()
	id := uuid.New()
	return &Order{
		ID: id, CustomerName: "Jane Doe", Email: "jane@example.com", Phone: "+15550001111",
		Address: "1 Elm St", City: "Springfield", Country: "US",
		Currency: "USD", Total: 100000, Status: StatusPending, PaymentMethod: PaymentCashOnDelivery,
		Fingerprint: "fp", CreatedAt: now, UpdatedAt: now,
		Items: []*Item{{ID: uuid.New(), OrderID: id, ProductID: "p1", ProductName: "Sofa",
			Quantity: 2, UnitPrice: 50000, Subtotal: 100000, CreatedAt: now}},
	}
}

func expectPrelude(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("jane@example.com").WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestCreateOrderCommitsOrderItemsAndStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectPrelude(mock)
	mock.ExpectQuery(`SELECT id FROM orders`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE products SET stock = stock - \$1`).
		WithArgs(2, "p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(db)
	err = repo.CreateOrder(context.Background(), newPlacedOrder(), CreateOptions{DuplicateSince: time.Now().Add(-2 * time.Minute)})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderRollsBackOnDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectPrelude(mock)
	mock.ExpectQuery(`SELECT id FROM orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("11111111-1111-1111-1111-111111111111"))
	mock.ExpectRollback()

	err = NewPostgresRepository(db).CreateOrder(context.Background(), newPlacedOrder(),
		CreateOptions{DuplicateSince: time.Now().Add(-time.Minute)})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", dup.ExistingOrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderRollsBackWhenStockRunsOut(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectPrelude(mock)
	mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE products SET stock = stock - \$1`).
		WithArgs(2, "p1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT stock, is_published FROM products`).
		WithArgs("p1").WillReturnRows(sqlmock.NewRows([]string{"stock", "is_published"}).AddRow(1, true))
	mock.ExpectRollback()

	err = NewPostgresRepository(db).CreateOrder(context.Background(), newPlacedOrder(), CreateOptions{})
	var short *inventory.InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, 1, short.Available)
	assert.Equal(t, 2, short.Requested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusCompareAndSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE orders SET status=\$1`).
		WithArgs(StatusPaid, sqlmock.AnyArg(), sqlmock.AnyArg(), StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), id.String(), StatusPending, StatusPaid))

	mock.ExpectExec(`UPDATE orders SET status=\$1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM orders`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(string(StatusCancelled)))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), id.String(), StatusPending, StatusPaid), ErrStatusChanged)

	mock.ExpectExec(`UPDATE orders SET status=\$1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM orders`).WillReturnRows(sqlmock.NewRows([]string{"status"}))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), id.String(), StatusPending, StatusPaid), ErrNotFound)

	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "not-a-uuid", StatusPending, StatusPaid), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrderRejectsShipped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM orders WHERE id=\$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(string(StatusShipped)))
	mock.ExpectRollback()

	_, err = NewPostgresRepository(db).CancelOrder(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}
