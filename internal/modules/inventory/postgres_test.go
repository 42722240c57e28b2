package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/furnish-backend/internal/modules/catalog"
)

func TestDecrementTxAppliesInProductOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE products SET stock = stock - \$1`).
		WithArgs(1, "p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE products SET stock = stock - \$1`).
		WithArgs(2, "p2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, DecrementTx(ctx, tx, []Change{{ProductID: "p2", Quantity: 2}, {ProductID: "p1", Quantity: 1}}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementTxReportsShortLine(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE products SET stock = stock - \$1`).
		WithArgs(2, "p1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT stock, is_published FROM products WHERE id = \$1`).
		WithArgs("p1").WillReturnRows(sqlmock.NewRows([]string{"stock", "is_published"}).AddRow(1, true))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	err = DecrementTx(ctx, tx, []Change{{ProductID: "p1", Quantity: 2}})
	var short *InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, 1, short.Available)
	assert.Equal(t, 2, short.Requested)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementTxReportsWithdrawnProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)UPDATE products SET stock = stock - \$1.*AND is_published = true`).
		WithArgs(1, "p1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT stock, is_published FROM products`).
		WithArgs("p1").WillReturnRows(sqlmock.NewRows([]string{"stock", "is_published"}).AddRow(9, false))
	mock.ExpectExec(`UPDATE products SET stock = stock - \$1`).
		WithArgs(1, "p2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT stock, is_published FROM products`).
		WithArgs("p2").WillReturnRows(sqlmock.NewRows([]string{"stock", "is_published"}))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	var gone *UnavailableError
	err = DecrementTx(ctx, tx, []Change{{ProductID: "p1", Quantity: 1}})
	require.ErrorAs(t, err, &gone)
	assert.Equal(t, "p1", gone.ProductID)
	err = DecrementTx(ctx, tx, []Change{{ProductID: "p2", Quantity: 1}})
	require.ErrorAs(t, err, &gone)
	assert.Equal(t, "p2", gone.ProductID)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`UPDATE products SET stock = stock \+ \$1`).
		WithArgs(5, "p1").WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(7))
	stock, err := repo.AdjustStock(ctx, "p1", 5)
	require.NoError(t, err)
	assert.Equal(t, 7, stock)

	mock.ExpectQuery(`UPDATE products SET stock = stock \+ \$1`).
		WithArgs(-9, "p1").WillReturnRows(sqlmock.NewRows([]string{"stock"}))
	mock.ExpectQuery(`SELECT stock FROM products`).
		WithArgs("p1").WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(7))
	_, err = repo.AdjustStock(ctx, "p1", -9)
	var short *InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, 7, short.Available)
	assert.Equal(t, 9, short.Requested)

	mock.ExpectQuery(`UPDATE products SET stock = stock \+ \$1`).
		WithArgs(1, "ghost").WillReturnRows(sqlmock.NewRows([]string{"stock"}))
	mock.ExpectQuery(`SELECT stock FROM products`).
		WithArgs("ghost").WillReturnRows(sqlmock.NewRows([]string{"stock"}))
	_, err = repo.AdjustStock(ctx, "ghost", 1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
