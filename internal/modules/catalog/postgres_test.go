package catalog

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "name", "description", "category", "sku", "image_url", "price", "stock", "is_published", "created_at", "updated_at"}

func TestCreateReturnsTimestamps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC().Truncate(time.Second)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("sofa", "Sofa", "", "sofas", "", "", int64(50000), 3, true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	p := &Product{ID: "sofa", Name: "Sofa", Category: "sofas", Price: 50000, Stock: 3, IsPublished: true}
	require.NoError(t, NewPostgresRepository(db).Create(context.Background(), p))
	assert.Equal(t, now, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id=$1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err = NewPostgresRepository(db).GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDsBatchRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("sofa", "Sofa", "", "", "", "", int64(50000), 3, true, now, now).
			AddRow("chair", "Chair", "", "", "", "", int64(10000), 0, false, now, now))

	ps, err := NewPostgresRepository(db).GetByIDs(context.Background(), []string{"sofa", "chair", "ghost"})
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.True(t, ps[0].Available())
	assert.False(t, ps[1].Available())

	none, err := NewPostgresRepository(db).GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("AND category=$1 AND is_published=true ORDER BY created_at DESC")).
		WithArgs("sofas").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err = NewPostgresRepository(db).List(context.Background(), ListFilter{Category: "sofas", PublishedOnly: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNeverWritesStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE products\s+SET name=\$1, description=\$2, category=\$3, sku=\$4, image_url=\$5,\s+price=\$6, is_published=\$7, updated_at=NOW\(\)\s+WHERE id=\$8`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPostgresRepository(db).Update(context.Background(), &Product{ID: "ghost", Name: "x", Stock: 99})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
