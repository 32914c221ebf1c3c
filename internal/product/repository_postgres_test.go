package product

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productRowColumns = []string{"id", "name", "description", "category", "price", "count_in_stock", "rating", "num_reviews", "images", "is_bestseller", "user_id", "created_at", "updated_at"}

func TestPostgresRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(listProductsQuery)).
		WithArgs("dark", "", true, 12, 0).
		WillReturnRows(sqlmock.NewRows(append(productRowColumns, "total")).
			AddRow(1, "Sea Salt Dark Bar", "", "Dark Chocolate", 250.0, 10, 4.5, 12, "{a.jpg,b.jpg}", true, 9, now, now, 1))

	products, total, err := NewPostgresRepository(db).List(context.Background(), Filter{Keyword: " dark ", Bestseller: true})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, products[0].Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(getProductByIDQuery)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	_, err = NewPostgresRepository(db).GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByIDsSkipsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	products, err := NewPostgresRepository(db).GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_OwnerDeleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(listProductsQuery)).
		WithArgs("", "", false, 12, 0).
		WillReturnRows(sqlmock.NewRows(append(productRowColumns, "total")).
			AddRow(1, "Orphan Truffle", "", "Truffles", 90.0, 3, 0.0, 0, "{}", false, nil, now, now, 2).
			AddRow(2, "Owned Truffle", "", "Truffles", 95.0, 3, 0.0, 0, "{}", false, 9, now, now, 2))
	mock.ExpectQuery(regexp.QuoteMeta(getProductByIDQuery)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(1, "Orphan Truffle", "", "Truffles", 90.0, 3, 0.0, 0, "{}", false, nil, now, now))

	repo := NewPostgresRepository(db)
	products, total, err := repo.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, 2, total)
	assert.Nil(t, products[0].User)
	require.NotNil(t, products[1].User)
	assert.Equal(t, 9, *products[1].User)

	p, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, p.User)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListPastLastPage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(listProductsQuery)).
		WithArgs("", "Truffles", false, 12, 24).
		WillReturnRows(sqlmock.NewRows(append(productRowColumns, "total")))
	mock.ExpectQuery(regexp.QuoteMeta(countProductsQuery)).
		WithArgs("", "Truffles", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(14))

	products, total, err := NewPostgresRepository(db).List(context.Background(), Filter{Category: "Truffles", Page: 3})
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, 14, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
