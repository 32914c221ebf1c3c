package favorite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	getFavoritesQuery = `SELECT favorites FROM users WHERE id = $1`

	toggleFavoriteQuery = `
		UPDATE users
		SET favorites = CASE
				WHEN $2::int = ANY(favorites) THEN array_remove(favorites, $2::int)
				ELSE array_append(favorites, $2::int)
			END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING favorites
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID int) ([]int, error) {
	return r.scanIDs(r.db.QueryRowContext(ctx, getFavoritesQuery, userID))
}

func (r *PostgresRepository) Toggle(ctx context.Context, userID, productID int) ([]int, error) {
	return r.scanIDs(r.db.QueryRowContext(ctx, toggleFavoriteQuery, userID, productID))
}

func (r *PostgresRepository) scanIDs(row *sql.Row) ([]int, error) {
	var arr pq.Int64Array
	if err := row.Scan(&arr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	out := make([]int, 0, len(arr))
	for _, v := range arr {
		out = append(out, int(v))
	}
	return out, nil
}
