package recommended

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/wichananm65/chocolate-shop-backend/internal/product"
)

const topRatedQuery = `
	SELECT id, name, category, price, rating, num_reviews, images, is_bestseller
	FROM products
	ORDER BY rating DESC, num_reviews DESC, id
	LIMIT $1
`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Top(ctx context.Context, limit int) ([]product.Product, error) {
	rows, err := r.db.QueryContext(ctx, topRatedQuery, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]product.Product, 0, limit)
	for rows.Next() {
		var (
			p      product.Product
			images pq.StringArray
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Rating, &p.NumReviews, &images, &p.IsBestseller); err != nil {
			return nil, err
		}
		p.Images = []string(images)
		out = append(out, p)
	}
	return out, rows.Err()
}
