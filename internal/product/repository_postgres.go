package product

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	productColumns = `id, name, description, category, price, count_in_stock, rating, num_reviews, images, is_bestseller, user_id, created_at, updated_at`

	productFilter = `
		WHERE ($1::text = '' OR name ILIKE '%' || $1::text || '%')
		  AND ($2::text = '' OR category = $2::text)
		  AND (NOT $3::boolean OR is_bestseller)
	`
	listProductsQuery = `
		SELECT ` + productColumns + `, COUNT(*) OVER() AS total
		FROM products` + productFilter + `
		ORDER BY id
		LIMIT $4 OFFSET $5
	`
	countProductsQuery    = `SELECT COUNT(*) FROM products` + productFilter
	getProductByIDQuery   = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	getProductsByIDsQuery = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::int[]) ORDER BY id`

	insertProductQuery = `
		INSERT INTO products (name, description, category, price, count_in_stock, rating, num_reviews, images, is_bestseller, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	updateProductQuery = `
		UPDATE products
		SET name = $1,
			description = $2,
			category = $3,
			price = $4,
			count_in_stock = $5,
			rating = $6,
			num_reviews = $7,
			images = $8,
			is_bestseller = $9,
			updated_at = $10
		WHERE id = $11
	`
	deleteProductQuery = `DELETE FROM products WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Product, int, error) {
	filter = filter.normalized()
	rows, err := r.db.QueryContext(ctx, listProductsQuery,
		filter.Keyword, filter.Category, filter.Bestseller, filter.PageSize, filter.offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	total := 0
	for rows.Next() {
		var p Product
		if err := rows.Scan(append(scanTargets(&p), &total)...); err != nil {
			return nil, 0, err
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// a page past the end has no row to carry the window count
	if len(out) == 0 && filter.offset() > 0 {
		err := r.db.QueryRowContext(ctx, countProductsQuery,
			filter.Keyword, filter.Category, filter.Bestseller).Scan(&total)
		if err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	rows, err := r.db.QueryContext(ctx, getProductsByIDsQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (Product, error) {
	err := r.db.QueryRowContext(ctx, insertProductQuery,
		p.Name,
		p.Description,
		p.Category,
		p.Price,
		p.CountInStock,
		p.Rating,
		p.NumReviews,
		pq.Array(nonNilImages(p.Images)),
		p.IsBestseller,
		p.User,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p Product) (Product, error) {
	result, err := r.db.ExecContext(ctx, updateProductQuery,
		p.Name,
		p.Description,
		p.Category,
		p.Price,
		p.CountInStock,
		p.Rating,
		p.NumReviews,
		pq.Array(nonNilImages(p.Images)),
		p.IsBestseller,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return Product{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Product{}, err
	}
	if affected == 0 {
		return Product{}, ErrNotFound
	}
	return r.GetByID(ctx, p.ID)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTargets(p *Product) []any {
	return []any{
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Price,
		&p.CountInStock,
		&p.Rating,
		&p.NumReviews,
		pq.Array(&p.Images),
		&p.IsBestseller,
		&p.User,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}

func scanProduct(scanner rowScanner) (Product, error) {
	var p Product
	if err := scanner.Scan(scanTargets(&p)...); err != nil {
		return Product{}, err
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p, nil
}

func nonNilImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}
