package address

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	listAddressesQuery = `
		SELECT id, user_id, street, city, postal_code, country, phone, is_default, created_at, updated_at
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, id
	`
	clearDefaultQuery = `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`

	insertAddressQuery = `
		INSERT INTO addresses (user_id, street, city, postal_code, country, phone, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	updateAddressQuery = `
		UPDATE addresses
		SET street = $1,
			city = $2,
			postal_code = $3,
			country = $4,
			phone = $5,
			is_default = $6,
			updated_at = $7
		WHERE id = $8 AND user_id = $9
		RETURNING created_at
	`
	deleteAddressQuery = `DELETE FROM addresses WHERE id = $1 AND user_id = $2`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, userID int) ([]Address, error) {
	rows, err := r.db.QueryContext(ctx, listAddressesQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Address, 0)
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Street, &a.City, &a.PostalCode, &a.Country, &a.Phone, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, addr Address) (Address, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Address{}, err
	}
	defer tx.Rollback()

	if addr.IsDefault {
		if _, err := tx.ExecContext(ctx, clearDefaultQuery, addr.UserID); err != nil {
			return Address{}, err
		}
	}
	err = tx.QueryRowContext(ctx, insertAddressQuery,
		addr.UserID, addr.Street, addr.City, addr.PostalCode, addr.Country, addr.Phone,
		addr.IsDefault, addr.CreatedAt, addr.UpdatedAt,
	).Scan(&addr.ID)
	if err != nil {
		return Address{}, err
	}
	return addr, tx.Commit()
}

func (r *PostgresRepository) Update(ctx context.Context, addr Address) (Address, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Address{}, err
	}
	defer tx.Rollback()

	if addr.IsDefault {
		if _, err := tx.ExecContext(ctx, clearDefaultQuery, addr.UserID); err != nil {
			return Address{}, err
		}
	}
	err = tx.QueryRowContext(ctx, updateAddressQuery,
		addr.Street, addr.City, addr.PostalCode, addr.Country, addr.Phone,
		addr.IsDefault, addr.UpdatedAt, addr.ID, addr.UserID,
	).Scan(&addr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Address{}, ErrNotFound
		}
		return Address{}, err
	}
	return addr, tx.Commit()
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, addressID int) error {
	result, err := r.db.ExecContext(ctx, deleteAddressQuery, addressID, userID)
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
