package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	getCartQuery  = `SELECT cart, cart_version FROM users WHERE id = $1`
	saveCartQuery = `
		UPDATE users
		SET cart = $2,
			cart_version = cart_version + 1,
			updated_at = NOW()
		WHERE id = $1
		  AND ($3::int IS NULL OR cart_version = $3::int)
		RETURNING cart_version
	`
	userExistsQuery = `SELECT 1 FROM users WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID int) (Snapshot, error) {
	var (
		raw  sql.NullString
		snap Snapshot
	)
	if err := r.db.QueryRowContext(ctx, getCartQuery, userID).Scan(&raw, &snap.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}

	snap.Items = []Item{}
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &snap.Items); err != nil {
			return Snapshot{}, err
		}
	}
	return snap, nil
}

func (r *PostgresRepository) Save(ctx context.Context, userID int, items []Item, expectedVersion *int) (Snapshot, error) {
	if items == nil {
		items = []Item{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return Snapshot{}, err
	}

	var version int
	err = r.db.QueryRowContext(ctx, saveCartQuery, userID, string(payload), expectedVersion).Scan(&version)
	if err == nil {
		return Snapshot{Items: items, Version: version}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, err
	}

	// no row updated: either the user is gone or the version moved on
	var exists int
	if err := r.db.QueryRowContext(ctx, userExistsQuery, userID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	return Snapshot{}, ErrVersionConflict
}
