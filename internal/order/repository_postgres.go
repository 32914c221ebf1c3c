package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	orderColumns = `id, user_id, order_items, shipping_address, payment_method, items_price, tax_price, shipping_price, total_price, status, payment_result, gateway_order_id, paid_at, delivered_at, created_at, updated_at`

	insertOrderQuery = `
		INSERT INTO orders (user_id, order_items, shipping_address, payment_method, items_price, tax_price, shipping_price, total_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	getOrderByIDQuery     = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	listOrdersByUserQuery = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY id DESC`
	orderFilter           = `
		WHERE ($1::int = 0 OR user_id = $1::int)
		  AND ($2::text = '' OR status = $2::text)
	`
	listOrdersQuery = `
		SELECT ` + orderColumns + `, COUNT(*) OVER() AS total
		FROM orders` + orderFilter + `
		ORDER BY id DESC
		LIMIT $3 OFFSET $4
	`
	countOrdersQuery = `SELECT COUNT(*) FROM orders` + orderFilter
	updateOrderQuery = `
		UPDATE orders
		SET status = $1,
			payment_result = $2,
			gateway_order_id = $3,
			paid_at = $4,
			delivered_at = $5,
			updated_at = $6
		WHERE id = $7
	`
	deleteUnpaidOrderQuery = `DELETE FROM orders WHERE id = $1 AND payment_result IS NULL`
	orderPaidQuery         = `SELECT payment_result IS NOT NULL FROM orders WHERE id = $1`
	deleteStaleOrdersQuery = `
		DELETE FROM orders
		WHERE payment_method = 'Razorpay'
		  AND status = 'Placed'
		  AND payment_result IS NULL
		  AND created_at < $1
		RETURNING ` + orderColumns
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, ord Order) (Order, error) {
	itemsJSON, err := json.Marshal(ord.Items)
	if err != nil {
		return Order{}, err
	}
	addressJSON, err := json.Marshal(ord.ShippingAddress)
	if err != nil {
		return Order{}, err
	}

	err = r.db.QueryRowContext(ctx, insertOrderQuery,
		ord.User,
		string(itemsJSON),
		string(addressJSON),
		string(ord.PaymentMethod),
		ord.ItemsPrice,
		ord.TaxPrice,
		ord.ShippingPrice,
		ord.TotalPrice,
		string(ord.Status),
		ord.CreatedAt,
		ord.UpdatedAt,
	).Scan(&ord.ID)
	if err != nil {
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Order, error) {
	ord, err := scanOrder(r.db.QueryRowContext(ctx, getOrderByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, listOrdersByUserQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	filter = filter.normalized()
	rows, err := r.db.QueryContext(ctx, listOrdersQuery, filter.UserID, string(filter.Status), filter.PageSize, filter.offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	total := 0
	for rows.Next() {
		var rowTotal int
		ord, err := scanOrderWith(rows, &rowTotal)
		if err != nil {
			return nil, 0, err
		}
		total = rowTotal
		out = append(out, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// a page past the end has no row to carry the window count
	if len(out) == 0 && filter.offset() > 0 {
		err := r.db.QueryRowContext(ctx, countOrdersQuery, filter.UserID, string(filter.Status)).Scan(&total)
		if err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (r *PostgresRepository) Update(ctx context.Context, ord Order) (Order, error) {
	var paymentJSON any
	if ord.PaymentResult != nil {
		raw, err := json.Marshal(ord.PaymentResult)
		if err != nil {
			return Order{}, err
		}
		paymentJSON = string(raw)
	}

	result, err := r.db.ExecContext(ctx, updateOrderQuery,
		string(ord.Status),
		paymentJSON,
		nullString(ord.GatewayOrderID),
		ord.PaidAt,
		ord.DeliveredAt,
		ord.UpdatedAt,
		ord.ID,
	)
	if err != nil {
		return Order{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Order{}, err
	}
	if affected == 0 {
		return Order{}, ErrNotFound
	}
	return r.GetByID(ctx, ord.ID)
}

func (r *PostgresRepository) DeleteUnpaid(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, deleteUnpaidOrderQuery, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var paid bool
	if err := r.db.QueryRowContext(ctx, orderPaidQuery, id).Scan(&paid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if paid {
		return ErrAlreadyPaid
	}
	return ErrNotFound
}

func (r *PostgresRepository) DeleteStalePending(ctx context.Context, cutoff time.Time) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, deleteStaleOrdersQuery, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]Order, error) {
	out := make([]Order, 0)
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ord)
	}
	return out, rows.Err()
}

func scanOrder(scanner rowScanner) (Order, error) {
	return scanOrderWith(scanner)
}

func scanOrderWith(scanner rowScanner, extra ...any) (Order, error) {
	var (
		ord         Order
		itemsJSON   []byte
		addressJSON []byte
		method      string
		status      string
		payment     sql.NullString
		gatewayID   sql.NullString
		paidAt      sql.NullTime
		deliveredAt sql.NullTime
	)

	dest := []any{
		&ord.ID,
		&ord.User,
		&itemsJSON,
		&addressJSON,
		&method,
		&ord.ItemsPrice,
		&ord.TaxPrice,
		&ord.ShippingPrice,
		&ord.TotalPrice,
		&status,
		&payment,
		&gatewayID,
		&paidAt,
		&deliveredAt,
		&ord.CreatedAt,
		&ord.UpdatedAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return Order{}, err
	}

	if err := json.Unmarshal(itemsJSON, &ord.Items); err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(addressJSON, &ord.ShippingAddress); err != nil {
		return Order{}, err
	}
	ord.PaymentMethod = PaymentMethod(method)
	ord.Status = Status(status)
	if payment.Valid && payment.String != "" {
		ord.PaymentResult = &PaymentResult{}
		if err := json.Unmarshal([]byte(payment.String), ord.PaymentResult); err != nil {
			return Order{}, err
		}
	}
	ord.GatewayOrderID = gatewayID.String
	if paidAt.Valid {
		ord.PaidAt = &paidAt.Time
	}
	if deliveredAt.Valid {
		ord.DeliveredAt = &deliveredAt.Time
	}
	return ord, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
