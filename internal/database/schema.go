package database

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		is_approved BOOLEAN NOT NULL DEFAULT TRUE,
		admin_requested BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS favorites INTEGER[] NOT NULL DEFAULT '{}'`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS cart JSONB NOT NULL DEFAULT '[]'`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS cart_version INTEGER NOT NULL DEFAULT 0`,

	`CREATE TABLE IF NOT EXISTS products (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		price NUMERIC(12,2) NOT NULL DEFAULT 0,
		count_in_stock INTEGER NOT NULL DEFAULT 0,
		rating NUMERIC(3,2) NOT NULL DEFAULT 0,
		num_reviews INTEGER NOT NULL DEFAULT 0,
		images TEXT[] NOT NULL DEFAULT '{}',
		is_bestseller BOOLEAN NOT NULL DEFAULT FALSE,
		user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS products_category_idx ON products (category)`,

	`CREATE TABLE IF NOT EXISTS addresses (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		street TEXT NOT NULL,
		city TEXT NOT NULL,
		postal_code TEXT NOT NULL,
		country TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
		order_items JSONB NOT NULL,
		shipping_address JSONB NOT NULL,
		payment_method TEXT NOT NULL,
		items_price NUMERIC(12,2) NOT NULL,
		tax_price NUMERIC(12,2) NOT NULL,
		shipping_price NUMERIC(12,2) NOT NULL,
		total_price NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'Placed',
		payment_result JSONB,
		paid_at TIMESTAMPTZ,
		delivered_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`ALTER TABLE orders ADD COLUMN IF NOT EXISTS gateway_order_id TEXT`,
	`ALTER TABLE orders DROP CONSTRAINT IF EXISTS orders_user_id_fkey`,
	`ALTER TABLE orders ADD CONSTRAINT orders_user_id_fkey FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE RESTRICT`,
	`CREATE INDEX IF NOT EXISTS orders_user_idx ON orders (user_id)`,
	`CREATE INDEX IF NOT EXISTS orders_pending_idx ON orders (created_at) WHERE payment_result IS NULL AND status = 'Placed'`,
}
