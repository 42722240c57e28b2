package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres, sizes the pool and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate creates the schema if it does not exist. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		category     TEXT NOT NULL DEFAULT '',
		sku          TEXT NOT NULL DEFAULT '',
		image_url    TEXT NOT NULL DEFAULT '',
		price        BIGINT NOT NULL CHECK (price >= 0),
		stock        INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		is_published BOOLEAN NOT NULL DEFAULT false,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id             UUID PRIMARY KEY,
		customer_name  TEXT NOT NULL,
		email          TEXT NOT NULL,
		phone          TEXT NOT NULL,
		address        TEXT NOT NULL,
		city           TEXT NOT NULL,
		country        TEXT NOT NULL,
		notes          TEXT NOT NULL DEFAULT '',
		currency       TEXT NOT NULL,
		total          BIGINT NOT NULL CHECK (total >= 0),
		status         TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		fingerprint    TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_email_created ON orders(lower(email), created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,

	// product_id is a weak reference: products may be deleted after the order.
	`CREATE TABLE IF NOT EXISTS order_items (
		id           UUID PRIMARY KEY,
		order_id     UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id   TEXT NOT NULL,
		product_name TEXT NOT NULL,
		quantity     INTEGER NOT NULL CHECK (quantity > 0),
		unit_price   BIGINT NOT NULL CHECK (unit_price >= 0),
		subtotal     BIGINT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (subtotal = unit_price * quantity)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,

	`CREATE TABLE IF NOT EXISTS invoice_sequences (
		year       INTEGER PRIMARY KEY,
		last_value BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS invoices (
		id           UUID PRIMARY KEY,
		order_id     UUID NOT NULL UNIQUE REFERENCES orders(id),
		number       TEXT NOT NULL UNIQUE,
		year         INTEGER NOT NULL,
		sequence     BIGINT NOT NULL,
		subtotal     BIGINT NOT NULL,
		tax          BIGINT NOT NULL,
		total        BIGINT NOT NULL,
		currency     TEXT NOT NULL,
		pdf_location TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (year, sequence)
	)`,

	`CREATE TABLE IF NOT EXISTS payment_transactions (
		id                  UUID PRIMARY KEY,
		order_id            UUID NOT NULL REFERENCES orders(id),
		provider            TEXT NOT NULL,
		provider_ref        TEXT UNIQUE,
		provider_status     TEXT,
		status              TEXT NOT NULL,
		amount              BIGINT NOT NULL,
		currency            TEXT NOT NULL,
		payment_url         TEXT,
		last_error          TEXT,
		webhook_received_at TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_transactions_order ON payment_transactions(order_id)`,

	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL DEFAULT 'admin',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
