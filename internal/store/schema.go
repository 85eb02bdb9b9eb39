package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Warehouse DDL, applied at startup when DB_BOOTSTRAP_SCHEMA is set. This is
// bootstrap only: statements are IF NOT EXISTS and never alter existing
// tables.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS raw;`,
	`CREATE SCHEMA IF NOT EXISTS silver;`,
	`CREATE SCHEMA IF NOT EXISTS gold;`,

	`CREATE TABLE IF NOT EXISTS raw.products (
		product_id  BIGINT PRIMARY KEY,
		payload     JSONB NOT NULL,
		ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS raw.users (
		user_id     BIGINT PRIMARY KEY,
		payload     JSONB NOT NULL,
		ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS raw.carts (
		cart_id     BIGINT PRIMARY KEY,
		payload     JSONB NOT NULL,
		ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS silver.products (
		product_id   BIGINT PRIMARY KEY,
		title        TEXT NOT NULL,
		category     TEXT NOT NULL,
		price        NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		rating_rate  NUMERIC(4,2) NOT NULL CHECK (rating_rate >= 0),
		rating_count INTEGER NOT NULL CHECK (rating_count >= 0),
		price_bucket TEXT NOT NULL CHECK (price_bucket IN ('low', 'mid', 'high')),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS silver.users (
		user_id    BIGINT PRIMARY KEY,
		email      TEXT NOT NULL,
		username   TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		city       TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS silver.carts (
		cart_id    BIGINT PRIMARY KEY,
		user_id    BIGINT NOT NULL,
		cart_date  DATE NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS silver.cart_items (
		cart_id    BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (cart_id, product_id)
	);`,

	`CREATE TABLE IF NOT EXISTS gold.dim_user (
		user_key   BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL UNIQUE,
		email      TEXT NOT NULL,
		username   TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		city       TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS gold.dim_product (
		product_key BIGSERIAL PRIMARY KEY,
		product_id  BIGINT NOT NULL UNIQUE,
		title       TEXT NOT NULL,
		category    TEXT NOT NULL,
		price       NUMERIC(12,2) NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS gold.dim_date (
		date_key   DATE PRIMARY KEY,
		year       INTEGER NOT NULL,
		month      INTEGER NOT NULL,
		day        INTEGER NOT NULL,
		month_name TEXT NOT NULL,
		quarter    INTEGER NOT NULL CHECK (quarter BETWEEN 1 AND 4)
	);`,
	`CREATE TABLE IF NOT EXISTS gold.fact_sales (
		user_key     BIGINT NOT NULL REFERENCES gold.dim_user (user_key),
		product_key  BIGINT NOT NULL REFERENCES gold.dim_product (product_key),
		date_key     DATE NOT NULL REFERENCES gold.dim_date (date_key),
		quantity     INTEGER NOT NULL,
		unit_price   NUMERIC(12,2) NOT NULL,
		total_amount NUMERIC(14,2) NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_key, product_key, date_key)
	);`,
}

// EnsureSchema creates the three warehouse schemas and their tables if they
// do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: EnsureSchema failed: %w", err)
		}
	}
	return nil
}
