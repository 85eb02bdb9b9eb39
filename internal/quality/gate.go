package quality

import (
	"context"
	"fmt"
	"log"

	"catalog-etl-service/internal/domain"
	"catalog-etl-service/internal/store"
)

// check is one gate assertion: a predicate over the silver tables that must
// match zero rows.
type check struct {
	name        string
	description string
	query       string
}

// The silver invariants re-asserted before gold runs. The transforms enforce
// these rules at write time; the gate defends against a rule changing in one
// place but not the other, and against partial writes.
var checks = []check{
	{
		name:        "silver_products_non_negative",
		description: "product with negative price or negative rating_count",
		query: `SELECT COUNT(*) FROM silver.products
			WHERE price < 0 OR rating_count < 0;`,
	},
	{
		name:        "silver_users_contactable",
		description: "user with null email or username",
		query: `SELECT COUNT(*) FROM silver.users
			WHERE email IS NULL OR username IS NULL;`,
	},
	{
		name:        "silver_cart_items_positive_quantity",
		description: "cart item with non-positive quantity",
		query: `SELECT COUNT(*) FROM silver.cart_items
			WHERE quantity <= 0;`,
	},
}

// Gate runs the silver assertions between the silver and gold stages. Any
// violation halts the pipeline; gold must never load from silver data that
// failed its own invariants.
type Gate struct {
	store  store.AssertionRunner
	logger *log.Logger
}

func NewGate(s store.AssertionRunner, logger *log.Logger) *Gate {
	return &Gate{store: s, logger: logger}
}

// Validate runs every assertion and fails on the first violation, tagged
// domain.ErrQuality with the human-readable description and row count.
func (g *Gate) Validate(ctx context.Context) error {
	for _, c := range checks {
		count, err := g.store.CountRows(ctx, c.query)
		if err != nil {
			return fmt.Errorf("quality: %s: %w", c.name, err)
		}
		if count > 0 {
			return fmt.Errorf("quality: %s: %d row(s) with %s: %w", c.name, count, c.description, domain.ErrQuality)
		}
		g.logger.Printf("INFO: quality: %s passed", c.name)
	}
	return nil
}
