package store

import (
	"context"
	"fmt"

	"catalog-etl-service/internal/domain"
)

// --- GoldStorer Implementation ---

var (
	dimUserSpec = upsertSpec{
		Table:        "gold.dim_user",
		Columns:      []string{"user_id", "email", "username", "first_name", "last_name", "city"},
		ConflictCols: []string{"user_id"},
		UpdateCols:   []string{"email", "username", "first_name", "last_name", "city"},
	}
	dimProductSpec = upsertSpec{
		Table:        "gold.dim_product",
		Columns:      []string{"product_id", "title", "category", "price"},
		ConflictCols: []string{"product_id"},
		UpdateCols:   []string{"title", "category", "price"},
	}
	// Date dimension rows are immutable once created.
	dimDateSpec = upsertSpec{
		Table:        "gold.dim_date",
		Columns:      []string{"date_key", "year", "month", "day", "month_name", "quarter"},
		ConflictCols: []string{"date_key"},
	}
	// created_at is absent from both the column list and the update set, so
	// the original insert timestamp survives every re-load.
	factSalesSpec = upsertSpec{
		Table:        "gold.fact_sales",
		Columns:      []string{"user_key", "product_key", "date_key", "quantity", "unit_price", "total_amount"},
		ConflictCols: []string{"user_key", "product_key", "date_key"},
		UpdateCols:   []string{"quantity", "unit_price", "total_amount"},
	}
)

func (w *Warehouse) UpsertDimUsers(ctx context.Context, users []domain.DimUser) (int, error) {
	rows := make([][]any, 0, len(users))
	for _, u := range users {
		rows = append(rows, []any{u.UserID, u.Email, u.Username, u.FirstName, u.LastName, u.City})
	}
	return w.execBatch(ctx, dimUserSpec.SQL(), rows)
}

func (w *Warehouse) UpsertDimProducts(ctx context.Context, products []domain.DimProduct) (int, error) {
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{p.ProductID, p.Title, p.Category, p.Price})
	}
	return w.execBatch(ctx, dimProductSpec.SQL(), rows)
}

func (w *Warehouse) InsertDimDates(ctx context.Context, dates []domain.DimDate) (int, error) {
	rows := make([][]any, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, []any{d.DateKey, d.Year, d.Month, d.Day, d.MonthName, d.Quarter})
	}
	return w.execBatch(ctx, dimDateSpec.SQL(), rows)
}

func (w *Warehouse) UpsertFactSales(ctx context.Context, facts []domain.FactSale) (int, error) {
	rows := make([][]any, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, []any{f.UserKey, f.ProductKey, f.DateKey, f.Quantity, f.UnitPrice, f.TotalAmount})
	}
	return w.execBatch(ctx, factSalesSpec.SQL(), rows)
}

// DimUserKeys returns the current natural id to surrogate key mapping of the
// user dimension, resolved at fact load time.
func (w *Warehouse) DimUserKeys(ctx context.Context) (map[int64]int64, error) {
	return w.surrogateKeys(ctx, "SELECT user_id, user_key FROM gold.dim_user;", "DimUserKeys")
}

// DimProductKeys returns the current natural id to surrogate key mapping of
// the product dimension.
func (w *Warehouse) DimProductKeys(ctx context.Context) (map[int64]int64, error) {
	return w.surrogateKeys(ctx, "SELECT product_id, product_key FROM gold.dim_product;", "DimProductKeys")
}

func (w *Warehouse) surrogateKeys(ctx context.Context, query, op string) (map[int64]int64, error) {
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: %s failed to query: %w", op, err)
	}
	defer rows.Close()

	keys := make(map[int64]int64)
	for rows.Next() {
		var naturalID, surrogate int64
		if err := rows.Scan(&naturalID, &surrogate); err != nil {
			return nil, fmt.Errorf("store: %s failed to scan row: %w", op, err)
		}
		keys[naturalID] = surrogate
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: %s iteration error: %w", op, err)
	}
	return keys, nil
}
