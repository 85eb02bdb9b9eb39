package store

import (
	"context"
	"fmt"

	"catalog-etl-service/internal/domain"
)

// --- SilverStorer Implementation ---

var (
	silverProductSpec = upsertSpec{
		Table:        "silver.products",
		Columns:      []string{"product_id", "title", "category", "price", "rating_rate", "rating_count", "price_bucket"},
		ConflictCols: []string{"product_id"},
		UpdateCols:   []string{"title", "category", "price", "rating_rate", "rating_count", "price_bucket"},
		TouchCol:     "updated_at",
	}
	silverUserSpec = upsertSpec{
		Table:        "silver.users",
		Columns:      []string{"user_id", "email", "username", "first_name", "last_name", "city"},
		ConflictCols: []string{"user_id"},
		UpdateCols:   []string{"email", "username", "first_name", "last_name", "city"},
		TouchCol:     "updated_at",
	}
	silverCartSpec = upsertSpec{
		Table:        "silver.carts",
		Columns:      []string{"cart_id", "user_id", "cart_date"},
		ConflictCols: []string{"cart_id"},
		UpdateCols:   []string{"user_id", "cart_date"},
		TouchCol:     "updated_at",
	}
	silverCartItemSpec = upsertSpec{
		Table:        "silver.cart_items",
		Columns:      []string{"cart_id", "product_id", "quantity"},
		ConflictCols: []string{"cart_id", "product_id"},
		UpdateCols:   []string{"quantity"},
	}
)

func (w *Warehouse) UpsertSilverProducts(ctx context.Context, products []domain.SilverProduct) (int, error) {
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{p.ProductID, p.Title, p.Category, p.Price, p.RatingRate, p.RatingCount, p.PriceBucket})
	}
	return w.execBatch(ctx, silverProductSpec.SQL(), rows)
}

func (w *Warehouse) UpsertSilverUsers(ctx context.Context, users []domain.SilverUser) (int, error) {
	rows := make([][]any, 0, len(users))
	for _, u := range users {
		rows = append(rows, []any{u.UserID, u.Email, u.Username, u.FirstName, u.LastName, u.City})
	}
	return w.execBatch(ctx, silverUserSpec.SQL(), rows)
}

func (w *Warehouse) UpsertSilverCarts(ctx context.Context, carts []domain.SilverCart) (int, error) {
	rows := make([][]any, 0, len(carts))
	for _, c := range carts {
		rows = append(rows, []any{c.CartID, c.UserID, c.CartDate})
	}
	return w.execBatch(ctx, silverCartSpec.SQL(), rows)
}

func (w *Warehouse) UpsertSilverCartItems(ctx context.Context, items []domain.SilverCartItem) (int, error) {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{it.CartID, it.ProductID, it.Quantity})
	}
	return w.execBatch(ctx, silverCartItemSpec.SQL(), rows)
}

// --- Silver reads feeding the gold loader ---

func (w *Warehouse) ListSilverUsers(ctx context.Context) ([]domain.SilverUser, error) {
	query := `
		SELECT user_id, email, username, first_name, last_name, city
		FROM silver.users
		ORDER BY user_id;
	`
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListSilverUsers failed to query: %w", err)
	}
	defer rows.Close()

	var users []domain.SilverUser
	for rows.Next() {
		var u domain.SilverUser
		if err := rows.Scan(&u.UserID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.City); err != nil {
			return nil, fmt.Errorf("store: ListSilverUsers failed to scan row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListSilverUsers iteration error: %w", err)
	}
	return users, nil
}

func (w *Warehouse) ListSilverProducts(ctx context.Context) ([]domain.SilverProduct, error) {
	query := `
		SELECT product_id, title, category, price, rating_rate, rating_count, price_bucket
		FROM silver.products
		ORDER BY product_id;
	`
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListSilverProducts failed to query: %w", err)
	}
	defer rows.Close()

	var products []domain.SilverProduct
	for rows.Next() {
		var p domain.SilverProduct
		if err := rows.Scan(&p.ProductID, &p.Title, &p.Category, &p.Price, &p.RatingRate, &p.RatingCount, &p.PriceBucket); err != nil {
			return nil, fmt.Errorf("store: ListSilverProducts failed to scan row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListSilverProducts iteration error: %w", err)
	}
	return products, nil
}

// ListCartDates returns the distinct calendar dates observed across silver
// carts, feeding the date dimension.
func (w *Warehouse) ListCartDates(ctx context.Context) ([]domain.SilverCart, error) {
	query := `
		SELECT DISTINCT cart_date
		FROM silver.carts
		ORDER BY cart_date;
	`
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListCartDates failed to query: %w", err)
	}
	defer rows.Close()

	var carts []domain.SilverCart
	for rows.Next() {
		var c domain.SilverCart
		if err := rows.Scan(&c.CartDate); err != nil {
			return nil, fmt.Errorf("store: ListCartDates failed to scan row: %w", err)
		}
		carts = append(carts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListCartDates iteration error: %w", err)
	}
	return carts, nil
}

// ListSaleRows joins carts, cart items and products into the fact feed. The
// product join is deliberately LEFT so an item whose product never reached
// silver.products still surfaces (with a NULL price) and can be reported as
// an integrity fault instead of vanishing inside the join.
func (w *Warehouse) ListSaleRows(ctx context.Context) ([]domain.SaleRow, error) {
	query := `
		SELECT c.user_id, ci.product_id, c.cart_date, ci.quantity, p.price
		FROM silver.carts c
		JOIN silver.cart_items ci ON ci.cart_id = c.cart_id
		LEFT JOIN silver.products p ON p.product_id = ci.product_id
		ORDER BY c.cart_id, ci.product_id;
	`
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListSaleRows failed to query: %w", err)
	}
	defer rows.Close()

	var sales []domain.SaleRow
	for rows.Next() {
		var s domain.SaleRow
		if err := rows.Scan(&s.UserID, &s.ProductID, &s.CartDate, &s.Quantity, &s.UnitPrice); err != nil {
			return nil, fmt.Errorf("store: ListSaleRows failed to scan row: %w", err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListSaleRows iteration error: %w", err)
	}
	return sales, nil
}
