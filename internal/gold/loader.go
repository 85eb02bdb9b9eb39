package gold

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"catalog-etl-service/internal/domain"
	"catalog-etl-service/internal/store"
)

// Loader materializes the dimensional model from the silver layer. The four
// loads must run dims-first: the fact load resolves natural ids against the
// dimension tables written just before it.
type Loader struct {
	silver store.SilverReader
	gold   store.GoldStorer
	logger *log.Logger

	// strictResolution makes an unresolvable fact row a hard integrity
	// fault. When false, such rows are logged and skipped, and the skip
	// count is reported back.
	strictResolution bool
}

func NewLoader(silver store.SilverReader, gold store.GoldStorer, strictResolution bool, logger *log.Logger) *Loader {
	return &Loader{silver: silver, gold: gold, strictResolution: strictResolution, logger: logger}
}

// LoadDimUsers projects silver users 1:1 into gold.dim_user, refreshing all
// descriptive attributes on conflict.
func (l *Loader) LoadDimUsers(ctx context.Context) (int, error) {
	users, err := l.silver.ListSilverUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("gold: load dim_user: %w", err)
	}

	dims := make([]domain.DimUser, 0, len(users))
	for _, u := range users {
		dims = append(dims, domain.DimUser{
			UserID:    u.UserID,
			Email:     u.Email,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			City:      u.City,
		})
	}

	count, err := l.gold.UpsertDimUsers(ctx, dims)
	if err != nil {
		return 0, fmt.Errorf("gold: load dim_user: %w", err)
	}
	l.logger.Printf("INFO: gold: loaded %d dim_user rows", count)
	return count, nil
}

// LoadDimProducts projects silver products into gold.dim_product.
func (l *Loader) LoadDimProducts(ctx context.Context) (int, error) {
	products, err := l.silver.ListSilverProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("gold: load dim_product: %w", err)
	}

	dims := make([]domain.DimProduct, 0, len(products))
	for _, p := range products {
		dims = append(dims, domain.DimProduct{
			ProductID: p.ProductID,
			Title:     p.Title,
			Category:  p.Category,
			Price:     p.Price,
		})
	}

	count, err := l.gold.UpsertDimProducts(ctx, dims)
	if err != nil {
		return 0, fmt.Errorf("gold: load dim_product: %w", err)
	}
	l.logger.Printf("INFO: gold: loaded %d dim_product rows", count)
	return count, nil
}

// LoadDimDates inserts one row per distinct cart date ever seen. Existing
// rows are left untouched; calendar attributes never change.
func (l *Loader) LoadDimDates(ctx context.Context) (int, error) {
	carts, err := l.silver.ListCartDates(ctx)
	if err != nil {
		return 0, fmt.Errorf("gold: load dim_date: %w", err)
	}

	dims := make([]domain.DimDate, 0, len(carts))
	for _, c := range carts {
		if c.CartDate.IsZero() {
			continue
		}
		dims = append(dims, DateAttributes(c.CartDate))
	}

	count, err := l.gold.InsertDimDates(ctx, dims)
	if err != nil {
		return 0, fmt.Errorf("gold: load dim_date: %w", err)
	}
	l.logger.Printf("INFO: gold: loaded %d dim_date rows", count)
	return count, nil
}

// grain identifies one fact row: one (user, product, date) combination
// observed across all carts on that date.
type grain struct {
	userID    int64
	productID int64
	date      time.Time
}

// LoadFactSales joins the silver sale feed, aggregates measures to the fact
// grain, resolves natural ids to the current dimension surrogate keys and
// upserts. Returns the rows written and the rows skipped (always zero under
// strict resolution, where an unresolvable row aborts the load instead).
func (l *Loader) LoadFactSales(ctx context.Context) (written, skipped int, err error) {
	sales, err := l.silver.ListSaleRows(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("gold: load fact_sales: %w", err)
	}

	userKeys, err := l.gold.DimUserKeys(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("gold: load fact_sales: %w", err)
	}
	productKeys, err := l.gold.DimProductKeys(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("gold: load fact_sales: %w", err)
	}

	// Aggregate quantities to the grain first; several carts by the same
	// user holding the same product on the same date collapse to one row.
	quantities := make(map[grain]int64)
	prices := make(map[grain]decimal.Decimal)
	order := make([]grain, 0, len(sales))
	for _, s := range sales {
		if err := l.checkResolvable(s, userKeys, productKeys); err != nil {
			if l.strictResolution {
				return 0, 0, err
			}
			l.logger.Printf("WARN: gold: skipping fact row: %v", err)
			skipped++
			continue
		}
		g := grain{userID: s.UserID, productID: s.ProductID, date: s.CartDate}
		if _, seen := quantities[g]; !seen {
			order = append(order, g)
		}
		quantities[g] += s.Quantity
		prices[g] = s.UnitPrice.Decimal
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.userID != b.userID {
			return a.userID < b.userID
		}
		if a.productID != b.productID {
			return a.productID < b.productID
		}
		return a.date.Before(b.date)
	})

	facts := make([]domain.FactSale, 0, len(order))
	for _, g := range order {
		quantity := quantities[g]
		unitPrice := prices[g]
		facts = append(facts, domain.FactSale{
			UserKey:     userKeys[g.userID],
			ProductKey:  productKeys[g.productID],
			DateKey:     g.date,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			TotalAmount: unitPrice.Mul(decimal.NewFromInt(quantity)),
		})
	}

	written, err = l.gold.UpsertFactSales(ctx, facts)
	if err != nil {
		return 0, skipped, fmt.Errorf("gold: load fact_sales: %w", err)
	}
	l.logger.Printf("INFO: gold: loaded %d fact_sales rows (%d skipped)", written, skipped)
	return written, skipped, nil
}

// checkResolvable reports why a sale row cannot be resolved to dimension
// keys, or nil when it can. A sale referencing a product that never reached
// silver.products arrives with a NULL unit price and fails the same way as a
// missing product dimension row.
func (l *Loader) checkResolvable(s domain.SaleRow, userKeys, productKeys map[int64]int64) error {
	if _, ok := userKeys[s.UserID]; !ok {
		return fmt.Errorf("gold: no dim_user row for user %d: %w", s.UserID, domain.ErrIntegrity)
	}
	if _, ok := productKeys[s.ProductID]; !ok {
		return fmt.Errorf("gold: no dim_product row for product %d: %w", s.ProductID, domain.ErrIntegrity)
	}
	if !s.UnitPrice.Valid {
		return fmt.Errorf("gold: no silver price for product %d: %w", s.ProductID, domain.ErrIntegrity)
	}
	return nil
}

// DateAttributes derives the calendar attributes of one date dimension row.
// Quarter is (month-1)/3 + 1: months 1-3 map to 1, 4-6 to 2, 7-9 to 3,
// 10-12 to 4.
func DateAttributes(date time.Time) domain.DimDate {
	y, m, d := date.Date()
	return domain.DimDate{
		DateKey:   date,
		Year:      y,
		Month:     int(m),
		Day:       d,
		MonthName: m.String(),
		Quarter:   (int(m)-1)/3 + 1,
	}
}
