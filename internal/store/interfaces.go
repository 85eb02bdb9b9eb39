package store

import (
	"context"

	"catalog-etl-service/internal/domain"
)

// RawStorer defines the landing-table operations used by the bronze loader
// and read back by the silver transformer.
type RawStorer interface {
	UpsertRawRecords(ctx context.Context, col domain.Collection, records []domain.RawRecord) (int, error)
	ListRawRecords(ctx context.Context, col domain.Collection) ([]domain.RawRecord, error)
}

// SilverStorer defines the typed-table writes owned by the silver transformer.
type SilverStorer interface {
	UpsertSilverProducts(ctx context.Context, products []domain.SilverProduct) (int, error)
	UpsertSilverUsers(ctx context.Context, users []domain.SilverUser) (int, error)
	UpsertSilverCarts(ctx context.Context, carts []domain.SilverCart) (int, error)
	UpsertSilverCartItems(ctx context.Context, items []domain.SilverCartItem) (int, error)
}

// SilverReader defines the silver-layer reads feeding the gold loader.
type SilverReader interface {
	ListSilverUsers(ctx context.Context) ([]domain.SilverUser, error)
	ListSilverProducts(ctx context.Context) ([]domain.SilverProduct, error)
	ListCartDates(ctx context.Context) ([]domain.SilverCart, error)
	ListSaleRows(ctx context.Context) ([]domain.SaleRow, error)
}

// GoldStorer defines the dimensional-model writes owned by the gold loader.
type GoldStorer interface {
	UpsertDimUsers(ctx context.Context, users []domain.DimUser) (int, error)
	UpsertDimProducts(ctx context.Context, products []domain.DimProduct) (int, error)
	InsertDimDates(ctx context.Context, dates []domain.DimDate) (int, error)
	UpsertFactSales(ctx context.Context, facts []domain.FactSale) (int, error)
	DimUserKeys(ctx context.Context) (map[int64]int64, error)
	DimProductKeys(ctx context.Context) (map[int64]int64, error)
}

// AssertionRunner defines the single read the data quality gate needs.
type AssertionRunner interface {
	CountRows(ctx context.Context, query string) (int, error)
}
