package gold

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-etl-service/internal/domain"
)

type fakeSilverReader struct {
	users    []domain.SilverUser
	products []domain.SilverProduct
	dates    []domain.SilverCart
	sales    []domain.SaleRow
}

func (f *fakeSilverReader) ListSilverUsers(_ context.Context) ([]domain.SilverUser, error) {
	return f.users, nil
}

func (f *fakeSilverReader) ListSilverProducts(_ context.Context) ([]domain.SilverProduct, error) {
	return f.products, nil
}

func (f *fakeSilverReader) ListCartDates(_ context.Context) ([]domain.SilverCart, error) {
	return f.dates, nil
}

func (f *fakeSilverReader) ListSaleRows(_ context.Context) ([]domain.SaleRow, error) {
	return f.sales, nil
}

type fakeGoldStore struct {
	userKeys    map[int64]int64
	productKeys map[int64]int64

	dimUsers    []domain.DimUser
	dimProducts []domain.DimProduct
	dimDates    []domain.DimDate
	facts       []domain.FactSale
}

func (f *fakeGoldStore) UpsertDimUsers(_ context.Context, users []domain.DimUser) (int, error) {
	f.dimUsers = users
	return len(users), nil
}

func (f *fakeGoldStore) UpsertDimProducts(_ context.Context, products []domain.DimProduct) (int, error) {
	f.dimProducts = products
	return len(products), nil
}

func (f *fakeGoldStore) InsertDimDates(_ context.Context, dates []domain.DimDate) (int, error) {
	f.dimDates = dates
	return len(dates), nil
}

func (f *fakeGoldStore) UpsertFactSales(_ context.Context, facts []domain.FactSale) (int, error) {
	f.facts = facts
	return len(facts), nil
}

func (f *fakeGoldStore) DimUserKeys(_ context.Context) (map[int64]int64, error) {
	return f.userKeys, nil
}

func (f *fakeGoldStore) DimProductKeys(_ context.Context) (map[int64]int64, error) {
	return f.productKeys, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func priceOf(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func TestDateAttributes(t *testing.T) {
	attrs := DateAttributes(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 2024, attrs.Year)
	assert.Equal(t, 3, attrs.Month)
	assert.Equal(t, 5, attrs.Day)
	assert.Equal(t, "March", attrs.MonthName)
	assert.Equal(t, 1, attrs.Quarter)
}

func TestDateAttributes_QuarterIsPure(t *testing.T) {
	expected := map[int]int{
		1: 1, 2: 1, 3: 1,
		4: 2, 5: 2, 6: 2,
		7: 3, 8: 3, 9: 3,
		10: 4, 11: 4, 12: 4,
	}
	for month, quarter := range expected {
		attrs := DateAttributes(time.Date(2024, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, quarter, attrs.Quarter, "month %d", month)
	}
}

func TestLoader_LoadDimUsers(t *testing.T) {
	silver := &fakeSilverReader{users: []domain.SilverUser{
		{UserID: 7, Email: "a@b.com", Username: "bob", City: "Oslo"},
	}}
	goldStore := &fakeGoldStore{}
	loader := NewLoader(silver, goldStore, true, testLogger())

	count, err := loader.LoadDimUsers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, goldStore.dimUsers, 1)
	assert.Equal(t, int64(7), goldStore.dimUsers[0].UserID)
	assert.Equal(t, "a@b.com", goldStore.dimUsers[0].Email)
	assert.Equal(t, "Oslo", goldStore.dimUsers[0].City)
}

func TestLoader_LoadDimDates(t *testing.T) {
	silver := &fakeSilverReader{dates: []domain.SilverCart{
		{CartDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{CartDate: time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)},
	}}
	goldStore := &fakeGoldStore{}
	loader := NewLoader(silver, goldStore, true, testLogger())

	count, err := loader.LoadDimDates(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, goldStore.dimDates, 2)
	assert.Equal(t, domain.DimDate{
		DateKey: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Year:    2024, Month: 3, Day: 5, MonthName: "March", Quarter: 1,
	}, goldStore.dimDates[0])
	assert.Equal(t, 4, goldStore.dimDates[1].Quarter)
}

func TestLoader_LoadFactSales(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	silver := &fakeSilverReader{sales: []domain.SaleRow{
		{UserID: 7, ProductID: 1, CartDate: date, Quantity: 2, UnitPrice: priceOf("75.5")},
	}}
	goldStore := &fakeGoldStore{
		userKeys:    map[int64]int64{7: 101},
		productKeys: map[int64]int64{1: 201},
	}
	loader := NewLoader(silver, goldStore, true, testLogger())

	written, skipped, err := loader.LoadFactSales(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Zero(t, skipped)
	require.Len(t, goldStore.facts, 1)
	fact := goldStore.facts[0]
	assert.Equal(t, int64(101), fact.UserKey)
	assert.Equal(t, int64(201), fact.ProductKey)
	assert.Equal(t, date, fact.DateKey)
	assert.Equal(t, int64(2), fact.Quantity)
	assert.True(t, fact.UnitPrice.Equal(decimal.RequireFromString("75.5")))
	assert.True(t, fact.TotalAmount.Equal(decimal.RequireFromString("151.0")), "total_amount = quantity x unit_price")
}

// Two carts by the same user holding the same product on the same date
// collapse to one fact row at the grain, quantities summed.
func TestLoader_LoadFactSales_AggregatesToGrain(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	silver := &fakeSilverReader{sales: []domain.SaleRow{
		{UserID: 7, ProductID: 1, CartDate: date, Quantity: 2, UnitPrice: priceOf("10")},
		{UserID: 7, ProductID: 1, CartDate: date, Quantity: 3, UnitPrice: priceOf("10")},
		{UserID: 7, ProductID: 2, CartDate: date, Quantity: 1, UnitPrice: priceOf("5")},
	}}
	goldStore := &fakeGoldStore{
		userKeys:    map[int64]int64{7: 101},
		productKeys: map[int64]int64{1: 201, 2: 202},
	}
	loader := NewLoader(silver, goldStore, true, testLogger())

	written, _, err := loader.LoadFactSales(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, written)
	require.Len(t, goldStore.facts, 2)
	assert.Equal(t, int64(5), goldStore.facts[0].Quantity)
	assert.True(t, goldStore.facts[0].TotalAmount.Equal(decimal.RequireFromString("50")))
	assert.Equal(t, int64(1), goldStore.facts[1].Quantity)
}

func TestLoader_LoadFactSales_StrictResolutionFaults(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	silver := &fakeSilverReader{sales: []domain.SaleRow{
		{UserID: 99, ProductID: 1, CartDate: date, Quantity: 2, UnitPrice: priceOf("75.5")},
	}}
	goldStore := &fakeGoldStore{
		userKeys:    map[int64]int64{7: 101},
		productKeys: map[int64]int64{1: 201},
	}
	loader := NewLoader(silver, goldStore, true, testLogger())

	_, _, err := loader.LoadFactSales(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIntegrity))
	assert.Contains(t, err.Error(), "user 99")
	assert.Empty(t, goldStore.facts, "no partial fact load on an integrity fault")
}

func TestLoader_LoadFactSales_TolerantResolutionSkips(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	silver := &fakeSilverReader{sales: []domain.SaleRow{
		{UserID: 99, ProductID: 1, CartDate: date, Quantity: 2, UnitPrice: priceOf("75.5")},
		{UserID: 7, ProductID: 1, CartDate: date, Quantity: 1, UnitPrice: priceOf("75.5")},
	}}
	goldStore := &fakeGoldStore{
		userKeys:    map[int64]int64{7: 101},
		productKeys: map[int64]int64{1: 201},
	}
	loader := NewLoader(silver, goldStore, false, testLogger())

	written, skipped, err := loader.LoadFactSales(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, 1, skipped)
}

// An item whose product never reached silver.products arrives with a NULL
// unit price and fails resolution like a missing dimension row.
func TestLoader_LoadFactSales_NullPriceIsIntegrityFault(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	silver := &fakeSilverReader{sales: []domain.SaleRow{
		{UserID: 7, ProductID: 1, CartDate: date, Quantity: 2},
	}}
	goldStore := &fakeGoldStore{
		userKeys:    map[int64]int64{7: 101},
		productKeys: map[int64]int64{1: 201},
	}
	loader := NewLoader(silver, goldStore, true, testLogger())

	_, _, err := loader.LoadFactSales(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIntegrity))
}
