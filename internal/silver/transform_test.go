package silver

import (
	"context"
	"encoding/json"
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

type fakeRawStore struct {
	records map[domain.Collection][]domain.RawRecord
}

func (f *fakeRawStore) UpsertRawRecords(_ context.Context, col domain.Collection, records []domain.RawRecord) (int, error) {
	return len(records), nil
}

func (f *fakeRawStore) ListRawRecords(_ context.Context, col domain.Collection) ([]domain.RawRecord, error) {
	return f.records[col], nil
}

type fakeSilverStore struct {
	products []domain.SilverProduct
	users    []domain.SilverUser
	carts    []domain.SilverCart
	items    []domain.SilverCartItem
}

func (f *fakeSilverStore) UpsertSilverProducts(_ context.Context, products []domain.SilverProduct) (int, error) {
	f.products = products
	return len(products), nil
}

func (f *fakeSilverStore) UpsertSilverUsers(_ context.Context, users []domain.SilverUser) (int, error) {
	f.users = users
	return len(users), nil
}

func (f *fakeSilverStore) UpsertSilverCarts(_ context.Context, carts []domain.SilverCart) (int, error) {
	f.carts = carts
	return len(carts), nil
}

func (f *fakeSilverStore) UpsertSilverCartItems(_ context.Context, items []domain.SilverCartItem) (int, error) {
	f.items = items
	return len(items), nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTransformer(records map[domain.Collection][]domain.RawRecord) (*Transformer, *fakeSilverStore) {
	silver := &fakeSilverStore{}
	return NewTransformer(&fakeRawStore{records: records}, silver, testLogger()), silver
}

func rawRecord(id int64, payload string) domain.RawRecord {
	return domain.RawRecord{NaturalID: id, Payload: json.RawMessage(payload)}
}

func TestPriceBucket(t *testing.T) {
	cases := []struct {
		price  string
		bucket string
	}{
		{"0", domain.PriceBucketLow},
		{"49.99", domain.PriceBucketLow},
		{"50", domain.PriceBucketMid},
		{"75.5", domain.PriceBucketMid},
		{"150", domain.PriceBucketMid},
		{"150.01", domain.PriceBucketHigh},
		{"999", domain.PriceBucketHigh},
	}
	for _, tc := range cases {
		t.Run(tc.price, func(t *testing.T) {
			assert.Equal(t, tc.bucket, PriceBucket(decimal.RequireFromString(tc.price)))
		})
	}
}

func TestParseCartDate(t *testing.T) {
	date, err := ParseCartDate("2024-03-05T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), date)

	// Timezone-qualified timestamps truncate to the UTC calendar date.
	date, err = ParseCartDate("2024-03-05T23:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), date)

	_, err = ParseCartDate("not-a-date")
	require.Error(t, err)
}

// Source feeds sometimes quote numeric fields as strings; the transform must
// accept both forms and still land exact decimals.
func TestTransformProducts_StringNumerics(t *testing.T) {
	transformer, silver := newTransformer(map[domain.Collection][]domain.RawRecord{
		domain.CollectionProducts: {
			rawRecord(1, `{"id":1,"price":"75.5","rating":{"rate":"4.2","count":"-3"}}`),
		},
	})

	count, err := transformer.TransformProducts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, silver.products, 1)
	p := silver.products[0]
	assert.Equal(t, int64(1), p.ProductID)
	assert.Equal(t, "", p.Title)
	assert.Equal(t, "", p.Category)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("75.5")))
	assert.True(t, p.RatingRate.Equal(decimal.RequireFromString("4.2")))
	assert.Equal(t, int64(0), p.RatingCount, "negative rating_count clamps to zero")
	assert.Equal(t, domain.PriceBucketMid, p.PriceBucket)
}

func TestTransformProducts_Normalization(t *testing.T) {
	transformer, silver := newTransformer(map[domain.Collection][]domain.RawRecord{
		domain.CollectionProducts: {
			rawRecord(1, `{"id":1,"title":"  Fjallraven Backpack  ","category":"Men's Clothing","price":109.95,"rating":{"rate":3.9,"count":120}}`),
			rawRecord(2, `{"id":2,"title":"Broken","category":"junk","price":-5}`),
		},
	})

	count, err := transformer.TransformProducts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count, "negative-price product is dropped, never stored")
	p := silver.products[0]
	assert.Equal(t, "Fjallraven Backpack", p.Title)
	assert.Equal(t, "men's clothing", p.Category)
	assert.Equal(t, int64(120), p.RatingCount)
}

func TestTransformProducts_ZeroSurvivorsIsFatal(t *testing.T) {
	cases := map[string][]domain.RawRecord{
		"empty raw table": nil,
		"all rows invalid": {
			rawRecord(1, `{"id":1,"price":-1}`),
		},
	}
	for name, records := range cases {
		t.Run(name, func(t *testing.T) {
			transformer, _ := newTransformer(map[domain.Collection][]domain.RawRecord{
				domain.CollectionProducts: records,
			})

			_, err := transformer.TransformProducts(context.Background())

			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}

func TestTransformUsers_DefensiveNestedExtraction(t *testing.T) {
	transformer, silver := newTransformer(map[domain.Collection][]domain.RawRecord{
		domain.CollectionUsers: {
			rawRecord(7, `{"id":7,"email":" A@B.com ","username":"bob"}`),
			rawRecord(8, `{"id":8,"email":"c@d.com","username":"alice","name":{"firstname":"Alice","lastname":"Smith"},"address":{"city":"Oslo"}}`),
		},
	})

	count, err := transformer.TransformUsers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, silver.users, 2)

	bob := silver.users[0]
	assert.Equal(t, int64(7), bob.UserID)
	assert.Equal(t, "a@b.com", bob.Email, "email is trimmed and lowercased")
	assert.Equal(t, "bob", bob.Username)
	assert.Equal(t, "", bob.FirstName, "absent nested object means empty string, never null")
	assert.Equal(t, "", bob.LastName)
	assert.Equal(t, "", bob.City)

	alice := silver.users[1]
	assert.Equal(t, "Alice", alice.FirstName)
	assert.Equal(t, "Smith", alice.LastName)
	assert.Equal(t, "Oslo", alice.City)
}

func TestTransformCarts(t *testing.T) {
	transformer, silver := newTransformer(map[domain.Collection][]domain.RawRecord{
		domain.CollectionCarts: {
			rawRecord(9, `{"id":9,"userId":7,"date":"2024-03-05T00:00:00Z","products":[{"productId":1,"quantity":2},{"productId":2,"quantity":0},{"quantity":5}]}`),
			rawRecord(10, `{"id":10,"userId":7,"date":"garbage","products":[{"productId":1,"quantity":4}]}`),
			rawRecord(11, `{"id":11,"date":"2024-03-06T00:00:00Z","products":[{"productId":1,"quantity":1}]}`),
		},
	})

	count, err := transformer.TransformCarts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count, "unparseable-date and missing-user carts are dropped")
	require.Len(t, silver.carts, 1)
	cart := silver.carts[0]
	assert.Equal(t, int64(9), cart.CartID)
	assert.Equal(t, int64(7), cart.UserID)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), cart.CartDate)

	// Items from dropped carts must not appear; neither do zero-quantity or
	// product-less lines from the surviving cart.
	require.Len(t, silver.items, 1)
	assert.Equal(t, domain.SilverCartItem{CartID: 9, ProductID: 1, Quantity: 2}, silver.items[0])
}

func TestTransformCarts_ZeroSurvivorsIsFatal(t *testing.T) {
	transformer, _ := newTransformer(map[domain.Collection][]domain.RawRecord{
		domain.CollectionCarts: {
			rawRecord(10, `{"id":10,"userId":7,"date":"garbage"}`),
		},
	})

	_, err := transformer.TransformCarts(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
