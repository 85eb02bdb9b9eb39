package silver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"catalog-etl-service/internal/domain"
	"catalog-etl-service/internal/store"
)

// Price bucket boundaries. 50 and 150 are themselves "mid".
var (
	bucketLowBelow = decimal.NewFromInt(50)
	bucketMidUpTo  = decimal.NewFromInt(150)
)

// Transformer reads raw payloads, applies normalization, validation and
// derived-attribute rules, and rewrites the typed silver tables. Silver is
// the only layer where domain validation happens: bronze is schema-free
// intake, gold assumes clean input.
type Transformer struct {
	raw    store.RawStorer
	silver store.SilverStorer
	logger *log.Logger
}

func NewTransformer(raw store.RawStorer, silver store.SilverStorer, logger *log.Logger) *Transformer {
	return &Transformer{raw: raw, silver: silver, logger: logger}
}

// TransformProducts cleans raw product payloads into silver.products.
// Rows with a negative price are dropped; a negative rating count is clamped
// to zero; price_bucket is derived from the price.
func (t *Transformer) TransformProducts(ctx context.Context) (int, error) {
	records, err := t.raw.ListRawRecords(ctx, domain.CollectionProducts)
	if err != nil {
		return 0, fmt.Errorf("silver: transform products: %w", err)
	}

	products := make([]domain.SilverProduct, 0, len(records))
	for _, rec := range records {
		var payload domain.ProductPayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			t.logger.Printf("WARN: silver: skipping malformed product payload %d: %v", rec.NaturalID, err)
			continue
		}

		price := domain.NumericOr(payload.Price, decimal.Zero)
		if price.IsNegative() {
			continue
		}

		ratingRate := decimal.Zero
		ratingCount := int64(0)
		if payload.Rating != nil {
			ratingRate = domain.NumericOr(payload.Rating.Rate, decimal.Zero)
			ratingCount = domain.NumericOr(payload.Rating.Count, decimal.Zero).IntPart()
		}
		if ratingCount < 0 {
			ratingCount = 0
		}

		products = append(products, domain.SilverProduct{
			ProductID:   rec.NaturalID,
			Title:       strings.TrimSpace(domain.StringOr(payload.Title, "")),
			Category:    strings.ToLower(strings.TrimSpace(domain.StringOr(payload.Category, ""))),
			Price:       price,
			RatingRate:  ratingRate,
			RatingCount: ratingCount,
			PriceBucket: PriceBucket(price),
		})
	}

	if len(products) == 0 {
		return 0, zeroSurvivors("product", len(records))
	}

	count, err := t.silver.UpsertSilverProducts(ctx, products)
	if err != nil {
		return 0, fmt.Errorf("silver: transform products: %w", err)
	}
	t.logger.Printf("INFO: silver: transformed %d of %d product records", count, len(records))
	return count, nil
}

// TransformUsers cleans raw user payloads into silver.users. Nested name and
// address objects may be absent; their fields default to empty strings.
func (t *Transformer) TransformUsers(ctx context.Context) (int, error) {
	records, err := t.raw.ListRawRecords(ctx, domain.CollectionUsers)
	if err != nil {
		return 0, fmt.Errorf("silver: transform users: %w", err)
	}

	users := make([]domain.SilverUser, 0, len(records))
	for _, rec := range records {
		var payload domain.UserPayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			t.logger.Printf("WARN: silver: skipping malformed user payload %d: %v", rec.NaturalID, err)
			continue
		}

		user := domain.SilverUser{
			UserID:   rec.NaturalID,
			Email:    strings.ToLower(strings.TrimSpace(domain.StringOr(payload.Email, ""))),
			Username: strings.TrimSpace(domain.StringOr(payload.Username, "")),
		}
		if payload.Name != nil {
			user.FirstName = strings.TrimSpace(domain.StringOr(payload.Name.Firstname, ""))
			user.LastName = strings.TrimSpace(domain.StringOr(payload.Name.Lastname, ""))
		}
		if payload.Address != nil {
			user.City = strings.TrimSpace(domain.StringOr(payload.Address.City, ""))
		}
		users = append(users, user)
	}

	if len(users) == 0 {
		return 0, zeroSurvivors("user", len(records))
	}

	count, err := t.silver.UpsertSilverUsers(ctx, users)
	if err != nil {
		return 0, fmt.Errorf("silver: transform users: %w", err)
	}
	t.logger.Printf("INFO: silver: transformed %d of %d user records", count, len(records))
	return count, nil
}

// TransformCarts cleans raw cart payloads into silver.carts and
// silver.cart_items. A cart without a user reference or with an unparseable
// date is dropped entirely, items included. Items need a product reference
// and a positive quantity.
func (t *Transformer) TransformCarts(ctx context.Context) (int, error) {
	records, err := t.raw.ListRawRecords(ctx, domain.CollectionCarts)
	if err != nil {
		return 0, fmt.Errorf("silver: transform carts: %w", err)
	}

	carts := make([]domain.SilverCart, 0, len(records))
	var items []domain.SilverCartItem
	for _, rec := range records {
		var payload domain.CartPayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			t.logger.Printf("WARN: silver: skipping malformed cart payload %d: %v", rec.NaturalID, err)
			continue
		}

		if payload.UserID == nil || *payload.UserID == 0 || payload.Date == nil {
			continue
		}
		cartDate, err := ParseCartDate(*payload.Date)
		if err != nil {
			continue
		}

		carts = append(carts, domain.SilverCart{
			CartID:   rec.NaturalID,
			UserID:   *payload.UserID,
			CartDate: cartDate,
		})

		for _, line := range payload.Products {
			if line.ProductID == nil || *line.ProductID == 0 {
				continue
			}
			quantity := domain.NumericOr(line.Quantity, decimal.Zero).IntPart()
			if quantity <= 0 {
				continue
			}
			items = append(items, domain.SilverCartItem{
				CartID:    rec.NaturalID,
				ProductID: *line.ProductID,
				Quantity:  quantity,
			})
		}
	}

	if len(carts) == 0 {
		return 0, zeroSurvivors("cart", len(records))
	}

	count, err := t.silver.UpsertSilverCarts(ctx, carts)
	if err != nil {
		return 0, fmt.Errorf("silver: transform carts: %w", err)
	}
	if _, err := t.silver.UpsertSilverCartItems(ctx, items); err != nil {
		return 0, fmt.Errorf("silver: transform cart items: %w", err)
	}
	t.logger.Printf("INFO: silver: transformed %d of %d cart records (%d items)", count, len(records), len(items))
	return count, nil
}

// PriceBucket derives the price band: low below 50, mid through 150, high
// above. A pure function of the price.
func PriceBucket(price decimal.Decimal) string {
	switch {
	case price.LessThan(bucketLowBelow):
		return domain.PriceBucketLow
	case price.LessThanOrEqual(bucketMidUpTo):
		return domain.PriceBucketMid
	default:
		return domain.PriceBucketHigh
	}
}

// ParseCartDate accepts a timezone-qualified ISO-8601 timestamp and truncates
// it to the calendar date in UTC.
func ParseCartDate(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("silver: unparseable cart date %q: %w", raw, err)
	}
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// zeroSurvivors builds the fatal validation error for a transform that ends
// with nothing to load. An empty raw table is treated the same way as a batch
// in which every row failed validation: a full run that finds nothing to
// transform means something upstream went wrong, and gold must not proceed.
// The message keeps the two cases distinguishable.
func zeroSurvivors(entity string, rawCount int) error {
	if rawCount == 0 {
		return fmt.Errorf("silver: no raw %s records to transform: %w", entity, domain.ErrValidation)
	}
	return fmt.Errorf("silver: none of %d raw %s records survived validation: %w", rawCount, entity, domain.ErrValidation)
}
