package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Collection identifies one of the source API collections landed in the raw
// schema. The string value doubles as the API endpoint path segment.
type Collection string

const (
	CollectionProducts Collection = "products"
	CollectionUsers    Collection = "users"
	CollectionCarts    Collection = "carts"
)

// RawRecord is one landed source entity: the natural id plus the payload kept
// verbatim. Re-ingestion overwrites payload and timestamp; no history is kept.
type RawRecord struct {
	NaturalID  int64           `json:"natural_id"`
	Payload    json.RawMessage `json:"payload"`
	IngestedAt time.Time       `json:"ingested_at"`
}

// Price bucket labels derived in the silver product transform.
const (
	PriceBucketLow  = "low"
	PriceBucketMid  = "mid"
	PriceBucketHigh = "high"
)

// SilverProduct is a cleaned, typed product row. Prices and ratings are exact
// decimals so the bucket boundaries (50 and 150) never drift through floats.
type SilverProduct struct {
	ProductID   int64           `json:"product_id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	RatingRate  decimal.Decimal `json:"rating_rate"`
	RatingCount int64           `json:"rating_count"`
	PriceBucket string          `json:"price_bucket"`
}

// SilverUser is a cleaned user row. Missing nested source fields are stored
// as empty strings, never NULL.
type SilverUser struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	City      string `json:"city"`
}

// SilverCart is a cleaned cart header; CartDate is truncated to the calendar
// date in UTC.
type SilverCart struct {
	CartID   int64     `json:"cart_id"`
	UserID   int64     `json:"user_id"`
	CartDate time.Time `json:"cart_date"`
}

// SilverCartItem is one cart line. Uniqueness is (CartID, ProductID).
type SilverCartItem struct {
	CartID    int64 `json:"cart_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// DimUser projects a silver user into the gold user dimension. UserKey is the
// warehouse surrogate, assigned on first insert.
type DimUser struct {
	UserKey   int64  `json:"user_key"`
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	City      string `json:"city"`
}

// DimProduct projects a silver product into the gold product dimension.
type DimProduct struct {
	ProductKey int64           `json:"product_key"`
	ProductID  int64           `json:"product_id"`
	Title      string          `json:"title"`
	Category   string          `json:"category"`
	Price      decimal.Decimal `json:"price"`
}

// DimDate is one calendar date ever observed on a cart. Rows are immutable
// once inserted.
type DimDate struct {
	DateKey   time.Time `json:"date_key"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Day       int       `json:"day"`
	MonthName string    `json:"month_name"`
	Quarter   int       `json:"quarter"`
}

// FactSale is one fact row at the (user_key, product_key, date_key) grain.
// Re-loads update the measures but the original created_at is preserved.
type FactSale struct {
	UserKey     int64           `json:"user_key"`
	ProductKey  int64           `json:"product_key"`
	DateKey     time.Time       `json:"date_key"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// SaleRow is the silver-side join of carts, cart items and products feeding
// the fact load. UnitPrice is invalid when the item references a product that
// never made it into silver.products; the gold loader treats that the same as
// an unresolvable dimension key.
type SaleRow struct {
	UserID    int64               `json:"user_id"`
	ProductID int64               `json:"product_id"`
	CartDate  time.Time           `json:"cart_date"`
	Quantity  int64               `json:"quantity"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
}
