package domain

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Source payloads are arbitrary nested documents. Each silver transform
// declares here exactly which paths it reads; every field is a pointer so an
// absent field decodes to nil and the transform applies its explicit default.

// Numeric decodes a JSON number that some source feeds quote as a string
// (e.g. "price": "75.5"). Null decodes as zero.
type Numeric struct {
	decimal.Decimal
}

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		n.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("domain: invalid numeric %q: %w", data, err)
	}
	n.Decimal = d
	return nil
}

// ProductPayload is the slice of a raw product document the silver transform
// reads: title, category, price and the nested rating object.
type ProductPayload struct {
	Title    *string  `json:"title"`
	Category *string  `json:"category"`
	Price    *Numeric `json:"price"`
	Rating   *struct {
		Rate  *Numeric `json:"rate"`
		Count *Numeric `json:"count"`
	} `json:"rating"`
}

// UserPayload reads email, username and the nested name/address objects.
// Either nested object may be absent entirely.
type UserPayload struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Name     *struct {
		Firstname *string `json:"firstname"`
		Lastname  *string `json:"lastname"`
	} `json:"name"`
	Address *struct {
		City *string `json:"city"`
	} `json:"address"`
}

// CartPayload reads the user reference, the ISO-8601 cart date and the line
// items array.
type CartPayload struct {
	UserID   *int64     `json:"userId"`
	Date     *string    `json:"date"`
	Products []CartLine `json:"products"`
}

// CartLine is one raw cart line item.
type CartLine struct {
	ProductID *int64   `json:"productId"`
	Quantity  *Numeric `json:"quantity"`
}

// StringOr returns the dereferenced value or def when the field was absent.
func StringOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// NumericOr returns the dereferenced decimal or def when the field was absent.
func NumericOr(n *Numeric, def decimal.Decimal) decimal.Decimal {
	if n == nil {
		return def
	}
	return n.Decimal
}
