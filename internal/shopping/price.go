package shopping

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is an approximate amount in the store's currency.
//
// It decodes from a JSON number or a numeric string. Any other value decodes
// without error into an invalid price, which counts as zero in every sum.
// Amounts beyond MaxPrice in magnitude, or with more than maxPriceScale
// digits of exponent either way, are invalid too.
type Price struct {
	amount decimal.Decimal
	valid  bool
}

// MaxPrice bounds the magnitude of a valid price.
const MaxPrice = 1_000_000_000

const maxPriceScale = 12

var maxPrice = decimal.NewFromInt(MaxPrice)

// NewPrice returns the price for v rounded to maxPriceScale places.
// Non-finite or out of range values yield an invalid price.
func NewPrice(v float64) Price {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > MaxPrice {
		return Price{}
	}
	return priceOf(decimal.NewFromFloat(v).Round(maxPriceScale))
}

// ParsePrice parses a decimal string such as "1.29". Unparsable or out of
// range input yields an invalid price.
func ParsePrice(s string) Price {
	s = strings.TrimSpace(s)
	if len(s) > maxPriceText {
		return Price{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}
	}
	return priceOf(d)
}

// maxPriceText caps the text handed to the decimal parser.
const maxPriceText = 64

func priceOf(d decimal.Decimal) Price {
	if exp := d.Exponent(); exp < -maxPriceScale || exp > maxPriceScale {
		return Price{}
	}
	if d.Abs().GreaterThan(maxPrice) {
		return Price{}
	}
	return Price{amount: d, valid: true}
}

// Valid reports whether the price carried a parsable amount.
func (p Price) Valid() bool { return p.valid }

// Decimal returns the amount, zero for an invalid price.
func (p Price) Decimal() decimal.Decimal {
	if !p.valid {
		return decimal.Zero
	}
	return p.amount
}

// Float64 returns the amount, zero for an invalid price.
func (p Price) Float64() float64 {
	f, _ := p.Decimal().Float64()
	return f
}

// String formats the amount with two decimals, "0.00" for an invalid price.
func (p Price) String() string {
	return p.Decimal().StringFixed(2)
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*p = Price{}
			return nil
		}
		*p = ParsePrice(s)
		return nil
	}
	*p = ParsePrice(string(data))
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.valid {
		return []byte("null"), nil
	}
	return []byte(p.amount.String()), nil
}
