// Package types holds the numeric value types used by money and quantity fields.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount in the tenant currency.
type Money = decimal.Decimal

// NewMoney builds Money from an integer amount of major units.
func NewMoney(v int64) Money {
	return decimal.NewFromInt(v)
}

func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney panics on malformed input. Constants and tests only.
func MustMoney(s string) Money {
	return decimal.RequireFromString(s)
}

func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds half away from zero to the given number of decimals.
// COP amounts use scale 0.
func RoundMoney(m Money, scale int32) Money {
	return m.Round(scale)
}

// Percent returns m × pct / 100 rounded to scale.
func Percent(m Money, pct decimal.Decimal, scale int32) Money {
	return RoundMoney(m.Mul(pct).Div(decimal.NewFromInt(100)), scale)
}

// Quantity is a fixed-point count with four decimals, stored as a scaled BIGINT.
// Labor hours such as 1.5 fit without floating point drift.
type Quantity int64

const QuantityScale int64 = 10_000

var quantityScaleDec = decimal.NewFromInt(QuantityScale)

// NewQuantity builds a whole-unit quantity.
func NewQuantity(units int64) Quantity {
	return Quantity(units * QuantityScale)
}

// NewQuantityFromDecimal rounds d to four decimals.
func NewQuantityFromDecimal(d decimal.Decimal) Quantity {
	return Quantity(d.Mul(quantityScaleDec).Round(0).IntPart())
}

func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return NewQuantityFromDecimal(d), nil
}

// MustQuantity is ParseQuantity for constants and fixtures; it panics on bad input.
func MustQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Int64Scaled() int64 { return int64(q) }

// Decimal returns the exact decimal value.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -4)
}

func (q Quantity) Float64() float64 { return q.Decimal().InexactFloat64() }

func (q Quantity) IsZero() bool { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) Neg() Quantity { return -q }

// String prints the value without trailing zeros ("2", "1.5").
func (q Quantity) String() string {
	return q.Decimal().String()
}

// MarshalJSON writes a JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. null decodes as zero.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}

	parsed, err := ParseQuantity(raw)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// MulMoney returns quantity × price rounded to scale.
func (q Quantity) MulMoney(price Money, scale int32) Money {
	return RoundMoney(q.Decimal().Mul(price), scale)
}
