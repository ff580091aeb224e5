package entity

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Attributes is a JSONB object. Numbers are decoded as json.Number so
// decimal settings such as a tax rate keep their exact value.
type Attributes map[string]any

// Scan implements sql.Scanner.
func (a *Attributes) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}

	var source []byte
	switch v := src.(type) {
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return fmt.Errorf("unsupported type for Attributes: %T", src)
	}
	if len(source) == 0 {
		*a = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(source))
	dec.UseNumber()

	var result map[string]any
	if err := dec.Decode(&result); err != nil {
		return fmt.Errorf("decode attributes: %w", err)
	}
	*a = result
	return nil
}

// Value implements driver.Valuer.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a Attributes) Has(key string) bool {
	if a == nil {
		return false
	}
	_, ok := a[key]
	return ok
}

func (a Attributes) GetString(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// GetInt accepts json.Number, float64, int and numeric strings.
func (a Attributes) GetInt(key string) (int64, bool) {
	switch v := a[key].(type) {
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return 0, false
		}
		return d.IntPart(), true
	}
	return 0, false
}

// GetDecimal accepts json.Number, numeric strings and float64.
func (a Attributes) GetDecimal(key string) (decimal.Decimal, bool) {
	switch v := a[key].(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	}
	return decimal.Zero, false
}

// GetBool also understands the strings "true" and "false".
func (a Attributes) GetBool(key string) (bool, bool) {
	switch v := a[key].(type) {
	case bool:
		return v, true
	case string:
		switch v {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
