// Package filter describes ad-hoc list conditions sent by clients as
// ?filter=[{"field":"status","operator":"in","value":["listo","entregado"]}].
package filter

type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	LessOrEqual    ComparisonType = "lte"
	GreaterOrEqual ComparisonType = "gte"
	InList         ComparisonType = "in"
	NotInList      ComparisonType = "nin"
	// Contains is ILIKE %value%.
	Contains    ComparisonType = "contains"
	NotContains ComparisonType = "ncontains"
	IsNull      ComparisonType = "null"
	IsNotNull   ComparisonType = "not_null"
)

// Item is one condition. Field is a snake_case column name and is checked
// against the repository's column list before use.
type Item struct {
	Field    string         `json:"field"`
	Operator ComparisonType `json:"operator"`
	Value    any            `json:"value"`
}
