// Package technician provides the technician catalog. A technician carries
// the default commission percentage used by settlements.
package technician

import (
	"context"

	"github.com/shopspring/decimal"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
)

var hundred = decimal.NewFromInt(100)

type Technician struct {
	entity.Catalog

	DocumentNumber *string `db:"document_number" json:"documentNumber,omitempty"`
	Phone          *string `db:"phone" json:"phone,omitempty"`
	Specialty      *string `db:"specialty" json:"specialty,omitempty"`
	// CommissionPercentage applies to labor totals, 0..100.
	CommissionPercentage decimal.Decimal `db:"commission_percentage" json:"commissionPercentage"`
	IsActive             bool            `db:"is_active" json:"isActive"`
}

func NewTechnician(code, name string, pct decimal.Decimal) *Technician {
	return &Technician{
		Catalog:              entity.NewCatalog(code, name),
		CommissionPercentage: pct,
		IsActive:             true,
	}
}

func (t *Technician) Validate(ctx context.Context) error {
	if err := t.Catalog.Validate(ctx); err != nil {
		return err
	}
	return ValidatePercentage(t.CommissionPercentage)
}

// ValidatePercentage accepts 0..100 inclusive.
func ValidatePercentage(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return apperror.NewValidation("commission percentage must be between 0 and 100").
			WithDetail("field", "commissionPercentage").
			WithDetail("value", p.String())
	}
	return nil
}
