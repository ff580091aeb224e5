// Package product provides the product catalog: spare parts sold from stock
// and priced services.
package product

import (
	"context"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/types"
)

type Kind string

const (
	KindPart    Kind = "part"
	KindService Kind = "service"
)

type Product struct {
	entity.Catalog

	Kind    Kind    `db:"kind" json:"kind"`
	SKU     *string `db:"sku" json:"sku,omitempty"`
	Barcode *string `db:"barcode" json:"barcode,omitempty"`
	// Unit is a free label such as "und" or "gal".
	Unit       string      `db:"unit" json:"unit"`
	SalePrice  types.Money `db:"sale_price" json:"salePrice"`
	CostPrice  types.Money `db:"cost_price" json:"costPrice"`
	TrackStock bool        `db:"track_stock" json:"trackStock"`

	Description *string `db:"description" json:"description,omitempty"`
}

func NewProduct(code, name string, kind Kind) *Product {
	return &Product{
		Catalog:    entity.NewCatalog(code, name),
		Kind:       kind,
		Unit:       "und",
		TrackStock: kind == KindPart,
	}
}

func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}
	switch p.Kind {
	case KindPart:
	case KindService:
		if p.TrackStock {
			return apperror.NewValidation("services do not track stock").
				WithDetail("field", "trackStock")
		}
	default:
		return apperror.NewValidation("invalid product kind").
			WithDetail("field", "kind").
			WithDetail("value", string(p.Kind))
	}
	if p.SalePrice.IsNegative() || p.CostPrice.IsNegative() {
		return apperror.NewValidation("prices cannot be negative").
			WithDetail("field", "salePrice")
	}
	return nil
}

// Stocked reports whether selling the product moves the stock register.
func (p *Product) Stocked() bool {
	return p.Kind == KindPart && p.TrackStock
}
