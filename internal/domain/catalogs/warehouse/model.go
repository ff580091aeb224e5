// Package warehouse provides the warehouse catalog. Spare parts used by
// work orders are written off from the order's warehouse.
package warehouse

import (
	"context"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
)

type WarehouseType string

const (
	TypeMain    WarehouseType = "main"
	TypeShop    WarehouseType = "shop" // parts shelf inside the workshop
	TypeTransit WarehouseType = "transit"
)

type Warehouse struct {
	entity.Catalog

	Type               WarehouseType `db:"type" json:"type"`
	Address            *string       `db:"address" json:"address,omitempty"`
	IsActive           bool          `db:"is_active" json:"isActive"`
	AllowNegativeStock bool          `db:"allow_negative_stock" json:"allowNegativeStock"`
	IsDefault          bool          `db:"is_default" json:"isDefault"`
	Description        *string       `db:"description" json:"description,omitempty"`
}

func NewWarehouse(code, name string, whType WarehouseType) *Warehouse {
	return &Warehouse{
		Catalog:  entity.NewCatalog(code, name),
		Type:     whType,
		IsActive: true,
	}
}

func (w *Warehouse) Validate(ctx context.Context) error {
	if err := w.Catalog.Validate(ctx); err != nil {
		return err
	}
	if !isValidWarehouseType(w.Type) {
		return apperror.NewValidation("invalid warehouse type").
			WithDetail("field", "type").
			WithDetail("value", string(w.Type))
	}
	return nil
}

// CanIssueStock reports whether stock may leave the warehouse, optionally below zero.
func (w *Warehouse) CanIssueStock(negativeAllowed bool) bool {
	return w.IsActive && (negativeAllowed || w.AllowNegativeStock)
}

func isValidWarehouseType(t WarehouseType) bool {
	switch t {
	case TypeMain, TypeShop, TypeTransit:
		return true
	}
	return false
}
