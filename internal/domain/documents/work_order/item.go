package work_order

import (
	"strings"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/types"
)

// ItemType classifies a line. Only labor counts toward commission.
type ItemType string

const (
	ItemPart    ItemType = "repuesto"
	ItemService ItemType = "servicio"
	ItemLabor   ItemType = "mano_obra"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemPart, ItemService, ItemLabor:
		return true
	}
	return false
}

type Item struct {
	ID          id.ID          `db:"id" json:"id"`
	WorkOrderID id.ID          `db:"work_order_id" json:"workOrderId"`
	LineNumber  int            `db:"line_number" json:"lineNumber"`
	ProductID   *id.ID         `db:"product_id" json:"productId,omitempty"`
	ProductName string         `db:"product_name" json:"productName"`
	ItemType    ItemType       `db:"item_type" json:"itemType"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice   types.Money    `db:"unit_price" json:"unitPrice"`
	Total       types.Money    `db:"total" json:"total"`
}

// ItemInput is what a caller supplies to add a line. UnitPrice is a pointer
// so that a missing price is distinguishable from zero.
type ItemInput struct {
	ProductID   *id.ID
	ProductName string
	ItemType    ItemType
	Quantity    types.Quantity
	UnitPrice   *types.Money
}

// Validate checks the input before the product name is resolved.
func (in ItemInput) Validate() error {
	if !in.ItemType.Valid() {
		return apperror.NewValidation("invalid item type").
			WithDetail("field", "itemType").
			WithDetail("value", string(in.ItemType))
	}
	if !in.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be greater than zero").
			WithDetail("field", "quantity")
	}
	if in.UnitPrice == nil {
		return apperror.NewValidation("unit price is required").
			WithDetail("field", "unitPrice")
	}
	if in.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}
	if strings.TrimSpace(in.ProductName) == "" && in.ProductID == nil {
		return apperror.NewValidation("product or description is required").
			WithDetail("field", "productName")
	}
	return nil
}

func (in ItemInput) toItem(orderID id.ID, line int, scale int32) Item {
	it := Item{
		ID:          id.New(),
		WorkOrderID: orderID,
		LineNumber:  line,
		ProductID:   in.ProductID,
		ProductName: strings.TrimSpace(in.ProductName),
		ItemType:    in.ItemType,
		Quantity:    in.Quantity,
		UnitPrice:   *in.UnitPrice,
	}
	it.Recalculate(scale)
	return it
}

// Recalculate sets Total = Quantity × UnitPrice at the currency scale.
func (it *Item) Recalculate(scale int32) {
	it.Total = it.Quantity.MulMoney(it.UnitPrice, scale)
}

func (it Item) IsLabor() bool {
	return it.ItemType == ItemLabor
}
