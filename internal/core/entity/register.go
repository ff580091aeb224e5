package entity

import (
	"time"

	"taller/internal/core/id"
	"taller/internal/core/types"
)

// RecordType is the direction of a register movement.
type RecordType string

const (
	RecordTypeReceipt RecordType = "receipt"
	RecordTypeExpense RecordType = "expense"
)

// MovementBase is shared by register movements. Movements are append-only;
// a recorder replaces its movements by deleting and re-inserting them.
type MovementBase struct {
	LineID id.ID `db:"line_id" json:"lineId"`

	// RecorderID is the document that produced the movement.
	RecorderID   id.ID  `db:"recorder_id" json:"recorderId"`
	RecorderType string `db:"recorder_type" json:"recorderType"`

	// RecorderVersion is the document version at write time.
	RecorderVersion int `db:"recorder_version" json:"recorderVersion"`

	Period     time.Time  `db:"period" json:"period"`
	RecordType RecordType `db:"record_type" json:"recordType"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

func NewMovementBase(recorderID id.ID, recorderType string, recorderVersion int, period time.Time, recordType RecordType) MovementBase {
	return MovementBase{
		LineID:          id.New(),
		RecorderID:      recorderID,
		RecorderType:    recorderType,
		RecorderVersion: recorderVersion,
		Period:          period,
		RecordType:      recordType,
		CreatedAt:       time.Now().UTC(),
	}
}

// StockMovement moves a product quantity in or out of a warehouse.
// Work orders write expense movements for the parts they consume.
type StockMovement struct {
	MovementBase

	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId"`
	ProductID   id.ID          `db:"product_id" json:"productId"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
}

func NewStockMovement(
	recorderID id.ID,
	recorderType string,
	recorderVersion int,
	period time.Time,
	recordType RecordType,
	warehouseID, productID id.ID,
	quantity types.Quantity,
) StockMovement {
	return StockMovement{
		MovementBase: NewMovementBase(recorderID, recorderType, recorderVersion, period, recordType),
		WarehouseID:  warehouseID,
		ProductID:    productID,
		Quantity:     quantity,
	}
}

// SignedQuantity is negative for expenses.
func (m *StockMovement) SignedQuantity() types.Quantity {
	if m.RecordType == RecordTypeExpense {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// StockBalance is the cached balance row per warehouse and product.
type StockBalance struct {
	WarehouseID    id.ID          `db:"warehouse_id" json:"warehouseId"`
	ProductID      id.ID          `db:"product_id" json:"productId"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	LastMovementAt time.Time      `db:"last_movement_at" json:"lastMovementAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}
