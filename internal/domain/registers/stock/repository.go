// Package stock is the stock accumulation register. Work orders write
// expense movements for the spare parts they consume.
package stock

import (
	"context"
	"time"

	"taller/internal/core/entity"
	"taller/internal/core/id"
)

type Repository interface {
	// CreateMovements inserts movements and applies them to the balance table.
	CreateMovements(ctx context.Context, movements []entity.StockMovement) error
	DeleteMovementsByRecorder(ctx context.Context, recorderID id.ID) error
	GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error)

	GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error)
	// GetBalanceForUpdate locks the balance row; a missing row reads as zero.
	GetBalanceForUpdate(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error)
	GetBalancesByWarehouse(ctx context.Context, warehouseID id.ID, filter BalanceFilter) ([]entity.StockBalance, error)
	GetBalancesByProduct(ctx context.Context, productID id.ID) ([]entity.StockBalance, error)

	GetMovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]entity.StockMovement, error)
}

type BalanceFilter struct {
	ProductIDs  []id.ID
	ExcludeZero bool
}

type MovementFilter struct {
	WarehouseID *id.ID
	RecordType  *entity.RecordType
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}
