// Package reports builds read-only stock reports for the workshop warehouses.
package reports

import (
	"time"

	"taller/internal/core/id"
	"taller/internal/core/types"
)

type StockBalanceFilter struct {
	// AsOf defaults to now.
	AsOf *time.Time

	WarehouseIDs []id.ID
	ProductIDs   []id.ID
	ExcludeZero  bool

	Limit  int
	Offset int
}

type StockBalanceRow struct {
	WarehouseID   id.ID          `db:"warehouse_id" json:"warehouseId"`
	WarehouseName string         `db:"warehouse_name" json:"warehouseName"`
	ProductID     id.ID          `db:"product_id" json:"productId"`
	ProductName   string         `db:"product_name" json:"productName"`
	ProductSKU    string         `db:"product_sku" json:"productSku"`
	Unit          string         `db:"unit" json:"unit"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	CostPrice     types.Money    `db:"cost_price" json:"costPrice"`
	TotalCost     types.Money    `db:"-" json:"totalCost"`
}

type StockBalanceReport struct {
	AsOf          time.Time         `json:"asOf"`
	Rows          []StockBalanceRow `json:"rows"`
	TotalRows     int               `json:"totalRows"`
	TotalQuantity types.Quantity    `json:"totalQuantity"`
	TotalCost     types.Money       `json:"totalCost"`
}

// StockTurnoverFilter selects a closed period; both dates are required.
type StockTurnoverFilter struct {
	From time.Time
	To   time.Time

	WarehouseIDs []id.ID
	ProductIDs   []id.ID
	IncludeZero  bool

	Limit  int
	Offset int
}

type StockTurnoverRow struct {
	WarehouseID   id.ID          `db:"warehouse_id" json:"warehouseId"`
	WarehouseName string         `db:"warehouse_name" json:"warehouseName"`
	ProductID     id.ID          `db:"product_id" json:"productId"`
	ProductName   string         `db:"product_name" json:"productName"`
	ProductSKU    string         `db:"product_sku" json:"productSku"`
	Opening       types.Quantity `db:"opening" json:"opening"`
	Receipt       types.Quantity `db:"receipt" json:"receipt"`
	Expense       types.Quantity `db:"expense" json:"expense"`
	Closing       types.Quantity `db:"closing" json:"closing"`
}

type StockTurnoverReport struct {
	From         time.Time          `json:"from"`
	To           time.Time          `json:"to"`
	Rows         []StockTurnoverRow `json:"rows"`
	TotalRows    int                `json:"totalRows"`
	TotalOpening types.Quantity     `json:"totalOpening"`
	TotalReceipt types.Quantity     `json:"totalReceipt"`
	TotalExpense types.Quantity     `json:"totalExpense"`
	TotalClosing types.Quantity     `json:"totalClosing"`
}
