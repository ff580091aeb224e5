package dto

import (
	"taller/internal/core/entity"
	"taller/internal/domain/registers/stock"
)

type StockMovementQuery struct {
	WarehouseID string `form:"warehouseId" binding:"omitempty,uuid"`
	RecordType  string `form:"recordType" binding:"omitempty,oneof=receipt expense"`
	DateFrom    string `form:"dateFrom" binding:"omitempty,datetime=2006-01-02"`
	DateTo      string `form:"dateTo" binding:"omitempty,datetime=2006-01-02"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

func (q *StockMovementQuery) ToFilter() stock.MovementFilter {
	f := stock.MovementFilter{Limit: q.Limit, Offset: q.Offset}
	if f.Limit == 0 {
		f.Limit = 100
	}
	f.WarehouseID, _ = ParseOptionalID(&q.WarehouseID, "warehouseId")
	if q.RecordType != "" {
		rt := entity.RecordType(q.RecordType)
		f.RecordType = &rt
	}
	f.FromDate, _ = ParseDate(q.DateFrom, "dateFrom")
	f.ToDate, _ = ParseDate(q.DateTo, "dateTo")
	return f
}
