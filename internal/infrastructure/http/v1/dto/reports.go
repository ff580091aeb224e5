package dto

import (
	"time"

	"taller/internal/domain/reports"
)

type StockBalanceQuery struct {
	AsOf         string   `form:"asOf" binding:"omitempty,datetime=2006-01-02"`
	WarehouseIDs []string `form:"warehouseId" binding:"omitempty,dive,uuid"`
	ProductIDs   []string `form:"productId" binding:"omitempty,dive,uuid"`
	ExcludeZero  *bool    `form:"excludeZero"`
	Limit        int      `form:"limit" binding:"omitempty,min=1"`
	Offset       int      `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter reads asOf as the end of that day; zero rows are hidden unless
// excludeZero=false.
func (q *StockBalanceQuery) ToFilter() reports.StockBalanceFilter {
	f := reports.StockBalanceFilter{
		ExcludeZero: q.ExcludeZero == nil || *q.ExcludeZero,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if day, _ := ParseDate(q.AsOf, "asOf"); day != nil {
		end := day.Add(24*time.Hour - time.Nanosecond)
		f.AsOf = &end
	}
	f.WarehouseIDs, _ = ParseIDs(q.WarehouseIDs, "warehouseId")
	f.ProductIDs, _ = ParseIDs(q.ProductIDs, "productId")
	return f
}

type StockTurnoverQuery struct {
	From         string   `form:"from" binding:"required,datetime=2006-01-02"`
	To           string   `form:"to" binding:"required,datetime=2006-01-02"`
	WarehouseIDs []string `form:"warehouseId" binding:"omitempty,dive,uuid"`
	ProductIDs   []string `form:"productId" binding:"omitempty,dive,uuid"`
	IncludeZero  bool     `form:"includeZero"`
	Limit        int      `form:"limit" binding:"omitempty,min=1"`
	Offset       int      `form:"offset" binding:"omitempty,min=0"`
}

func (q *StockTurnoverQuery) ToFilter() reports.StockTurnoverFilter {
	f := reports.StockTurnoverFilter{
		IncludeZero: q.IncludeZero,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if from, _ := ParseDate(q.From, "from"); from != nil {
		f.From = *from
	}
	if to, _ := ParseDate(q.To, "to"); to != nil {
		f.To = *to
	}
	f.WarehouseIDs, _ = ParseIDs(q.WarehouseIDs, "warehouseId")
	f.ProductIDs, _ = ParseIDs(q.ProductIDs, "productId")
	return f
}
