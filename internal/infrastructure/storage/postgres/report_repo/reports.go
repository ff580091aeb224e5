// Package report_repo computes the stock reports from reg_stock_movements.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"taller/internal/core/id"
	"taller/internal/domain/reports"
	"taller/internal/infrastructure/storage/postgres"
)

const signedQuantity = "CASE WHEN m.record_type = 'receipt' THEN m.quantity ELSE -m.quantity END"

type ReportRepo struct {
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

var _ reports.Repository = (*ReportRepo)(nil)

func NewReportRepo() *ReportRepo {
	return &ReportRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     time.Now,
	}
}

// StockBalance sums movements up to AsOf, so past dates are answered from the
// movement log rather than the cached balance table.
func (r *ReportRepo) StockBalance(ctx context.Context, f reports.StockBalanceFilter) ([]reports.StockBalanceRow, error) {
	asOf := r.now()
	if f.AsOf != nil {
		asOf = *f.AsOf
	}

	balances := squirrel.Select("m.warehouse_id", "m.product_id", "SUM("+signedQuantity+") AS quantity").
		From("reg_stock_movements m").
		Where(squirrel.LtOrEq{"m.period": asOf}).
		GroupBy("m.warehouse_id", "m.product_id")
	balances = scopeMovements(balances, f.WarehouseIDs, f.ProductIDs)
	if f.ExcludeZero {
		balances = balances.Having("SUM(" + signedQuantity + ") <> 0")
	}

	q := r.builder.Select(
		"b.warehouse_id", "w.name AS warehouse_name",
		"b.product_id", "p.name AS product_name", "COALESCE(p.sku, '') AS product_sku",
		"p.unit", "b.quantity", "p.cost_price",
	).
		FromSelect(balances, "b").
		Join("cat_warehouses w ON w.id = b.warehouse_id").
		Join("cat_products p ON p.id = b.product_id").
		OrderBy("w.name", "p.name")
	q = page(q, f.Limit, f.Offset)

	rows := []reports.StockBalanceRow{}
	if err := r.selectRows(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("stock balance report: %w", err)
	}
	return rows, nil
}

// StockTurnover reports opening, receipt, expense and closing quantities for
// the inclusive date range.
func (r *ReportRepo) StockTurnover(ctx context.Context, f reports.StockTurnoverFilter) ([]reports.StockTurnoverRow, error) {
	from := f.From
	to := f.To.AddDate(0, 0, 1)

	movements := squirrel.Select("m.warehouse_id", "m.product_id").
		Column(squirrel.Expr("COALESCE(SUM("+signedQuantity+") FILTER (WHERE m.period < ?), 0) AS opening", from)).
		Column(squirrel.Expr("COALESCE(SUM(m.quantity) FILTER (WHERE m.record_type = 'receipt' AND m.period >= ?), 0) AS receipt", from)).
		Column(squirrel.Expr("COALESCE(SUM(m.quantity) FILTER (WHERE m.record_type = 'expense' AND m.period >= ?), 0) AS expense", from)).
		From("reg_stock_movements m").
		Where(squirrel.Lt{"m.period": to}).
		GroupBy("m.warehouse_id", "m.product_id")
	movements = scopeMovements(movements, f.WarehouseIDs, f.ProductIDs)

	q := r.builder.Select(
		"t.warehouse_id", "w.name AS warehouse_name",
		"t.product_id", "p.name AS product_name", "COALESCE(p.sku, '') AS product_sku",
		"t.opening", "t.receipt", "t.expense",
		"t.opening + t.receipt - t.expense AS closing",
	).
		FromSelect(movements, "t").
		Join("cat_warehouses w ON w.id = t.warehouse_id").
		Join("cat_products p ON p.id = t.product_id").
		OrderBy("w.name", "p.name")
	if !f.IncludeZero {
		q = q.Where("(t.opening <> 0 OR t.receipt <> 0 OR t.expense <> 0)")
	}
	q = page(q, f.Limit, f.Offset)

	rows := []reports.StockTurnoverRow{}
	if err := r.selectRows(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("stock turnover report: %w", err)
	}
	return rows, nil
}

func scopeMovements(q squirrel.SelectBuilder, warehouseIDs, productIDs []id.ID) squirrel.SelectBuilder {
	if len(warehouseIDs) > 0 {
		q = q.Where(squirrel.Eq{"m.warehouse_id": warehouseIDs})
	}
	if len(productIDs) > 0 {
		q = q.Where(squirrel.Eq{"m.product_id": productIDs})
	}
	return q
}

func page(q squirrel.SelectBuilder, limit, offset int) squirrel.SelectBuilder {
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}

func (r *ReportRepo) selectRows(ctx context.Context, q squirrel.SelectBuilder, dst any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return pgxscan.Select(ctx, postgres.QuerierFromContext(ctx), dst, sql, args...)
}
