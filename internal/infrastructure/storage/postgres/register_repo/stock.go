// Package register_repo stores register movements and their cached balances.
package register_repo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/domain/registers/stock"
	"taller/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "reg_stock_movements"
	stockBalancesTable  = "reg_stock_balances"
)

var (
	movementColumns = []string{
		"line_id", "recorder_id", "recorder_type", "recorder_version",
		"period", "record_type",
		"warehouse_id", "product_id", "quantity", "created_at",
	}
	balanceColumns = []string{"warehouse_id", "product_id", "quantity", "last_movement_at", "updated_at"}
)

type StockRepo struct {
	builder squirrel.StatementBuilderType
}

var _ stock.Repository = (*StockRepo)(nil)

func NewStockRepo() *StockRepo {
	return &StockRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type balanceKey struct {
	warehouseID id.ID
	productID   id.ID
}

type balanceDelta struct {
	quantity int64
	lastAt   time.Time
}

// CreateMovements copies the movements and folds them into reg_stock_balances
// in the caller's transaction.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(movements))
	deltas := make(map[balanceKey]*balanceDelta)
	for i := range movements {
		m := &movements[i]
		rows = append(rows, []any{
			m.LineID, m.RecorderID, m.RecorderType, m.RecorderVersion,
			m.Period, string(m.RecordType),
			m.WarehouseID, m.ProductID, m.Quantity.Int64Scaled(), m.CreatedAt,
		})

		k := balanceKey{m.WarehouseID, m.ProductID}
		d, ok := deltas[k]
		if !ok {
			d = &balanceDelta{}
			deltas[k] = d
		}
		d.quantity += m.SignedQuantity().Int64Scaled()
		if m.Period.After(d.lastAt) {
			d.lastAt = m.Period
		}
	}

	if _, err := postgres.CopyRows(ctx, stockMovementsTable, movementColumns, rows); err != nil {
		return fmt.Errorf("copy movements: %w", err)
	}
	if err := postgres.ExecBatch(ctx, balanceUpserts(deltas)); err != nil {
		return fmt.Errorf("apply balances: %w", err)
	}
	return nil
}

// balanceUpserts orders the keys so concurrent writers lock rows in the same order.
func balanceUpserts(deltas map[balanceKey]*balanceDelta) []postgres.BatchQuery {
	keys := make([]balanceKey, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].warehouseID != keys[j].warehouseID {
			return keys[i].warehouseID.String() < keys[j].warehouseID.String()
		}
		return keys[i].productID.String() < keys[j].productID.String()
	})

	const upsert = `
		INSERT INTO reg_stock_balances (warehouse_id, product_id, quantity, last_movement_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (warehouse_id, product_id) DO UPDATE SET
			quantity = reg_stock_balances.quantity + EXCLUDED.quantity,
			last_movement_at = GREATEST(reg_stock_balances.last_movement_at, EXCLUDED.last_movement_at),
			updated_at = NOW()`

	out := make([]postgres.BatchQuery, 0, len(keys))
	for _, k := range keys {
		d := deltas[k]
		out = append(out, postgres.BatchQuery{
			SQL:  upsert,
			Args: []any{k.warehouseID, k.productID, d.quantity, d.lastAt},
		})
	}
	return out
}

// DeleteMovementsByRecorder removes the recorder's movements and takes them
// back out of the balances.
func (r *StockRepo) DeleteMovementsByRecorder(ctx context.Context, recorderID id.ID) error {
	const sql = `
		WITH removed AS (
			DELETE FROM reg_stock_movements
			WHERE recorder_id = $1
			RETURNING warehouse_id, product_id,
				CASE WHEN record_type = 'receipt' THEN quantity ELSE -quantity END AS delta
		), agg AS (
			SELECT warehouse_id, product_id, SUM(delta) AS delta
			FROM removed
			GROUP BY warehouse_id, product_id
		)
		UPDATE reg_stock_balances b
		SET quantity = b.quantity - agg.delta, updated_at = NOW()
		FROM agg
		WHERE b.warehouse_id = agg.warehouse_id AND b.product_id = agg.product_id`

	if _, err := postgres.QuerierFromContext(ctx).Exec(ctx, sql, recorderID); err != nil {
		return fmt.Errorf("delete movements: %w", err)
	}
	return nil
}

func (r *StockRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("created_at")
	return r.selectMovements(ctx, q)
}

func (r *StockRepo) GetMovementHistory(ctx context.Context, productID id.ID, f stock.MovementFilter) ([]entity.StockMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"product_id": productID})
	if f.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *f.WarehouseID})
	}
	if f.RecordType != nil {
		q = q.Where(squirrel.Eq{"record_type": string(*f.RecordType)})
	}
	if f.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"period": *f.FromDate})
	}
	if f.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"period": *f.ToDate})
	}
	q = q.OrderBy("period DESC", "created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return r.selectMovements(ctx, q)
}

func (r *StockRepo) selectMovements(ctx context.Context, q squirrel.SelectBuilder) ([]entity.StockMovement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	movements := []entity.StockMovement{}
	if err := pgxscan.Select(ctx, postgres.QuerierFromContext(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

func (r *StockRepo) GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	return r.getBalance(ctx, warehouseID, productID, "")
}

func (r *StockRepo) GetBalanceForUpdate(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	return r.getBalance(ctx, warehouseID, productID, "FOR UPDATE")
}

func (r *StockRepo) getBalance(ctx context.Context, warehouseID, productID id.ID, suffix string) (entity.StockBalance, error) {
	q := r.builder.Select(balanceColumns...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"warehouse_id": warehouseID, "product_id": productID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return entity.StockBalance{}, fmt.Errorf("build query: %w", err)
	}

	var balance entity.StockBalance
	if err := pgxscan.Get(ctx, postgres.QuerierFromContext(ctx), &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity.StockBalance{WarehouseID: warehouseID, ProductID: productID}, nil
		}
		return balance, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (r *StockRepo) GetBalancesByWarehouse(ctx context.Context, warehouseID id.ID, f stock.BalanceFilter) ([]entity.StockBalance, error) {
	q := r.builder.Select(balanceColumns...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"warehouse_id": warehouseID})
	if f.ExcludeZero {
		q = q.Where(squirrel.NotEq{"quantity": int64(0)})
	}
	if len(f.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"product_id": f.ProductIDs})
	}
	return r.selectBalances(ctx, q.OrderBy("product_id"))
}

func (r *StockRepo) GetBalancesByProduct(ctx context.Context, productID id.ID) ([]entity.StockBalance, error) {
	q := r.builder.Select(balanceColumns...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.NotEq{"quantity": int64(0)}).
		OrderBy("warehouse_id")
	return r.selectBalances(ctx, q)
}

func (r *StockRepo) selectBalances(ctx context.Context, q squirrel.SelectBuilder) ([]entity.StockBalance, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	balances := []entity.StockBalance{}
	if err := pgxscan.Select(ctx, postgres.QuerierFromContext(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}
