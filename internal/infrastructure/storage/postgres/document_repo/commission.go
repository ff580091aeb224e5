package document_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/domain"
	"taller/internal/domain/commission"
	"taller/internal/domain/documents/work_order"
	"taller/internal/infrastructure/storage/postgres"
)

const (
	settlementsTable     = "doc_commission_settlements"
	settlementItemsTable = "doc_commission_settlement_items"
)

var settlementItemColumns = []string{"id", "settlement_id", "work_order_id", "order_number", "labor_amount"}

type CommissionRepo struct {
	*BaseDocumentRepo[*commission.Settlement]
}

var _ commission.Repository = (*CommissionRepo)(nil)

func NewCommissionRepo() *CommissionRepo {
	return &CommissionRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(settlementsTable, postgres.ExtractDBColumns[commission.Settlement](), func() *commission.Settlement {
			return &commission.Settlement{}
		}),
	}
}

// eligibleOrders selects the ids of delivered, unsettled orders of the
// technician. Days are UTC calendar days whatever the session TimeZone. GROUP BY cannot carry FOR UPDATE, so the lock is taken here and
// the labor sum is computed over the locked ids.
func (r *CommissionRepo) eligibleOrders(technicianID id.ID, rng commission.DateRange, lock bool) squirrel.SelectBuilder {
	q := r.Builder().
		Select("wo.id").
		From(workOrdersTable + " wo").
		Where(squirrel.Eq{
			"wo.technician_id": technicianID,
			"wo.status":        work_order.StatusDelivered,
			"wo.deletion_mark": false,
		}).
		Where("wo.settled_at IS NULL").
		Where("(wo.delivered_at AT TIME ZONE 'UTC')::date BETWEEN ?::date AND ?::date",
			rng.From.UTC().Format(time.DateOnly), rng.To.UTC().Format(time.DateOnly))
	if lock {
		q = q.Suffix("FOR UPDATE OF wo")
	}
	return q
}

func (r *CommissionRepo) Candidates(ctx context.Context, technicianID id.ID, rng commission.DateRange, lock bool) ([]commission.Candidate, error) {
	eligible := r.eligibleOrders(technicianID, rng, lock)

	q := r.Builder().
		Select(
			"wo.id AS work_order_id",
			"wo.number AS order_number",
			"v.code AS vehicle_plate",
			"wo.delivered_at",
			"COALESCE(SUM(i.total) FILTER (WHERE i.item_type = '"+string(work_order.ItemLabor)+"'), 0) AS labor_amount",
		).
		From(workOrdersTable+" wo").
		Join("cat_vehicles v ON v.id = wo.vehicle_id").
		LeftJoin(workOrderItemsTable+" i ON i.work_order_id = wo.id").
		Where(squirrel.Expr("wo.id IN (?)", eligible)).
		GroupBy("wo.id", "wo.number", "v.code", "wo.delivered_at").
		OrderBy("wo.delivered_at", "wo.number")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidates query: %w", err)
	}
	out := []commission.Candidate{}
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select commission candidates: %w", err)
	}
	return out, nil
}

// Create writes the header and the items. The unique index on the item
// work_order_id rejects an order already paid by another settlement.
func (r *CommissionRepo) Create(ctx context.Context, s *commission.Settlement) error {
	if err := r.BaseDocumentRepo.Create(ctx, s); err != nil {
		return err
	}

	insert := "INSERT INTO " + settlementItemsTable + " (" + strings.Join(settlementItemColumns, ", ") + ") " +
		"VALUES ($1, $2, $3, $4, $5)"
	queries := make([]postgres.BatchQuery, 0, len(s.Items))
	for _, it := range s.Items {
		queries = append(queries, postgres.BatchQuery{
			SQL:  insert,
			Args: []any{it.ID, s.ID, it.WorkOrderID, it.OrderNumber, it.LaborAmount},
		})
	}
	if err := postgres.ExecBatch(ctx, queries); err != nil {
		if uniqueViolation(err) != "" {
			return apperror.NewConflict("work order already settled").WithCause(err)
		}
		return fmt.Errorf("insert settlement items: %w", err)
	}
	return nil
}

func (r *CommissionRepo) MarkSettled(ctx context.Context, orderIDs []id.ID, at time.Time) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	sql, args, err := r.Builder().
		Update(workOrdersTable).
		Set("settled_at", at).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": orderIDs}).
		Where("settled_at IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build mark settled: %w", err)
	}
	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("mark orders settled: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *CommissionRepo) GetItems(ctx context.Context, settlementID id.ID) ([]commission.Item, error) {
	sql, args, err := r.Builder().
		Select(settlementItemColumns...).
		From(settlementItemsTable).
		Where(squirrel.Eq{"settlement_id": settlementID}).
		OrderBy("order_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build settlement items query: %w", err)
	}
	items := []commission.Item{}
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get settlement items: %w", err)
	}
	return items, nil
}

func (r *CommissionRepo) List(ctx context.Context, f commission.ListFilter) (domain.ListResult[*commission.Settlement], error) {
	result := domain.ListResult[*commission.Settlement]{Limit: f.Limit, Offset: f.Offset}

	q := r.Select()
	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where(squirrel.ILike{"number": "%" + s + "%"})
	}
	if f.TechnicianID != nil {
		q = q.Where(squirrel.Eq{"technician_id": *f.TechnicianID})
	}
	// A settlement matches when its period overlaps the requested one.
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date_to": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date_from": *f.DateTo})
	}

	orderBy, err := r.ParseOrderBy(f.OrderBy, "", "date DESC, number DESC")
	if err != nil {
		return result, err
	}
	items, total, err := r.Page(ctx, q, orderBy, f.Limit, f.Offset)
	if err != nil {
		return result, err
	}
	result.Items = items
	result.TotalCount = total
	return result, nil
}

func (r *CommissionRepo) PendingByTechnician(ctx context.Context) (map[id.ID]commission.Pending, error) {
	sql, args, err := r.Builder().
		Select(
			"wo.technician_id",
			"COUNT(DISTINCT wo.id) AS orders",
			"COALESCE(SUM(i.total) FILTER (WHERE i.item_type = '"+string(work_order.ItemLabor)+"'), 0) AS labor",
		).
		From(workOrdersTable+" wo").
		LeftJoin(workOrderItemsTable+" i ON i.work_order_id = wo.id").
		Where(squirrel.Eq{"wo.status": work_order.StatusDelivered, "wo.deletion_mark": false}).
		Where("wo.settled_at IS NULL AND wo.technician_id IS NOT NULL").
		GroupBy("wo.technician_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}
	rows := []commission.Pending{}
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select pending labor: %w", err)
	}
	out := make(map[id.ID]commission.Pending, len(rows))
	for _, p := range rows {
		out[p.TechnicianID] = p
	}
	return out, nil
}
