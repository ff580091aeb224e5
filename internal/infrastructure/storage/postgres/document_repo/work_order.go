package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"taller/internal/core/id"
	"taller/internal/domain"
	"taller/internal/domain/documents/work_order"
	"taller/internal/infrastructure/storage/postgres"
)

const (
	workOrdersTable     = "doc_work_orders"
	workOrderItemsTable = "doc_work_order_items"
)

var workOrderItemColumns = []string{
	"id", "work_order_id", "line_number", "product_id", "product_name",
	"item_type", "quantity", "unit_price", "total",
}

type WorkOrderRepo struct {
	*BaseDocumentRepo[*work_order.WorkOrder]
}

var _ work_order.Repository = (*WorkOrderRepo)(nil)

func NewWorkOrderRepo() *WorkOrderRepo {
	return &WorkOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(workOrdersTable, postgres.ExtractDBColumns[work_order.WorkOrder](), func() *work_order.WorkOrder {
			return &work_order.WorkOrder{}
		}),
	}
}

func (r *WorkOrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]work_order.Item, error) {
	sql, args, err := r.Builder().
		Select(workOrderItemColumns...).
		From(workOrderItemsTable).
		Where(squirrel.Eq{"work_order_id": orderID}).
		OrderBy("line_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	items := []work_order.Item{}
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get work order items: %w", err)
	}
	return items, nil
}

// SaveItems replaces the item rows in one batch. It must run inside the
// transaction that updates the order header.
func (r *WorkOrderRepo) SaveItems(ctx context.Context, orderID id.ID, items []work_order.Item) error {
	queries := make([]postgres.BatchQuery, 0, len(items)+1)
	queries = append(queries, postgres.BatchQuery{
		SQL:  "DELETE FROM " + workOrderItemsTable + " WHERE work_order_id = $1",
		Args: []any{orderID},
	})

	insert := "INSERT INTO " + workOrderItemsTable + " (" + strings.Join(workOrderItemColumns, ", ") + ") " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)"
	for _, it := range items {
		queries = append(queries, postgres.BatchQuery{
			SQL: insert,
			Args: []any{
				it.ID, orderID, it.LineNumber, it.ProductID, it.ProductName,
				it.ItemType, it.Quantity.Int64Scaled(), it.UnitPrice, it.Total,
			},
		})
	}
	if err := postgres.ExecBatch(ctx, queries); err != nil {
		return fmt.Errorf("save work order items: %w", err)
	}
	return nil
}

// List joins the vehicle so Search matches the plate as well as the number.
func (r *WorkOrderRepo) List(ctx context.Context, f work_order.ListFilter) (domain.ListResult[*work_order.WorkOrder], error) {
	result := domain.ListResult[*work_order.WorkOrder]{Limit: f.Limit, Offset: f.Offset}

	q := r.SelectAs("wo").Join("cat_vehicles v ON v.id = wo.vehicle_id")
	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"wo.deletion_mark": false})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + s + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"wo.number": pattern},
			squirrel.ILike{"v.code": pattern},
		})
	}
	if len(f.IDs) > 0 {
		q = q.Where(squirrel.Eq{"wo.id": f.IDs})
	}
	if len(f.Statuses) > 0 {
		q = q.Where(squirrel.Eq{"wo.status": f.Statuses})
	}
	if f.OnlyOpen {
		q = q.Where(squirrel.NotEq{"wo.status": []work_order.Status{work_order.StatusDelivered, work_order.StatusCancelled}})
	}
	if f.VehicleID != nil {
		q = q.Where(squirrel.Eq{"wo.vehicle_id": *f.VehicleID})
	}
	if f.TechnicianID != nil {
		q = q.Where(squirrel.Eq{"wo.technician_id": *f.TechnicianID})
	}
	if f.CustomerID != nil {
		q = q.Where(squirrel.Eq{"wo.customer_id": *f.CustomerID})
	}
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"wo.received_at": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.Lt{"wo.received_at": f.DateTo.AddDate(0, 0, 1)})
	}

	orderBy, err := r.ParseOrderBy(f.OrderBy, "wo", "wo.received_at DESC, wo.number DESC")
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
