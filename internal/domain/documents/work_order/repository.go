package work_order

import (
	"context"
	"time"

	"taller/internal/core/id"
	"taller/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, wo *WorkOrder) error
	GetByID(ctx context.Context, orderID id.ID) (*WorkOrder, error)
	// GetForUpdate locks the order row until the transaction ends.
	GetForUpdate(ctx context.Context, orderID id.ID) (*WorkOrder, error)
	// Update is optimistic on Version and stores the new version back on wo.
	Update(ctx context.Context, wo *WorkOrder) error

	GetItems(ctx context.Context, orderID id.ID) ([]Item, error)
	// SaveItems replaces the item set of the order.
	SaveItems(ctx context.Context, orderID id.ID, items []Item) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*WorkOrder], error)
}

// ListFilter narrows the work order list. Search matches the order number
// and the vehicle plate.
type ListFilter struct {
	domain.ListFilter

	Statuses     []Status
	VehicleID    *id.ID
	TechnicianID *id.ID
	CustomerID   *id.ID
	DateFrom     *time.Time
	DateTo       *time.Time
	OnlyOpen     bool
}
