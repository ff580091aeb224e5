package commission

import (
	"context"
	"time"

	"taller/internal/core/id"
	"taller/internal/domain"
)

type Repository interface {
	// Candidates lists entregado orders of the technician with settled_at
	// unset and delivered_at inside the range, with their labor totals.
	// With lock set the order rows stay locked until the transaction ends.
	Candidates(ctx context.Context, technicianID id.ID, r DateRange, lock bool) ([]Candidate, error)
	// Create inserts the settlement and its items.
	Create(ctx context.Context, s *Settlement) error
	// MarkSettled stamps settled_at on still unsettled orders and returns the
	// number of rows changed.
	MarkSettled(ctx context.Context, orderIDs []id.ID, at time.Time) (int64, error)

	GetByID(ctx context.Context, settlementID id.ID) (*Settlement, error)
	GetItems(ctx context.Context, settlementID id.ID) ([]Item, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Settlement], error)
	// PendingByTechnician aggregates delivered, unsettled labor per technician.
	PendingByTechnician(ctx context.Context) (map[id.ID]Pending, error)
}

type ListFilter struct {
	domain.ListFilter

	TechnicianID *id.ID
	DateFrom     *time.Time
	DateTo       *time.Time
}
