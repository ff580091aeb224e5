package sale

import (
	"context"
	"time"

	"taller/internal/core/id"
	"taller/internal/domain"
)

type Repository interface {
	// Create fails with SALE_ALREADY_GENERATED when the work order is
	// already linked to another sale.
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)
	GetByWorkOrder(ctx context.Context, workOrderID id.ID) (*Sale, error)
	Update(ctx context.Context, s *Sale) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}

type ListFilter struct {
	domain.ListFilter

	CustomerID    *id.ID
	PaymentStatus *PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}
