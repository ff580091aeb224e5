package warehouse

import (
	"context"

	"taller/internal/core/id"
	"taller/internal/domain"
)

type Repository interface {
	domain.CatalogRepository[*Warehouse]

	GetForUpdate(ctx context.Context, id id.ID) (*Warehouse, error)
	GetDefault(ctx context.Context) (*Warehouse, error)
	// ClearDefault drops the default flag from every warehouse.
	ClearDefault(ctx context.Context) error
}
