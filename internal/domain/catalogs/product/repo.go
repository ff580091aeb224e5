package product

import (
	"context"

	"taller/internal/core/id"
	"taller/internal/domain"
)

type Repository interface {
	domain.CatalogRepository[*Product]

	GetBySKU(ctx context.Context, sku string) (*Product, error)
	// GetByIDs returns the found products keyed by id; missing ids are skipped.
	GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*Product, error)
}
