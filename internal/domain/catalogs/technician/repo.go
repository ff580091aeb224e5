package technician

import (
	"context"

	"taller/internal/domain"
)

type Repository interface {
	domain.CatalogRepository[*Technician]

	ListActive(ctx context.Context) ([]*Technician, error)
}
