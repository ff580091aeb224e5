package vehicle

import (
	"context"

	"taller/internal/core/id"
	"taller/internal/domain"
)

type Repository interface {
	domain.CatalogRepository[*Vehicle]

	GetByPlate(ctx context.Context, plate string) (*Vehicle, error)
	// UpdateMileage raises current_mileage only when km is greater.
	UpdateMileage(ctx context.Context, vehicleID id.ID, km int64) (bool, error)
}
