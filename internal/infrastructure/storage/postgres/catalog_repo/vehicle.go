package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"taller/internal/core/id"
	"taller/internal/domain/catalogs/vehicle"
	"taller/internal/infrastructure/storage/postgres"
)

const vehicleTable = "cat_vehicles"

type VehicleRepo struct {
	*BaseCatalogRepo[*vehicle.Vehicle]
}

var _ vehicle.Repository = (*VehicleRepo)(nil)

func NewVehicleRepo() *VehicleRepo {
	base := NewBaseCatalogRepo(vehicleTable, postgres.ExtractDBColumns[vehicle.Vehicle](), func() *vehicle.Vehicle {
		return &vehicle.Vehicle{}
	}).WithSearch("code", "name", "vin")
	return &VehicleRepo{BaseCatalogRepo: base}
}

// GetByPlate matches the normalized plate stored in code.
func (r *VehicleRepo) GetByPlate(ctx context.Context, plate string) (*vehicle.Vehicle, error) {
	plate = vehicle.NormalizePlate(plate)
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{"code": plate, "deletion_mark": false}), plate)
}

// UpdateMileage never lowers the odometer. It does not bump the version:
// mileage comes from delivered orders, not from edits of the vehicle card.
func (r *VehicleRepo) UpdateMileage(ctx context.Context, vehicleID id.ID, km int64) (bool, error) {
	tag, err := postgres.QuerierFromContext(ctx).Exec(ctx, `
		UPDATE cat_vehicles
		SET current_mileage = $2
		WHERE id = $1 AND (current_mileage IS NULL OR current_mileage < $2)
	`, vehicleID, km)
	if err != nil {
		return false, fmt.Errorf("update vehicle mileage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
