package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"taller/internal/domain/catalogs/warehouse"
	"taller/internal/infrastructure/storage/postgres"
)

type WarehouseRepo struct {
	*BaseCatalogRepo[*warehouse.Warehouse]
}

var _ warehouse.Repository = (*WarehouseRepo)(nil)

func NewWarehouseRepo() *WarehouseRepo {
	base := NewBaseCatalogRepo("cat_warehouses", postgres.ExtractDBColumns[warehouse.Warehouse](), func() *warehouse.Warehouse {
		return &warehouse.Warehouse{}
	})
	return &WarehouseRepo{BaseCatalogRepo: base}
}

func (r *WarehouseRepo) GetDefault(ctx context.Context) (*warehouse.Warehouse, error) {
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{"is_default": true, "deletion_mark": false}), "default")
}

// ClearDefault does not bump versions; the flag is owned by the service that
// moves it.
func (r *WarehouseRepo) ClearDefault(ctx context.Context) error {
	if _, err := postgres.QuerierFromContext(ctx).Exec(ctx,
		`UPDATE cat_warehouses SET is_default = false WHERE is_default`); err != nil {
		return fmt.Errorf("clear default warehouse: %w", err)
	}
	return nil
}
