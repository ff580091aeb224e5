package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"taller/internal/domain/catalogs/technician"
	"taller/internal/infrastructure/storage/postgres"
)

type TechnicianRepo struct {
	*BaseCatalogRepo[*technician.Technician]
}

var _ technician.Repository = (*TechnicianRepo)(nil)

func NewTechnicianRepo() *TechnicianRepo {
	base := NewBaseCatalogRepo("cat_technicians", postgres.ExtractDBColumns[technician.Technician](), func() *technician.Technician {
		return &technician.Technician{}
	})
	return &TechnicianRepo{BaseCatalogRepo: base}
}

func (r *TechnicianRepo) ListActive(ctx context.Context) ([]*technician.Technician, error) {
	items, err := r.FindMany(ctx, r.Select().
		Where(squirrel.Eq{"is_active": true, "deletion_mark": false}).
		OrderBy("name"))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*technician.Technician{}
	}
	return items, nil
}
