package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"taller/internal/core/id"
	"taller/internal/domain/catalogs/product"
	"taller/internal/infrastructure/storage/postgres"
)

type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

var _ product.Repository = (*ProductRepo)(nil)

func NewProductRepo() *ProductRepo {
	base := NewBaseCatalogRepo("cat_products", postgres.ExtractDBColumns[product.Product](), func() *product.Product {
		return &product.Product{}
	}).WithSearch("code", "name", "sku", "barcode")
	return &ProductRepo{BaseCatalogRepo: base}
}

func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{"sku": sku, "deletion_mark": false}), sku)
}

func (r *ProductRepo) GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*product.Product, error) {
	out := make(map[id.ID]*product.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := r.FindMany(ctx, r.Select().Where(squirrel.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}
