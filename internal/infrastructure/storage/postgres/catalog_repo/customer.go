package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"taller/internal/domain/catalogs/customer"
	"taller/internal/infrastructure/storage/postgres"
)

type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

var _ customer.Repository = (*CustomerRepo)(nil)

func NewCustomerRepo() *CustomerRepo {
	base := NewBaseCatalogRepo("cat_customers", postgres.ExtractDBColumns[customer.Customer](), func() *customer.Customer {
		return &customer.Customer{}
	}).WithSearch("code", "name", "document_number", "phone")
	return &CustomerRepo{BaseCatalogRepo: base}
}

func (r *CustomerRepo) GetByDocument(ctx context.Context, docType customer.DocumentType, number string) (*customer.Customer, error) {
	q := r.Select().Where(squirrel.Eq{
		"document_type":   docType,
		"document_number": number,
		"deletion_mark":   false,
	})
	return r.FindOne(ctx, q, string(docType)+" "+number)
}
