package customer

import (
	"context"

	"taller/internal/domain"
)

type Repository interface {
	domain.CatalogRepository[*Customer]

	GetByDocument(ctx context.Context, docType DocumentType, number string) (*Customer, error)
}
