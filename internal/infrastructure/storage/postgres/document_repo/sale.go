package document_repo

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/domain"
	"taller/internal/domain/documents/sale"
	"taller/internal/infrastructure/storage/postgres"
)

type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
}

var _ sale.Repository = (*SaleRepo)(nil)

func NewSaleRepo() *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo("doc_sales", postgres.ExtractDBColumns[sale.Sale](), func() *sale.Sale {
			return &sale.Sale{}
		}),
	}
}

// Create maps the unique index on work_order_id to SALE_ALREADY_GENERATED.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	err := r.BaseDocumentRepo.Create(ctx, s)
	if err == nil {
		return nil
	}
	if c := uniqueViolation(err); c != "" && strings.Contains(c, "work_order") && s.WorkOrderID != nil {
		existing := ""
		if prev, getErr := r.GetByWorkOrder(ctx, *s.WorkOrderID); getErr == nil {
			existing = prev.ID.String()
		}
		return apperror.NewSaleAlreadyGenerated(s.WorkOrderID.String(), existing).WithCause(err)
	}
	return err
}

func (r *SaleRepo) GetByWorkOrder(ctx context.Context, workOrderID id.ID) (*sale.Sale, error) {
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{"work_order_id": workOrderID}), workOrderID.String())
}

func (r *SaleRepo) List(ctx context.Context, f sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	result := domain.ListResult[*sale.Sale]{Limit: f.Limit, Offset: f.Offset}

	q := r.Select()
	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where(squirrel.ILike{"number": "%" + s + "%"})
	}
	if f.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *f.CustomerID})
	}
	if f.PaymentStatus != nil {
		q = q.Where(squirrel.Eq{"payment_status": *f.PaymentStatus})
	}
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.Lt{"date": f.DateTo.AddDate(0, 0, 1)})
	}

	orderBy, err := r.ParseOrderBy(f.OrderBy, "", "date DESC")
	if err != nil {
		return result, err
	}
	items, total, err := r.Page(ctx, q, orderBy, f.Limit, f.Offset)
	if err != nil {
		return result, err
	}
	result.Items = items
	result.TotalCount = total
	return result, nil
}
