package customer

import (
	"context"

	"taller/internal/core/apperror"
	"taller/internal/core/numerator"
	"taller/internal/domain"
)

const codePrefix = "CLI"

type Service struct {
	*domain.CatalogService[*Customer]
	repo Repository
}

func NewService(repo Repository, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Customer]{
		Repo:       repo,
		Numerator:  gen,
		EntityName: "customer",
	})

	svc := &Service{CatalogService: base, repo: repo}
	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkDocumentFree)
	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, c *Customer) error {
	if c.Code == "" {
		code, err := s.NextCode(ctx, codePrefix)
		if err != nil {
			return err
		}
		c.Code = code
	}
	return s.checkDocumentFree(ctx, c)
}

// checkDocumentFree keeps one customer per identification document.
func (s *Service) checkDocumentFree(ctx context.Context, c *Customer) error {
	if c.DocumentNumber == nil || *c.DocumentNumber == "" {
		return nil
	}
	existing, err := s.repo.GetByDocument(ctx, c.DocumentType, *c.DocumentNumber)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != c.ID {
		return apperror.NewDuplicate("customer", "documentNumber", *c.DocumentNumber)
	}
	return nil
}
