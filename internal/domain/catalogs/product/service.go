package product

import (
	"context"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/numerator"
	"taller/internal/domain"
)

const codePrefix = "PRD"

type Service struct {
	*domain.CatalogService[*Product]
	repo Repository
}

func NewService(repo Repository, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		Numerator:  gen,
		EntityName: "product",
	})

	svc := &Service{CatalogService: base, repo: repo}
	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkSKUFree)
	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, p *Product) error {
	if p.Code == "" {
		code, err := s.NextCode(ctx, codePrefix)
		if err != nil {
			return err
		}
		p.Code = code
	}
	return s.checkSKUFree(ctx, p)
}

func (s *Service) checkSKUFree(ctx context.Context, p *Product) error {
	if p.SKU == nil || *p.SKU == "" {
		return nil
	}
	existing, err := s.repo.GetBySKU(ctx, *p.SKU)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != p.ID {
		return apperror.NewDuplicate("product", "sku", *p.SKU)
	}
	return nil
}

func (s *Service) GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*Product, error) {
	if len(ids) == 0 {
		return map[id.ID]*Product{}, nil
	}
	return s.repo.GetByIDs(ctx, ids)
}
