package technician

import (
	"context"

	"taller/internal/core/numerator"
	"taller/internal/domain"
)

const codePrefix = "TEC"

type Service struct {
	*domain.CatalogService[*Technician]
	repo Repository
}

func NewService(repo Repository, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Technician]{
		Repo:       repo,
		Numerator:  gen,
		EntityName: "technician",
	})

	svc := &Service{CatalogService: base, repo: repo}
	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, t *Technician) error {
	if t.Code != "" {
		return nil
	}
	code, err := s.NextCode(ctx, codePrefix)
	if err != nil {
		return err
	}
	t.Code = code
	return nil
}

func (s *Service) ListActive(ctx context.Context) ([]*Technician, error) {
	return s.repo.ListActive(ctx)
}
