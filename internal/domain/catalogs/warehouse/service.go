package warehouse

import (
	"context"

	"taller/internal/core/numerator"
	"taller/internal/domain"
)

const codePrefix = "BOD"

type Service struct {
	*domain.CatalogService[*Warehouse]
	repo Repository
}

// NewService builds the warehouse service. The tx manager comes from the
// tenant context.
func NewService(repo Repository, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Warehouse]{
		Repo:       repo,
		Numerator:  gen,
		EntityName: "warehouse",
	})

	svc := &Service{CatalogService: base, repo: repo}
	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)
	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, wh *Warehouse) error {
	if wh.Code == "" {
		code, err := s.NextCode(ctx, codePrefix)
		if err != nil {
			return err
		}
		wh.Code = code
	}
	if wh.IsDefault {
		return s.repo.ClearDefault(ctx)
	}
	return nil
}

func (s *Service) prepareForUpdate(ctx context.Context, wh *Warehouse) error {
	if wh.IsDefault {
		return s.repo.ClearDefault(ctx)
	}
	return nil
}

// Default returns the default warehouse, NOT_FOUND when none is flagged.
func (s *Service) Default(ctx context.Context) (*Warehouse, error) {
	return s.repo.GetDefault(ctx)
}
