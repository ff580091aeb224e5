package vehicle

import (
	"context"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/domain"
	"taller/pkg/logger"
)

type Service struct {
	*domain.CatalogService[*Vehicle]
	repo Repository
}

func NewService(repo Repository) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Vehicle]{
		Repo:       repo,
		EntityName: "vehicle",
	})

	svc := &Service{CatalogService: base, repo: repo}
	base.Hooks().OnBeforeCreate(svc.checkPlateFree)
	base.Hooks().OnBeforeUpdate(svc.checkPlateFree)
	return svc
}

func (s *Service) checkPlateFree(ctx context.Context, v *Vehicle) error {
	existing, err := s.repo.GetByPlate(ctx, v.Code)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != v.ID {
		return apperror.NewDuplicate("vehicle", "plate", v.Code)
	}
	return nil
}

func (s *Service) GetByPlate(ctx context.Context, plate string) (*Vehicle, error) {
	v, err := s.repo.GetByPlate(ctx, NormalizePlate(plate))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("vehicle", NormalizePlate(plate))
		}
		return nil, err
	}
	return v, nil
}

// FindOrCreate returns the vehicle registered under the plate, creating it
// from the given template when the plate is new. Used by work order intake.
func (s *Service) FindOrCreate(ctx context.Context, v *Vehicle) (*Vehicle, bool, error) {
	v.Normalize()
	existing, err := s.repo.GetByPlate(ctx, v.Code)
	if err == nil {
		return existing, false, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, false, err
	}
	if err := s.Create(ctx, v); err != nil {
		return nil, false, err
	}
	logger.Info(ctx, "vehicle registered at intake", "vehicle_id", v.ID, "plate", v.Code)
	return v, true, nil
}

func (s *Service) RecordMileage(ctx context.Context, vehicleID id.ID, km int64) error {
	if km <= 0 {
		return nil
	}
	raised, err := s.repo.UpdateMileage(ctx, vehicleID, km)
	if err != nil {
		return err
	}
	if raised {
		logger.Debug(ctx, "vehicle mileage raised", "vehicle_id", vehicleID, "km", km)
	}
	return nil
}
