package sale

import (
	"context"
	"fmt"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/numerator"
	"taller/internal/core/tenant"
	"taller/internal/core/tx"
	"taller/internal/core/types"
	"taller/internal/domain"
	"taller/internal/domain/audit"
	"taller/pkg/logger"
)

type Service struct {
	repo      Repository
	numerator numerator.Generator
	audit     audit.Recorder
	txManager tx.Manager
}

func NewService(repo Repository, gen numerator.Generator, rec audit.Recorder, txManager tx.Manager) *Service {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Service{repo: repo, numerator: gen, audit: rec, txManager: txManager}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	txm, err := tenant.GetTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm, nil
}

// CreateForWorkOrder numbers and stores the sale of a work order. It runs in
// the caller's transaction.
func (s *Service) CreateForWorkOrder(ctx context.Context, workOrderID id.ID, sale *Sale) error {
	sale.WorkOrderID = &workOrderID
	audit.StampCreated(ctx, &sale.BaseDocument)

	if sale.NeedsNumber() {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(numerator.PrefixSale), nil, sale.Date)
		if err != nil {
			return fmt.Errorf("generate sale number: %w", err)
		}
		sale.Number = number
	}
	if err := sale.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, sale); err != nil {
		return fmt.Errorf("create sale: %w", err)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.repo.GetByID(ctx, saleID)
}

func (s *Service) GetByWorkOrder(ctx context.Context, workOrderID id.ID) (*Sale, error) {
	return s.repo.GetByWorkOrder(ctx, workOrderID)
}

func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	return s.repo.List(ctx, filter)
}

// RegisterPayment records a customer payment against the sale.
func (s *Service) RegisterPayment(ctx context.Context, saleID id.ID, amount types.Money) (*Sale, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, err
	}

	var out *Sale
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if err := sale.RegisterPayment(amount); err != nil {
			return err
		}
		audit.StampUpdated(ctx, &sale.BaseDocument)
		if err := s.repo.Update(ctx, sale); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}
		out = sale
		return s.audit.LogChange(ctx, "sale", sale.ID, audit.ActionUpdate, map[string]any{
			"payment":        amount.String(),
			"paid_amount":    sale.PaidAmount.String(),
			"payment_status": sale.PaymentStatus,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale payment registered", "sale_id", saleID, "amount", amount.String(), "status", out.PaymentStatus)
	return out, nil
}
