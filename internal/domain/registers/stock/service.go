package stock

import (
	"context"
	"fmt"
	"time"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/types"
	"taller/pkg/logger"
)

// Service writes and reads the stock register. Callers own the transaction.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Line is one product quantity leaving or entering a warehouse.
type Line struct {
	ProductID id.ID
	Quantity  types.Quantity
}

// Recorder identifies the document writing movements.
type Recorder struct {
	ID      id.ID
	Type    string
	Version int
	Period  time.Time
}

// WriteOff records expense movements. With enforce set, each balance is
// locked and checked first; lines of the same product are summed before the check.
func (s *Service) WriteOff(ctx context.Context, rec Recorder, warehouseID id.ID, lines []Line, enforce bool) error {
	if len(lines) == 0 {
		return nil
	}

	if enforce {
		required := make(map[id.ID]types.Quantity)
		var order []id.ID
		for _, l := range lines {
			if _, seen := required[l.ProductID]; !seen {
				order = append(order, l.ProductID)
			}
			required[l.ProductID] += l.Quantity
		}
		for _, productID := range order {
			balance, err := s.repo.GetBalanceForUpdate(ctx, warehouseID, productID)
			if err != nil {
				return fmt.Errorf("get balance for %s: %w", productID, err)
			}
			if balance.Quantity < required[productID] {
				return apperror.NewInsufficientStock(
					productID.String(),
					required[productID].String(),
					balance.Quantity.String(),
				)
			}
		}
	}

	return s.record(ctx, rec, entity.RecordTypeExpense, warehouseID, lines)
}

// Receive records receipt movements, e.g. an opening balance.
func (s *Service) Receive(ctx context.Context, rec Recorder, warehouseID id.ID, lines []Line) error {
	return s.record(ctx, rec, entity.RecordTypeReceipt, warehouseID, lines)
}

func (s *Service) record(ctx context.Context, rec Recorder, rt entity.RecordType, warehouseID id.ID, lines []Line) error {
	if id.IsNil(rec.ID) {
		return apperror.NewValidation("recorder_id is required")
	}
	movements := make([]entity.StockMovement, 0, len(lines))
	for i, l := range lines {
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("movement %d: quantity must be positive", i))
		}
		movements = append(movements, entity.NewStockMovement(
			rec.ID, rec.Type, rec.Version, rec.Period, rt, warehouseID, l.ProductID, l.Quantity,
		))
	}

	if err := s.repo.CreateMovements(ctx, movements); err != nil {
		return fmt.Errorf("create movements: %w", err)
	}

	logger.Info(ctx, "recorded stock movements",
		"count", len(movements),
		"record_type", rt,
		"recorder_id", rec.ID,
	)
	return nil
}

// Reverse removes every movement written by a recorder.
func (s *Service) Reverse(ctx context.Context, recorderID id.ID) error {
	if err := s.repo.DeleteMovementsByRecorder(ctx, recorderID); err != nil {
		return fmt.Errorf("delete movements: %w", err)
	}
	logger.Info(ctx, "reversed stock movements", "recorder_id", recorderID)
	return nil
}

// Availability sums the balance of a product across warehouses.
func (s *Service) Availability(ctx context.Context, productID id.ID) (types.Quantity, error) {
	balances, err := s.repo.GetBalancesByProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("get balances: %w", err)
	}
	var total types.Quantity
	for _, b := range balances {
		total += b.Quantity
	}
	return total, nil
}

func (s *Service) WarehouseStock(ctx context.Context, warehouseID id.ID) ([]entity.StockBalance, error) {
	return s.repo.GetBalancesByWarehouse(ctx, warehouseID, BalanceFilter{ExcludeZero: true})
}

func (s *Service) History(ctx context.Context, productID id.ID, filter MovementFilter) ([]entity.StockMovement, error) {
	return s.repo.GetMovementHistory(ctx, productID, filter)
}

func (s *Service) MovementsOf(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	return s.repo.GetMovementsByRecorder(ctx, recorderID)
}
