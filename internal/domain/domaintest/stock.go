package domaintest

import (
	"context"
	"sync"
	"time"

	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/types"
	"taller/internal/domain/registers/stock"
)

type balanceKey struct {
	warehouse id.ID
	product   id.ID
}

// StockRepo keeps movements in a slice and balances in a map.
type StockRepo struct {
	mu        sync.Mutex
	Movements []entity.StockMovement
	balances  map[balanceKey]entity.StockBalance
}

func NewStockRepo() *StockRepo {
	return &StockRepo{balances: make(map[balanceKey]entity.StockBalance)}
}

func (r *StockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range movements {
		r.Movements = append(r.Movements, m)
		r.apply(m, 1)
	}
	return nil
}

func (r *StockRepo) apply(m entity.StockMovement, sign int64) {
	k := balanceKey{m.WarehouseID, m.ProductID}
	b := r.balances[k]
	b.WarehouseID, b.ProductID = m.WarehouseID, m.ProductID
	b.Quantity += m.SignedQuantity() * types.Quantity(sign)
	b.LastMovementAt = m.Period
	b.UpdatedAt = time.Now()
	r.balances[k] = b
}

func (r *StockRepo) DeleteMovementsByRecorder(ctx context.Context, recorderID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.Movements[:0]
	for _, m := range r.Movements {
		if m.RecorderID == recorderID {
			r.apply(m, -1)
			continue
		}
		kept = append(kept, m)
	}
	r.Movements = kept
	return nil
}

func (r *StockRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.StockMovement
	for _, m := range r.Movements {
		if m.RecorderID == recorderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *StockRepo) GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[balanceKey{warehouseID, productID}]
	if !ok {
		return entity.StockBalance{WarehouseID: warehouseID, ProductID: productID}, nil
	}
	return b, nil
}

func (r *StockRepo) GetBalanceForUpdate(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	return r.GetBalance(ctx, warehouseID, productID)
}

func (r *StockRepo) GetBalancesByWarehouse(ctx context.Context, warehouseID id.ID, f stock.BalanceFilter) ([]entity.StockBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.StockBalance
	for k, b := range r.balances {
		if k.warehouse != warehouseID || (f.ExcludeZero && b.Quantity == 0) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *StockRepo) GetBalancesByProduct(ctx context.Context, productID id.ID) ([]entity.StockBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.StockBalance
	for k, b := range r.balances {
		if k.product == productID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *StockRepo) GetMovementHistory(ctx context.Context, productID id.ID, f stock.MovementFilter) ([]entity.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.StockMovement
	for _, m := range r.Movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ stock.Repository = (*StockRepo)(nil)
