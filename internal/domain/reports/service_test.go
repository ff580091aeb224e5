package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/tenant"
	"taller/internal/core/types"
)

type stubRepo struct {
	balance      []StockBalanceRow
	turnover     []StockTurnoverRow
	lastBalance  StockBalanceFilter
	lastTurnover StockTurnoverFilter
}

func (r *stubRepo) StockBalance(ctx context.Context, f StockBalanceFilter) ([]StockBalanceRow, error) {
	r.lastBalance = f
	return r.balance, nil
}

func (r *stubRepo) StockTurnover(ctx context.Context, f StockTurnoverFilter) ([]StockTurnoverRow, error) {
	r.lastTurnover = f
	return r.turnover, nil
}

func TestStockBalanceTotals(t *testing.T) {
	repo := &stubRepo{balance: []StockBalanceRow{
		{ProductID: id.New(), ProductName: "Filtro de aceite", Quantity: types.NewQuantity(4), CostPrice: types.NewMoney(12000)},
		{ProductID: id.New(), ProductName: "Aceite 20W50", Quantity: types.MustQuantity("2.5"), CostPrice: types.NewMoney(30001)},
	}}
	svc := NewService(repo, tenant.NewStaticSettings(tenant.DefaultWorkshopSettings()))

	report, err := svc.StockBalance(context.Background(), StockBalanceFilter{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, maxLimit, repo.lastBalance.Limit)
	require.NotNil(t, repo.lastBalance.AsOf)
	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, types.MustQuantity("6.5"), report.TotalQuantity)
	assert.True(t, types.NewMoney(48000).Equal(report.Rows[0].TotalCost))
	assert.True(t, types.NewMoney(75003).Equal(report.Rows[1].TotalCost), report.Rows[1].TotalCost.String())
	assert.True(t, types.NewMoney(123003).Equal(report.TotalCost))
}

func TestStockBalanceEmpty(t *testing.T) {
	svc := NewService(&stubRepo{}, nil)
	report, err := svc.StockBalance(context.Background(), StockBalanceFilter{})
	require.NoError(t, err)
	assert.NotNil(t, report.Rows)
	assert.Zero(t, report.TotalRows)
}

func TestStockTurnover(t *testing.T) {
	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)

	repo := &stubRepo{turnover: []StockTurnoverRow{
		{Opening: types.NewQuantity(10), Receipt: types.NewQuantity(5), Expense: types.NewQuantity(3), Closing: types.NewQuantity(12)},
		{},
	}}
	svc := NewService(repo, nil)

	report, err := svc.StockTurnover(context.Background(), StockTurnoverFilter{From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRows)
	assert.Equal(t, types.NewQuantity(12), report.TotalClosing)
	assert.Equal(t, defaultLimit, repo.lastTurnover.Limit)

	report, err = svc.StockTurnover(context.Background(), StockTurnoverFilter{From: from, To: to, IncludeZero: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalRows)

	_, err = svc.StockTurnover(context.Background(), StockTurnoverFilter{From: to, To: from})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	_, err = svc.StockTurnover(context.Background(), StockTurnoverFilter{})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
