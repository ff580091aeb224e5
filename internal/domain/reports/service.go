package reports

import (
	"context"
	"fmt"
	"time"

	"taller/internal/core/apperror"
	"taller/internal/core/tenant"
	"taller/internal/core/types"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type Service struct {
	repo     Repository
	settings tenant.SettingsProvider
	now      func() time.Time
}

func NewService(repo Repository, settings tenant.SettingsProvider) *Service {
	if settings == nil {
		settings = tenant.ContextSettings{}
	}
	return &Service{repo: repo, settings: settings, now: time.Now}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// StockBalance reports on-hand quantities per warehouse and product at a date.
func (s *Service) StockBalance(ctx context.Context, filter StockBalanceFilter) (*StockBalanceReport, error) {
	if filter.AsOf == nil {
		now := s.now().UTC()
		filter.AsOf = &now
	}
	filter.Limit = clampLimit(filter.Limit)

	rows, err := s.repo.StockBalance(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("stock balance report: %w", err)
	}

	scale := tenant.DefaultWorkshopSettings().CurrencyDecimals
	if ws, err := s.settings.Workshop(ctx); err == nil {
		scale = ws.CurrencyDecimals
	}

	report := &StockBalanceReport{AsOf: *filter.AsOf, Rows: rows, TotalCost: types.Zero()}
	if report.Rows == nil {
		report.Rows = []StockBalanceRow{}
	}
	for i := range report.Rows {
		r := &report.Rows[i]
		r.TotalCost = r.Quantity.MulMoney(r.CostPrice, scale)
		report.TotalQuantity += r.Quantity
		report.TotalCost = report.TotalCost.Add(r.TotalCost)
	}
	report.TotalRows = len(report.Rows)
	return report, nil
}

// StockTurnover reports opening, receipts, expenses and closing per row for
// the period.
func (s *Service) StockTurnover(ctx context.Context, filter StockTurnoverFilter) (*StockTurnoverReport, error) {
	if filter.From.IsZero() || filter.To.IsZero() {
		return nil, apperror.NewValidation("from and to are required").WithDetail("field", "from")
	}
	if filter.From.After(filter.To) {
		return nil, apperror.NewValidation("from must not be after to").WithDetail("field", "from")
	}
	filter.Limit = clampLimit(filter.Limit)

	rows, err := s.repo.StockTurnover(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("stock turnover report: %w", err)
	}

	report := &StockTurnoverReport{From: filter.From, To: filter.To}
	for _, r := range rows {
		if !filter.IncludeZero && r.Opening == 0 && r.Receipt == 0 && r.Expense == 0 {
			continue
		}
		report.Rows = append(report.Rows, r)
		report.TotalOpening += r.Opening
		report.TotalReceipt += r.Receipt
		report.TotalExpense += r.Expense
		report.TotalClosing += r.Closing
	}
	if report.Rows == nil {
		report.Rows = []StockTurnoverRow{}
	}
	report.TotalRows = len(report.Rows)
	return report, nil
}
