package reports

import (
	"context"
)

// Repository returns report rows; totals are computed by the service.
type Repository interface {
	StockBalance(ctx context.Context, filter StockBalanceFilter) ([]StockBalanceRow, error)
	StockTurnover(ctx context.Context, filter StockTurnoverFilter) ([]StockTurnoverRow, error)
}
