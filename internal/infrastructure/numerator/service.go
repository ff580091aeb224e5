// Package numerator numbers workshop documents from the tenant's sys_sequences
// table.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "taller/internal/core/numerator"
	"taller/internal/core/tenant"
	"taller/internal/infrastructure/storage/postgres"
)

const defaultRangeSize = 50

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service implements corenumerator.Generator. Strict numbers are taken in the
// caller's transaction, so a rolled back document releases its number.
// Cached ranges are reserved on the tenant pool and survive rollbacks.
type Service struct {
	mu     sync.Mutex
	ranges map[string]*cachedRange
}

var _ corenumerator.Generator = (*Service)(nil)

func New() *Service {
	return &Service{ranges: make(map[string]*cachedRange)}
}

func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	if opts == nil {
		opts = corenumerator.DefaultOptions()
	}
	key := SequenceKey(cfg, period)

	var (
		num int64
		err error
	)
	switch opts.Strategy {
	case corenumerator.StrategyCached:
		num, err = s.nextCached(ctx, key, opts.RangeSize)
	default:
		num, err = reserve(ctx, postgres.QuerierFromContext(ctx), key, 1)
	}
	if err != nil {
		return "", err
	}
	return Format(cfg, period, num), nil
}

func (s *Service) nextCached(ctx context.Context, key string, size int64) (int64, error) {
	if size <= 0 {
		size = defaultRangeSize
	}
	cacheKey := tenant.GetTenantID(ctx) + ":" + key

	s.mu.Lock()
	defer s.mu.Unlock()

	rng, ok := s.ranges[cacheKey]
	if !ok {
		rng = &cachedRange{}
		s.ranges[cacheKey] = rng
	}
	if rng.current >= rng.max {
		pool, err := tenant.GetPool(ctx)
		if err != nil {
			return 0, err
		}
		last, err := reserve(ctx, pool, key, size)
		if err != nil {
			return 0, err
		}
		rng.current = last - size
		rng.max = last
	}
	rng.current++
	return rng.current, nil
}

// reserve advances the sequence by n and returns the last reserved value.
func reserve(ctx context.Context, q rowQuerier, key string, n int64) (int64, error) {
	var last int64
	err := q.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
		RETURNING current_val`, key, n).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("reserve sequence %s: %w", key, err)
	}
	return last, nil
}

// SetNextNumber makes value the next number handed out. Used when a tenant is
// migrated from another system.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	key := SequenceKey(cfg, period)
	_, err := postgres.QuerierFromContext(ctx).Exec(ctx, `
		INSERT INTO sys_sequences (key, current_val) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2`, key, value-1)
	if err != nil {
		return fmt.Errorf("set sequence %s: %w", key, err)
	}

	s.mu.Lock()
	delete(s.ranges, tenant.GetTenantID(ctx)+":"+key)
	s.mu.Unlock()
	return nil
}

// SequenceKey is the sys_sequences key for cfg: OT_2026, OT_2026_03 or OT.
func SequenceKey(cfg corenumerator.Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return cfg.Prefix + "_" + period.Format("2006_01")
	case "year":
		return cfg.Prefix + "_" + period.Format("2006")
	default:
		return cfg.Prefix
	}
}

func Format(cfg corenumerator.Config, period time.Time, num int64) string {
	width := cfg.PadWidth
	if width == 0 {
		width = 5
	}
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), width, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, width, num)
}
