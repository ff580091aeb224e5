package numerator

import (
	"context"
	"time"
)

// Generator hands out document numbers. Implementations find the tenant
// database through the request context.
type Generator interface {
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
