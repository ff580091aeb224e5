// Package tx declares the transaction boundary used by domain services.
// The pgx implementation lives in infrastructure/storage/postgres.
package tx

import "context"

// Manager runs fn inside a transaction. A nested call joins the transaction
// already carried by ctx. Returning an error rolls back.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager also offers read-only transactions for previews and reports.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Passthrough runs fn directly. It is the Manager used by unit tests with
// in-memory repositories.
type Passthrough struct{}

func (Passthrough) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (Passthrough) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
