package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var errBatchNeedsTx = errors.New("batch write requires a transaction")

// CopyRows bulk-inserts rows with the COPY protocol inside the transaction in
// ctx. Stock movements are written this way.
func CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	t := txFromContext(ctx)
	if t == nil {
		return 0, errBatchNeedsTx
	}
	n, err := t.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}

type BatchQuery struct {
	SQL  string
	Args []any
}

// ExecBatch sends queries in one round trip and stops at the first failure.
func ExecBatch(ctx context.Context, queries []BatchQuery) error {
	if len(queries) == 0 {
		return nil
	}
	t := txFromContext(ctx)
	if t == nil {
		return errBatchNeedsTx
	}

	batch := &pgx.Batch{}
	for _, q := range queries {
		batch.Queue(q.SQL, q.Args...)
	}
	results := t.SendBatch(ctx, batch)
	defer results.Close()

	for i := range queries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch query %d: %w", i, err)
		}
	}
	return nil
}
