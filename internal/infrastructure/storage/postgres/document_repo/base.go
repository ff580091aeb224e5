// Package document_repo stores work orders, sales and commission settlements.
// The querier comes from ctx so repositories join the caller's transaction.
package document_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/infrastructure/storage/postgres"
)

const pgUniqueViolation = "23505"

type versioned interface {
	SetVersion(v int)
}

// BaseDocumentRepo is the header-table half of a document repository.
type BaseDocumentRepo[T any] struct {
	tableName  string
	selectCols []string
	newFn      func() T
}

func NewBaseDocumentRepo[T any](tableName string, selectCols []string, newFn func() T) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{tableName: tableName, selectCols: selectCols, newFn: newFn}
}

func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return postgres.QuerierFromContext(ctx)
}

func (r *BaseDocumentRepo[T]) columnsOf(entity T) map[string]any {
	data := postgres.StructToMap(entity)
	out := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if v, ok := data[col]; ok {
			out[col] = v
		}
	}
	return out
}

// Create inserts the header row. The raw error is returned wrapped so callers
// can map unique violations to their own codes.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, entity T) error {
	sql, args, err := r.Builder().Insert(r.tableName).SetMap(r.columnsOf(entity)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// Update checks the version, bumps it and stamps updated_at. Creation columns
// are never rewritten.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, entity T) error {
	data := r.columnsOf(entity)
	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("%T has no id column", entity)
	}
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("%T has no int version column", entity)
	}
	for _, col := range []string{"id", "version", "created_at", "created_by", "updated_at"} {
		delete(data, col)
	}

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": entityID, "version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.tableName, entityID)
	}
	if v, ok := any(entity).(versioned); ok {
		v.SetVersion(version + 1)
	}
	return nil
}

func (r *BaseDocumentRepo[T]) Select() squirrel.SelectBuilder {
	return r.Builder().Select(r.selectCols...).From(r.tableName)
}

// SelectAs selects the header columns qualified with alias, for joins.
func (r *BaseDocumentRepo[T]) SelectAs(alias string) squirrel.SelectBuilder {
	cols := make([]string, len(r.selectCols))
	for i, c := range r.selectCols {
		cols[i] = alias + "." + c
	}
	return r.Builder().Select(cols...).From(r.tableName + " " + alias)
}

func (r *BaseDocumentRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, label string) (T, error) {
	entity := r.newFn()
	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.tableName, label)
		}
		return entity, fmt.Errorf("get %s: %w", r.tableName, err)
	}
	return entity, nil
}

func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{"id": entityID}), entityID.String())
}

func (r *BaseDocumentRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{"id": entityID}).Suffix("FOR UPDATE"), entityID.String())
}

func (r *BaseDocumentRepo[T]) GetByNumber(ctx context.Context, number string) (T, error) {
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{"number": number}), number)
}

// Page counts q and returns one page of it ordered by orderBy.
func (r *BaseDocumentRepo[T]) Page(ctx context.Context, q squirrel.SelectBuilder, orderBy string, limit, offset int) ([]T, int64, error) {
	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.tableName, err)
	}

	q = q.OrderBy(orderBy)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}
	items := []T{}
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return items, total, nil
}

// ParseOrderBy validates a client order against the header columns. alias
// qualifies the column when the query joins other tables.
func (r *BaseDocumentRepo[T]) ParseOrderBy(orderBy, alias, fallback string) (string, error) {
	field := strings.TrimSpace(orderBy)
	if field == "" {
		return fallback, nil
	}
	direction := "ASC"
	if strings.HasPrefix(field, "-") {
		direction = "DESC"
		field = field[1:]
	}
	field = strings.TrimPrefix(field, "+")
	for _, col := range r.selectCols {
		if col == field {
			if alias != "" {
				field = alias + "." + field
			}
			return field + " " + direction, nil
		}
	}
	return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
}

// uniqueViolation returns the violated constraint name, or "".
func uniqueViolation(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}
