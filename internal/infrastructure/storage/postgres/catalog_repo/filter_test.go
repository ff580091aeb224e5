package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/apperror"
	"taller/internal/domain/filter"
)

type row struct{}

func testRepo() *BaseCatalogRepo[*row] {
	return NewBaseCatalogRepo("test_table", []string{"id", "code", "name", "year"}, func() *row { return &row{} })
}

func TestApplyAdvancedFilters(t *testing.T) {
	tests := []struct {
		name     string
		item     filter.Item
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "gte",
			item:     filter.Item{Field: "year", Operator: filter.GreaterOrEqual, Value: 2015},
			wantSQL:  "SELECT id, code, name, year FROM test_table WHERE year >= $1",
			wantArgs: []any{2015},
		},
		{
			name:     "contains",
			item:     filter.Item{Field: "name", Operator: filter.Contains, Value: "mazda"},
			wantSQL:  "SELECT id, code, name, year FROM test_table WHERE name ILIKE $1",
			wantArgs: []any{"%mazda%"},
		},
		{
			name:     "null",
			item:     filter.Item{Field: "year", Operator: filter.IsNull},
			wantSQL:  "SELECT id, code, name, year FROM test_table WHERE year IS NULL",
			wantArgs: nil,
		},
	}

	repo := testRepo()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := repo.applyAdvancedFilters(repo.baseSelect(), []filter.Item{tt.item})
			require.NoError(t, err)
			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestApplyAdvancedFiltersRejectsUnknownColumn(t *testing.T) {
	repo := testRepo()
	_, err := repo.applyAdvancedFilters(repo.baseSelect(), []filter.Item{{Field: "password", Operator: filter.Equal, Value: 1}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestParseOrderBy(t *testing.T) {
	repo := testRepo()

	got, err := repo.parseOrderBy("")
	require.NoError(t, err)
	assert.Equal(t, "name ASC", got)

	got, err = repo.parseOrderBy("-year")
	require.NoError(t, err)
	assert.Equal(t, "year DESC", got)

	_, err = repo.parseOrderBy("year; DROP TABLE x")
	assert.Error(t, err)
}
