package document_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/id"
	"taller/internal/domain/commission"
)

func TestEligibleOrdersFiltersUTCDays(t *testing.T) {
	r := NewCommissionRepo()
	day := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	rng, err := commission.NewDateRange(day, day)
	require.NoError(t, err)

	sql, args, err := r.eligibleOrders(id.New(), rng, false).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "(wo.delivered_at AT TIME ZONE 'UTC')::date BETWEEN")
	assert.NotContains(t, sql, "FOR UPDATE")
	assert.Equal(t, "2026-03-11", args[len(args)-2])
	assert.Equal(t, "2026-03-11", args[len(args)-1])

	sql, _, err = r.eligibleOrders(id.New(), rng, true).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FOR UPDATE OF wo")
}
