package register_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/id"
)

func TestBalanceUpsertsAreOrdered(t *testing.T) {
	w := id.New()
	p1, p2 := id.New(), id.New()
	if p2.String() < p1.String() {
		p1, p2 = p2, p1
	}
	at := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	deltas := map[balanceKey]*balanceDelta{
		{w, p2}: {quantity: -20000, lastAt: at},
		{w, p1}: {quantity: 10000, lastAt: at},
	}
	queries := balanceUpserts(deltas)
	require.Len(t, queries, 2)
	assert.Equal(t, p1, queries[0].Args[1])
	assert.Equal(t, int64(10000), queries[0].Args[2])
	assert.Equal(t, p2, queries[1].Args[1])
	assert.Equal(t, int64(-20000), queries[1].Args[2])
	assert.Contains(t, queries[0].SQL, "ON CONFLICT (warehouse_id, product_id)")
}
