package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{`2`, NewQuantity(2)},
		{`"1.5"`, Quantity(15_000)},
		{`0.00005`, Quantity(1)},
		{`null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var q Quantity
			require.NoError(t, json.Unmarshal([]byte(tt.in), &q))
			assert.Equal(t, tt.want, q)
		})
	}

	var q Quantity
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &q))

	out, err := json.Marshal(Quantity(15_000))
	require.NoError(t, err)
	assert.Equal(t, "1.5", string(out))
}

func TestRoundMoneyHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "3", RoundMoney(MustMoney("2.5"), 0).String())
	assert.Equal(t, "-3", RoundMoney(MustMoney("-2.5"), 0).String())
	assert.Equal(t, "2.46", RoundMoney(MustMoney("2.455"), 2).String())
}

func TestPercent(t *testing.T) {
	got := Percent(NewMoney(150_000), decimal.NewFromInt(19), 0)
	assert.True(t, got.Equal(NewMoney(28_500)), got.String())

	got = Percent(NewMoney(33_333), decimal.RequireFromString("12.5"), 0)
	assert.True(t, got.Equal(NewMoney(4_167)), got.String())
}

func TestQuantityMulMoney(t *testing.T) {
	got := Quantity(15_000).MulMoney(NewMoney(40_000), 0)
	assert.True(t, got.Equal(NewMoney(60_000)))
}

func TestQuantityScaledExceedsInt32(t *testing.T) {
	// 250000 units scale past math.MaxInt32; quantity columns are BIGINT.
	q := NewQuantity(250_000)
	assert.Equal(t, int64(2_500_000_000), q.Int64Scaled())
	assert.Greater(t, q.Int64Scaled(), int64(math.MaxInt32))
	assert.Equal(t, "250000", q.String())
}
