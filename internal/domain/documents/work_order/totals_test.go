package work_order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/types"
)

func money(v int64) *types.Money {
	m := types.NewMoney(v)
	return &m
}

func TestTotalsLaborAndPart(t *testing.T) {
	wo := NewWorkOrder(id.New())
	_, err := wo.AddItem(ItemInput{ProductName: "Cambio de embrague", ItemType: ItemLabor, Quantity: types.NewQuantity(1), UnitPrice: money(100000)}, 0)
	require.NoError(t, err)
	_, err = wo.AddItem(ItemInput{ProductName: "Kit embrague", ItemType: ItemPart, Quantity: types.NewQuantity(1), UnitPrice: money(50000)}, 0)
	require.NoError(t, err)

	wo.RecalculateTotals(decimal.NewFromInt(19), 0)

	assert.True(t, types.NewMoney(150000).Equal(wo.Subtotal), wo.Subtotal.String())
	assert.True(t, types.NewMoney(28500).Equal(wo.TaxAmount), wo.TaxAmount.String())
	assert.True(t, types.NewMoney(178500).Equal(wo.TotalAmount), wo.TotalAmount.String())
	assert.True(t, types.NewMoney(100000).Equal(wo.LaborTotal()))
}

func TestTotalsIdentityHolds(t *testing.T) {
	rate := decimal.RequireFromString("19")
	tests := []struct {
		name     string
		items    []ItemInput
		discount int64
		scale    int32
	}{
		{"empty", nil, 0, 0},
		{"fractional hours", []ItemInput{
			{ProductName: "Mano de obra", ItemType: ItemLabor, Quantity: types.Quantity(15_000), UnitPrice: money(33333)},
		}, 0, 0},
		{"discount", []ItemInput{
			{ProductName: "Aceite", ItemType: ItemPart, Quantity: types.NewQuantity(4), UnitPrice: money(42500)},
			{ProductName: "Lavado", ItemType: ItemService, Quantity: types.NewQuantity(1), UnitPrice: money(15000)},
		}, 10001, 0},
		{"discount equals subtotal", []ItemInput{
			{ProductName: "Revision", ItemType: ItemService, Quantity: types.NewQuantity(1), UnitPrice: money(20000)},
		}, 20000, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wo := NewWorkOrder(id.New())
			wo.DiscountAmount = types.NewMoney(tt.discount)
			for _, in := range tt.items {
				_, err := wo.AddItem(in, tt.scale)
				require.NoError(t, err)
			}
			wo.RecalculateTotals(rate, tt.scale)

			sum := types.Zero()
			for _, it := range wo.Items {
				sum = sum.Add(it.Total)
			}
			assert.True(t, sum.Equal(wo.Subtotal))
			assert.True(t, wo.TotalAmount.Equal(wo.Subtotal.Sub(wo.DiscountAmount).Add(wo.TaxAmount)))
			assert.False(t, wo.TaxAmount.IsNegative())
		})
	}
}

func TestDiscountBounds(t *testing.T) {
	rate := decimal.NewFromInt(19)
	tests := []struct {
		name      string
		prices    []int64
		discount  int64
		wantTotal int64
		wantErr   bool
	}{
		{"no discount", []int64{100000}, 0, 119000, false},
		{"partial", []int64{100000}, 40000, 71400, false},
		{"equals subtotal", []int64{100000}, 100000, 0, false},
		{"above subtotal", []int64{100000}, 300000, 0, true},
		{"on empty order", nil, 1, 0, true},
		{"negative", []int64{100000}, -1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wo := NewWorkOrder(id.New())
			wo.DiscountAmount = types.NewMoney(tt.discount)
			for _, p := range tt.prices {
				_, err := wo.AddItem(ItemInput{ProductName: "Mano de obra", ItemType: ItemLabor, Quantity: types.NewQuantity(1), UnitPrice: money(p)}, 0)
				require.NoError(t, err)
			}
			wo.RecalculateTotals(rate, 0)

			err := wo.CheckDiscount()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.True(t, types.NewMoney(tt.wantTotal).Equal(wo.TotalAmount), wo.TotalAmount.String())
			assert.False(t, wo.TotalAmount.IsNegative())
		})
	}
}

func TestTaxRoundsHalfAwayFromZero(t *testing.T) {
	items := []Item{{ItemType: ItemService, Total: types.NewMoney(50)}}
	// 50 × 19% = 9.5
	got := ComputeTotals(items, types.Zero(), decimal.NewFromInt(19), 0)
	assert.True(t, types.NewMoney(10).Equal(got.TaxAmount), got.TaxAmount.String())
}

func TestPresentationHidesTax(t *testing.T) {
	tot := Totals{
		Subtotal:       types.NewMoney(150000),
		DiscountAmount: types.Zero(),
		TaxAmount:      types.NewMoney(28500),
		TotalAmount:    types.NewMoney(178500),
	}

	shown := tot.Present(false)
	assert.False(t, shown.TaxHidden)
	assert.True(t, shown.TaxAmount.Equal(tot.TaxAmount))

	hidden := tot.Present(true)
	assert.True(t, hidden.TaxHidden)
	assert.True(t, hidden.TaxAmount.IsZero())
	assert.True(t, types.NewMoney(178500).Equal(hidden.Subtotal))
	assert.True(t, tot.TotalAmount.Equal(hidden.TotalAmount))
}

func TestItemInputValidation(t *testing.T) {
	tests := []struct {
		name string
		in   ItemInput
	}{
		{"zero quantity", ItemInput{ProductName: "x", ItemType: ItemLabor, Quantity: 0, UnitPrice: money(1)}},
		{"negative quantity", ItemInput{ProductName: "x", ItemType: ItemLabor, Quantity: -1, UnitPrice: money(1)}},
		{"missing price", ItemInput{ProductName: "x", ItemType: ItemLabor, Quantity: types.NewQuantity(1)}},
		{"negative price", ItemInput{ProductName: "x", ItemType: ItemLabor, Quantity: types.NewQuantity(1), UnitPrice: money(-5)}},
		{"bad type", ItemInput{ProductName: "x", ItemType: "otro", Quantity: types.NewQuantity(1), UnitPrice: money(1)}},
		{"no name or product", ItemInput{ItemType: ItemLabor, Quantity: types.NewQuantity(1), UnitPrice: money(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.in.Validate())
		})
	}
	assert.NoError(t, ItemInput{ProductName: "x", ItemType: ItemService, Quantity: types.NewQuantity(1), UnitPrice: money(0)}.Validate())
}
