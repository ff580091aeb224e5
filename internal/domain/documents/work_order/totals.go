package work_order

import (
	"github.com/shopspring/decimal"

	"taller/internal/core/types"
)

// Totals is the money summary of a work order.
type Totals struct {
	Subtotal       types.Money `json:"subtotal"`
	DiscountAmount types.Money `json:"discountAmount"`
	TaxAmount      types.Money `json:"taxAmount"`
	TotalAmount    types.Money `json:"totalAmount"`
}

// ComputeTotals derives totals from items. Tax applies to the discounted
// subtotal, never below zero. Item totals are assumed already rounded.
func ComputeTotals(items []Item, discount types.Money, taxRate decimal.Decimal, scale int32) Totals {
	subtotal := types.Zero()
	for _, it := range items {
		subtotal = subtotal.Add(it.Total)
	}
	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		taxable = types.Zero()
	}
	tax := types.Percent(taxable, taxRate, scale)
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    subtotal.Sub(discount).Add(tax),
	}
}

// LaborTotal sums mano_obra lines; it is the commission base of an order.
func LaborTotal(items []Item) types.Money {
	sum := types.Zero()
	for _, it := range items {
		if it.IsLabor() {
			sum = sum.Add(it.Total)
		}
	}
	return sum
}

// Presentation is the customer-facing split of the totals. With the tax
// hidden the tax is folded into the shown subtotal; the total is the same.
type Presentation struct {
	Subtotal       types.Money `json:"subtotal"`
	DiscountAmount types.Money `json:"discountAmount"`
	TaxAmount      types.Money `json:"taxAmount"`
	TotalAmount    types.Money `json:"totalAmount"`
	TaxHidden      bool        `json:"taxHidden"`
}

func (t Totals) Present(hideTax bool) Presentation {
	p := Presentation{
		Subtotal:       t.Subtotal,
		DiscountAmount: t.DiscountAmount,
		TaxAmount:      t.TaxAmount,
		TotalAmount:    t.TotalAmount,
	}
	if hideTax {
		p.Subtotal = t.Subtotal.Add(t.TaxAmount)
		p.TaxAmount = types.Zero()
		p.TaxHidden = true
	}
	return p
}
