package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"taller/internal/core/types"
)

func TestProductValidate(t *testing.T) {
	ctx := context.Background()

	p := NewProduct("", "Filtro de aceite", KindPart)
	p.SalePrice = types.NewMoney(25000)
	assert.NoError(t, p.Validate(ctx))
	assert.True(t, p.Stocked())

	s := NewProduct("", "Alineacion", KindService)
	assert.NoError(t, s.Validate(ctx))
	assert.False(t, s.Stocked())

	s.TrackStock = true
	assert.Error(t, s.Validate(ctx))

	p.SalePrice = types.NewMoney(-1)
	assert.Error(t, p.Validate(ctx))

	p = NewProduct("", "X", "gadget")
	assert.Error(t, p.Validate(ctx))
}
