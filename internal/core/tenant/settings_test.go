package tenant

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/entity"
)

func TestSettingsFromAttributes(t *testing.T) {
	tests := []struct {
		name  string
		attrs entity.Attributes
		want  WorkshopSettings
	}{
		{
			name:  "defaults",
			attrs: nil,
			want:  DefaultWorkshopSettings(),
		},
		{
			name: "overrides",
			attrs: entity.Attributes{
				SettingTaxRate:          json.Number("5"),
				SettingHideRemisionTax:  true,
				SettingCurrencyDecimals: json.Number("2"),
			},
			want: WorkshopSettings{TaxRate: decimal.NewFromInt(5), HideRemisionTax: true, CurrencyDecimals: 2},
		},
		{
			name: "out of range ignored",
			attrs: entity.Attributes{
				SettingTaxRate:          json.Number("150"),
				SettingCurrencyDecimals: json.Number("9"),
			},
			want: DefaultWorkshopSettings(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SettingsFromAttributes(tt.attrs)
			assert.True(t, tt.want.TaxRate.Equal(got.TaxRate), got.TaxRate.String())
			assert.Equal(t, tt.want.HideRemisionTax, got.HideRemisionTax)
			assert.Equal(t, tt.want.CurrencyDecimals, got.CurrencyDecimals)
		})
	}
}

func TestContextSettings(t *testing.T) {
	ctx := context.Background()
	ws, err := ContextSettings{}.Workshop(ctx)
	require.NoError(t, err)
	assert.True(t, ws.TaxRate.Equal(decimal.NewFromInt(19)))

	ctx = WithTenant(ctx, &Tenant{ID: "t1", Settings: entity.Attributes{SettingHideRemisionTax: true}})
	ws, err = ContextSettings{}.Workshop(ctx)
	require.NoError(t, err)
	assert.True(t, ws.HideRemisionTax)
}

func TestCreateTenantInput(t *testing.T) {
	in := CreateTenantInput{Slug: " Taller-Norte ", DisplayName: "Taller Norte"}
	require.NoError(t, in.Validate())
	assert.Equal(t, "taller-norte", in.Slug)
	assert.Equal(t, "taller_taller_norte", in.DBName())

	bad := CreateTenantInput{Slug: "x;drop", DisplayName: "x"}
	assert.Error(t, bad.Validate())
}
