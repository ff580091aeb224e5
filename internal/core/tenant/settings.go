package tenant

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"taller/internal/core/entity"
)

// Keys of the workshop settings stored in tenants.settings.
const (
	SettingTaxRate          = "tax_rate"
	SettingHideRemisionTax  = "hide_remision_tax"
	SettingCurrencyDecimals = "currency_decimals"
)

// WorkshopSettings drive work order totals.
type WorkshopSettings struct {
	// TaxRate is a percentage, 19 means 19%.
	TaxRate decimal.Decimal `json:"taxRate"`
	// HideRemisionTax folds tax into the displayed amounts. Totals are unchanged.
	HideRemisionTax bool `json:"hideRemisionTax"`
	// CurrencyDecimals is the rounding scale of money amounts.
	CurrencyDecimals int32 `json:"currencyDecimals"`
}

// DefaultWorkshopSettings is IVA 19% in whole pesos.
func DefaultWorkshopSettings() WorkshopSettings {
	return WorkshopSettings{
		TaxRate:          decimal.NewFromInt(19),
		CurrencyDecimals: 0,
	}
}

// SettingsFromAttributes overlays stored values on the defaults. Out of range
// values are ignored.
func SettingsFromAttributes(a entity.Attributes) WorkshopSettings {
	s := DefaultWorkshopSettings()
	if rate, ok := a.GetDecimal(SettingTaxRate); ok && !rate.IsNegative() && rate.LessThanOrEqual(decimal.NewFromInt(100)) {
		s.TaxRate = rate
	}
	if hide, ok := a.GetBool(SettingHideRemisionTax); ok {
		s.HideRemisionTax = hide
	}
	if scale, ok := a.GetInt(SettingCurrencyDecimals); ok && scale >= 0 && scale <= 4 {
		s.CurrencyDecimals = int32(scale)
	}
	return s
}

// SettingsProvider resolves the workshop settings of the tenant in ctx.
type SettingsProvider interface {
	Workshop(ctx context.Context) (WorkshopSettings, error)
}

// ContextSettings reads the settings from the tenant stored in ctx and falls
// back to the defaults when there is none.
type ContextSettings struct{}

func (ContextSettings) Workshop(ctx context.Context) (WorkshopSettings, error) {
	if t := GetTenant(ctx); t != nil {
		return t.Workshop(), nil
	}
	return DefaultWorkshopSettings(), nil
}

// StaticSettings returns fixed settings per tenant id. Used in tests and seeds.
type StaticSettings struct {
	mu       sync.RWMutex
	byTenant map[string]WorkshopSettings
	fallback WorkshopSettings
}

func NewStaticSettings(fallback WorkshopSettings) *StaticSettings {
	return &StaticSettings{byTenant: make(map[string]WorkshopSettings), fallback: fallback}
}

func (s *StaticSettings) Set(tenantID string, ws WorkshopSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byTenant[tenantID] = ws
}

func (s *StaticSettings) Workshop(ctx context.Context) (WorkshopSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ws, ok := s.byTenant[GetTenantID(ctx)]; ok {
		return ws, nil
	}
	return s.fallback, nil
}
