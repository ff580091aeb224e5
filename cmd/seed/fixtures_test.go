package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/domain/catalogs/product"
	"taller/internal/domain/catalogs/warehouse"
)

func TestDemoFixturesParse(t *testing.T) {
	f, err := LoadFixtures(filepath.Join("..", "..", "db", "seed", "demo.yaml"))
	require.NoError(t, err)

	assert.NotEmpty(t, f.Users)
	assert.True(t, f.Users[0].IsAdmin)
	assert.Equal(t, []string{"recepcion"}, f.Users[1].Roles)
	require.Len(t, f.Technicians, 2)
	assert.True(t, f.Technicians[1].Commission.Equal(decimal.RequireFromString("25.5")))
}

func TestFixtureBuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
warehouses:
  - code: W1
    name: Shelf
products:
  - code: P1
    name: Filtro
    sale_price: "28000"
vehicles:
  - plate: abc-123
    year: 2020
    mileage: 1000
    soat_expiry: "2027-01-15"
`), 0o600))

	f, err := LoadFixtures(path)
	require.NoError(t, err)

	w := f.Warehouses[0].Build()
	assert.Equal(t, warehouse.TypeMain, w.Type)
	assert.True(t, w.IsActive)

	p := f.Products[0].Build()
	assert.Equal(t, product.KindPart, p.Kind)
	assert.True(t, p.TrackStock)
	assert.Equal(t, "und", p.Unit)
	assert.True(t, p.SalePrice.Equal(decimal.NewFromInt(28000)))

	v, err := f.Vehicles[0].Build()
	require.NoError(t, err)
	assert.Equal(t, "ABC123", v.Plate())
	require.NotNil(t, v.CurrentMileage)
	assert.EqualValues(t, 1000, *v.CurrentMileage)
	require.NotNil(t, v.SOATExpiry)
	assert.Equal(t, 2027, v.SOATExpiry.Year())
	assert.Nil(t, v.CustomerID)
}

func TestFixtureBadDate(t *testing.T) {
	_, err := VehicleFixture{Plate: "ABC123", SOATExpiry: "31/01/2027"}.Build()
	assert.Error(t, err)
}

func TestLoadFixturesMissingFile(t *testing.T) {
	_, err := LoadFixtures(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
