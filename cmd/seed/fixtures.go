package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"taller/internal/domain/auth"
	"taller/internal/domain/catalogs/customer"
	"taller/internal/domain/catalogs/product"
	"taller/internal/domain/catalogs/technician"
	"taller/internal/domain/catalogs/vehicle"
	"taller/internal/domain/catalogs/warehouse"
)

// Fixtures is the layout of a seed file. Rows whose code (plate for
// vehicles, email for users) already exists are skipped.
type Fixtures struct {
	Users       []auth.NewUserInput `yaml:"users"`
	Warehouses  []WarehouseFixture  `yaml:"warehouses"`
	Products    []ProductFixture    `yaml:"products"`
	Technicians []TechnicianFixture `yaml:"technicians"`
	Customers   []CustomerFixture   `yaml:"customers"`
	Vehicles    []VehicleFixture    `yaml:"vehicles"`
}

type WarehouseFixture struct {
	Code          string `yaml:"code"`
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Default       bool   `yaml:"default"`
	AllowNegative bool   `yaml:"allow_negative"`
}

type ProductFixture struct {
	Code      string          `yaml:"code"`
	Name      string          `yaml:"name"`
	Kind      string          `yaml:"kind"`
	Unit      string          `yaml:"unit"`
	SKU       string          `yaml:"sku"`
	SalePrice decimal.Decimal `yaml:"sale_price"`
	CostPrice decimal.Decimal `yaml:"cost_price"`
}

type TechnicianFixture struct {
	Code       string          `yaml:"code"`
	Name       string          `yaml:"name"`
	Specialty  string          `yaml:"specialty"`
	Commission decimal.Decimal `yaml:"commission"`
}

type CustomerFixture struct {
	Code           string `yaml:"code"`
	Name           string `yaml:"name"`
	DocumentType   string `yaml:"document_type"`
	DocumentNumber string `yaml:"document_number"`
	Phone          string `yaml:"phone"`
	Email          string `yaml:"email"`
	City           string `yaml:"city"`
}

type VehicleFixture struct {
	Plate   string `yaml:"plate"`
	Brand   string `yaml:"brand"`
	Model   string `yaml:"model"`
	Year    int    `yaml:"year"`
	Fuel    string `yaml:"fuel"`
	Mileage int64  `yaml:"mileage"`
	// Customer is the code of a customer in the same file or the database.
	Customer   string `yaml:"customer"`
	SOATExpiry string `yaml:"soat_expiry"`
}

func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (f WarehouseFixture) Build() *warehouse.Warehouse {
	typ := warehouse.WarehouseType(f.Type)
	if typ == "" {
		typ = warehouse.TypeMain
	}
	w := warehouse.NewWarehouse(f.Code, f.Name, typ)
	w.IsDefault = f.Default
	w.AllowNegativeStock = f.AllowNegative
	return w
}

func (f ProductFixture) Build() *product.Product {
	kind := product.Kind(f.Kind)
	if kind == "" {
		kind = product.KindPart
	}
	p := product.NewProduct(f.Code, f.Name, kind)
	if f.Unit != "" {
		p.Unit = f.Unit
	}
	p.SKU = optional(f.SKU)
	p.SalePrice = f.SalePrice
	p.CostPrice = f.CostPrice
	return p
}

func (f TechnicianFixture) Build() *technician.Technician {
	t := technician.NewTechnician(f.Code, f.Name, f.Commission)
	t.Specialty = optional(f.Specialty)
	return t
}

func (f CustomerFixture) Build() *customer.Customer {
	c := customer.NewCustomer(f.Code, f.Name, customer.DocumentType(f.DocumentType))
	c.DocumentNumber = optional(f.DocumentNumber)
	c.Phone = optional(f.Phone)
	c.Email = optional(f.Email)
	c.City = optional(f.City)
	return c
}

// Build leaves CustomerID unset; the caller resolves Customer.
func (f VehicleFixture) Build() (*vehicle.Vehicle, error) {
	v := vehicle.NewVehicle(f.Plate)
	v.Brand = optional(f.Brand)
	v.Model = optional(f.Model)
	v.FuelType = vehicle.FuelType(f.Fuel)
	if f.Year > 0 {
		year := f.Year
		v.Year = &year
	}
	if f.Mileage > 0 {
		v.RecordMileage(f.Mileage)
	}
	if f.SOATExpiry != "" {
		t, err := time.Parse(time.DateOnly, f.SOATExpiry)
		if err != nil {
			return nil, fmt.Errorf("vehicle %s: soat_expiry: %w", f.Plate, err)
		}
		v.SOATExpiry = &t
	}
	return v, nil
}
