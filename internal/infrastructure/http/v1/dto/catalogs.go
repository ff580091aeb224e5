package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"taller/internal/core/types"
	"taller/internal/domain/catalogs/customer"
	"taller/internal/domain/catalogs/product"
	"taller/internal/domain/catalogs/technician"
	"taller/internal/domain/catalogs/vehicle"
)

// --- Customers ---

type CreateCustomerRequest struct {
	Code              string                `json:"code"`
	Name              string                `json:"name" binding:"required"`
	DocumentType      customer.DocumentType `json:"documentType" binding:"omitempty,oneof=CC NIT CE PAS TI"`
	DocumentNumber    *string               `json:"documentNumber"`
	VerificationDigit *int                  `json:"verificationDigit"`
	Phone             *string               `json:"phone"`
	Email             *string               `json:"email" binding:"omitempty,email"`
	Address           *string               `json:"address"`
	City              *string               `json:"city"`
	Notes             *string               `json:"notes"`
}

func (r *CreateCustomerRequest) ToEntity() *customer.Customer {
	c := customer.NewCustomer(r.Code, r.Name, r.DocumentType)
	r.apply(c)
	return c
}

func (r *CreateCustomerRequest) apply(c *customer.Customer) {
	c.DocumentNumber = r.DocumentNumber
	c.VerificationDigit = r.VerificationDigit
	c.Phone = r.Phone
	c.Email = r.Email
	c.Address = r.Address
	c.City = r.City
	c.Notes = r.Notes
}

type UpdateCustomerRequest struct {
	CreateCustomerRequest
	Version int `json:"version" binding:"required,min=1"`
}

func (r *UpdateCustomerRequest) ApplyTo(c *customer.Customer) {
	if r.Code != "" {
		c.Code = r.Code
	}
	c.Name = r.Name
	if r.DocumentType != "" {
		c.DocumentType = r.DocumentType
	}
	r.apply(c)
	c.Version = r.Version
}

type CustomerResponse struct {
	CatalogResponse
	DocumentType      customer.DocumentType `json:"documentType"`
	DocumentNumber    *string               `json:"documentNumber,omitempty"`
	VerificationDigit *int                  `json:"verificationDigit,omitempty"`
	Phone             *string               `json:"phone,omitempty"`
	Email             *string               `json:"email,omitempty"`
	Address           *string               `json:"address,omitempty"`
	City              *string               `json:"city,omitempty"`
	Notes             *string               `json:"notes,omitempty"`
}

func FromCustomer(c *customer.Customer) *CustomerResponse {
	return &CustomerResponse{
		CatalogResponse:   FromCatalog(c.Catalog),
		DocumentType:      c.DocumentType,
		DocumentNumber:    c.DocumentNumber,
		VerificationDigit: c.VerificationDigit,
		Phone:             c.Phone,
		Email:             c.Email,
		Address:           c.Address,
		City:              c.City,
		Notes:             c.Notes,
	}
}

// --- Technicians ---

type CreateTechnicianRequest struct {
	Code                 string          `json:"code"`
	Name                 string          `json:"name" binding:"required"`
	DocumentNumber       *string         `json:"documentNumber"`
	Phone                *string         `json:"phone"`
	Specialty            *string         `json:"specialty"`
	CommissionPercentage decimal.Decimal `json:"commissionPercentage"`
	IsActive             *bool           `json:"isActive"`
}

func (r *CreateTechnicianRequest) ToEntity() *technician.Technician {
	t := technician.NewTechnician(r.Code, r.Name, r.CommissionPercentage)
	r.apply(t)
	return t
}

func (r *CreateTechnicianRequest) apply(t *technician.Technician) {
	t.DocumentNumber = r.DocumentNumber
	t.Phone = r.Phone
	t.Specialty = r.Specialty
	t.CommissionPercentage = r.CommissionPercentage
	if r.IsActive != nil {
		t.IsActive = *r.IsActive
	}
}

type UpdateTechnicianRequest struct {
	CreateTechnicianRequest
	Version int `json:"version" binding:"required,min=1"`
}

func (r *UpdateTechnicianRequest) ApplyTo(t *technician.Technician) {
	if r.Code != "" {
		t.Code = r.Code
	}
	t.Name = r.Name
	r.apply(t)
	t.Version = r.Version
}

type TechnicianResponse struct {
	CatalogResponse
	DocumentNumber       *string         `json:"documentNumber,omitempty"`
	Phone                *string         `json:"phone,omitempty"`
	Specialty            *string         `json:"specialty,omitempty"`
	CommissionPercentage decimal.Decimal `json:"commissionPercentage"`
	IsActive             bool            `json:"isActive"`
}

func FromTechnician(t *technician.Technician) *TechnicianResponse {
	return &TechnicianResponse{
		CatalogResponse:      FromCatalog(t.Catalog),
		DocumentNumber:       t.DocumentNumber,
		Phone:                t.Phone,
		Specialty:            t.Specialty,
		CommissionPercentage: t.CommissionPercentage,
		IsActive:             t.IsActive,
	}
}

// --- Products ---

type CreateProductRequest struct {
	Code        string       `json:"code"`
	Name        string       `json:"name" binding:"required"`
	Kind        product.Kind `json:"kind" binding:"required,oneof=part service"`
	SKU         *string      `json:"sku"`
	Barcode     *string      `json:"barcode"`
	Unit        string       `json:"unit"`
	SalePrice   types.Money  `json:"salePrice"`
	CostPrice   types.Money  `json:"costPrice"`
	TrackStock  *bool        `json:"trackStock"`
	Description *string      `json:"description"`
}

func (r *CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.Code, r.Name, r.Kind)
	r.apply(p)
	return p
}

func (r *CreateProductRequest) apply(p *product.Product) {
	p.SKU = r.SKU
	p.Barcode = r.Barcode
	if r.Unit != "" {
		p.Unit = r.Unit
	}
	p.SalePrice = r.SalePrice
	p.CostPrice = r.CostPrice
	if r.TrackStock != nil {
		p.TrackStock = *r.TrackStock
	}
	p.Description = r.Description
}

type UpdateProductRequest struct {
	CreateProductRequest
	Version int `json:"version" binding:"required,min=1"`
}

func (r *UpdateProductRequest) ApplyTo(p *product.Product) {
	if r.Code != "" {
		p.Code = r.Code
	}
	p.Name = r.Name
	p.Kind = r.Kind
	r.apply(p)
	p.Version = r.Version
}

type ProductResponse struct {
	CatalogResponse
	Kind        product.Kind `json:"kind"`
	SKU         *string      `json:"sku,omitempty"`
	Barcode     *string      `json:"barcode,omitempty"`
	Unit        string       `json:"unit"`
	SalePrice   types.Money  `json:"salePrice"`
	CostPrice   types.Money  `json:"costPrice"`
	TrackStock  bool         `json:"trackStock"`
	Description *string      `json:"description,omitempty"`
}

func FromProduct(p *product.Product) *ProductResponse {
	return &ProductResponse{
		CatalogResponse: FromCatalog(p.Catalog),
		Kind:            p.Kind,
		SKU:             p.SKU,
		Barcode:         p.Barcode,
		Unit:            p.Unit,
		SalePrice:       p.SalePrice,
		CostPrice:       p.CostPrice,
		TrackStock:      p.TrackStock,
		Description:     p.Description,
	}
}

// --- Vehicles ---

// VehicleFields is shared by vehicle create, update and work order intake.
type VehicleFields struct {
	Plate               string           `json:"plate" binding:"required,plate"`
	Brand               *string          `json:"brand"`
	Model               *string          `json:"model"`
	Year                *int             `json:"year" binding:"omitempty,min=1900"`
	Color               *string          `json:"color"`
	FuelType            vehicle.FuelType `json:"fuelType" binding:"omitempty,oneof=gasolina diesel gas hibrido electrico"`
	VIN                 *string          `json:"vin"`
	Engine              *string          `json:"engine"`
	EngineNumber        *string          `json:"engineNumber"`
	OwnershipCard       *string          `json:"ownershipCard"`
	SOATNumber          *string          `json:"soatNumber"`
	SOATExpiry          *string          `json:"soatExpiry" binding:"omitempty,datetime=2006-01-02"`
	TecnomecanicaNumber *string          `json:"tecnomecanicaNumber"`
	TecnomecanicaExpiry *string          `json:"tecnomecanicaExpiry" binding:"omitempty,datetime=2006-01-02"`
	CurrentMileage      *int64           `json:"currentMileage" binding:"omitempty,min=0"`
	CustomerID          *string          `json:"customerId" binding:"omitempty,uuid"`
	Notes               *string          `json:"notes"`
}

// ApplyTo copies the fields; dates and ids are pre-validated by binding.
func (f *VehicleFields) ApplyTo(v *vehicle.Vehicle) {
	v.Code = vehicle.NormalizePlate(f.Plate)
	v.Brand = f.Brand
	v.Model = f.Model
	v.Year = f.Year
	v.Color = f.Color
	v.FuelType = f.FuelType
	v.VIN = f.VIN
	v.Engine = f.Engine
	v.EngineNumber = f.EngineNumber
	v.OwnershipCard = f.OwnershipCard
	v.SOATNumber = f.SOATNumber
	v.SOATExpiry = parseDay(f.SOATExpiry)
	v.TecnomecanicaNumber = f.TecnomecanicaNumber
	v.TecnomecanicaExpiry = parseDay(f.TecnomecanicaExpiry)
	v.CurrentMileage = f.CurrentMileage
	v.CustomerID, _ = ParseOptionalID(f.CustomerID, "customerId")
	v.Notes = f.Notes
	v.Normalize()
}

func (f *VehicleFields) ToEntity() *vehicle.Vehicle {
	v := vehicle.NewVehicle(f.Plate)
	f.ApplyTo(v)
	return v
}

type UpdateVehicleRequest struct {
	VehicleFields
	Version int `json:"version" binding:"required,min=1"`
}

func (r *UpdateVehicleRequest) ApplyTo(v *vehicle.Vehicle) {
	r.VehicleFields.ApplyTo(v)
	v.Version = r.Version
}

type VehicleResponse struct {
	CatalogResponse
	Plate               string                 `json:"plate"`
	Brand               *string                `json:"brand,omitempty"`
	Model               *string                `json:"model,omitempty"`
	Year                *int                   `json:"year,omitempty"`
	Color               *string                `json:"color,omitempty"`
	FuelType            vehicle.FuelType       `json:"fuelType,omitempty"`
	VIN                 *string                `json:"vin,omitempty"`
	Engine              *string                `json:"engine,omitempty"`
	EngineNumber        *string                `json:"engineNumber,omitempty"`
	OwnershipCard       *string                `json:"ownershipCard,omitempty"`
	SOATNumber          *string                `json:"soatNumber,omitempty"`
	SOATExpiry          *time.Time             `json:"soatExpiry,omitempty"`
	SOATStatus          vehicle.DocumentStatus `json:"soatStatus"`
	TecnomecanicaNumber *string                `json:"tecnomecanicaNumber,omitempty"`
	TecnomecanicaExpiry *time.Time             `json:"tecnomecanicaExpiry,omitempty"`
	TecnomecanicaStatus vehicle.DocumentStatus `json:"tecnomecanicaStatus"`
	CurrentMileage      *int64                 `json:"currentMileage,omitempty"`
	CustomerID          *string                `json:"customerId,omitempty"`
	Notes               *string                `json:"notes,omitempty"`
}

// FromVehicle evaluates the document statuses against now.
func FromVehicle(v *vehicle.Vehicle, now time.Time) *VehicleResponse {
	return &VehicleResponse{
		CatalogResponse:     FromCatalog(v.Catalog),
		Plate:               v.Plate(),
		Brand:               v.Brand,
		Model:               v.Model,
		Year:                v.Year,
		Color:               v.Color,
		FuelType:            v.FuelType,
		VIN:                 v.VIN,
		Engine:              v.Engine,
		EngineNumber:        v.EngineNumber,
		OwnershipCard:       v.OwnershipCard,
		SOATNumber:          v.SOATNumber,
		SOATExpiry:          v.SOATExpiry,
		SOATStatus:          v.SOATStatus(now),
		TecnomecanicaNumber: v.TecnomecanicaNumber,
		TecnomecanicaExpiry: v.TecnomecanicaExpiry,
		TecnomecanicaStatus: v.TecnomecanicaStatus(now),
		CurrentMileage:      v.CurrentMileage,
		CustomerID:          idString(v.CustomerID),
		Notes:               v.Notes,
	}
}

func parseDay(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}
