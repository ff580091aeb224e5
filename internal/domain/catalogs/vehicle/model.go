// Package vehicle is the workshop vehicle registry. The catalog code column
// holds the plate.
package vehicle

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
)

var plateRE = regexp.MustCompile(`^[A-Z0-9]{4,10}$`)

type FuelType string

const (
	FuelGasoline FuelType = "gasolina"
	FuelDiesel   FuelType = "diesel"
	FuelGas      FuelType = "gas"
	FuelHybrid   FuelType = "hibrido"
	FuelElectric FuelType = "electrico"
)

// DocumentStatus reports the validity of SOAT and tecnomecanica.
type DocumentStatus string

const (
	DocValid    DocumentStatus = "valid"
	DocExpiring DocumentStatus = "expiring"
	DocExpired  DocumentStatus = "expired"
	DocUnknown  DocumentStatus = "unknown"
)

// ExpiringWindow is how far ahead an expiry date counts as expiring.
const ExpiringWindow = 30 * 24 * time.Hour

type Vehicle struct {
	entity.Catalog

	Brand        *string  `db:"brand" json:"brand,omitempty"`
	Model        *string  `db:"model" json:"model,omitempty"`
	Year         *int     `db:"year" json:"year,omitempty"`
	Color        *string  `db:"color" json:"color,omitempty"`
	FuelType     FuelType `db:"fuel_type" json:"fuelType,omitempty"`
	VIN          *string  `db:"vin" json:"vin,omitempty"`
	Engine       *string  `db:"engine" json:"engine,omitempty"`
	EngineNumber *string  `db:"engine_number" json:"engineNumber,omitempty"`
	// OwnershipCard is the licencia de transito number.
	OwnershipCard *string `db:"ownership_card" json:"ownershipCard,omitempty"`

	SOATNumber          *string    `db:"soat_number" json:"soatNumber,omitempty"`
	SOATExpiry          *time.Time `db:"soat_expiry" json:"soatExpiry,omitempty"`
	TecnomecanicaNumber *string    `db:"tecnomecanica_number" json:"tecnomecanicaNumber,omitempty"`
	TecnomecanicaExpiry *time.Time `db:"tecnomecanica_expiry" json:"tecnomecanicaExpiry,omitempty"`

	CurrentMileage *int64 `db:"current_mileage" json:"currentMileage,omitempty"`
	// CustomerID is a weak reference; the customer may be deleted later.
	CustomerID *id.ID  `db:"customer_id" json:"customerId,omitempty"`
	Notes      *string `db:"notes" json:"notes,omitempty"`
}

// NormalizePlate upper-cases the plate and strips spaces and dashes.
func NormalizePlate(plate string) string {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	return strings.NewReplacer(" ", "", "-", "").Replace(plate)
}

func ValidPlate(plate string) bool {
	return plateRE.MatchString(NormalizePlate(plate))
}

// NewVehicle builds a vehicle. Name defaults to the plate until brand and
// model are known.
func NewVehicle(plate string) *Vehicle {
	p := NormalizePlate(plate)
	return &Vehicle{Catalog: entity.NewCatalog(p, p)}
}

func (v *Vehicle) Plate() string {
	return v.Code
}

// Normalize is applied before every write.
func (v *Vehicle) Normalize() {
	v.Code = NormalizePlate(v.Code)
	if display := v.DisplayName(); display != "" {
		v.Name = display
	} else if strings.TrimSpace(v.Name) == "" {
		v.Name = v.Code
	}
}

// DisplayName is "Brand Model Year", empty when brand and model are unknown.
func (v *Vehicle) DisplayName() string {
	var parts []string
	if v.Brand != nil && *v.Brand != "" {
		parts = append(parts, *v.Brand)
	}
	if v.Model != nil && *v.Model != "" {
		parts = append(parts, *v.Model)
	}
	if len(parts) == 0 {
		return ""
	}
	if v.Year != nil {
		parts = append(parts, strconv.Itoa(*v.Year))
	}
	return strings.Join(parts, " ")
}

func (v *Vehicle) Validate(ctx context.Context) error {
	v.Normalize()
	if !plateRE.MatchString(v.Code) {
		return apperror.NewValidation("invalid plate").
			WithDetail("field", "plate").
			WithDetail("value", v.Code)
	}
	if err := v.Catalog.Validate(ctx); err != nil {
		return err
	}
	if v.Year != nil && (*v.Year < 1900 || *v.Year > time.Now().Year()+1) {
		return apperror.NewValidation("invalid vehicle year").
			WithDetail("field", "year")
	}
	if v.FuelType != "" && !isValidFuelType(v.FuelType) {
		return apperror.NewValidation("invalid fuel type").
			WithDetail("field", "fuelType").
			WithDetail("value", string(v.FuelType))
	}
	if v.CurrentMileage != nil && *v.CurrentMileage < 0 {
		return apperror.NewValidation("mileage cannot be negative").
			WithDetail("field", "currentMileage")
	}
	return nil
}

// RecordMileage raises the current mileage. Lower readings are ignored.
func (v *Vehicle) RecordMileage(km int64) bool {
	if km <= 0 {
		return false
	}
	if v.CurrentMileage != nil && *v.CurrentMileage >= km {
		return false
	}
	v.CurrentMileage = &km
	return true
}

func (v *Vehicle) SOATStatus(now time.Time) DocumentStatus {
	return ExpiryStatus(v.SOATExpiry, now)
}

func (v *Vehicle) TecnomecanicaStatus(now time.Time) DocumentStatus {
	return ExpiryStatus(v.TecnomecanicaExpiry, now)
}

// ExpiryStatus compares calendar dates; a document expiring today is still valid.
func ExpiryStatus(expiry *time.Time, now time.Time) DocumentStatus {
	if expiry == nil {
		return DocUnknown
	}
	exp := truncateDay(*expiry)
	today := truncateDay(now)
	switch {
	case exp.Before(today):
		return DocExpired
	case !exp.After(today.Add(ExpiringWindow)):
		return DocExpiring
	}
	return DocValid
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isValidFuelType(f FuelType) bool {
	switch f {
	case FuelGasoline, FuelDiesel, FuelGas, FuelHybrid, FuelElectric:
		return true
	}
	return false
}
