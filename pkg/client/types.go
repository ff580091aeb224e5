package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Application error codes carried by APIError.Code.
const (
	CodeInternal               = "INTERNAL_ERROR"
	CodeDatabase               = "DATABASE_ERROR"
	CodeTimeout                = "TIMEOUT_ERROR"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeReadOnly               = "READ_ONLY_VIOLATION"
	CodeNotReady               = "WORK_ORDER_NOT_READY"
	CodeNoEligibleOrders       = "NO_ELIGIBLE_ORDERS"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeSaleExists             = "SALE_ALREADY_GENERATED"
	CodeRateLimited            = "RATE_LIMITED"
)

type Status string

const (
	StatusReceived   Status = "recibido"
	StatusInProgress Status = "en_proceso"
	StatusWaiting    Status = "en_espera"
	StatusReady      Status = "listo"
	StatusDelivered  Status = "entregado"
	StatusCancelled  Status = "cancelado"
)

type ItemType string

const (
	ItemPart    ItemType = "repuesto"
	ItemService ItemType = "servicio"
	ItemLabor   ItemType = "mano_obra"
)

// Phase selects the intake or delivery photo set.
type Phase string

const (
	PhaseIn  Phase = "in"
	PhaseOut Phase = "out"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pendiente"
	PaymentPartial PaymentStatus = "parcial"
	PaymentPaid    PaymentStatus = "pagado"
)

// Page is one window of a list.
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// CatalogEntry is the header shared by reference records.
type CatalogEntry struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	DeletionMark bool   `json:"deletionMark"`
	Version      int    `json:"version"`
}

// DocumentHeader is the header shared by orders, sales and settlements.
type DocumentHeader struct {
	ID           string    `json:"id"`
	Number       string    `json:"number"`
	Date         time.Time `json:"date"`
	Notes        string    `json:"notes,omitempty"`
	DeletionMark bool      `json:"deletionMark"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// --- catalogs ---

// CustomerInput creates a customer, or updates one when Version is set.
type CustomerInput struct {
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	DocumentType      string  `json:"documentType,omitempty"`
	DocumentNumber    *string `json:"documentNumber,omitempty"`
	VerificationDigit *int    `json:"verificationDigit,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	Email             *string `json:"email,omitempty"`
	Address           *string `json:"address,omitempty"`
	City              *string `json:"city,omitempty"`
	Notes             *string `json:"notes,omitempty"`
	Version           int     `json:"version,omitempty"`
}

type Customer struct {
	CatalogEntry
	DocumentType      string  `json:"documentType"`
	DocumentNumber    *string `json:"documentNumber,omitempty"`
	VerificationDigit *int    `json:"verificationDigit,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	Email             *string `json:"email,omitempty"`
	Address           *string `json:"address,omitempty"`
	City              *string `json:"city,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

type TechnicianInput struct {
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	DocumentNumber       *string         `json:"documentNumber,omitempty"`
	Phone                *string         `json:"phone,omitempty"`
	Specialty            *string         `json:"specialty,omitempty"`
	CommissionPercentage decimal.Decimal `json:"commissionPercentage"`
	IsActive             *bool           `json:"isActive,omitempty"`
	Version              int             `json:"version,omitempty"`
}

type Technician struct {
	CatalogEntry
	DocumentNumber       *string         `json:"documentNumber,omitempty"`
	Phone                *string         `json:"phone,omitempty"`
	Specialty            *string         `json:"specialty,omitempty"`
	CommissionPercentage decimal.Decimal `json:"commissionPercentage"`
	IsActive             bool            `json:"isActive"`
}

// ProductInput.Kind is "part" or "service".
type ProductInput struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	SKU         *string         `json:"sku,omitempty"`
	Barcode     *string         `json:"barcode,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	SalePrice   decimal.Decimal `json:"salePrice"`
	CostPrice   decimal.Decimal `json:"costPrice"`
	TrackStock  *bool           `json:"trackStock,omitempty"`
	Description *string         `json:"description,omitempty"`
	Version     int             `json:"version,omitempty"`
}

type Product struct {
	CatalogEntry
	Kind        string          `json:"kind"`
	SKU         *string         `json:"sku,omitempty"`
	Barcode     *string         `json:"barcode,omitempty"`
	Unit        string          `json:"unit"`
	SalePrice   decimal.Decimal `json:"salePrice"`
	CostPrice   decimal.Decimal `json:"costPrice"`
	TrackStock  bool            `json:"trackStock"`
	Description *string         `json:"description,omitempty"`
}

// WarehouseInput.Type is "main", "shop" or "transit".
type WarehouseInput struct {
	Code               string  `json:"code"`
	Name               string  `json:"name"`
	Type               string  `json:"type"`
	Address            *string `json:"address,omitempty"`
	IsActive           *bool   `json:"isActive,omitempty"`
	AllowNegativeStock bool    `json:"allowNegativeStock"`
	IsDefault          bool    `json:"isDefault"`
	Description        *string `json:"description,omitempty"`
	Version            int     `json:"version,omitempty"`
}

type Warehouse struct {
	CatalogEntry
	Type               string  `json:"type"`
	Address            *string `json:"address,omitempty"`
	IsActive           bool    `json:"isActive"`
	AllowNegativeStock bool    `json:"allowNegativeStock"`
	IsDefault          bool    `json:"isDefault"`
	Description        *string `json:"description,omitempty"`
}

// VehicleInput registers or edits a vehicle. Expiry dates use DateLayout.
type VehicleInput struct {
	Plate               string  `json:"plate"`
	Brand               *string `json:"brand,omitempty"`
	Model               *string `json:"model,omitempty"`
	Year                *int    `json:"year,omitempty"`
	Color               *string `json:"color,omitempty"`
	FuelType            string  `json:"fuelType,omitempty"`
	VIN                 *string `json:"vin,omitempty"`
	Engine              *string `json:"engine,omitempty"`
	EngineNumber        *string `json:"engineNumber,omitempty"`
	OwnershipCard       *string `json:"ownershipCard,omitempty"`
	SOATNumber          *string `json:"soatNumber,omitempty"`
	SOATExpiry          *string `json:"soatExpiry,omitempty"`
	TecnomecanicaNumber *string `json:"tecnomecanicaNumber,omitempty"`
	TecnomecanicaExpiry *string `json:"tecnomecanicaExpiry,omitempty"`
	CurrentMileage      *int64  `json:"currentMileage,omitempty"`
	CustomerID          *string `json:"customerId,omitempty"`
	Notes               *string `json:"notes,omitempty"`
	Version             int     `json:"version,omitempty"`
}

type Vehicle struct {
	CatalogEntry
	Plate               string     `json:"plate"`
	Brand               *string    `json:"brand,omitempty"`
	Model               *string    `json:"model,omitempty"`
	Year                *int       `json:"year,omitempty"`
	Color               *string    `json:"color,omitempty"`
	FuelType            string     `json:"fuelType,omitempty"`
	VIN                 *string    `json:"vin,omitempty"`
	Engine              *string    `json:"engine,omitempty"`
	EngineNumber        *string    `json:"engineNumber,omitempty"`
	OwnershipCard       *string    `json:"ownershipCard,omitempty"`
	SOATNumber          *string    `json:"soatNumber,omitempty"`
	SOATExpiry          *time.Time `json:"soatExpiry,omitempty"`
	SOATStatus          string     `json:"soatStatus"`
	TecnomecanicaNumber *string    `json:"tecnomecanicaNumber,omitempty"`
	TecnomecanicaExpiry *time.Time `json:"tecnomecanicaExpiry,omitempty"`
	TecnomecanicaStatus string     `json:"tecnomecanicaStatus"`
	CurrentMileage      *int64     `json:"currentMileage,omitempty"`
	CustomerID          *string    `json:"customerId,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
}

// VehicleHistory is a vehicle with its orders, newest first.
type VehicleHistory struct {
	Vehicle *Vehicle               `json:"vehicle"`
	History Page[WorkOrderSummary] `json:"history"`
}

// --- work orders ---

// Condition is the state of one checklist component.
type Condition string

const (
	ConditionOK            Condition = "ok"
	ConditionDefective     Condition = "defective"
	ConditionNotApplicable Condition = "not_applicable"
)

// Checklist is the intake inspection. On the wire the component keys sit
// next to fuel_level and observations.
type Checklist struct {
	Items        map[string]Condition
	FuelLevel    *int
	Observations string
}

func (c Checklist) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Items)+2)
	for k, v := range c.Items {
		out[k] = v
	}
	if c.FuelLevel != nil {
		out["fuel_level"] = *c.FuelLevel
	}
	if c.Observations != "" {
		out["observations"] = c.Observations
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads conditions as true (ok), false (defective), null (not
// applicable) or their names.
func (c *Checklist) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := Checklist{Items: make(map[string]Condition, len(raw))}
	for k, v := range raw {
		v = bytes.TrimSpace(v)
		switch k {
		case "fuel_level":
			if string(v) == "null" {
				continue
			}
			var lvl int
			if err := json.Unmarshal(v, &lvl); err != nil {
				return fmt.Errorf("fuel_level: %w", err)
			}
			parsed.FuelLevel = &lvl
		case "observations":
			if err := json.Unmarshal(v, &parsed.Observations); err != nil {
				return fmt.Errorf("observations: %w", err)
			}
		default:
			switch string(v) {
			case "true":
				parsed.Items[k] = ConditionOK
			case "false":
				parsed.Items[k] = ConditionDefective
			case "null":
				parsed.Items[k] = ConditionNotApplicable
			default:
				var name string
				if err := json.Unmarshal(v, &name); err != nil {
					return fmt.Errorf("%s: invalid condition %s", k, v)
				}
				parsed.Items[k] = Condition(name)
			}
		}
	}
	*c = parsed
	return nil
}

// ItemInput is one order line. Quantity may be fractional (1.5 hours).
type ItemInput struct {
	ProductID   *string          `json:"productId,omitempty"`
	ProductName string           `json:"productName"`
	ItemType    ItemType         `json:"itemType"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unitPrice"`
}

// CreateWorkOrder takes either VehicleID or an inline Vehicle, which the
// server matches by plate or registers.
type CreateWorkOrder struct {
	VehicleID          *string          `json:"vehicleId,omitempty"`
	Vehicle            *VehicleInput    `json:"vehicle,omitempty"`
	CustomerID         *string          `json:"customerId,omitempty"`
	TechnicianID       *string          `json:"technicianId,omitempty"`
	WarehouseID        *string          `json:"warehouseId,omitempty"`
	PromisedAt         *time.Time       `json:"promisedAt,omitempty"`
	MileageIn          *int64           `json:"mileageIn,omitempty"`
	ProblemDescription *string          `json:"problemDescription,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discountAmount,omitempty"`
	Checklist          *Checklist       `json:"checklist,omitempty"`
	Items              []ItemInput      `json:"items,omitempty"`
}

// UpdateWorkOrder patches header fields; nil fields stay. The discount may
// not exceed the subtotal.
type UpdateWorkOrder struct {
	Version            int              `json:"version,omitempty"`
	CustomerID         *string          `json:"customerId,omitempty"`
	TechnicianID       *string          `json:"technicianId,omitempty"`
	WarehouseID        *string          `json:"warehouseId,omitempty"`
	PromisedAt         *time.Time       `json:"promisedAt,omitempty"`
	MileageIn          *int64           `json:"mileageIn,omitempty"`
	MileageOut         *int64           `json:"mileageOut,omitempty"`
	ProblemDescription *string          `json:"problemDescription,omitempty"`
	Diagnosis          *string          `json:"diagnosis,omitempty"`
	WorkPerformed      *string          `json:"workPerformed,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discountAmount,omitempty"`
	Notes              *string          `json:"notes,omitempty"`
}

// Totals are the amounts as the tenant shows them. With TaxHidden the tax is
// folded into Subtotal.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	TaxHidden      bool            `json:"taxHidden"`
}

type WorkOrderItem struct {
	ID          string          `json:"id"`
	LineNumber  int             `json:"lineNumber"`
	ProductID   *string         `json:"productId,omitempty"`
	ProductName string          `json:"productName"`
	ItemType    ItemType        `json:"itemType"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

type WorkOrder struct {
	DocumentHeader
	VehicleID          string          `json:"vehicleId"`
	CustomerID         *string         `json:"customerId,omitempty"`
	TechnicianID       *string         `json:"technicianId,omitempty"`
	WarehouseID        *string         `json:"warehouseId,omitempty"`
	Status             Status          `json:"status"`
	AllowedTransitions []Status        `json:"allowedTransitions"`
	ReceivedAt         time.Time       `json:"receivedAt"`
	PromisedAt         *time.Time      `json:"promisedAt,omitempty"`
	DeliveredAt        *time.Time      `json:"deliveredAt,omitempty"`
	MileageIn          *int64          `json:"mileageIn,omitempty"`
	MileageOut         *int64          `json:"mileageOut,omitempty"`
	ProblemDescription *string         `json:"problemDescription,omitempty"`
	Diagnosis          *string         `json:"diagnosis,omitempty"`
	WorkPerformed      *string         `json:"workPerformed,omitempty"`
	Checklist          Checklist       `json:"checklist"`
	Totals             Totals          `json:"totals"`
	LaborTotal         decimal.Decimal `json:"laborTotal"`
	SaleID             *string         `json:"saleId,omitempty"`
	SettledAt          *time.Time      `json:"settledAt,omitempty"`
	PhotosIn           []string        `json:"photosIn"`
	PhotosOut          []string        `json:"photosOut"`
	Items              []WorkOrderItem `json:"items"`
}

// WorkOrderSummary is a list row without lines and photos.
type WorkOrderSummary struct {
	DocumentHeader
	VehicleID    string     `json:"vehicleId"`
	CustomerID   *string    `json:"customerId,omitempty"`
	TechnicianID *string    `json:"technicianId,omitempty"`
	Status       Status     `json:"status"`
	ReceivedAt   time.Time  `json:"receivedAt"`
	DeliveredAt  *time.Time `json:"deliveredAt,omitempty"`
	Totals       Totals     `json:"totals"`
	SaleID       *string    `json:"saleId,omitempty"`
}

// --- sales ---

type Sale struct {
	DocumentHeader
	WorkOrderID    *string         `json:"workOrderId,omitempty"`
	CustomerID     *string         `json:"customerId,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	TaxHidden      bool            `json:"taxHidden"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	Balance        decimal.Decimal `json:"balance"`
}

// GeneratedSale is the billed order and its new sale.
type GeneratedSale struct {
	WorkOrder *WorkOrder `json:"workOrder"`
	Sale      *Sale      `json:"sale"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// --- commission ---

// CreateSettlement settles the technician's delivered orders in the
// inclusive range. A nil CommissionPercentage uses the technician's own.
type CreateSettlement struct {
	TechnicianID         string           `json:"technicianId"`
	DateFrom             string           `json:"dateFrom"`
	DateTo               string           `json:"dateTo"`
	CommissionPercentage *decimal.Decimal `json:"commissionPercentage,omitempty"`
	Notes                string           `json:"notes,omitempty"`
}

type SettlementItem struct {
	WorkOrderID string          `json:"workOrderId"`
	OrderNumber string          `json:"orderNumber"`
	LaborAmount decimal.Decimal `json:"laborAmount"`
}

type Settlement struct {
	DocumentHeader
	TechnicianID         string           `json:"technicianId"`
	DateFrom             string           `json:"dateFrom"`
	DateTo               string           `json:"dateTo"`
	BaseAmount           decimal.Decimal  `json:"baseAmount"`
	CommissionPercentage decimal.Decimal  `json:"commissionPercentage"`
	CommissionAmount     decimal.Decimal  `json:"commissionAmount"`
	Items                []SettlementItem `json:"items"`
}

// CommissionOrder is a delivered, unsettled order in a preview.
type CommissionOrder struct {
	WorkOrderID  string          `json:"workOrderId"`
	OrderNumber  string          `json:"orderNumber"`
	VehiclePlate string          `json:"vehiclePlate"`
	DeliveredAt  time.Time       `json:"deliveredAt"`
	LaborAmount  decimal.Decimal `json:"laborAmount"`
}

type CommissionPreview struct {
	TechnicianID         string            `json:"technicianId"`
	DateFrom             time.Time         `json:"dateFrom"`
	DateTo               time.Time         `json:"dateTo"`
	Orders               []CommissionOrder `json:"orders"`
	BaseAmount           decimal.Decimal   `json:"baseAmount"`
	CommissionPercentage decimal.Decimal   `json:"commissionPercentage"`
	CommissionAmount     decimal.Decimal   `json:"commissionAmount"`
}

// PendingCommission is an active technician with what is left to settle.
type PendingCommission struct {
	TechnicianID         string          `json:"technicianId"`
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	CommissionPercentage decimal.Decimal `json:"commissionPercentage"`
	PendingOrders        int             `json:"pendingOrders"`
	PendingLabor         decimal.Decimal `json:"pendingLabor"`
}

// --- auth ---

type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
}

type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"fullName"`
	IsAdmin     bool       `json:"isAdmin"`
	Roles       []string   `json:"roles"`
	Permissions []string   `json:"permissions"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

type LoginResult struct {
	Tokens *Tokens `json:"tokens"`
	User   *User   `json:"user"`
}

// NewUser is an admin-only user creation. Roles are admin, recepcion or
// tecnico.
type NewUser struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName,omitempty"`
	IsAdmin   bool     `json:"isAdmin"`
	Roles     []string `json:"roles,omitempty"`
}
