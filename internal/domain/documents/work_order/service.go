package work_order

import (
	"context"
	"fmt"
	"io"
	"time"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/numerator"
	"taller/internal/core/tenant"
	"taller/internal/core/tx"
	"taller/internal/core/types"
	"taller/internal/domain"
	"taller/internal/domain/audit"
	"taller/internal/domain/catalogs/product"
	"taller/internal/domain/catalogs/vehicle"
	"taller/internal/domain/catalogs/warehouse"
	"taller/internal/domain/documents/sale"
	"taller/internal/domain/registers/stock"
	"taller/pkg/logger"
)

const (
	entityName   = "work_order"
	recorderType = "work_order"
)

type VehicleRegistry interface {
	GetByID(ctx context.Context, vehicleID id.ID) (*vehicle.Vehicle, error)
	FindOrCreate(ctx context.Context, v *vehicle.Vehicle) (*vehicle.Vehicle, bool, error)
}

type ProductCatalog interface {
	GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*product.Product, error)
}

type WarehouseCatalog interface {
	GetByID(ctx context.Context, warehouseID id.ID) (*warehouse.Warehouse, error)
}

type SaleWriter interface {
	CreateForWorkOrder(ctx context.Context, workOrderID id.ID, s *sale.Sale) error
}

type StockWriter interface {
	WriteOff(ctx context.Context, rec stock.Recorder, warehouseID id.ID, lines []stock.Line, enforce bool) error
}

// PhotoStore persists evidence photos and returns the stored path.
type PhotoStore interface {
	Save(ctx context.Context, dir, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, path string) error
}

type Config struct {
	Repo       Repository
	Vehicles   VehicleRegistry
	Products   ProductCatalog
	Warehouses WarehouseCatalog
	Sales      SaleWriter
	Stock      StockWriter
	Photos     PhotoStore
	Settings   tenant.SettingsProvider
	Numerator  numerator.Generator
	Events     domain.EventPublisher
	Audit      audit.Recorder
	// TxManager is optional; the tenant context supplies one otherwise.
	TxManager tx.Manager
	Clock     func() time.Time
}

type Service struct {
	repo       Repository
	vehicles   VehicleRegistry
	products   ProductCatalog
	warehouses WarehouseCatalog
	sales      SaleWriter
	stock      StockWriter
	photos     PhotoStore
	settings   tenant.SettingsProvider
	numerator  numerator.Generator
	events     domain.EventPublisher
	audit      audit.Recorder
	txManager  tx.Manager
	now        func() time.Time
}

func NewService(cfg Config) *Service {
	s := &Service{
		repo:       cfg.Repo,
		vehicles:   cfg.Vehicles,
		products:   cfg.Products,
		warehouses: cfg.Warehouses,
		sales:      cfg.Sales,
		stock:      cfg.Stock,
		photos:     cfg.Photos,
		settings:   cfg.Settings,
		numerator:  cfg.Numerator,
		events:     cfg.Events,
		audit:      cfg.Audit,
		txManager:  cfg.TxManager,
		now:        cfg.Clock,
	}
	if s.settings == nil {
		s.settings = tenant.ContextSettings{}
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	txm, err := tenant.GetTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm, nil
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return err
	}
	return txm.RunInTransaction(ctx, fn)
}

// workshopSettings falls back to defaults when the provider fails; totals
// must still be computable.
func (s *Service) workshopSettings(ctx context.Context) tenant.WorkshopSettings {
	ws, err := s.settings.Workshop(ctx)
	if err != nil {
		logger.Warn(ctx, "workshop settings unavailable, using defaults", "error", err)
		return tenant.DefaultWorkshopSettings()
	}
	return ws
}

func (s *Service) publish(ctx context.Context, wo *WorkOrder, eventType string, payload map[string]any) error {
	if s.events == nil {
		return nil
	}
	return s.events.Publish(ctx, domain.Event{
		AggregateType: entityName,
		AggregateID:   wo.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}

// CreateInput opens a work order. Either VehicleID or Vehicle (registered
// inline, or matched by plate) must be set.
type CreateInput struct {
	VehicleID          *id.ID
	Vehicle            *vehicle.Vehicle
	CustomerID         *id.ID
	TechnicianID       *id.ID
	WarehouseID        *id.ID
	PromisedAt         *time.Time
	MileageIn          *int64
	ProblemDescription *string
	Notes              string
	DiscountAmount     *types.Money
	Checklist          *Checklist
	Items              []ItemInput
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*WorkOrder, error) {
	if in.VehicleID == nil && in.Vehicle == nil {
		return nil, apperror.NewValidation("vehicle is required").WithDetail("field", "vehicleId")
	}
	ws := s.workshopSettings(ctx)

	var wo *WorkOrder
	err := s.inTx(ctx, func(ctx context.Context) error {
		v, err := s.resolveVehicle(ctx, in)
		if err != nil {
			return err
		}

		wo = NewWorkOrder(v.ID)
		wo.ReceivedAt = s.now().UTC()
		wo.Date = wo.ReceivedAt
		wo.CustomerID = in.CustomerID
		if wo.CustomerID == nil {
			wo.CustomerID = v.CustomerID
		}
		wo.TechnicianID = in.TechnicianID
		wo.WarehouseID = in.WarehouseID
		wo.PromisedAt = in.PromisedAt
		wo.MileageIn = in.MileageIn
		wo.ProblemDescription = in.ProblemDescription
		wo.Notes = in.Notes
		if in.DiscountAmount != nil {
			wo.DiscountAmount = *in.DiscountAmount
		}
		if in.Checklist != nil {
			if err := wo.SetChecklist(*in.Checklist); err != nil {
				return err
			}
		}
		if err := s.addItems(ctx, wo, in.Items, ws.CurrencyDecimals); err != nil {
			return err
		}
		wo.RecalculateTotals(ws.TaxRate, ws.CurrencyDecimals)
		audit.StampCreated(ctx, &wo.BaseDocument)

		if err := wo.Validate(ctx); err != nil {
			return err
		}
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(numerator.PrefixWorkOrder), nil, wo.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		wo.Number = number

		if err := s.repo.Create(ctx, wo); err != nil {
			return fmt.Errorf("create work order: %w", err)
		}
		if err := s.repo.SaveItems(ctx, wo.ID, wo.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return s.audit.LogChange(ctx, entityName, wo.ID, audit.ActionCreate, map[string]any{
			"number":     wo.Number,
			"vehicle_id": wo.VehicleID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "work order created", "id", wo.ID, "number", wo.Number, "vehicle_id", wo.VehicleID)
	return wo, nil
}

func (s *Service) resolveVehicle(ctx context.Context, in CreateInput) (*vehicle.Vehicle, error) {
	if in.VehicleID != nil {
		v, err := s.vehicles.GetByID(ctx, *in.VehicleID)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	v, _, err := s.vehicles.FindOrCreate(ctx, in.Vehicle)
	return v, err
}

// addItems validates inputs and fills missing names from the product catalog.
func (s *Service) addItems(ctx context.Context, wo *WorkOrder, inputs []ItemInput, scale int32) error {
	if len(inputs) == 0 {
		return nil
	}
	var lookup []id.ID
	for _, in := range inputs {
		if in.ProductID != nil && in.ProductName == "" {
			lookup = append(lookup, *in.ProductID)
		}
	}
	var products map[id.ID]*product.Product
	if len(lookup) > 0 && s.products != nil {
		var err error
		if products, err = s.products.GetByIDs(ctx, lookup); err != nil {
			return fmt.Errorf("load products: %w", err)
		}
	}
	for _, in := range inputs {
		if in.ProductID != nil && in.ProductName == "" {
			p, ok := products[*in.ProductID]
			if !ok {
				return apperror.NewNotFound("product", in.ProductID.String())
			}
			in.ProductName = p.Name
		}
		if _, err := wo.AddItem(in, scale); err != nil {
			return err
		}
	}
	return nil
}

// Get loads the order with its items.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*WorkOrder, error) {
	wo, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	wo.Items = items
	return wo, nil
}

func (s *Service) getForUpdate(ctx context.Context, orderID id.ID) (*WorkOrder, error) {
	wo, err := s.repo.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	wo.Items = items
	return wo, nil
}

// UpdateInput patches header fields. Nil fields stay unchanged. A non-zero
// Version must match the stored one.
type UpdateInput struct {
	Version            int
	CustomerID         *id.ID
	TechnicianID       *id.ID
	WarehouseID        *id.ID
	PromisedAt         *time.Time
	MileageIn          *int64
	MileageOut         *int64
	ProblemDescription *string
	Diagnosis          *string
	WorkPerformed      *string
	DiscountAmount     *types.Money
	Notes              *string
}

func (s *Service) Update(ctx context.Context, orderID id.ID, in UpdateInput) (*WorkOrder, error) {
	ws := s.workshopSettings(ctx)

	var wo *WorkOrder
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		if wo, err = s.getForUpdate(ctx, orderID); err != nil {
			return err
		}
		if in.Version != 0 && in.Version != wo.Version {
			return apperror.NewConcurrentModification(entityName, orderID.String())
		}
		if err := wo.EnsureEditable(); err != nil {
			return err
		}

		setIf(&wo.CustomerID, in.CustomerID)
		setIf(&wo.TechnicianID, in.TechnicianID)
		setIf(&wo.WarehouseID, in.WarehouseID)
		setIf(&wo.PromisedAt, in.PromisedAt)
		setIf(&wo.MileageIn, in.MileageIn)
		setIf(&wo.MileageOut, in.MileageOut)
		setIf(&wo.ProblemDescription, in.ProblemDescription)
		setIf(&wo.Diagnosis, in.Diagnosis)
		setIf(&wo.WorkPerformed, in.WorkPerformed)
		if in.Notes != nil {
			wo.Notes = *in.Notes
		}
		if in.DiscountAmount != nil {
			wo.DiscountAmount = *in.DiscountAmount
		}
		wo.RecalculateTotals(ws.TaxRate, ws.CurrencyDecimals)

		if err := wo.Validate(ctx); err != nil {
			return err
		}
		audit.StampUpdated(ctx, &wo.BaseDocument)
		return s.repo.Update(ctx, wo)
	})
	if err != nil {
		return nil, err
	}
	return wo, nil
}

func setIf[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

// ChangeStatus applies one transition of the status machine. On error the
// stored order is unchanged.
func (s *Service) ChangeStatus(ctx context.Context, orderID id.ID, target Status) (*WorkOrder, error) {
	if !target.Valid() {
		return nil, apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(target))
	}

	var wo *WorkOrder
	var from Status
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		if wo, err = s.getForUpdate(ctx, orderID); err != nil {
			return err
		}
		from = wo.Status
		if err := wo.TransitionTo(target, s.now()); err != nil {
			return err
		}
		audit.StampUpdated(ctx, &wo.BaseDocument)
		if err := s.repo.Update(ctx, wo); err != nil {
			return err
		}
		return s.recordStatusChange(ctx, wo, from)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "work order status changed", "id", orderID, "from", from, "to", target)
	return wo, nil
}

func (s *Service) recordStatusChange(ctx context.Context, wo *WorkOrder, from Status) error {
	if err := s.audit.LogChange(ctx, entityName, wo.ID, audit.ActionStatusChange, map[string]any{
		"from": from,
		"to":   wo.Status,
	}); err != nil {
		return fmt.Errorf("audit status change: %w", err)
	}
	payload := map[string]any{
		"work_order_id": wo.ID.String(),
		"number":        wo.Number,
		"vehicle_id":    wo.VehicleID.String(),
		"from":          string(from),
		"to":            string(wo.Status),
	}
	if wo.MileageOut != nil {
		payload["mileage_out"] = *wo.MileageOut
	}
	return s.publish(ctx, wo, domain.EventWorkOrderStatusChanged, payload)
}

func (s *Service) AddItem(ctx context.Context, orderID id.ID, in ItemInput) (*WorkOrder, error) {
	ws := s.workshopSettings(ctx)

	var wo *WorkOrder
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		if wo, err = s.getForUpdate(ctx, orderID); err != nil {
			return err
		}
		if err := wo.EnsureEditable(); err != nil {
			return err
		}
		if err := s.addItems(ctx, wo, []ItemInput{in}, ws.CurrencyDecimals); err != nil {
			return err
		}
		return s.saveLines(ctx, wo, ws)
	})
	if err != nil {
		return nil, err
	}
	return wo, nil
}

func (s *Service) RemoveItem(ctx context.Context, orderID, itemID id.ID) (*WorkOrder, error) {
	ws := s.workshopSettings(ctx)

	var wo *WorkOrder
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		if wo, err = s.getForUpdate(ctx, orderID); err != nil {
			return err
		}
		if _, err := wo.RemoveItem(itemID); err != nil {
			return err
		}
		return s.saveLines(ctx, wo, ws)
	})
	if err != nil {
		return nil, err
	}
	return wo, nil
}

// saveLines recomputes totals and writes items and header together.
func (s *Service) saveLines(ctx context.Context, wo *WorkOrder, ws tenant.WorkshopSettings) error {
	wo.RecalculateTotals(ws.TaxRate, ws.CurrencyDecimals)
	if err := wo.CheckDiscount(); err != nil {
		return err
	}
	audit.StampUpdated(ctx, &wo.BaseDocument)
	if err := s.repo.SaveItems(ctx, wo.ID, wo.Items); err != nil {
		return fmt.Errorf("save items: %w", err)
	}
	return s.repo.Update(ctx, wo)
}

// SaveChecklist replaces the intake checklist. Only allowed in recibido.
func (s *Service) SaveChecklist(ctx context.Context, orderID id.ID, c Checklist) (*WorkOrder, error) {
	var wo *WorkOrder
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		if wo, err = s.getForUpdate(ctx, orderID); err != nil {
			return err
		}
		if err := wo.SetChecklist(c); err != nil {
			return err
		}
		audit.StampUpdated(ctx, &wo.BaseDocument)
		return s.repo.Update(ctx, wo)
	})
	if err != nil {
		return nil, err
	}
	return wo, nil
}

type GenerateSaleResult struct {
	Order *WorkOrder
	Sale  *sale.Sale
}

// GenerateSale bills a ready or delivered order exactly once. The sale copies
// the order totals, the order moves to entregado, and stocked parts are
// written off from the order warehouse.
func (s *Service) GenerateSale(ctx context.Context, orderID id.ID) (*GenerateSaleResult, error) {
	var res GenerateSaleResult
	err := s.inTx(ctx, func(ctx context.Context) error {
		wo, err := s.getForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if wo.SaleID != nil {
			return apperror.NewSaleAlreadyGenerated(wo.ID.String(), wo.SaleID.String())
		}
		if !wo.Status.Billable() {
			return apperror.NewNotReady(wo.Status)
		}
		if err := wo.CheckDiscount(); err != nil {
			return err
		}

		sl := sale.NewSale(wo.CustomerID, sale.Totals{
			Subtotal:       wo.Subtotal,
			DiscountAmount: wo.DiscountAmount,
			TaxAmount:      wo.TaxAmount,
			TotalAmount:    wo.TotalAmount,
		})
		sl.Date = s.now().UTC()
		sl.Notes = wo.Number
		if err := s.sales.CreateForWorkOrder(ctx, wo.ID, sl); err != nil {
			return err
		}

		from := wo.Status
		wo.SaleID = &sl.ID
		if wo.Status != StatusDelivered {
			if err := wo.TransitionTo(StatusDelivered, s.now()); err != nil {
				return err
			}
		}
		audit.StampUpdated(ctx, &wo.BaseDocument)
		if err := s.repo.Update(ctx, wo); err != nil {
			return err
		}
		if err := s.writeOffParts(ctx, wo); err != nil {
			return err
		}

		if from != wo.Status {
			if err := s.recordStatusChange(ctx, wo, from); err != nil {
				return err
			}
		}
		if err := s.audit.LogChange(ctx, entityName, wo.ID, audit.ActionSaleGenerated, map[string]any{
			"sale_id":     sl.ID.String(),
			"sale_number": sl.Number,
			"total":       sl.TotalAmount.String(),
		}); err != nil {
			return fmt.Errorf("audit sale: %w", err)
		}
		if err := s.publish(ctx, wo, domain.EventSaleGenerated, map[string]any{
			"work_order_id": wo.ID.String(),
			"order_number":  wo.Number,
			"sale_id":       sl.ID.String(),
			"sale_number":   sl.Number,
			"total_amount":  sl.TotalAmount.String(),
		}); err != nil {
			return err
		}

		res = GenerateSaleResult{Order: wo, Sale: sl}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale generated from work order",
		"work_order_id", orderID,
		"sale_id", res.Sale.ID,
		"sale_number", res.Sale.Number,
	)
	return &res, nil
}

// writeOffParts writes expense movements for repuesto lines whose product
// tracks stock. Orders without a warehouse move no stock.
func (s *Service) writeOffParts(ctx context.Context, wo *WorkOrder) error {
	if wo.WarehouseID == nil || s.stock == nil {
		return nil
	}
	var ids []id.ID
	for _, it := range wo.Items {
		if it.ItemType == ItemPart && it.ProductID != nil {
			ids = append(ids, *it.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	var lines []stock.Line
	for _, it := range wo.Items {
		if it.ItemType != ItemPart || it.ProductID == nil {
			continue
		}
		if p, ok := products[*it.ProductID]; ok && p.Stocked() {
			lines = append(lines, stock.Line{ProductID: p.ID, Quantity: it.Quantity})
		}
	}
	if len(lines) == 0 {
		return nil
	}

	enforce := true
	if s.warehouses != nil {
		wh, err := s.warehouses.GetByID(ctx, *wo.WarehouseID)
		if err != nil {
			return err
		}
		enforce = !wh.AllowNegativeStock
	}
	rec := stock.Recorder{ID: wo.ID, Type: recorderType, Version: wo.Version, Period: s.now().UTC()}
	return s.stock.WriteOff(ctx, rec, *wo.WarehouseID, lines, enforce)
}

// PhotoUpload is one file of a batched upload.
type PhotoUpload struct {
	Name   string
	Reader io.Reader
}

// AddPhotos stores the files and appends their paths to the phase array.
// Stored files are removed again when the order update fails.
func (s *Service) AddPhotos(ctx context.Context, orderID id.ID, phase Phase, files []PhotoUpload) (*WorkOrder, error) {
	if len(files) == 0 {
		return nil, apperror.NewValidation("no photos uploaded").WithDetail("field", "photos")
	}
	if s.photos == nil {
		return nil, apperror.NewInternal(fmt.Errorf("photo store not configured"))
	}
	if _, err := s.repo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}

	dir := photoDir(ctx, orderID, phase)
	paths := make([]string, 0, len(files))
	for _, f := range files {
		p, err := s.photos.Save(ctx, dir, f.Name, f.Reader)
		if err != nil {
			s.discardPhotos(ctx, paths)
			return nil, fmt.Errorf("store photo: %w", err)
		}
		paths = append(paths, p)
	}

	var wo *WorkOrder
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		if wo, err = s.getForUpdate(ctx, orderID); err != nil {
			return err
		}
		wo.AppendPhotos(phase, paths)
		return s.repo.Update(ctx, wo)
	})
	if err != nil {
		s.discardPhotos(ctx, paths)
		return nil, err
	}
	return wo, nil
}

// RemovePhoto deletes by position. Concurrent uploads to the same phase can
// shift positions; the last write wins.
func (s *Service) RemovePhoto(ctx context.Context, orderID id.ID, phase Phase, index int) (*WorkOrder, error) {
	var wo *WorkOrder
	var removed string
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		if wo, err = s.getForUpdate(ctx, orderID); err != nil {
			return err
		}
		if removed, err = wo.RemovePhoto(phase, index); err != nil {
			return err
		}
		return s.repo.Update(ctx, wo)
	})
	if err != nil {
		return nil, err
	}
	if s.photos != nil {
		s.discardPhotos(ctx, []string{removed})
	}
	return wo, nil
}

func (s *Service) discardPhotos(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := s.photos.Delete(ctx, p); err != nil {
			logger.Warn(ctx, "failed to delete photo", "path", p, "error", err)
		}
	}
}

func photoDir(ctx context.Context, orderID id.ID, phase Phase) string {
	tenantID := tenant.GetTenantID(ctx)
	if tenantID == "" {
		tenantID = "default"
	}
	return tenantID + "/" + orderID.String() + "/" + string(phase)
}

func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*WorkOrder], error) {
	return s.repo.List(ctx, filter)
}

// VehicleHistory lists every order of a vehicle, newest first.
func (s *Service) VehicleHistory(ctx context.Context, vehicleID id.ID, limit, offset int) (domain.ListResult[*WorkOrder], error) {
	f := ListFilter{ListFilter: domain.ListFilter{OrderBy: "-received_at", Limit: limit, Offset: offset}}
	f.VehicleID = &vehicleID
	return s.repo.List(ctx, f)
}

// Presentation applies the tenant tax visibility flag to the order totals.
func (s *Service) Presentation(ctx context.Context, wo *WorkOrder) Presentation {
	return wo.Totals().Present(s.workshopSettings(ctx).HideRemisionTax)
}
