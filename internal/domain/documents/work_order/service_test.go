package work_order

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	"taller/internal/domain/domaintest"
	"taller/internal/domain/registers/stock"
)

// memRepo stores copies so a failed call cannot leak changes into storage.
type memRepo struct {
	mu     sync.Mutex
	orders map[id.ID]WorkOrder
	items  map[id.ID][]Item
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[id.ID]WorkOrder{}, items: map[id.ID][]Item{}}
}

func (r *memRepo) Create(ctx context.Context, wo *WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *wo
	c.Items = nil
	r.orders[wo.ID] = c
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, orderID id.ID) (*WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wo, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("work_order", orderID.String())
	}
	wo.PhotosIn = append(Photos{}, wo.PhotosIn...)
	wo.PhotosOut = append(Photos{}, wo.PhotosOut...)
	return &wo, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*WorkOrder, error) {
	return r.GetByID(ctx, orderID)
}

func (r *memRepo) Update(ctx context.Context, wo *WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[wo.ID]
	if !ok {
		return apperror.NewNotFound("work_order", wo.ID.String())
	}
	if stored.Version != wo.Version {
		return apperror.NewConcurrentModification("work_order", wo.ID.String())
	}
	wo.Version++
	c := *wo
	c.Items = nil
	r.orders[wo.ID] = c
	return nil
}

func (r *memRepo) GetItems(ctx context.Context, orderID id.ID) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Item{}, r.items[orderID]...), nil
}

func (r *memRepo) SaveItems(ctx context.Context, orderID id.ID, items []Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[orderID] = append([]Item{}, items...)
	return nil
}

func (r *memRepo) List(ctx context.Context, f ListFilter) (domain.ListResult[*WorkOrder], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*WorkOrder
	for _, wo := range r.orders {
		if f.VehicleID != nil && wo.VehicleID != *f.VehicleID {
			continue
		}
		c := wo
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return domain.ListResult[*WorkOrder]{Items: out, TotalCount: int64(len(out))}, nil
}

type memSales struct {
	mu    sync.Mutex
	byWO  map[id.ID]*sale.Sale
	count int
}

func (m *memSales) CreateForWorkOrder(ctx context.Context, workOrderID id.ID, s *sale.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byWO[workOrderID]; ok {
		return apperror.NewSaleAlreadyGenerated(workOrderID.String(), "")
	}
	m.count++
	s.WorkOrderID = &workOrderID
	s.Number = fmt.Sprintf("REM-%05d", m.count)
	m.byWO[workOrderID] = s
	return nil
}

type memPhotos struct {
	saved   map[string][]byte
	deleted []string
}

func (m *memPhotos) Save(ctx context.Context, dir, name string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	p := dir + "/" + name
	m.saved[p] = b
	return p, nil
}

func (m *memPhotos) Delete(ctx context.Context, path string) error {
	m.deleted = append(m.deleted, path)
	delete(m.saved, path)
	return nil
}

type vehicleRepo struct {
	*domaintest.CatalogRepo[*vehicle.Vehicle]
}

func (v vehicleRepo) GetByPlate(ctx context.Context, plate string) (*vehicle.Vehicle, error) {
	return v.GetByCode(ctx, plate)
}

func (v vehicleRepo) UpdateMileage(ctx context.Context, vehicleID id.ID, km int64) (bool, error) {
	return false, nil
}

type productRepo struct {
	*domaintest.CatalogRepo[*product.Product]
}

func (p productRepo) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	return nil, apperror.NewNotFound("product", sku)
}

func (p productRepo) GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*product.Product, error) {
	out := map[id.ID]*product.Product{}
	for _, pid := range ids {
		if pr, err := p.GetByID(ctx, pid); err == nil {
			out[pid] = pr
		}
	}
	return out, nil
}

type warehouseRepo struct {
	*domaintest.CatalogRepo[*warehouse.Warehouse]
}

func (w warehouseRepo) GetForUpdate(ctx context.Context, whID id.ID) (*warehouse.Warehouse, error) {
	return w.GetByID(ctx, whID)
}

func (w warehouseRepo) GetDefault(ctx context.Context) (*warehouse.Warehouse, error) {
	return nil, apperror.NewNotFound("warehouse", "default")
}

func (w warehouseRepo) ClearDefault(ctx context.Context) error { return nil }

type fixture struct {
	svc        *Service
	repo       *memRepo
	sales      *memSales
	stockRepo  *domaintest.StockRepo
	events     *domain.EventRecorder
	audit      *audit.Memory
	photos     *memPhotos
	vehicles   *vehicle.Service
	products   *product.Service
	warehouses *warehouse.Service
	ctx        context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newMemRepo(),
		sales:     &memSales{byWO: map[id.ID]*sale.Sale{}},
		stockRepo: domaintest.NewStockRepo(),
		events:    &domain.EventRecorder{},
		audit:     &audit.Memory{},
		photos:    &memPhotos{saved: map[string][]byte{}},
		ctx:       tenant.WithTxManager(context.Background(), tx.Passthrough{}),
	}
	gen := &numerator.MockGenerator{}
	f.vehicles = vehicle.NewService(vehicleRepo{domaintest.NewCatalogRepo[*vehicle.Vehicle]("vehicle")})
	f.products = product.NewService(productRepo{domaintest.NewCatalogRepo[*product.Product]("product")}, gen)
	f.warehouses = warehouse.NewService(warehouseRepo{domaintest.NewCatalogRepo[*warehouse.Warehouse]("warehouse")}, gen)
	f.svc = NewService(Config{
		Repo:       f.repo,
		Vehicles:   f.vehicles,
		Products:   f.products,
		Warehouses: f.warehouses,
		Sales:      f.sales,
		Stock:      stock.NewService(f.stockRepo),
		Photos:     f.photos,
		Settings:   tenant.NewStaticSettings(tenant.DefaultWorkshopSettings()),
		Numerator:  gen,
		Events:     f.events,
		Audit:      f.audit,
	})
	return f
}

func (f *fixture) open(t *testing.T) *WorkOrder {
	t.Helper()
	wo, err := f.svc.Create(f.ctx, CreateInput{Vehicle: vehicle.NewVehicle(fmt.Sprintf("abc%03d", len(f.repo.orders)))})
	require.NoError(t, err)
	return wo
}

func (f *fixture) moveTo(t *testing.T, orderID id.ID, path ...Status) {
	t.Helper()
	for _, s := range path {
		_, err := f.svc.ChangeStatus(f.ctx, orderID, s)
		require.NoError(t, err, "to %s", s)
	}
}

func TestCreateRegistersVehicleInline(t *testing.T) {
	f := newFixture(t)

	customerID := id.New()
	v := vehicle.NewVehicle("xyz-987")
	v.CustomerID = &customerID
	km := int64(45000)
	wo, err := f.svc.Create(f.ctx, CreateInput{
		Vehicle:   v,
		MileageIn: &km,
		Items: []ItemInput{
			{ProductName: "Diagnostico", ItemType: ItemService, Quantity: types.NewQuantity(1), UnitPrice: money(50000)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusReceived, wo.Status)
	assert.True(t, strings.HasPrefix(wo.Number, "OT-"), wo.Number)
	assert.Equal(t, &customerID, wo.CustomerID)
	assert.True(t, types.NewMoney(59500).Equal(wo.TotalAmount), wo.TotalAmount.String())

	stored, err := f.vehicles.GetByPlate(f.ctx, "XYZ987")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, wo.VehicleID)

	again, err := f.svc.Create(f.ctx, CreateInput{Vehicle: vehicle.NewVehicle("XYZ987")})
	require.NoError(t, err)
	assert.Equal(t, wo.VehicleID, again.VehicleID)

	_, err = f.svc.Create(f.ctx, CreateInput{})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestAddItemFillsNameFromProduct(t *testing.T) {
	f := newFixture(t)
	p := product.NewProduct("", "Pastillas de freno", product.KindPart)
	require.NoError(t, f.products.Create(f.ctx, p))

	wo := f.open(t)
	got, err := f.svc.AddItem(f.ctx, wo.ID, ItemInput{ProductID: &p.ID, ItemType: ItemPart, Quantity: types.NewQuantity(2), UnitPrice: money(80000)})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Pastillas de freno", got.Items[0].ProductName)
	assert.True(t, types.NewMoney(160000).Equal(got.Subtotal))

	missing := id.New()
	_, err = f.svc.AddItem(f.ctx, wo.ID, ItemInput{ProductID: &missing, ItemType: ItemPart, Quantity: types.NewQuantity(1), UnitPrice: money(1)})
	assert.True(t, apperror.IsNotFound(err))
}

func TestRemoveItemRecomputesTotals(t *testing.T) {
	f := newFixture(t)
	wo := f.open(t)

	wo, err := f.svc.AddItem(f.ctx, wo.ID, ItemInput{ProductName: "Mano de obra", ItemType: ItemLabor, Quantity: types.NewQuantity(1), UnitPrice: money(100000)})
	require.NoError(t, err)
	wo, err = f.svc.AddItem(f.ctx, wo.ID, ItemInput{ProductName: "Filtro", ItemType: ItemPart, Quantity: types.NewQuantity(1), UnitPrice: money(50000)})
	require.NoError(t, err)
	assert.True(t, types.NewMoney(178500).Equal(wo.TotalAmount))

	wo, err = f.svc.RemoveItem(f.ctx, wo.ID, wo.Items[1].ID)
	require.NoError(t, err)
	assert.Len(t, wo.Items, 1)
	assert.True(t, types.NewMoney(119000).Equal(wo.TotalAmount), wo.TotalAmount.String())

	_, err = f.svc.RemoveItem(f.ctx, wo.ID, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestDiscountNeverExceedsSubtotal(t *testing.T) {
	f := newFixture(t)
	wo := f.open(t)
	wo, err := f.svc.AddItem(f.ctx, wo.ID, ItemInput{ProductName: "Mano de obra", ItemType: ItemLabor, Quantity: types.NewQuantity(1), UnitPrice: money(100000)})
	require.NoError(t, err)
	labor := wo.Items[0].ID
	wo, err = f.svc.AddItem(f.ctx, wo.ID, ItemInput{ProductName: "Filtro", ItemType: ItemPart, Quantity: types.NewQuantity(1), UnitPrice: money(50000)})
	require.NoError(t, err)

	_, err = f.svc.Update(f.ctx, wo.ID, UpdateInput{DiscountAmount: money(300000)})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	stored, err := f.svc.Get(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.True(t, stored.DiscountAmount.IsZero())

	wo, err = f.svc.Update(f.ctx, wo.ID, UpdateInput{DiscountAmount: money(60000)})
	require.NoError(t, err)

	// removing labor leaves a subtotal of 50000 under the 60000 discount
	_, err = f.svc.RemoveItem(f.ctx, wo.ID, labor)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	stored, err = f.svc.Get(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)

	wo, err = f.svc.Update(f.ctx, wo.ID, UpdateInput{DiscountAmount: money(150000)})
	require.NoError(t, err)
	assert.True(t, wo.TotalAmount.IsZero(), wo.TotalAmount.String())

	f.moveTo(t, wo.ID, StatusInProgress, StatusReady)
	res, err := f.svc.GenerateSale(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.True(t, res.Sale.TotalAmount.IsZero())
	assert.Equal(t, sale.PaymentPaid, res.Sale.PaymentStatus)
}

func TestInvalidTransitionLeavesStatus(t *testing.T) {
	f := newFixture(t)
	wo := f.open(t)
	f.moveTo(t, wo.ID, StatusInProgress, StatusReady)

	_, err := f.svc.ChangeStatus(f.ctx, wo.ID, StatusReceived)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	stored, err := f.svc.Get(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, stored.Status)
}

func TestCancelFromAnyOpenState(t *testing.T) {
	f := newFixture(t)
	for _, path := range [][]Status{
		nil,
		{StatusWaiting},
		{StatusInProgress, StatusReady},
	} {
		wo := f.open(t)
		f.moveTo(t, wo.ID, path...)
		got, err := f.svc.ChangeStatus(f.ctx, wo.ID, StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)

		_, err = f.svc.ChangeStatus(f.ctx, wo.ID, StatusInProgress)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
	}
}

func TestDeliveryStampsDeliveredAtAndPublishes(t *testing.T) {
	f := newFixture(t)
	wo := f.open(t)
	km := int64(46000)
	_, err := f.svc.Update(f.ctx, wo.ID, UpdateInput{MileageOut: &km})
	require.NoError(t, err)
	f.moveTo(t, wo.ID, StatusInProgress, StatusReady, StatusDelivered)

	stored, err := f.svc.Get(f.ctx, wo.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DeliveredAt)
	assert.Nil(t, stored.SaleID)

	last := f.events.Events[len(f.events.Events)-1]
	assert.Equal(t, domain.EventWorkOrderStatusChanged, last.EventType)
	payload := last.Payload.(map[string]any)
	assert.Equal(t, "entregado", payload["to"])
	assert.Equal(t, km, payload["mileage_out"])
}

func TestChecklistOnlyWhileReceived(t *testing.T) {
	f := newFixture(t)
	wo := f.open(t)

	lvl := 3
	first := Checklist{Items: map[string]Condition{"luces": ConditionOK}, FuelLevel: &lvl}
	_, err := f.svc.SaveChecklist(f.ctx, wo.ID, first)
	require.NoError(t, err)

	second := Checklist{Items: map[string]Condition{"frenos": ConditionDefective}}
	got, err := f.svc.SaveChecklist(f.ctx, wo.ID, second)
	require.NoError(t, err)
	assert.NotContains(t, got.ChecklistIn.Items, "luces")
	assert.Nil(t, got.ChecklistIn.FuelLevel)

	f.moveTo(t, wo.ID, StatusInProgress)
	_, err = f.svc.SaveChecklist(f.ctx, wo.ID, first)
	assert.True(t, apperror.HasCode(err, apperror.CodeReadOnly))

	stored, err := f.svc.Get(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Items, stored.ChecklistIn.Items)
}

func TestGenerateSale(t *testing.T) {
	f := newFixture(t)
	wo := f.open(t)
	_, err := f.svc.AddItem(f.ctx, wo.ID, ItemInput{ProductName: "Mano de obra", ItemType: ItemLabor, Quantity: types.NewQuantity(1), UnitPrice: money(100000)})
	require.NoError(t, err)

	_, err = f.svc.GenerateSale(f.ctx, wo.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotReady))

	f.moveTo(t, wo.ID, StatusInProgress, StatusReady)
	res, err := f.svc.GenerateSale(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, res.Order.Status)
	assert.NotNil(t, res.Order.DeliveredAt)
	assert.Equal(t, &res.Sale.ID, res.Order.SaleID)
	assert.True(t, res.Order.TotalAmount.Equal(res.Sale.TotalAmount))
	assert.Equal(t, sale.PaymentPending, res.Sale.PaymentStatus)
	assert.Contains(t, f.events.Types(), domain.EventSaleGenerated)

	_, err = f.svc.GenerateSale(f.ctx, wo.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeSaleExists))
	assert.Equal(t, 1, f.sales.count)

	_, err = f.svc.AddItem(f.ctx, wo.ID, ItemInput{ProductName: "Extra", ItemType: ItemLabor, Quantity: types.NewQuantity(1), UnitPrice: money(1)})
	assert.True(t, apperror.HasCode(err, apperror.CodeReadOnly))
}

func TestGenerateSaleOnDeliveredOrder(t *testing.T) {
	f := newFixture(t)
	wo := f.open(t)
	f.moveTo(t, wo.ID, StatusInProgress, StatusReady, StatusDelivered)
	before := len(f.events.Events)

	res, err := f.svc.GenerateSale(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, res.Order.Status)
	assert.Equal(t, []string{domain.EventSaleGenerated}, f.events.Types()[before:])
}

func TestGenerateSaleWritesOffStockedParts(t *testing.T) {
	f := newFixture(t)

	wh := warehouse.NewWarehouse("", "Bodega", warehouse.TypeShop)
	wh.AllowNegativeStock = true
	require.NoError(t, f.warehouses.Create(f.ctx, wh))
	part := product.NewProduct("", "Bujia", product.KindPart)
	require.NoError(t, f.products.Create(f.ctx, part))
	svcItem := product.NewProduct("", "Alineacion", product.KindService)
	require.NoError(t, f.products.Create(f.ctx, svcItem))

	wo, err := f.svc.Create(f.ctx, CreateInput{
		Vehicle:     vehicle.NewVehicle("stk001"),
		WarehouseID: &wh.ID,
		Items: []ItemInput{
			{ProductID: &part.ID, ItemType: ItemPart, Quantity: types.NewQuantity(4), UnitPrice: money(12000)},
			{ProductID: &svcItem.ID, ItemType: ItemService, Quantity: types.NewQuantity(1), UnitPrice: money(40000)},
			{ProductName: "Mano de obra", ItemType: ItemLabor, Quantity: types.NewQuantity(1), UnitPrice: money(30000)},
		},
	})
	require.NoError(t, err)
	f.moveTo(t, wo.ID, StatusInProgress, StatusReady)

	_, err = f.svc.GenerateSale(f.ctx, wo.ID)
	require.NoError(t, err)

	require.Len(t, f.stockRepo.Movements, 1)
	m := f.stockRepo.Movements[0]
	assert.Equal(t, part.ID, m.ProductID)
	assert.Equal(t, types.NewQuantity(4), m.Quantity)
	assert.Equal(t, wo.ID, m.RecorderID)
}

func TestGenerateSaleFailsOnShortStock(t *testing.T) {
	f := newFixture(t)

	wh := warehouse.NewWarehouse("", "Bodega", warehouse.TypeMain)
	require.NoError(t, f.warehouses.Create(f.ctx, wh))
	part := product.NewProduct("", "Bujia", product.KindPart)
	require.NoError(t, f.products.Create(f.ctx, part))

	wo, err := f.svc.Create(f.ctx, CreateInput{
		Vehicle:     vehicle.NewVehicle("stk002"),
		WarehouseID: &wh.ID,
		Items:       []ItemInput{{ProductID: &part.ID, ItemType: ItemPart, Quantity: types.NewQuantity(1), UnitPrice: money(12000)}},
	})
	require.NoError(t, err)
	f.moveTo(t, wo.ID, StatusInProgress, StatusReady)

	_, err = f.svc.GenerateSale(f.ctx, wo.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
}

func TestUpdateRejectsStaleVersionAndClosedOrders(t *testing.T) {
	f := newFixture(t)
	wo := f.open(t)

	diag := "Embrague desgastado"
	got, err := f.svc.Update(f.ctx, wo.ID, UpdateInput{Version: wo.Version, Diagnosis: &diag, DiscountAmount: money(1000)})
	require.NoError(t, err)
	assert.Equal(t, diag, *got.Diagnosis)

	_, err = f.svc.Update(f.ctx, wo.ID, UpdateInput{Version: wo.Version, Diagnosis: &diag})
	assert.True(t, apperror.IsConcurrentModification(err))

	f.moveTo(t, wo.ID, StatusCancelled)
	_, err = f.svc.Update(f.ctx, wo.ID, UpdateInput{Diagnosis: &diag})
	assert.True(t, apperror.HasCode(err, apperror.CodeReadOnly))
}

func TestPhotos(t *testing.T) {
	f := newFixture(t)
	wo := f.open(t)

	got, err := f.svc.AddPhotos(f.ctx, wo.ID, PhaseIn, []PhotoUpload{
		{Name: "front.jpg", Reader: bytes.NewReader([]byte("a"))},
		{Name: "back.jpg", Reader: bytes.NewReader([]byte("b"))},
	})
	require.NoError(t, err)
	require.Len(t, got.PhotosIn, 2)
	assert.Empty(t, got.PhotosOut)

	got, err = f.svc.RemovePhoto(f.ctx, wo.ID, PhaseIn, 0)
	require.NoError(t, err)
	assert.Len(t, got.PhotosIn, 1)
	assert.True(t, strings.HasSuffix(got.PhotosIn[0], "back.jpg"))
	assert.Len(t, f.photos.deleted, 1)

	_, err = f.svc.RemovePhoto(f.ctx, wo.ID, PhaseIn, 5)
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.svc.AddPhotos(f.ctx, id.New(), PhaseOut, []PhotoUpload{{Name: "x.jpg", Reader: bytes.NewReader(nil)}})
	assert.True(t, apperror.IsNotFound(err))
}

func TestVehicleHistory(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Create(f.ctx, CreateInput{Vehicle: vehicle.NewVehicle("his001")})
	require.NoError(t, err)
	_, err = f.svc.Create(f.ctx, CreateInput{Vehicle: vehicle.NewVehicle("his001")})
	require.NoError(t, err)
	f.open(t)

	hist, err := f.svc.VehicleHistory(f.ctx, first.VehicleID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, hist.Items, 2)
}

func TestSettingsDriveTotals(t *testing.T) {
	f := newFixture(t)
	settings := tenant.NewStaticSettings(tenant.WorkshopSettings{
		TaxRate:          decimal.NewFromInt(5),
		HideRemisionTax:  true,
		CurrencyDecimals: 2,
	})
	f.svc.settings = settings

	wo, err := f.svc.Create(f.ctx, CreateInput{
		Vehicle: vehicle.NewVehicle("set001"),
		Items:   []ItemInput{{ProductName: "Servicio", ItemType: ItemService, Quantity: types.NewQuantity(1), UnitPrice: money(1001)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "50.05", wo.TaxAmount.StringFixed(2))

	p := f.svc.Presentation(f.ctx, wo)
	assert.True(t, p.TaxHidden)
	assert.True(t, p.TotalAmount.Equal(wo.TotalAmount))
}
