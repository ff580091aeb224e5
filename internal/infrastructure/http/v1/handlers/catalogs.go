package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"taller/internal/domain/catalogs/customer"
	"taller/internal/domain/catalogs/product"
	"taller/internal/domain/catalogs/technician"
	"taller/internal/domain/catalogs/vehicle"
	"taller/internal/domain/catalogs/warehouse"
	"taller/internal/domain/documents/work_order"
	"taller/internal/infrastructure/http/v1/dto"
)

type CustomerHandler = CatalogHandler[*customer.Customer, dto.CreateCustomerRequest, dto.UpdateCustomerRequest]

func NewCustomerHandler(base *BaseHandler, service *customer.Service) *CustomerHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[*customer.Customer, dto.CreateCustomerRequest, dto.UpdateCustomerRequest]{
		Service: service.CatalogService,
		MapCreateDTO: func(req dto.CreateCustomerRequest) *customer.Customer {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateCustomerRequest, existing *customer.Customer) *customer.Customer {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(c *customer.Customer) any { return dto.FromCustomer(c) },
	})
}

type TechnicianHandler = CatalogHandler[*technician.Technician, dto.CreateTechnicianRequest, dto.UpdateTechnicianRequest]

func NewTechnicianHandler(base *BaseHandler, service *technician.Service) *TechnicianHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[*technician.Technician, dto.CreateTechnicianRequest, dto.UpdateTechnicianRequest]{
		Service: service.CatalogService,
		MapCreateDTO: func(req dto.CreateTechnicianRequest) *technician.Technician {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateTechnicianRequest, existing *technician.Technician) *technician.Technician {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(t *technician.Technician) any { return dto.FromTechnician(t) },
	})
}

type ProductHandler = CatalogHandler[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]

func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]{
		Service: service.CatalogService,
		MapCreateDTO: func(req dto.CreateProductRequest) *product.Product {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateProductRequest, existing *product.Product) *product.Product {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(p *product.Product) any { return dto.FromProduct(p) },
	})
}

type WarehouseHandler = CatalogHandler[*warehouse.Warehouse, dto.CreateWarehouseRequest, dto.UpdateWarehouseRequest]

func NewWarehouseHandler(base *BaseHandler, service *warehouse.Service) *WarehouseHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[*warehouse.Warehouse, dto.CreateWarehouseRequest, dto.UpdateWarehouseRequest]{
		Service: service.CatalogService,
		MapCreateDTO: func(req dto.CreateWarehouseRequest) *warehouse.Warehouse {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateWarehouseRequest, existing *warehouse.Warehouse) *warehouse.Warehouse {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(wh *warehouse.Warehouse) any { return dto.FromWarehouse(wh) },
	})
}

// VehicleHandler adds plate lookup and service history to the vehicle CRUD.
type VehicleHandler struct {
	*CatalogHandler[*vehicle.Vehicle, dto.VehicleFields, dto.UpdateVehicleRequest]
	vehicles *vehicle.Service
	orders   *work_order.Service
	now      func() time.Time
}

func NewVehicleHandler(base *BaseHandler, service *vehicle.Service, orders *work_order.Service) *VehicleHandler {
	h := &VehicleHandler{vehicles: service, orders: orders, now: time.Now}
	h.CatalogHandler = NewCatalogHandler(base, CatalogHandlerConfig[*vehicle.Vehicle, dto.VehicleFields, dto.UpdateVehicleRequest]{
		Service:      service.CatalogService,
		DefaultOrder: "code",
		MapCreateDTO: func(req dto.VehicleFields) *vehicle.Vehicle {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateVehicleRequest, existing *vehicle.Vehicle) *vehicle.Vehicle {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(v *vehicle.Vehicle) any { return dto.FromVehicle(v, h.now()) },
	})
	return h
}

// GetByPlate handles GET /vehicles/by-plate/:plate.
func (h *VehicleHandler) GetByPlate(c *gin.Context) {
	v, err := h.vehicles.GetByPlate(c.Request.Context(), c.Param("plate"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromVehicle(v, h.now()))
}

// History handles GET /vehicles/:id/history: the vehicle and its orders,
// newest first.
func (h *VehicleHandler) History(c *gin.Context) {
	vehicleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if !h.BindQuery(c, &q) {
		return
	}
	ctx := c.Request.Context()
	v, err := h.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	result, err := h.orders.VehicleHistory(ctx, vehicleID, limit, q.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.VehicleHistoryResponse{
		Vehicle: dto.FromVehicle(v, h.now()),
		History: dto.MapList(result, func(wo *work_order.WorkOrder) dto.WorkOrderSummary {
			return dto.FromWorkOrderSummary(wo, h.orders.Presentation(ctx, wo))
		}),
	})
}
