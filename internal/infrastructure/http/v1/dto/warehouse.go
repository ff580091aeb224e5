package dto

import "taller/internal/domain/catalogs/warehouse"

type CreateWarehouseRequest struct {
	Code               string                  `json:"code"`
	Name               string                  `json:"name" binding:"required"`
	Type               warehouse.WarehouseType `json:"type" binding:"required,oneof=main shop transit"`
	Address            *string                 `json:"address"`
	IsActive           *bool                   `json:"isActive"`
	AllowNegativeStock bool                    `json:"allowNegativeStock"`
	IsDefault          bool                    `json:"isDefault"`
	Description        *string                 `json:"description"`
}

func (r *CreateWarehouseRequest) ToEntity() *warehouse.Warehouse {
	wh := warehouse.NewWarehouse(r.Code, r.Name, r.Type)
	wh.Address = r.Address
	if r.IsActive != nil {
		wh.IsActive = *r.IsActive
	}
	wh.AllowNegativeStock = r.AllowNegativeStock
	wh.IsDefault = r.IsDefault
	wh.Description = r.Description
	return wh
}

type UpdateWarehouseRequest struct {
	CreateWarehouseRequest
	Version int `json:"version" binding:"required,min=1"`
}

func (r *UpdateWarehouseRequest) ApplyTo(wh *warehouse.Warehouse) {
	if r.Code != "" {
		wh.Code = r.Code
	}
	wh.Name = r.Name
	wh.Type = r.Type
	wh.Address = r.Address
	if r.IsActive != nil {
		wh.IsActive = *r.IsActive
	}
	wh.AllowNegativeStock = r.AllowNegativeStock
	wh.IsDefault = r.IsDefault
	wh.Description = r.Description
	wh.Version = r.Version
}

type WarehouseResponse struct {
	CatalogResponse
	Type               warehouse.WarehouseType `json:"type"`
	Address            *string                 `json:"address,omitempty"`
	IsActive           bool                    `json:"isActive"`
	AllowNegativeStock bool                    `json:"allowNegativeStock"`
	IsDefault          bool                    `json:"isDefault"`
	Description        *string                 `json:"description,omitempty"`
}

func FromWarehouse(wh *warehouse.Warehouse) *WarehouseResponse {
	return &WarehouseResponse{
		CatalogResponse:    FromCatalog(wh.Catalog),
		Type:               wh.Type,
		Address:            wh.Address,
		IsActive:           wh.IsActive,
		AllowNegativeStock: wh.AllowNegativeStock,
		IsDefault:          wh.IsDefault,
		Description:        wh.Description,
	}
}
