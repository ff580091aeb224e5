package client

import (
	"context"
	"net/http"
)

// Catalog is the CRUD surface shared by every reference collection. In is
// the create body; with its Version set it is also the update body.
type Catalog[T, In any] struct {
	c    *Client
	path string
}

func newCatalog[T, In any](c *Client, path string) *Catalog[T, In] {
	return &Catalog[T, In]{c: c, path: path}
}

func (cat *Catalog[T, In]) List(ctx context.Context, opts ListOptions) (*Page[T], error) {
	return get[Page[T]](ctx, cat.c, cat.path, opts.values())
}

func (cat *Catalog[T, In]) Get(ctx context.Context, id string) (*T, error) {
	return get[T](ctx, cat.c, pathf(cat.path+"/%s", id), nil)
}

func (cat *Catalog[T, In]) Create(ctx context.Context, in In) (*T, error) {
	return call[T](ctx, cat.c, http.MethodPost, cat.path, in)
}

// Update needs the version read last; a stale one fails with IsConflict.
func (cat *Catalog[T, In]) Update(ctx context.Context, id string, in In) (*T, error) {
	return call[T](ctx, cat.c, http.MethodPut, pathf(cat.path+"/%s", id), in)
}

// Delete sets the deletion mark.
func (cat *Catalog[T, In]) Delete(ctx context.Context, id string) error {
	return cat.c.do(ctx, request{method: http.MethodDelete, path: pathf(cat.path+"/%s", id)}, nil)
}

func (c *Client) Customers() *Catalog[Customer, CustomerInput] {
	return newCatalog[Customer, CustomerInput](c, "/catalog/customers")
}

func (c *Client) Technicians() *Catalog[Technician, TechnicianInput] {
	return newCatalog[Technician, TechnicianInput](c, "/catalog/technicians")
}

func (c *Client) Products() *Catalog[Product, ProductInput] {
	return newCatalog[Product, ProductInput](c, "/catalog/products")
}

func (c *Client) Warehouses() *Catalog[Warehouse, WarehouseInput] {
	return newCatalog[Warehouse, WarehouseInput](c, "/catalog/warehouses")
}
