package entity

import (
	"context"
	"strings"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
)

// Catalog is flat reference data: customers, technicians, products,
// warehouses and vehicles. Code is unique per tenant database.
type Catalog struct {
	BaseCatalog

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

func NewCatalog(code, name string) Catalog {
	return Catalog{
		BaseCatalog: NewBaseCatalog(),
		Code:        code,
		Name:        name,
	}
}

// Validate requires a name. An empty code is allowed here and filled by the
// numerator before insert.
func (c *Catalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}

func (c *Catalog) GetID() id.ID {
	return c.ID
}

func (c *Catalog) GetCode() string {
	return c.Code
}
