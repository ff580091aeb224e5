package dto

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"taller/internal/domain/catalogs/vehicle"
	"taller/internal/domain/documents/work_order"
)

// RegisterValidators adds the workshop binding tags:
//
//	plate      a normalizable vehicle plate
//	item_type  repuesto, servicio or mano_obra
//	wo_status  a work order status
func RegisterValidators(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"plate": func(fl validator.FieldLevel) bool {
			return vehicle.ValidPlate(fl.Field().String())
		},
		"item_type": func(fl validator.FieldLevel) bool {
			return work_order.ItemType(fl.Field().String()).Valid()
		},
		"wo_status": func(fl validator.FieldLevel) bool {
			return work_order.Status(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s validator: %w", tag, err)
		}
	}
	return nil
}

// RegisterGinValidators installs the tags on gin's default validator.
func RegisterGinValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return RegisterValidators(v)
}
