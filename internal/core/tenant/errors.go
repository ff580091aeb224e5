package tenant

import "errors"

var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrTenantNotActive = errors.New("tenant is not active")
	ErrMaxPoolLimit    = errors.New("max tenant pool limit reached")
)
