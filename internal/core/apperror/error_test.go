package apperror

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkshopErrorsStatus(t *testing.T) {
	tests := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NewInvalidTransition("work order", "listo", "recibido"), CodeInvalidTransition, http.StatusUnprocessableEntity},
		{NewReadOnly("checklist is read-only"), CodeReadOnly, http.StatusUnprocessableEntity},
		{NewSaleAlreadyGenerated("wo", "s1"), CodeSaleExists, http.StatusConflict},
		{NewNotReady("recibido"), CodeNotReady, http.StatusUnprocessableEntity},
		{NewNoEligibleOrders("t1"), CodeNoEligibleOrders, http.StatusUnprocessableEntity},
		{NewRateLimited(), CodeRateLimited, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, GetHTTPStatus(tt.err))
		})
	}
}

func TestHasCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("change status: %w", NewInvalidTransition("work order", "listo", "recibido"))

	assert.True(t, HasCode(err, CodeInvalidTransition))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(fmt.Errorf("plain"), CodeInvalidTransition))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(fmt.Errorf("plain")))
}
