package technician

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/apperror"
)

func TestValidatePercentage(t *testing.T) {
	tests := []struct {
		pct     string
		wantErr bool
	}{
		{"0", false},
		{"35.5", false},
		{"100", false},
		{"-1", true},
		{"100.01", true},
	}
	for _, tt := range tests {
		t.Run(tt.pct, func(t *testing.T) {
			err := ValidatePercentage(decimal.RequireFromString(tt.pct))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTechnicianValidate(t *testing.T) {
	tech := NewTechnician("", "Carlos", decimal.NewFromInt(40))
	assert.NoError(t, tech.Validate(context.Background()))
	assert.True(t, tech.IsActive)

	tech.Name = " "
	assert.Error(t, tech.Validate(context.Background()))
}
