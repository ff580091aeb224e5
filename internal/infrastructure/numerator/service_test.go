package numerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	corenumerator "taller/internal/core/numerator"
)

func TestSequenceKey(t *testing.T) {
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		reset string
		want  string
	}{
		{"year", "OT_2026"},
		{"month", "OT_2026_03"},
		{"never", "OT"},
		{"", "OT"},
	}
	for _, tt := range tests {
		t.Run(tt.reset, func(t *testing.T) {
			cfg := corenumerator.Config{Prefix: "OT", ResetPeriod: tt.reset}
			assert.Equal(t, tt.want, SequenceKey(cfg, period))
		})
	}
}

func TestFormat(t *testing.T) {
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "OT-2026-00042", Format(corenumerator.DefaultConfig(corenumerator.PrefixWorkOrder), period, 42))
	assert.Equal(t, "LIQ-007", Format(corenumerator.Config{Prefix: "LIQ", PadWidth: 3}, period, 7))
	assert.Equal(t, "REM-123456", Format(corenumerator.Config{Prefix: "REM", PadWidth: 3}, period, 123456))
}
