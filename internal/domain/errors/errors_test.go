package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		wantType  ErrorType
		wantFatal bool
	}{
		{"validation", NewValidationError("BAD_TIMESTAMP", "cannot parse"), ErrorTypeValidation, false},
		{"insufficient data", NewInsufficientDataError(4, 10), ErrorTypeInsufficientData, false},
		{"degenerate clustering", NewDegenerateClusteringError(1, 2, 20), ErrorTypeDegenerateClustering, false},
		{"configuration", NewConfigurationError("analysis.contamination", "must be in (0, 0.5]"), ErrorTypeConfiguration, true},
		{"internal", NewInternalError("boom"), ErrorTypeInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("stage failed: %w", tt.err)
			assert.True(t, IsType(wrapped, tt.wantType))
			assert.Equal(t, tt.wantFatal, IsFatal(wrapped))
			assert.Equal(t, tt.err.Code, Code(wrapped))
		})
	}
}

func TestAppError_Cause(t *testing.T) {
	cause := fmt.Errorf("parse error")
	err := NewValidationError("BAD_TIMESTAMP", "invalid timestamp").WithCause(cause)

	assert.Equal(t, "invalid timestamp: parse error", err.Error())
	assert.ErrorIs(t, err, cause)

	err.WithDetail("field", "timestamp")
	assert.Equal(t, "timestamp", err.Details["field"])
}

func TestForeignErrors(t *testing.T) {
	foreign := fmt.Errorf("plain")
	assert.False(t, IsType(foreign, ErrorTypeValidation))
	assert.True(t, IsFatal(foreign))
	assert.False(t, IsFatal(nil))
	assert.Equal(t, "INTERNAL_ERROR", Code(foreign))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "creating logger"))

	cfgErr := NewConfigurationError("log_level", "unknown")
	err := Wrap(cfgErr, "creating logger")
	assert.Equal(t, "creating logger: log_level: unknown", err.Error())
	assert.True(t, IsType(err, ErrorTypeConfiguration))
	assert.ErrorIs(t, err, cfgErr)
}
