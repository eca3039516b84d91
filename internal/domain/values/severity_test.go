package values

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Severity
		wantFixed bool
		wantErr   bool
	}{
		{name: "canonical", input: "high", want: SeverityHigh},
		{name: "uppercase", input: "CRITICAL", want: SeverityCritical, wantFixed: true},
		{name: "padded", input: " low ", want: SeverityLow, wantFixed: true},
		{name: "crit synonym", input: "crit", want: SeverityCritical, wantFixed: true},
		{name: "hi synonym", input: "Hi", want: SeverityHigh, wantFixed: true},
		{name: "med synonym", input: "med", want: SeverityMedium, wantFixed: true},
		{name: "lo synonym", input: "lo", want: SeverityLow, wantFixed: true},
		{name: "important maps to high", input: "important", want: SeverityHigh, wantFixed: true},
		{name: "minor maps to low", input: "minor", want: SeverityLow, wantFixed: true},
		{name: "empty", input: "  ", wantErr: true},
		{name: "unknown", input: "catastrophic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fixed, err := ParseSeverity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFixed, fixed)
		})
	}
}

func TestSeverity_Weight(t *testing.T) {
	weights := make([]int, 0, 4)
	for _, s := range Severities() {
		weights = append(weights, s.Weight())
	}
	assert.Equal(t, []int{1, 2, 3, 4}, weights)
	assert.Zero(t, Severity("bogus").Weight())
	assert.True(t, SeverityCritical.IsValid())
	assert.False(t, Severity("bogus").IsValid())
	assert.False(t, Severity("HIGH").IsValid())
}

func TestPeriodOf(t *testing.T) {
	tests := []struct {
		hour int
		want TimePeriod
	}{
		{0, PeriodNight},
		{5, PeriodNight},
		{6, PeriodMorning},
		{11, PeriodMorning},
		{12, PeriodAfternoon},
		{17, PeriodAfternoon},
		{18, PeriodEvening},
		{23, PeriodEvening},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PeriodOf(tt.hour), "hour %d", tt.hour)
	}

	_, ok := PeriodOfTime(time.Time{})
	assert.False(t, ok)
	p, ok := PeriodOfTime(time.Date(2024, 3, 4, 19, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, PeriodEvening, p)
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 33.33, Percent(1, 3))
	assert.Equal(t, 66.67, Percent(2, 3))
	assert.Zero(t, Percent(5, 0))
	assert.Equal(t, 10.0, Ratio(800, 80))
	assert.Equal(t, 1.33, Ratio(4, 3))
	assert.Equal(t, 2.35, Round(2.345, 2))
}
