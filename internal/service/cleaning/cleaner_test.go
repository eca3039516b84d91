package cleaning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
	"github.com/vedangtiwari01-dev/vs-demo/internal/testutil/fixtures"
)

func TestCleaner_Deduplicates(t *testing.T) {
	base := fixtures.NewDeviationBuilder(t)
	raw := []deviation.Deviation{
		base.Build(),
		fixtures.NewDeviationBuilder(t).WithDescription("  MISSING required step:   Credit Check ").Build(),
		fixtures.NewDeviationBuilder(t).WithOfficer("OFF002").Build(),
		fixtures.NewDeviationBuilder(t).WithDescription("Missing required step: Document Verification").Build(),
	}

	result := NewCleaner(zaptest.NewLogger(t), DefaultConfig()).Clean(raw, 0)

	require.Len(t, result.Deviations, 3)
	assert.Equal(t, 1, result.Deviations[0].DuplicateCount)
	assert.Equal(t, 1, result.Report.DuplicatesRemoved)
	assert.Equal(t, 1, result.Report.TextNormalized)
	assert.Equal(t, 75.0, result.Report.CleanedPercentage)
}

func TestCleaner_NormalizesFields(t *testing.T) {
	raw := []deviation.Deviation{
		fixtures.NewDeviationBuilder(t).WithSeverity("crit").WithType("Missing Approval").
			WithDescription("Missing manager approval").Build(),
		fixtures.NewDeviationBuilder(t).WithCase("CASE002").WithSeverity("whatever").Build(),
		fixtures.NewDeviationBuilder(t).WithCase("CASE003").WithType("made_up_type").Build(),
		fixtures.NewDeviationBuilder(t).WithCase("CASE004").WithOfficer(" ").Build(),
		fixtures.NewDeviationBuilder(t).WithCase("CASE005").WithSeverity(" ").Build(),
	}

	result := NewCleaner(zaptest.NewLogger(t), DefaultConfig()).Clean(raw, 2)

	require.Len(t, result.Deviations, 3)
	assert.Equal(t, values.SeverityCritical, result.Deviations[0].Severity)
	assert.Equal(t, deviation.TypeMissingApproval, result.Deviations[0].Type)
	assert.Equal(t, values.SeverityMedium, result.Deviations[1].Severity)
	assert.Equal(t, deviation.Type("made_up_type"), result.Deviations[2].Type)

	r := result.Report
	assert.Equal(t, 3, r.FieldsFixed)
	assert.Equal(t, 1, r.UnrecognizedSeverities)
	assert.Equal(t, 1, r.UnrecognizedTypes)
	assert.Equal(t, 2, r.MissingRequired)
	assert.Equal(t, 2, r.InputRejected)
	assert.Len(t, r.Warnings, 2)
}

func TestCleaner_FillsOptionalFields(t *testing.T) {
	d := fixtures.NewDeviationBuilder(t).Build()
	d.ExpectedBehavior = ""
	d.ActualBehavior = "  "

	result := NewCleaner(zaptest.NewLogger(t), DefaultConfig()).Clean([]deviation.Deviation{d}, 0)

	require.Len(t, result.Deviations, 1)
	assert.Equal(t, "Not specified", result.Deviations[0].ExpectedBehavior)
	assert.Equal(t, "Not specified", result.Deviations[0].ActualBehavior)
	assert.Equal(t, 2, result.Report.OptionalDefaulted)
}

func TestCleaner_Idempotent(t *testing.T) {
	raw := fixtures.SyntheticPopulation(t, 200, 7)
	raw = append(raw, raw[:20]...)
	raw[3].Severity = "HI"
	raw[4].Type = deviation.Type(strings.ToUpper(strings.ReplaceAll(string(raw[4].Type), "_", "-")))

	c := NewCleaner(zaptest.NewLogger(t), DefaultConfig())
	first := c.Clean(raw, 0)
	second := c.Clean(first.Deviations, 0)

	assert.Equal(t, 20, first.Report.DuplicatesRemoved)
	assert.Zero(t, second.Report.DuplicatesRemoved)
	assert.Zero(t, second.Report.MissingRequired)
	assert.Zero(t, second.Report.FieldsFixed)
	assert.Equal(t, first.Deviations, second.Deviations)
}

func TestCleaner_Score(t *testing.T) {
	c := NewCleaner(zaptest.NewLogger(t), DefaultConfig())

	tests := []struct {
		name      string
		report    Report
		wantScore float64
		wantGrade string
	}{
		{"empty input", Report{}, 100, "A"},
		{"clean input", Report{OriginalCount: 50}, 100, "A"},
		{"every record duplicated", Report{OriginalCount: 10, DuplicatesRemoved: 10}, 75, "C"},
		{"a fifth missing fields", Report{OriginalCount: 10, MissingRequired: 2}, 90, "A"},
		{"everything wrong", Report{OriginalCount: 10, DuplicatesRemoved: 10, FieldsFixed: 25, MissingRequired: 10}, 0, "F"},
		{"mixed", Report{OriginalCount: 10, DuplicatesRemoved: 4, FieldsFixed: 3, UnrecognizedTypes: 1, MissingRequired: 4}, 60, "D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := c.Score(tt.report)
			assert.Equal(t, tt.wantScore, q.Score)
			assert.Equal(t, tt.wantGrade, q.Grade)
			assert.GreaterOrEqual(t, q.Score, 0.0)
			assert.LessOrEqual(t, q.Score, 100.0)
		})
	}
}

func TestGrade(t *testing.T) {
	for score, want := range map[float64]string{95: "A", 90: "A", 85: "B", 70: "C", 60: "D", 59.99: "F"} {
		got, _ := Grade(score)
		assert.Equal(t, want, got, "score %v", score)
	}
}

func TestAggregate(t *testing.T) {
	a := fixtures.SyntheticPopulation(t, 3, 1)
	b := fixtures.SyntheticPopulation(t, 2, 2)

	merged := Aggregate(a, nil, b)

	require.Len(t, merged, 5)
	assert.Equal(t, a[0], merged[0])
	assert.Equal(t, b[1], merged[4])
}
