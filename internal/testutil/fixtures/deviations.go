package fixtures

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
	"github.com/vedangtiwari01-dev/vs-demo/internal/testutil"
)

// DeviationBuilder builds test deviations
type DeviationBuilder struct {
	t   *testing.T
	dev deviation.Deviation
}

// NewDeviationBuilder creates a builder with valid defaults
func NewDeviationBuilder(t *testing.T) *DeviationBuilder {
	t.Helper()
	return &DeviationBuilder{
		t: t,
		dev: deviation.Deviation{
			CaseID:           "CASE001",
			OfficerID:        "OFF001",
			Type:             deviation.TypeMissingStep,
			Severity:         values.SeverityHigh,
			Description:      "Missing required step: Credit Check",
			ExpectedBehavior: "Step \"Credit Check\" should be completed",
			ActualBehavior:   "Step \"Credit Check\" was skipped",
			DetectedAt:       testutil.BaseTime,
		},
	}
}

// WithCase sets the case id
func (b *DeviationBuilder) WithCase(caseID string) *DeviationBuilder {
	b.dev.CaseID = caseID
	return b
}

// WithOfficer sets the officer id
func (b *DeviationBuilder) WithOfficer(officer string) *DeviationBuilder {
	b.dev.OfficerID = officer
	return b
}

// WithType sets the deviation type
func (b *DeviationBuilder) WithType(t deviation.Type) *DeviationBuilder {
	b.dev.Type = t
	return b
}

// WithSeverity sets the severity
func (b *DeviationBuilder) WithSeverity(s values.Severity) *DeviationBuilder {
	b.dev.Severity = s
	return b
}

// WithDescription sets the description
func (b *DeviationBuilder) WithDescription(desc string) *DeviationBuilder {
	b.dev.Description = desc
	return b
}

// WithDetectedAt sets the detection time
func (b *DeviationBuilder) WithDetectedAt(at time.Time) *DeviationBuilder {
	b.dev.DetectedAt = at
	return b
}

// Build returns the deviation with an id assigned
func (b *DeviationBuilder) Build() deviation.Deviation {
	d := b.dev
	if d.ID == "" {
		d.ID = deviation.NewID(d.CaseID, d.Type, d.Description, 0)
	}
	return d
}

type template struct {
	typ      deviation.Type
	severity values.Severity
	desc     string
}

var populationTemplates = []template{
	{deviation.TypeMissingStep, values.SeverityHigh, "Missing required step: Document Verification"},
	{deviation.TypeMissingStep, values.SeverityHigh, "Missing required step: Credit Check"},
	{deviation.TypeWrongSequence, values.SeverityHigh, "Wrong step order: Credit Check before Document Verification"},
	{deviation.TypeMissingApproval, values.SeverityCritical, "Missing manager approval"},
	{deviation.TypeTimingViolation, values.SeverityMedium, "Process completed too quickly"},
	{deviation.TypeTimingViolation, values.SeverityLow, "Long delay between Credit Check and Manager Approval"},
	{deviation.TypeUnexpectedStep, values.SeverityMedium, "Unexpected step performed: Manual Override"},
}

// SyntheticPopulation returns n distinct deviations drawn from a small set of
// recurring patterns, spread over officers, days and hours. The same seed
// always yields the same population.
func SyntheticPopulation(t *testing.T, n int, seed int64) []deviation.Deviation {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	out := make([]deviation.Deviation, 0, n)
	for i := 0; i < n; i++ {
		tpl := populationTemplates[rng.Intn(len(populationTemplates))]
		caseID := fmt.Sprintf("CASE%04d", i)
		officer := fmt.Sprintf("OFF%03d", rng.Intn(12))
		at := testutil.BaseTime.
			Add(time.Duration(rng.Intn(14)) * 24 * time.Hour).
			Add(time.Duration(rng.Intn(10)) * time.Hour)

		out = append(out, deviation.Deviation{
			ID:               deviation.NewID(caseID, tpl.typ, tpl.desc, 0),
			CaseID:           caseID,
			OfficerID:        officer,
			Type:             tpl.typ,
			Severity:         tpl.severity,
			Description:      tpl.desc,
			ExpectedBehavior: "Standard operating procedure followed",
			ActualBehavior:   "Procedure deviated",
			DetectedAt:       at,
		})
	}
	return out
}
