package detection

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/workflow"
	"github.com/vedangtiwari01-dev/vs-demo/internal/testutil"
	"github.com/vedangtiwari01-dev/vs-demo/internal/testutil/fixtures"
)

func TestDetector_RushedLoanCase(t *testing.T) {
	d := NewDetector(zaptest.NewLogger(t), DefaultConfig())

	result, err := d.Detect(testutil.TestContext(t), fixtures.RushedCase(t, "CASE001"), fixtures.LoanRules())
	require.NoError(t, err)

	require.Len(t, result.Deviations, 5)
	type row struct {
		typ  deviation.Type
		sev  values.Severity
		desc string
	}
	var got []row
	for _, dev := range result.Deviations {
		got = append(got, row{dev.Type, dev.Severity, dev.Description})
	}
	assert.Equal(t, []row{
		{deviation.TypeMissingStep, values.SeverityHigh, "Missing required step: Document Verification"},
		{deviation.TypeMissingStep, values.SeverityHigh, "Missing required step: Credit Check"},
		{deviation.TypeMissingStep, values.SeverityHigh, "Missing required step: Manager Approval"},
		{deviation.TypeMissingApproval, values.SeverityCritical, "Missing manager approval"},
		{deviation.TypeTimingViolation, values.SeverityMedium, "Process completed too quickly"},
	}, got)
	assert.Equal(t, "Process completed in 0.5 hours", result.Deviations[4].ActualBehavior)
	assert.Equal(t, 1, result.CasesEvaluated)
	assert.Equal(t, 3, result.ByType[deviation.TypeMissingStep])
}

func TestDetector_OneEventThreeRules(t *testing.T) {
	rules := []workflow.ComplianceRule{
		fixtures.SequenceRule("S1", "Application Received", 1),
		fixtures.SequenceRule("S2", "Credit Check", 2),
		fixtures.SequenceRule("S3", "Manager Approval", 3),
		fixtures.SequenceRule("S4", "Final Approval", 4),
		fixtures.ApprovalRule("A1", "Manager approval required"),
		fixtures.TimingRule("T1", "Minimum review time", nil),
	}
	events := fixtures.NewCaseBuilder(t, "CASE001").
		Step("Application Received", 0).
		Step("Credit Check", 10*time.Minute).
		Step("Final Approval", 20*time.Minute).
		Events()

	result, err := NewDetector(zaptest.NewLogger(t), DefaultConfig()).Detect(testutil.TestContext(t), events, rules)
	require.NoError(t, err)

	require.Len(t, result.Deviations, 3)
	finalAt := events[2].Timestamp
	types := map[deviation.Type]bool{}
	ids := map[string]bool{}
	for _, dev := range result.Deviations {
		types[dev.Type] = true
		ids[dev.ID] = true
		assert.Equal(t, finalAt, dev.DetectedAt)
	}
	assert.Len(t, types, 3)
	assert.Len(t, ids, 3)
	assert.Greater(t, len(result.Deviations), 1, "deviations are not bounded by events")
}

func TestDetector_CompliantCase(t *testing.T) {
	result, err := NewDetector(zaptest.NewLogger(t), DefaultConfig()).
		Detect(testutil.TestContext(t), fixtures.CompliantCase(t, "CASE001"), fixtures.LoanRules())
	require.NoError(t, err)

	assert.Empty(t, result.Deviations)
	assert.Equal(t, 1, result.CasesEvaluated)
	assert.Zero(t, result.CasesWithDeviations)
}

type panicky struct{ caseID string }

func (p panicky) Validate(c workflow.Case) []deviation.Deviation {
	if c.ID == p.caseID {
		panic("corrupt case")
	}
	return nil
}

func TestDetector_FailureIsolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extra = []CaseValidator{panicky{caseID: "BAD"}}

	var events []workflow.WorkflowEvent
	events = append(events, fixtures.RushedCase(t, "GOOD1")...)
	events = append(events, fixtures.RushedCase(t, "BAD")...)
	events = append(events, fixtures.RushedCase(t, "GOOD2")...)

	result, err := NewDetector(zaptest.NewLogger(t), cfg).Detect(testutil.TestContext(t), events, fixtures.LoanRules())
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "BAD", result.Failures[0].CaseID)
	assert.Equal(t, 2, result.CasesEvaluated)
	assert.Len(t, result.Deviations, 10)
}

func TestDetector_DeterministicAcrossWorkers(t *testing.T) {
	var events []workflow.WorkflowEvent
	for i := 0; i < 40; i++ {
		if i%3 == 0 {
			events = append(events, fixtures.CompliantCase(t, fmt.Sprintf("CASE%03d", i))...)
			continue
		}
		events = append(events, fixtures.RushedCase(t, fmt.Sprintf("CASE%03d", i))...)
	}

	run := func(workers int) []deviation.Deviation {
		cfg := DefaultConfig()
		cfg.Workers = workers
		result, err := NewDetector(zaptest.NewLogger(t), cfg).Detect(testutil.TestContext(t), events, fixtures.LoanRules())
		require.NoError(t, err)
		return result.Deviations
	}

	assert.Equal(t, run(1), run(8))
}

func TestDetector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDetector(zaptest.NewLogger(t), DefaultConfig()).Detect(ctx, fixtures.RushedCase(t, "CASE001"), fixtures.LoanRules())
	assert.ErrorIs(t, err, context.Canceled)
}
