package fixtures

import (
	"testing"
	"time"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/workflow"
	"github.com/vedangtiwari01-dev/vs-demo/internal/testutil"
)

// CaseBuilder builds the events of one case
type CaseBuilder struct {
	t       *testing.T
	caseID  string
	officer string
	start   time.Time
	seq     int
	events  []workflow.WorkflowEvent
}

// NewCaseBuilder creates a case starting at testutil.BaseTime
func NewCaseBuilder(t *testing.T, caseID string) *CaseBuilder {
	t.Helper()
	return &CaseBuilder{
		t:       t,
		caseID:  caseID,
		officer: "OFF001",
		start:   testutil.BaseTime,
	}
}

// WithOfficer sets the officer for subsequent steps
func (b *CaseBuilder) WithOfficer(officer string) *CaseBuilder {
	b.officer = officer
	return b
}

// StartingAt sets the case start time
func (b *CaseBuilder) StartingAt(start time.Time) *CaseBuilder {
	b.start = start
	return b
}

// Step appends a step performed offset after the case start
func (b *CaseBuilder) Step(name string, offset time.Duration) *CaseBuilder {
	b.events = append(b.events, workflow.WorkflowEvent{
		CaseID:    b.caseID,
		OfficerID: b.officer,
		StepName:  name,
		Action:    "completed",
		Timestamp: b.start.Add(offset),
		Seq:       b.seq,
	})
	b.seq++
	return b
}

// Events returns the built events
func (b *CaseBuilder) Events() []workflow.WorkflowEvent {
	return append([]workflow.WorkflowEvent(nil), b.events...)
}

// Case returns the built events grouped as a single case
func (b *CaseBuilder) Case() workflow.Case {
	b.t.Helper()
	cases := workflow.GroupCases(b.events)
	if len(cases) != 1 {
		b.t.Fatalf("expected one case, got %d", len(cases))
	}
	return cases[0]
}

// SequenceRule builds a sequence rule for step at position n
func SequenceRule(id, step string, n int) workflow.ComplianceRule {
	return workflow.ComplianceRule{
		ID:          id,
		Type:        workflow.RuleTypeSequence,
		Description: step,
		StepNumber:  testutil.Ptr(n),
		Severity:    values.SeverityHigh,
	}
}

// ApprovalRule builds an approval rule
func ApprovalRule(id, description string) workflow.ComplianceRule {
	return workflow.ComplianceRule{
		ID:          id,
		Type:        workflow.RuleTypeApproval,
		Description: description,
		Severity:    values.SeverityCritical,
	}
}

// TimingRule builds a timing rule with optional condition parameters
func TimingRule(id, description string, condition map[string]interface{}) workflow.ComplianceRule {
	return workflow.ComplianceRule{
		ID:          id,
		Type:        workflow.RuleTypeTiming,
		Description: description,
		Severity:    values.SeverityMedium,
		Condition:   condition,
	}
}

// LoanRules is the three-step loan process plus a manager approval rule.
func LoanRules() []workflow.ComplianceRule {
	return []workflow.ComplianceRule{
		SequenceRule("R1", "Application Received", 1),
		SequenceRule("R2", "Document Verification", 2),
		SequenceRule("R3", "Credit Check", 3),
		ApprovalRule("R4", "Manager approval required"),
	}
}

// RushedCase is a case that jumps from intake to final approval in 30 minutes.
func RushedCase(t *testing.T, caseID string) []workflow.WorkflowEvent {
	t.Helper()
	return NewCaseBuilder(t, caseID).
		Step("Application Received", 0).
		Step("Final Approval", 30*time.Minute).
		Events()
}

// CompliantCase follows every step of LoanRules over two days.
func CompliantCase(t *testing.T, caseID string) []workflow.WorkflowEvent {
	t.Helper()
	return NewCaseBuilder(t, caseID).
		Step("Application Received", 0).
		Step("Document Verification", 4*time.Hour).
		Step("Credit Check", 24*time.Hour).
		Step("Manager Approval", 30*time.Hour).
		Step("Final Approval", 48*time.Hour).
		Events()
}
