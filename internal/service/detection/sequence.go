package detection

import (
	"fmt"
	"strings"
	"time"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/workflow"
)

// ExpectedStep is one position in the expected process order
type ExpectedStep struct {
	Name   string
	RuleID string
}

// BuildExpectedSequence orders the steps named by sequence rules and appends
// the steps of any approval requirement not already present. With no
// sequence rules the result is empty and ordering checks are disabled.
func BuildExpectedSequence(rules []workflow.ComplianceRule, catalog StepCatalog, approvals []ApprovalRequirement) []ExpectedStep {
	seqRules := workflow.SortSequenceRules(workflow.OfType(rules, workflow.RuleTypeSequence))
	if len(seqRules) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var steps []ExpectedStep
	add := func(name, ruleID string) {
		key := stepKey(name)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		steps = append(steps, ExpectedStep{Name: name, RuleID: ruleID})
	}

	for _, rule := range seqRules {
		add(catalog.StepName(rule), rule.ID)
	}
	for _, req := range approvals {
		add(req.StepName, req.RuleID)
	}

	return steps
}

// SequenceValidator detects missing, out-of-order and unexpected steps
type SequenceValidator struct {
	expected []ExpectedStep
	index    map[string]int
}

// NewSequenceValidator creates a validator for the expected order
func NewSequenceValidator(expected []ExpectedStep) *SequenceValidator {
	index := make(map[string]int, len(expected))
	for i, step := range expected {
		index[stepKey(step.Name)] = i
	}
	return &SequenceValidator{expected: expected, index: index}
}

// Expected returns the expected step names in order.
func (v *SequenceValidator) Expected() []string {
	names := make([]string, len(v.expected))
	for i, step := range v.expected {
		names[i] = step.Name
	}
	return names
}

type observedStep struct {
	name string
	key  string
	at   time.Time
}

// Validate compares one chronologically ordered case against the expected
// sequence.
func (v *SequenceValidator) Validate(c workflow.Case) []deviation.Deviation {
	if len(v.expected) == 0 || len(c.Events) == 0 {
		return nil
	}

	// Distinct steps in first-seen order; repeats do not re-enter the walk.
	var observed []observedStep
	present := make(map[string]bool)
	for _, ev := range c.Events {
		key := stepKey(ev.StepName)
		if present[key] {
			continue
		}
		present[key] = true
		observed = append(observed, observedStep{name: ev.StepName, key: key, at: ev.Timestamp})
	}

	actual := make([]string, len(observed))
	for i, o := range observed {
		actual[i] = o.name
	}
	actualText := strings.Join(actual, " -> ")
	lastAt := c.Last().Timestamp

	var out []deviation.Deviation

	for _, step := range v.expected {
		if present[stepKey(step.Name)] {
			continue
		}
		out = append(out, newDeviation(c, deviation.TypeMissingStep, values.SeverityHigh,
			fmt.Sprintf("Missing required step: %s", step.Name),
			fmt.Sprintf("Step %q should be completed", step.Name),
			fmt.Sprintf("Step %q was skipped (performed: %s)", step.Name, actualText),
			step.RuleID, lastAt))
	}

	for i := 0; i+1 < len(observed); i++ {
		cur, next := observed[i], observed[i+1]
		ci, okCur := v.index[cur.key]
		ni, okNext := v.index[next.key]
		if !okCur || !okNext || ci <= ni {
			continue
		}
		out = append(out, newDeviation(c, deviation.TypeWrongSequence, values.SeverityHigh,
			fmt.Sprintf("Wrong step order: %s before %s", next.name, cur.name),
			fmt.Sprintf("%s should come before %s", v.expected[ni].Name, v.expected[ci].Name),
			fmt.Sprintf("%s was performed after %s", next.name, cur.name),
			v.expected[ni].RuleID, next.at))
	}

	for _, o := range observed {
		if _, ok := v.index[o.key]; ok {
			continue
		}
		out = append(out, newDeviation(c, deviation.TypeUnexpectedStep, values.SeverityMedium,
			fmt.Sprintf("Unexpected step performed: %s", o.name),
			"Only standard SOP steps should be performed",
			fmt.Sprintf("Unexpected step %q was performed", o.name),
			"", o.at))
	}

	return out
}

func newDeviation(c workflow.Case, t deviation.Type, sev values.Severity, desc, expected, actual, ruleID string, at time.Time) deviation.Deviation {
	return deviation.Deviation{
		CaseID:           c.ID,
		OfficerID:        c.OfficerID,
		Type:             t,
		Severity:         sev,
		Description:      desc,
		ExpectedBehavior: expected,
		ActualBehavior:   actual,
		RuleID:           ruleID,
		DetectedAt:       at,
	}
}
