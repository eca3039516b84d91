package detection

import (
	"strings"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/workflow"
)

// StepAlias maps free-form rule wording onto a canonical step name
type StepAlias struct {
	Name    string
	Aliases []string
}

// StepCatalog is the known-step vocabulary, matched in order.
type StepCatalog []StepAlias

// DefaultStepCatalog returns the loan-processing steps recognised out of the box.
func DefaultStepCatalog() StepCatalog {
	return StepCatalog{
		{Name: "Income Verification", Aliases: []string{"income verification", "verify income"}},
		{Name: "Document Verification", Aliases: []string{"document verification", "verify documents"}},
		{Name: "Credit Check", Aliases: []string{"credit check"}},
		{Name: "Risk Assessment", Aliases: []string{"risk assessment"}},
		{Name: "Manager Approval", Aliases: []string{"manager approval"}},
		{Name: "Final Approval", Aliases: []string{"final approval"}},
		{Name: "Application Received", Aliases: []string{"application received"}},
	}
}

// Match returns the canonical step mentioned in text.
func (c StepCatalog) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, step := range c {
		if strings.Contains(lower, strings.ToLower(step.Name)) {
			return step.Name, true
		}
		for _, alias := range step.Aliases {
			if alias != "" && strings.Contains(lower, strings.ToLower(alias)) {
				return step.Name, true
			}
		}
	}
	return "", false
}

// StepName resolves the step a sequence rule refers to: an explicit
// condition.step_name, then a catalog match on the description, then the
// description itself.
func (c StepCatalog) StepName(rule workflow.ComplianceRule) string {
	if name, ok := rule.ConditionString("step_name"); ok {
		return name
	}
	if name, ok := c.Match(rule.Description); ok {
		return name
	}
	return strings.TrimSpace(rule.Description)
}

// stepKey is the comparison form of a step name.
func stepKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
