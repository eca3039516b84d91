package detection

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/workflow"
)

// ApprovalPolicy maps approval-rule wording to the keywords that must
// co-occur in a single step name for the approval to count as given.
type ApprovalPolicy struct {
	Name     string
	StepName string
	// Triggers select the policy when any of them appears in a rule description.
	Triggers []string
	Keywords []string
	// Baseline policies apply whenever the rule set has any approval rule.
	Baseline bool
}

// PolicyTable is an ordered list of approval policies
type PolicyTable []ApprovalPolicy

// DefaultPolicies returns the manager and final approval policies.
func DefaultPolicies() PolicyTable {
	return PolicyTable{
		{
			Name:     "manager_approval",
			StepName: "Manager Approval",
			Triggers: []string{"manager"},
			Keywords: []string{"manager", "approval"},
		},
		{
			Name:     "final_approval",
			StepName: "Final Approval",
			Triggers: []string{"final"},
			Keywords: []string{"final", "approval"},
			Baseline: true,
		},
	}
}

// ApprovalRequirement is one approval a case must show
type ApprovalRequirement struct {
	Name     string
	StepName string
	Keywords []string
	RuleID   string
}

// SatisfiedBy reports whether any of the (lowercased) step names contains
// every keyword.
func (r ApprovalRequirement) SatisfiedBy(lowerSteps []string) bool {
	for _, step := range lowerSteps {
		matched := true
		for _, kw := range r.Keywords {
			if !strings.Contains(step, kw) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// Resolve turns approval rules into requirements. Explicit condition keywords
// win over the table; rules that neither carry keywords nor match a policy
// are returned as unresolved.
func (t PolicyTable) Resolve(rules []workflow.ComplianceRule) ([]ApprovalRequirement, []workflow.ComplianceRule) {
	approvals := workflow.OfType(rules, workflow.RuleTypeApproval)
	if len(approvals) == 0 {
		return nil, nil
	}

	byPolicy := make(map[int]ApprovalRequirement)
	var explicit []ApprovalRequirement
	var unresolved []workflow.ComplianceRule

	for _, rule := range approvals {
		if keywords := rule.ConditionStrings("keywords"); len(keywords) > 0 {
			stepName, ok := rule.ConditionString("step_name")
			if !ok {
				stepName = titleCase(strings.Join(keywords, " "))
			}
			explicit = append(explicit, ApprovalRequirement{
				Name:     rule.ID,
				StepName: stepName,
				Keywords: keywords,
				RuleID:   rule.ID,
			})
			continue
		}

		desc := strings.ToLower(rule.Description)
		matched := false
		for i, policy := range t {
			if !containsAny(desc, policy.Triggers) {
				continue
			}
			matched = true
			if _, seen := byPolicy[i]; !seen {
				byPolicy[i] = policy.requirement(rule.ID)
			}
		}
		if !matched {
			unresolved = append(unresolved, rule)
		}
	}

	for i, policy := range t {
		if _, seen := byPolicy[i]; policy.Baseline && !seen {
			byPolicy[i] = policy.requirement(approvals[0].ID)
		}
	}

	order := make([]int, 0, len(byPolicy))
	for i := range byPolicy {
		order = append(order, i)
	}
	sort.Ints(order)

	reqs := make([]ApprovalRequirement, 0, len(order)+len(explicit))
	seen := make(map[string]bool)
	for _, i := range order {
		reqs = appendUnique(reqs, seen, byPolicy[i])
	}
	for _, req := range explicit {
		reqs = appendUnique(reqs, seen, req)
	}

	return reqs, unresolved
}

func (p ApprovalPolicy) requirement(ruleID string) ApprovalRequirement {
	keywords := make([]string, len(p.Keywords))
	for i, kw := range p.Keywords {
		keywords[i] = strings.ToLower(kw)
	}
	return ApprovalRequirement{Name: p.Name, StepName: p.StepName, Keywords: keywords, RuleID: ruleID}
}

func appendUnique(reqs []ApprovalRequirement, seen map[string]bool, req ApprovalRequirement) []ApprovalRequirement {
	key := stepKey(req.StepName)
	if seen[key] {
		return reqs
	}
	seen[key] = true
	return append(reqs, req)
}

// ApprovalValidator checks each case for required approval steps
type ApprovalValidator struct {
	requirements []ApprovalRequirement
}

// NewApprovalValidator creates a validator over resolved requirements
func NewApprovalValidator(reqs []ApprovalRequirement) *ApprovalValidator {
	return &ApprovalValidator{requirements: reqs}
}

// Validate emits one missing_approval per unmet requirement.
func (v *ApprovalValidator) Validate(c workflow.Case) []deviation.Deviation {
	if len(v.requirements) == 0 || len(c.Events) == 0 {
		return nil
	}

	lowerSteps := make([]string, len(c.Events))
	for i, ev := range c.Events {
		lowerSteps[i] = strings.ToLower(ev.StepName)
	}

	var out []deviation.Deviation
	for _, req := range v.requirements {
		if req.SatisfiedBy(lowerSteps) {
			continue
		}
		out = append(out, newDeviation(c, deviation.TypeMissingApproval, values.SeverityCritical,
			fmt.Sprintf("Missing %s", strings.ToLower(req.StepName)),
			fmt.Sprintf("%s required before the case is completed", req.StepName),
			fmt.Sprintf("No step matching %s was performed", strings.Join(req.Keywords, " + ")),
			req.RuleID, c.Last().Timestamp))
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub = strings.ToLower(strings.TrimSpace(sub)); sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
