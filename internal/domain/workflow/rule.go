package workflow

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
)

// RuleType classifies a compliance rule
type RuleType string

const (
	RuleTypeSequence RuleType = "sequence"
	RuleTypeApproval RuleType = "approval"
	RuleTypeTiming   RuleType = "timing"
	RuleTypeOther    RuleType = "other"
)

// RuleRecord is a compliance rule as supplied by the ingestion edge
type RuleRecord struct {
	ID          string                 `json:"id,omitempty" yaml:"id,omitempty"`
	RuleType    string                 `json:"rule_type" yaml:"rule_type" validate:"required,oneof=sequence approval timing other"`
	Description string                 `json:"description" yaml:"description" validate:"required"`
	StepNumber  *int                   `json:"step_number,omitempty" yaml:"step_number,omitempty" validate:"omitempty,gte=0"`
	Severity    string                 `json:"severity" yaml:"severity" validate:"required"`
	Condition   map[string]interface{} `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// ComplianceRule is a declarative constraint on case processing
type ComplianceRule struct {
	ID          string
	Type        RuleType
	Description string
	StepNumber  *int
	Severity    values.Severity
	Condition   map[string]interface{}
}

// ToRule validates the record. Rules without an id get a positional one so
// that rule identity is always available as a tie-breaker.
func (r RuleRecord) ToRule(index int) (ComplianceRule, error) {
	r.RuleType = strings.ToLower(strings.TrimSpace(r.RuleType))
	r.Description = strings.TrimSpace(r.Description)

	if err := validate.Struct(r); err != nil {
		return ComplianceRule{}, errors.NewValidationError("INVALID_RULE",
			"rule record is missing or has an invalid field").WithCause(err)
	}

	severity, _, err := values.ParseSeverity(r.Severity)
	if err != nil {
		return ComplianceRule{}, err
	}

	id := strings.TrimSpace(r.ID)
	if id == "" {
		id = fmt.Sprintf("rule-%03d", index+1)
	}

	return ComplianceRule{
		ID:          id,
		Type:        RuleType(r.RuleType),
		Description: r.Description,
		StepNumber:  r.StepNumber,
		Severity:    severity,
		Condition:   r.Condition,
	}, nil
}

// ParseRules converts records into rules, skipping malformed ones.
func ParseRules(records []RuleRecord) ([]ComplianceRule, []Rejection) {
	rules := make([]ComplianceRule, 0, len(records))
	var rejected []Rejection

	for i, rec := range records {
		rule, err := rec.ToRule(i)
		if err != nil {
			rejected = append(rejected, newRejection("rule", i, "", asAppError(err)))
			continue
		}
		rules = append(rules, rule)
	}

	return rules, rejected
}

// OfType filters rules by type, preserving order.
func OfType(rules []ComplianceRule, t RuleType) []ComplianceRule {
	var out []ComplianceRule
	for _, r := range rules {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// SortSequenceRules orders sequence rules by step number; rules without one go
// last. Equal step numbers are ordered by rule id.
func SortSequenceRules(rules []ComplianceRule) []ComplianceRule {
	sorted := append([]ComplianceRule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := stepOrder(sorted[i]), stepOrder(sorted[j])
		if si != sj {
			return si < sj
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func stepOrder(r ComplianceRule) int {
	if r.StepNumber == nil {
		return int(^uint(0) >> 1)
	}
	return *r.StepNumber
}

// ConditionString reads a string parameter from the rule condition.
func (r ComplianceRule) ConditionString(key string) (string, bool) {
	v, ok := r.Condition[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

// ConditionStrings reads a list parameter; a single string is split on commas.
func (r ComplianceRule) ConditionStrings(key string) []string {
	var out []string
	switch v := r.Condition[key].(type) {
	case []string:
		out = append(out, v...)
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		out = strings.Split(v, ",")
	}

	cleaned := out[:0]
	for _, s := range out {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

// ConditionFloat reads a numeric parameter from the rule condition.
func (r ComplianceRule) ConditionFloat(key string) (float64, bool) {
	switch v := r.Condition[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
