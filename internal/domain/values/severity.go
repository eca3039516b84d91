package values

import (
	"fmt"
	"strings"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
)

// Severity is the ordinal seriousness of a deviation
type Severity string

// Canonical severity levels
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var (
	severityWeights = map[Severity]int{
		SeverityLow:      1,
		SeverityMedium:   2,
		SeverityHigh:     3,
		SeverityCritical: 4,
	}

	// Common spellings seen in free-form severity fields
	severitySynonyms = map[string]Severity{
		"crit":      SeverityCritical,
		"severe":    SeverityCritical,
		"hi":        SeverityHigh,
		"important": SeverityHigh,
		"major":     SeverityHigh,
		"med":       SeverityMedium,
		"mid":       SeverityMedium,
		"moderate":  SeverityMedium,
		"lo":        SeverityLow,
		"minor":     SeverityLow,
	}
)

// Severities returns the canonical levels in ascending order.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// ParseSeverity maps a raw severity string onto a canonical level. The
// boolean reports whether the input differed from its canonical form.
func ParseSeverity(raw string) (Severity, bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", false, errors.NewValidationError("EMPTY_SEVERITY",
			"severity cannot be empty")
	}

	if _, ok := severityWeights[Severity(normalized)]; ok {
		return Severity(normalized), normalized != raw, nil
	}
	if s, ok := severitySynonyms[normalized]; ok {
		return s, true, nil
	}

	return "", false, errors.NewValidationError("UNSUPPORTED_SEVERITY",
		fmt.Sprintf("severity '%s' is not supported", raw))
}

func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is one of the canonical levels
func (s Severity) IsValid() bool {
	_, ok := severityWeights[s]
	return ok
}

// Weight returns the ordinal weight, 1 (low) through 4 (critical); 0 if unknown.
func (s Severity) Weight() int {
	return severityWeights[s]
}
