package detection

import (
	"fmt"
	"time"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/workflow"
)

const day = 24 * time.Hour

// TimingValidator flags rushed cases and long gaps between steps. A zero
// threshold disables that check.
type TimingValidator struct {
	minTotal time.Duration
	maxGap   time.Duration
	ruleID   string
}

// NewTimingValidator applies per-rule overrides (min_total_hours,
// max_gap_days) from the first timing rule that carries them.
func NewTimingValidator(minTotal, maxGap time.Duration, rules []workflow.ComplianceRule) *TimingValidator {
	v := &TimingValidator{minTotal: minTotal, maxGap: maxGap}

	timing := workflow.OfType(rules, workflow.RuleTypeTiming)
	if len(timing) > 0 {
		v.ruleID = timing[0].ID
	}

	overriddenMin, overriddenGap := false, false
	for _, rule := range timing {
		if h, ok := rule.ConditionFloat("min_total_hours"); ok && !overriddenMin && h >= 0 {
			v.minTotal = time.Duration(h * float64(time.Hour))
			overriddenMin = true
		}
		if d, ok := rule.ConditionFloat("max_gap_days"); ok && !overriddenGap && d >= 0 {
			v.maxGap = time.Duration(d * float64(day))
			overriddenGap = true
		}
	}

	return v
}

// Validate checks total elapsed time and every adjacent gap.
func (v *TimingValidator) Validate(c workflow.Case) []deviation.Deviation {
	if len(c.Events) < 2 {
		return nil
	}

	var out []deviation.Deviation

	if elapsed := c.Elapsed(); v.minTotal > 0 && elapsed < v.minTotal {
		out = append(out, newDeviation(c, deviation.TypeTimingViolation, values.SeverityMedium,
			"Process completed too quickly",
			fmt.Sprintf("At least %.1f hours of review time", v.minTotal.Hours()),
			fmt.Sprintf("Process completed in %.1f hours", elapsed.Hours()),
			v.ruleID, c.Last().Timestamp))
	}

	if v.maxGap > 0 {
		for i := 0; i+1 < len(c.Events); i++ {
			cur, next := c.Events[i], c.Events[i+1]
			gap := next.Timestamp.Sub(cur.Timestamp)
			if gap <= v.maxGap {
				continue
			}
			out = append(out, newDeviation(c, deviation.TypeTimingViolation, values.SeverityLow,
				fmt.Sprintf("Long delay between %s and %s", cur.StepName, next.StepName),
				"Steps should be completed in a timely manner",
				fmt.Sprintf("Gap of %.1f days between steps", gap.Hours()/24),
				v.ruleID, next.Timestamp))
		}
	}

	return out
}
