package detection

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/workflow"
)

// Config holds detection settings
type Config struct {
	Workers          int
	MinTotalDuration time.Duration
	MaxStepGap       time.Duration
	StepCatalog      StepCatalog
	ApprovalPolicies PolicyTable
	// Extra validators run after the built-in ones, in order.
	Extra []CaseValidator
}

// DefaultConfig returns the stock detection settings
func DefaultConfig() Config {
	return Config{
		Workers:          runtime.GOMAXPROCS(0),
		MinTotalDuration: time.Hour,
		MaxStepGap:       7 * day,
		StepCatalog:      DefaultStepCatalog(),
		ApprovalPolicies: DefaultPolicies(),
	}
}

// CaseValidator inspects one case and reports its deviations
type CaseValidator interface {
	Validate(c workflow.Case) []deviation.Deviation
}

// Plan is the read-only rule table shared by all case workers
type Plan struct {
	Expected                []string
	Requirements            []ApprovalRequirement
	UnresolvedApprovalRules []string
	validators              []CaseValidator
}

// CaseFailure records a case whose evaluation failed
type CaseFailure struct {
	CaseID string `json:"case_id"`
	Reason string `json:"reason"`
}

// Result is the folded outcome of a detection run
type Result struct {
	Deviations              []deviation.Deviation  `json:"deviations"`
	CasesEvaluated          int                    `json:"cases_evaluated"`
	CasesWithDeviations     int                    `json:"cases_with_deviations"`
	Failures                []CaseFailure          `json:"failures,omitempty"`
	ByType                  map[deviation.Type]int `json:"by_type"`
	UnresolvedApprovalRules []string               `json:"unresolved_approval_rules,omitempty"`
}

type caseResult struct {
	caseID     string
	deviations []deviation.Deviation
	err        error
}

// Detector evaluates cases against compliance rules
type Detector struct {
	logger *zap.Logger
	config Config
}

// NewDetector creates a new detector
func NewDetector(logger *zap.Logger, config Config) *Detector {
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if config.StepCatalog == nil {
		config.StepCatalog = DefaultStepCatalog()
	}
	if config.ApprovalPolicies == nil {
		config.ApprovalPolicies = DefaultPolicies()
	}
	return &Detector{
		logger: logger.Named("detection"),
		config: config,
	}
}

// Plan compiles the rules into the validators applied to every case.
func (d *Detector) Plan(rules []workflow.ComplianceRule) *Plan {
	reqs, unresolved := d.config.ApprovalPolicies.Resolve(rules)
	expected := BuildExpectedSequence(rules, d.config.StepCatalog, reqs)
	seq := NewSequenceValidator(expected)

	plan := &Plan{
		Expected:     seq.Expected(),
		Requirements: reqs,
		validators: []CaseValidator{
			seq,
			NewApprovalValidator(reqs),
			NewTimingValidator(d.config.MinTotalDuration, d.config.MaxStepGap, rules),
		},
	}
	plan.validators = append(plan.validators, d.config.Extra...)
	for _, rule := range unresolved {
		plan.UnresolvedApprovalRules = append(plan.UnresolvedApprovalRules, rule.ID)
		d.logger.Warn("Approval rule matches no policy and carries no keywords",
			zap.String("rule_id", rule.ID),
			zap.String("description", rule.Description))
	}
	return plan
}

// Detect evaluates every case concurrently and folds the per-case results
// in case order.
func (d *Detector) Detect(ctx context.Context, events []workflow.WorkflowEvent, rules []workflow.ComplianceRule) (*Result, error) {
	plan := d.Plan(rules)
	cases := workflow.GroupCases(events)

	d.logger.Info("Starting deviation detection",
		zap.Int("events", len(events)),
		zap.Int("cases", len(cases)),
		zap.Int("rules", len(rules)),
		zap.Strings("expected_sequence", plan.Expected))

	results := make([]caseResult, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.Workers)
	for i, c := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = evaluateCase(plan, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("detection cancelled: %w", err)
	}

	result := d.fold(results)
	result.UnresolvedApprovalRules = plan.UnresolvedApprovalRules

	d.logger.Info("Deviation detection complete",
		zap.Int("cases_evaluated", result.CasesEvaluated),
		zap.Int("deviations", len(result.Deviations)),
		zap.Int("failed_cases", len(result.Failures)))

	return result, nil
}

func evaluateCase(plan *Plan, c workflow.Case) (res caseResult) {
	res.caseID = c.ID
	defer func() {
		if r := recover(); r != nil {
			res.deviations = nil
			res.err = fmt.Errorf("evaluating case %s: %v", c.ID, r)
		}
	}()

	for _, v := range plan.validators {
		res.deviations = append(res.deviations, v.Validate(c)...)
	}
	return res
}

// fold is the single owner of the merged result.
func (d *Detector) fold(results []caseResult) *Result {
	out := &Result{ByType: make(map[deviation.Type]int)}

	for _, r := range results {
		if r.err != nil {
			out.Failures = append(out.Failures, CaseFailure{CaseID: r.caseID, Reason: r.err.Error()})
			d.logger.Warn("Case evaluation failed", zap.String("case_id", r.caseID), zap.Error(r.err))
			continue
		}

		out.CasesEvaluated++
		if len(r.deviations) > 0 {
			out.CasesWithDeviations++
		}
		for i, dev := range r.deviations {
			dev.ID = deviation.NewID(dev.CaseID, dev.Type, dev.Description, i)
			out.Deviations = append(out.Deviations, dev)
			out.ByType[dev.Type]++
		}
	}

	return out
}
