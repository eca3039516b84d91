package deviation

import (
	"regexp"
	"strings"
)

// Type is the kind of compliance violation a deviation records
type Type string

// Types emitted by the detection engine
const (
	TypeMissingStep     Type = "missing_step"
	TypeWrongSequence   Type = "wrong_sequence"
	TypeUnexpectedStep  Type = "unexpected_step"
	TypeMissingApproval Type = "missing_approval"
	TypeTimingViolation Type = "timing_violation"
)

// recognizedTypes is the closed vocabulary accepted from any producer.
var recognizedTypes = map[Type]bool{
	TypeMissingStep: true, TypeWrongSequence: true, TypeUnexpectedStep: true,
	TypeMissingApproval: true, TypeTimingViolation: true,
	"duplicate_step":                       true,
	"skipped_mandatory_subprocess":         true,
	"insufficient_approval_hierarchy":      true,
	"unauthorized_approver":                true,
	"self_approval_violation":              true,
	"escalation_missing":                   true,
	"tat_breach":                           true,
	"cutoff_breach":                        true,
	"post_disbursement_qc_delay":           true,
	"ineligible_age":                       true,
	"ineligible_tenor":                     true,
	"emi_to_income_breach":                 true,
	"low_score_approved_without_exception": true,
	"kyc_incomplete_progression":           true,
	"sanctions_hit_not_rejected":           true,
	"pep_no_edd_or_extra_approval":         true,
	"missing_mandatory_document":           true,
	"expired_document_used":                true,
	"legal_clearance_missing":              true,
	"collateral_docs_incomplete":           true,
	"ltv_breach":                           true,
	"valuation_missing_or_stale":           true,
	"security_not_created":                 true,
	"pre_disbursement_condition_unmet":     true,
	"mandate_not_set_before_disbursement":  true,
	"incorrect_disbursement_amount":        true,
	"post_disbursement_qc_missing":         true,
	"collection_escalation_delay":          true,
	"unauthorized_restructure":             true,
	"unauthorized_writeoff":                true,
	"classification_mismatch":              true,
	"provisioning_shortfall":               true,
	"regulatory_report_missing_or_late":    true,
	"missing_core_field":                   true,
	"invalid_format":                       true,
	"inconsistent_value_across_steps":      true,
	"duplicate_active_case":                true,
	"audit_trail_missing":                  true,
}

// Category groups related deviation types for reporting
type Category string

const (
	CategoryProcess     Category = "process"
	CategoryApproval    Category = "approval"
	CategoryTiming      Category = "timing"
	CategoryEligibility Category = "eligibility"
	CategoryDocument    Category = "document"
	CategoryRisk        Category = "risk"
	CategoryData        Category = "data"
	CategoryOther       Category = "other"
)

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryApproval, []string{"approv", "escalation", "unauthorized"}},
	{CategoryTiming, []string{"timing", "tat", "cutoff", "delay", "late"}},
	{CategoryEligibility, []string{"ineligible", "emi", "score", "ltv"}},
	{CategoryDocument, []string{"document", "docs", "kyc", "legal", "valuation", "mandate"}},
	{CategoryRisk, []string{"sanctions", "pep", "collateral", "security", "provisioning", "classification", "writeoff", "restructure"}},
	{CategoryData, []string{"field", "format", "inconsistent", "audit_trail", "duplicate_active"}},
	{CategoryProcess, []string{"step", "sequence", "subprocess", "disbursement", "qc"}},
}

var separators = regexp.MustCompile(`[\s\-]+`)

// NormalizeType lowercases a raw type and folds spaces and hyphens into
// underscores.
func NormalizeType(raw string) Type {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	return Type(separators.ReplaceAllString(normalized, "_"))
}

// IsRecognized reports whether t belongs to the known vocabulary.
func (t Type) IsRecognized() bool {
	return recognizedTypes[t]
}

func (t Type) String() string {
	return string(t)
}

// Category returns the reporting category for t.
func (t Type) Category() Category {
	s := string(t)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(s, kw) {
				return c.category
			}
		}
	}
	return CategoryOther
}
