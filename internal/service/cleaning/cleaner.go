package cleaning

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
)

const notSpecified = "Not specified"

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Weights balance the issue rates in the quality score
type Weights struct {
	Duplicates float64
	Fixes      float64
	Missing    float64
}

// Config holds cleaning settings
type Config struct {
	DedupePrefixLength   int
	MinDescriptionLength int
	Weights              Weights
}

// DefaultConfig returns the stock cleaning settings
func DefaultConfig() Config {
	return Config{
		DedupePrefixLength:   100,
		MinDescriptionLength: 10,
		Weights:              Weights{Duplicates: 0.25, Fixes: 0.25, Missing: 0.5},
	}
}

// Report counts what cleaning changed
type Report struct {
	OriginalCount          int      `json:"original_count"`
	FinalCount             int      `json:"final_count"`
	DuplicatesRemoved      int      `json:"duplicates_removed"`
	FieldsFixed            int      `json:"fields_fixed"`
	MissingRequired        int      `json:"missing_required"`
	UnrecognizedTypes      int      `json:"unrecognized_types"`
	UnrecognizedSeverities int      `json:"unrecognized_severities"`
	TextNormalized         int      `json:"text_normalized"`
	OptionalDefaulted      int      `json:"optional_defaulted"`
	InputRejected          int      `json:"input_records_rejected"`
	CleanedPercentage      float64  `json:"cleaned_percentage"`
	Warnings               []string `json:"warnings,omitempty"`
}

// Quality is the data-quality assessment of a cleaned set
type Quality struct {
	Score      float64 `json:"score"`
	Grade      string  `json:"grade"`
	Assessment string  `json:"assessment"`
}

// Result is the cleaned deviation set with its report
type Result struct {
	Deviations []deviation.Deviation
	Report     Report
	Quality    Quality
}

// Cleaner normalizes and deduplicates deviations
type Cleaner struct {
	logger *zap.Logger
	config Config
}

// NewCleaner creates a new cleaner
func NewCleaner(logger *zap.Logger, config Config) *Cleaner {
	return &Cleaner{
		logger: logger.Named("cleaning"),
		config: config,
	}
}

// Aggregate concatenates validator outputs into one ordered collection.
func Aggregate(parts ...[]deviation.Deviation) []deviation.Deviation {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]deviation.Deviation, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Clean normalizes fields, drops records missing required fields and
// collapses duplicates. inputRejected is the number of upstream event and
// rule records skipped during ingestion; it is reported, not scored.
func (c *Cleaner) Clean(raw []deviation.Deviation, inputRejected int) *Result {
	report := Report{OriginalCount: len(raw), InputRejected: inputRejected}

	normalized := make([]deviation.Deviation, 0, len(raw))
	for i, d := range raw {
		d = c.normalize(d, i, &report)
		if field := missingRequired(d); field != "" {
			report.MissingRequired++
			c.logger.Warn("Dropping deviation missing required field",
				zap.Int("index", i),
				zap.String("case_id", d.CaseID),
				zap.String("field", field))
			continue
		}
		normalized = append(normalized, d)
	}

	cleaned := c.deduplicate(normalized, &report)

	report.FinalCount = len(cleaned)
	report.CleanedPercentage = values.Percent(report.FinalCount, report.OriginalCount)
	quality := c.Score(report)

	c.logger.Info("Data cleaning complete",
		zap.Int("original", report.OriginalCount),
		zap.Int("final", report.FinalCount),
		zap.Int("duplicates_removed", report.DuplicatesRemoved),
		zap.Int("fields_fixed", report.FieldsFixed),
		zap.Int("missing_required", report.MissingRequired),
		zap.Float64("quality_score", quality.Score),
		zap.String("grade", quality.Grade))

	return &Result{Deviations: cleaned, Report: report, Quality: quality}
}

func (c *Cleaner) normalize(d deviation.Deviation, index int, report *Report) deviation.Deviation {
	textChanged := false
	for _, field := range []*string{&d.Description, &d.ExpectedBehavior, &d.ActualBehavior, &d.Note} {
		if n := normalizeText(*field); n != *field {
			*field = n
			textChanged = true
		}
	}
	if textChanged {
		report.TextNormalized++
	}

	d.CaseID = strings.TrimSpace(d.CaseID)
	d.OfficerID = strings.TrimSpace(d.OfficerID)

	if d.Type != "" {
		if t := deviation.NormalizeType(string(d.Type)); t != d.Type {
			d.Type = t
			report.FieldsFixed++
		}
		if !d.Type.IsRecognized() {
			report.UnrecognizedTypes++
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("unrecognized deviation type %q at index %d", d.Type, index))
		}
	}

	if strings.TrimSpace(string(d.Severity)) != "" {
		s, fixed, err := values.ParseSeverity(string(d.Severity))
		if err != nil {
			report.UnrecognizedSeverities++
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("unrecognized severity %q at index %d defaulted to medium", d.Severity, index))
			s, fixed = values.SeverityMedium, true
		}
		if fixed {
			report.FieldsFixed++
		}
		d.Severity = s
	} else {
		d.Severity = ""
	}

	if d.ExpectedBehavior == "" {
		d.ExpectedBehavior = notSpecified
		report.OptionalDefaulted++
	}
	if d.ActualBehavior == "" {
		d.ActualBehavior = notSpecified
		report.OptionalDefaulted++
	}

	if n := utf8.RuneCountInString(d.Description); n > 0 && n < c.config.MinDescriptionLength {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("description too short at index %d: %q", index, d.Description))
	}

	return d
}

func (c *Cleaner) deduplicate(devs []deviation.Deviation, report *Report) []deviation.Deviation {
	index := make(map[string]int, len(devs))
	out := make([]deviation.Deviation, 0, len(devs))

	for _, d := range devs {
		key := c.dedupeKey(d)
		if i, ok := index[key]; ok {
			out[i].DuplicateCount += 1 + d.DuplicateCount
			report.DuplicatesRemoved++
			continue
		}
		index[key] = len(out)
		out = append(out, d)
	}
	return out
}

func (c *Cleaner) dedupeKey(d deviation.Deviation) string {
	prefix := strings.ToLower(d.Description)
	if runes := []rune(prefix); len(runes) > c.config.DedupePrefixLength {
		prefix = string(runes[:c.config.DedupePrefixLength])
	}
	return strings.Join([]string{d.CaseID, d.OfficerID, string(d.Type), prefix}, "\x1f")
}

// Score turns a cleaning report into a 0-100 quality score and grade.
func (c *Cleaner) Score(r Report) Quality {
	if r.OriginalCount == 0 {
		return Quality{Score: 100, Grade: "A", Assessment: "No deviations to assess"}
	}

	n := float64(r.OriginalCount)
	rate := func(count int) float64 {
		return minFloat(float64(count)/n, 1)
	}

	w := c.config.Weights
	total := w.Duplicates + w.Fixes + w.Missing
	penalty := (w.Duplicates*rate(r.DuplicatesRemoved) +
		w.Fixes*rate(r.FieldsFixed+r.UnrecognizedTypes) +
		w.Missing*rate(r.MissingRequired)) / total

	score := values.Round(100*(1-penalty), 2)
	if score < 0 {
		score = 0
	}

	grade, assessment := Grade(score)
	return Quality{Score: score, Grade: grade, Assessment: assessment}
}

// Grade bands a quality score.
func Grade(score float64) (string, string) {
	switch {
	case score >= 90:
		return "A", "Excellent data quality"
	case score >= 80:
		return "B", "Good data quality"
	case score >= 70:
		return "C", "Acceptable data quality"
	case score >= 60:
		return "D", "Poor data quality"
	default:
		return "F", "Very poor data quality"
	}
}

func normalizeText(s string) string {
	s = controlChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func missingRequired(d deviation.Deviation) string {
	switch {
	case d.CaseID == "":
		return "case_id"
	case d.OfficerID == "":
		return "officer_id"
	case d.Type == "":
		return "deviation_type"
	case d.Severity == "":
		return "severity"
	case d.Description == "":
		return "description"
	}
	return ""
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
