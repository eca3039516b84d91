package statistics

import (
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
)

// Summary is the full-population statistical summary of a cleaned
// deviation set
type Summary struct {
	Overview             Overview             `json:"overview"`
	SeverityDistribution SeverityDistribution `json:"severity_distribution"`
	TopDeviationTypes    []TypeCount          `json:"top_deviation_types"`
	TypeCategories       []CategoryCount      `json:"type_categories"`
	TemporalPatterns     TemporalPatterns     `json:"temporal_patterns"`
	OfficerStats         EntityStats          `json:"officer_stats"`
	CaseStats            EntityStats          `json:"case_stats"`
	Correlations         Correlations         `json:"correlations"`
	RiskIndicators       RiskIndicators       `json:"risk_indicators"`
}

type Overview struct {
	TotalDeviations      int     `json:"total_deviations"`
	UniqueCases          int     `json:"unique_cases"`
	UniqueOfficers       int     `json:"unique_officers"`
	UniqueTypes          int     `json:"unique_deviation_types"`
	AvgDeviationsPerCase float64 `json:"avg_deviations_per_case"`
	AvgPerOfficer        float64 `json:"avg_deviations_per_officer"`
}

type SeverityLevel struct {
	Severity   values.Severity `json:"severity"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

type SeverityDistribution struct {
	Counts     map[values.Severity]int `json:"counts"`
	Levels     []SeverityLevel         `json:"levels"`
	MostCommon values.Severity         `json:"most_common,omitempty"`
	// Score is the weighted average severity scaled to 0-100.
	Score      float64 `json:"severity_score"`
	Assessment string  `json:"assessment"`
}

type TypeCount struct {
	Type       deviation.Type `json:"type"`
	Count      int            `json:"count"`
	Percentage float64        `json:"percentage"`
}

type CategoryCount struct {
	Category   deviation.Category `json:"category"`
	Count      int                `json:"count"`
	Percentage float64            `json:"percentage"`
	Types      []deviation.Type   `json:"types"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type PeriodCount struct {
	Period     values.TimePeriod `json:"period"`
	Count      int               `json:"count"`
	Percentage float64           `json:"percentage"`
}

type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

type TemporalPatterns struct {
	HasTemporalData     bool          `json:"has_temporal_data"`
	TotalWithTimestamps int           `json:"total_with_timestamps"`
	HourDistribution    []int         `json:"hour_distribution,omitempty"`
	DayDistribution     []DayCount    `json:"day_distribution,omitempty"`
	PeriodDistribution  []PeriodCount `json:"period_distribution,omitempty"`
	PeakHours           []int         `json:"peak_hours,omitempty"`
	PeakDays            []string      `json:"peak_days,omitempty"`
	DateRange           *DateRange    `json:"date_range,omitempty"`
}

// EntityCount is the deviation tally of one officer or case
type EntityCount struct {
	ID         string  `json:"id"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	// Related is the number of distinct cases (for officers) or officers (for cases).
	Related int `json:"related"`
}

type DistStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type EntityStats struct {
	Total        int           `json:"total"`
	Top          []EntityCount `json:"top"`
	Distribution DistStats     `json:"distribution"`
}

type OfficerRisk struct {
	OfficerID     string  `json:"officer_id"`
	RiskScore     float64 `json:"risk_score"`
	CriticalCount int     `json:"critical_count"`
	HighCount     int     `json:"high_count"`
	Total         int     `json:"total_deviations"`
}

type Correlations struct {
	SeverityToTypes  map[values.Severity][]TypeCount `json:"severity_to_deviation_type"`
	HighRiskOfficers []OfficerRisk                   `json:"high_risk_officers"`
}

type Concentration struct {
	TopK           int     `json:"top_k"`
	TopKPercentage float64 `json:"top_k_percentage"`
	IsConcentrated bool    `json:"is_concentrated"`
	UniqueOfficers int     `json:"unique_officers"`
}

type Diversity struct {
	UniqueTypes int     `json:"unique_types"`
	Score       float64 `json:"diversity_score"`
	Assessment  string  `json:"assessment"`
}

type CompositeRisk struct {
	Score float64 `json:"score"`
	Level string  `json:"level"`
}

type RiskIndicators struct {
	CriticalMassScore      float64       `json:"critical_mass_score"`
	CriticalMassAssessment string        `json:"critical_mass_assessment"`
	Concentration          Concentration `json:"concentration_risk"`
	IssueDiversity         Diversity     `json:"issue_diversity"`
	Composite              CompositeRisk `json:"composite_risk"`
}
