package pipeline

import (
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/cleaning"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/anomaly"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/clustering"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/sampling"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/statistics"
)

// Payload is what the pattern-analysis consumer receives
type Payload struct {
	RunID              string                `json:"run_id"`
	Deviations         []deviation.Annotated `json:"deviations"`
	DataQuality        DataQuality           `json:"data_quality"`
	StatisticalSummary *statistics.Summary   `json:"statistical_summary"`
	MLSummary          *MLSummary            `json:"ml_summary"`
}

// DataQuality is the cleaning report with its score
type DataQuality struct {
	cleaning.Report
	Score      float64 `json:"score"`
	Grade      string  `json:"grade"`
	Assessment string  `json:"assessment"`
}

func newDataQuality(r *cleaning.Result) DataQuality {
	return DataQuality{
		Report:     r.Report,
		Score:      r.Quality.Score,
		Grade:      r.Quality.Grade,
		Assessment: r.Quality.Assessment,
	}
}

// MLSummary describes the ML stages of a run
type MLSummary struct {
	Applied              bool                  `json:"applied"`
	Reason               string                `json:"reason,omitempty"`
	OriginalCount        int                   `json:"original_count"`
	SelectedCount        int                   `json:"selected_count"`
	CompressionRatio     float64               `json:"compression_ratio"`
	ClustersFound        int                   `json:"clusters_found"`
	NoisePoints          int                   `json:"noise_points"`
	AnomaliesDetected    int                   `json:"anomalies_detected"`
	Method               string                `json:"method"`
	FallbackReason       string                `json:"fallback_reason,omitempty"`
	FeatureCount         int                   `json:"feature_count,omitempty"`
	AllAnomaliesIncluded bool                  `json:"all_anomalies_included"`
	SamplingComposition  *sampling.Composition `json:"sampling_composition,omitempty"`
	Coverage             *sampling.Coverage    `json:"coverage,omitempty"`
	Clusters             []clustering.Summary  `json:"clusters,omitempty"`
	AnomalyAnalysis      *anomaly.Analysis     `json:"anomaly_analysis,omitempty"`
}
