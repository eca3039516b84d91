package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the auditor's instruments
type Registry struct {
	meter metric.Meter

	// Detection
	CasesEvaluated     metric.Int64Counter
	CasesFailed        metric.Int64Counter
	DeviationsDetected metric.Int64Counter

	// Cleaning
	DeviationsCleaned metric.Int64Counter
	DuplicatesRemoved metric.Int64Counter
	QualityScore      metric.Float64ObservableGauge

	// Analysis
	StageDuration       metric.Float64Histogram
	AnomaliesFlagged    metric.Int64Counter
	ClusteringFallbacks metric.Int64Counter
	CompressionRatio    metric.Float64Histogram
	AnalysisBypassed    metric.Int64Counter
	RunsCompleted       metric.Int64Counter

	mu          sync.RWMutex
	lastQuality float64
	haveQuality bool
}

// NewRegistry creates the instruments on provider, or on the global meter
// provider when provider is nil.
func NewRegistry(provider metric.MeterProvider, meterName string) (*Registry, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	r := &Registry{meter: provider.Meter(meterName)}

	if err := r.initDetectionMetrics(); err != nil {
		return nil, err
	}
	if err := r.initCleaningMetrics(); err != nil {
		return nil, err
	}
	if err := r.initAnalysisMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) initDetectionMetrics() error {
	var err error

	r.CasesEvaluated, err = r.meter.Int64Counter(
		"auditor.detection.cases_evaluated",
		metric.WithDescription("Cases evaluated against the rule set"),
	)
	if err != nil {
		return err
	}

	r.CasesFailed, err = r.meter.Int64Counter(
		"auditor.detection.cases_failed",
		metric.WithDescription("Cases whose evaluation failed and were skipped"),
	)
	if err != nil {
		return err
	}

	r.DeviationsDetected, err = r.meter.Int64Counter(
		"auditor.detection.deviations",
		metric.WithDescription("Deviations emitted by the validators"),
	)
	return err
}

func (r *Registry) initCleaningMetrics() error {
	var err error

	r.DeviationsCleaned, err = r.meter.Int64Counter(
		"auditor.cleaning.deviations",
		metric.WithDescription("Deviations surviving cleaning"),
	)
	if err != nil {
		return err
	}

	r.DuplicatesRemoved, err = r.meter.Int64Counter(
		"auditor.cleaning.duplicates_removed",
		metric.WithDescription("Duplicate deviations collapsed during cleaning"),
	)
	if err != nil {
		return err
	}

	r.QualityScore, err = r.meter.Float64ObservableGauge(
		"auditor.cleaning.quality_score",
		metric.WithDescription("Data-quality score of the most recent run"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			if r.haveQuality {
				o.Observe(r.lastQuality)
			}
			return nil
		}),
	)
	return err
}

func (r *Registry) initAnalysisMetrics() error {
	var err error

	r.StageDuration, err = r.meter.Float64Histogram(
		"auditor.pipeline.stage_duration",
		metric.WithDescription("Duration of each pipeline stage in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.AnomaliesFlagged, err = r.meter.Int64Counter(
		"auditor.anomaly.flagged",
		metric.WithDescription("Deviations flagged as anomalies"),
	)
	if err != nil {
		return err
	}

	r.ClusteringFallbacks, err = r.meter.Int64Counter(
		"auditor.clustering.fallbacks",
		metric.WithDescription("Density clusterings replaced by the partitional fallback"),
	)
	if err != nil {
		return err
	}

	r.CompressionRatio, err = r.meter.Float64Histogram(
		"auditor.sampling.compression_ratio",
		metric.WithDescription("Cleaned population size over sample size"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 20, 50, 100, 500),
	)
	if err != nil {
		return err
	}

	r.AnalysisBypassed, err = r.meter.Int64Counter(
		"auditor.pipeline.analysis_bypassed",
		metric.WithDescription("Runs below the activation threshold that skipped the ML stages"),
	)
	if err != nil {
		return err
	}

	r.RunsCompleted, err = r.meter.Int64Counter(
		"auditor.pipeline.runs",
		metric.WithDescription("Completed pipeline runs"),
	)
	return err
}

// RecordStage records how long a pipeline stage took
func (r *Registry) RecordStage(ctx context.Context, stage string, elapsed time.Duration) {
	r.StageDuration.Record(ctx, float64(elapsed.Microseconds())/1000,
		metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordDetection records a detection run
func (r *Registry) RecordDetection(ctx context.Context, evaluated, failed, deviations int) {
	r.CasesEvaluated.Add(ctx, int64(evaluated))
	r.CasesFailed.Add(ctx, int64(failed))
	r.DeviationsDetected.Add(ctx, int64(deviations))
}

// RecordCleaning records a cleaning pass and remembers its quality score
func (r *Registry) RecordCleaning(ctx context.Context, final, duplicates int, quality float64) {
	r.DeviationsCleaned.Add(ctx, int64(final))
	r.DuplicatesRemoved.Add(ctx, int64(duplicates))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastQuality = quality
	r.haveQuality = true
}

// RunStats summarizes a finished run
type RunStats struct {
	Applied          bool
	Method           string
	Fallback         bool
	Anomalies        int
	CompressionRatio float64
}

// RecordRun records the outcome of a pipeline run
func (r *Registry) RecordRun(ctx context.Context, stats RunStats) {
	attrs := metric.WithAttributes(attribute.Bool("applied", stats.Applied))
	r.RunsCompleted.Add(ctx, 1, attrs)

	if !stats.Applied {
		r.AnalysisBypassed.Add(ctx, 1)
		return
	}

	method := metric.WithAttributes(attribute.String("method", stats.Method))
	r.AnomaliesFlagged.Add(ctx, int64(stats.Anomalies), method)
	if stats.Fallback {
		r.ClusteringFallbacks.Add(ctx, 1)
	}
	r.CompressionRatio.Record(ctx, stats.CompressionRatio, method)
}
