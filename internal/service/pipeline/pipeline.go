package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/workflow"
	"github.com/vedangtiwari01-dev/vs-demo/internal/infrastructure/telemetry"
	"github.com/vedangtiwari01-dev/vs-demo/internal/metrics"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/cleaning"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/detection"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/anomaly"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/clustering"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/features"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/sampling"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/statistics"
)

// Result is the outcome of one run
type Result struct {
	Payload *Payload
	Outcome Outcome
	// Detection is set only when the run started from events.
	Detection *detection.Result
}

// Pipeline sequences cleaning, statistics and the ML stages
type Pipeline struct {
	logger  *zap.Logger
	config  Config
	metrics *metrics.Registry

	detector   *detection.Detector
	cleaner    *cleaning.Cleaner
	summarizer *statistics.Summarizer
	engineer   *features.Engineer
	clusterer  *clustering.Clusterer
	scorer     *anomaly.Scorer
	sampler    *sampling.Sampler
}

// New validates the configuration and builds every stage. registry may be
// nil, in which case instruments are created on the global meter provider.
func New(logger *zap.Logger, config Config, registry *metrics.Registry) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if registry == nil {
		var err error
		if registry, err = metrics.NewRegistry(nil, "auditor"); err != nil {
			return nil, errors.NewInternalError("failed to create metrics registry").WithCause(err)
		}
	}

	scorer, err := anomaly.NewScorer(logger, config.Anomaly)
	if err != nil {
		return nil, err
	}
	sampler, err := sampling.NewSampler(logger, config.Sampling)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		logger:     logger.Named("pipeline"),
		config:     config,
		metrics:    registry,
		detector:   detection.NewDetector(logger, config.Detection),
		cleaner:    cleaning.NewCleaner(logger, config.Cleaning),
		summarizer: statistics.NewSummarizer(logger, config.Statistics),
		engineer:   features.NewEngineer(logger, config.Features),
		clusterer:  clustering.NewClusterer(logger, config.Clustering),
		scorer:     scorer,
		sampler:    sampler,
	}, nil
}

// Analyze detects deviations from events and rules, then runs the full
// pipeline over them. Rejected input records are reported in the data
// quality section.
func (p *Pipeline) Analyze(ctx context.Context, events []workflow.WorkflowEvent, rules []workflow.ComplianceRule, rejections []workflow.Rejection) (*Result, error) {
	var detected *detection.Result
	err := p.stage(ctx, "detect", func(ctx context.Context) error {
		var err error
		detected, err = p.detector.Detect(ctx, events, rules)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.metrics.RecordDetection(ctx, detected.CasesEvaluated, len(detected.Failures), len(detected.Deviations))

	res, err := p.Run(ctx, detected.Deviations, len(rejections))
	if err != nil {
		return nil, err
	}
	res.Detection = detected
	return res, nil
}

// Run cleans and summarizes devs and, when the cleaned population reaches
// the activation threshold, selects a representative sample.
func (p *Pipeline) Run(ctx context.Context, devs []deviation.Deviation, inputRejected int) (*Result, error) {
	runID := uuid.New().String()
	ctx, span := telemetry.StartStageSpan(ctx, "pipeline", "run", attribute.String("run_id", runID))
	defer span.End()
	logger := telemetry.WithContext(ctx, p.logger).With(zap.String("run_id", runID))

	logger.Info("Starting analysis", zap.Int("deviations", len(devs)))

	var cleaned *cleaning.Result
	err := p.stage(ctx, "clean", func(context.Context) error {
		cleaned = p.cleaner.Clean(devs, inputRejected)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	p.metrics.RecordCleaning(ctx, cleaned.Report.FinalCount, cleaned.Report.DuplicatesRemoved, cleaned.Quality.Score)

	var summary *statistics.Summary
	err = p.stage(ctx, "summarize", func(context.Context) error {
		summary = p.summarizer.Summarize(cleaned.Deviations)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	payload := &Payload{
		RunID:              runID,
		DataQuality:        newDataQuality(cleaned),
		StatisticalSummary: summary,
	}

	n := len(cleaned.Deviations)
	if n < p.config.ActivationThreshold {
		skipped := p.skip(logger, cleaned.Deviations)
		telemetry.AddEvent(span, "ml.bypassed",
			attribute.Int("cleaned", n),
			attribute.String("reason", skipped.Reason))
		payload.Deviations = annotatePlain(cleaned.Deviations)
		if n > 0 {
			payload.MLSummary = bypassSummary(n, skipped.Reason)
		}
		p.metrics.RecordRun(ctx, metrics.RunStats{Applied: false})
		return &Result{Payload: payload, Outcome: skipped}, nil
	}

	applied, err := p.analyze(ctx, cleaned.Deviations)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	payload.Deviations = applied.Sample.Selected
	payload.MLSummary = appliedSummary(n, applied)
	telemetry.AddEvent(span, "ml.applied",
		attribute.Int("cleaned", n),
		attribute.Int("selected", applied.Sample.Report.SelectedCount),
		attribute.String("method", string(applied.Clusters.Method)))

	p.metrics.RecordRun(ctx, metrics.RunStats{
		Applied:          true,
		Method:           string(applied.Clusters.Method),
		Fallback:         applied.Clusters.FallbackReason != "",
		Anomalies:        applied.Anomalies.Count(),
		CompressionRatio: applied.Sample.Report.CompressionRatio,
	})

	logger.Info("Analysis complete",
		zap.Int("cleaned", n),
		zap.Int("selected", applied.Sample.Report.SelectedCount),
		zap.Int("clusters", applied.Clusters.NClusters),
		zap.Int("anomalies", applied.Anomalies.Count()),
		zap.Float64("compression_ratio", applied.Sample.Report.CompressionRatio))

	return &Result{Payload: payload, Outcome: *applied}, nil
}

func (p *Pipeline) skip(logger *zap.Logger, devs []deviation.Deviation) Skipped {
	n := len(devs)
	if n == 0 {
		logger.Warn("No deviations to analyze")
		return Skipped{Reason: "no deviations", Minimum: p.config.ActivationThreshold}
	}
	insufficient := errors.NewInsufficientDataError(n, p.config.ActivationThreshold)
	logger.Warn("Bypassing ML stages", zap.Error(insufficient))
	return Skipped{Reason: insufficient.Message, Count: n, Minimum: p.config.ActivationThreshold}
}

// analyze runs features, clustering, scoring and sampling. The full feature
// matrix is built before either model sees it.
func (p *Pipeline) analyze(ctx context.Context, devs []deviation.Deviation) (*Applied, error) {
	applied := &Applied{}

	var matrix [][]float64
	err := p.stage(ctx, "features", func(context.Context) error {
		var schema *features.Schema
		schema, matrix = p.engineer.FitTransform(devs)
		applied.FeatureCount = schema.Dim()
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, "cluster", func(ctx context.Context) error {
		var err error
		applied.Clusters, err = p.clusterer.Cluster(ctx, matrix, devs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("clustering: %w", err)
	}

	err = p.stage(ctx, "score", func(ctx context.Context) error {
		var err error
		applied.Anomalies, err = p.scorer.Score(ctx, matrix)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("anomaly scoring: %w", err)
	}
	applied.Analysis = anomaly.Analyze(applied.Anomalies, devs)

	err = p.stage(ctx, "sample", func(context.Context) error {
		applied.Sample = p.sampler.Sample(devs, applied.Clusters, applied.Anomalies)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// stage runs fn inside a span, records its duration and refuses to start
// once ctx is done.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := telemetry.StartStageSpan(ctx, "pipeline", name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.metrics.RecordStage(ctx, name, time.Since(start))
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

func annotatePlain(devs []deviation.Deviation) []deviation.Annotated {
	out := make([]deviation.Annotated, len(devs))
	for i, d := range devs {
		out[i] = deviation.Annotated{Deviation: d}
	}
	return out
}

func bypassSummary(n int, reason string) *MLSummary {
	return &MLSummary{
		Applied:          false,
		Reason:           reason,
		OriginalCount:    n,
		SelectedCount:    n,
		CompressionRatio: values.Ratio(n, n),
		Method:           "none",
	}
}

func appliedSummary(n int, a *Applied) *MLSummary {
	comp := a.Sample.Report.Composition
	cov := a.Sample.Report.Coverage
	analysis := a.Analysis
	return &MLSummary{
		Applied:              true,
		OriginalCount:        n,
		SelectedCount:        a.Sample.Report.SelectedCount,
		CompressionRatio:     a.Sample.Report.CompressionRatio,
		ClustersFound:        a.Clusters.NClusters,
		NoisePoints:          a.Clusters.NoiseCount,
		AnomaliesDetected:    a.Anomalies.Count(),
		Method:               string(a.Clusters.Method),
		FallbackReason:       a.Clusters.FallbackReason,
		FeatureCount:         a.FeatureCount,
		AllAnomaliesIncluded: a.Sample.Report.AllAnomaliesIncluded,
		SamplingComposition:  &comp,
		Coverage:             &cov,
		Clusters:             a.Clusters.Clusters,
		AnomalyAnalysis:      &analysis,
	}
}
