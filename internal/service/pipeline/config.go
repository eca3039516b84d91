package pipeline

import (
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/cleaning"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/detection"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/anomaly"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/clustering"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/features"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/sampling"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/statistics"
)

// Config gathers the settings of every stage
type Config struct {
	// ActivationThreshold is the smallest cleaned population that engages
	// the ML stages.
	ActivationThreshold int
	Detection           detection.Config
	Cleaning            cleaning.Config
	Statistics          statistics.Config
	Features            features.Config
	Clustering          clustering.Config
	Anomaly             anomaly.Config
	Sampling            sampling.Config
}

// DefaultConfig returns the stock pipeline settings
func DefaultConfig() Config {
	return Config{
		ActivationThreshold: 10,
		Detection:           detection.DefaultConfig(),
		Cleaning:            cleaning.DefaultConfig(),
		Statistics:          statistics.DefaultConfig(),
		Features:            features.DefaultConfig(),
		Clustering:          clustering.DefaultConfig(),
		Anomaly:             anomaly.DefaultConfig(),
		Sampling:            sampling.DefaultConfig(),
	}
}

// Validate rejects settings no stage can run with.
func (c Config) Validate() error {
	switch {
	case c.ActivationThreshold < 1:
		return errors.NewConfigurationError("activation_threshold", "must be positive")
	case c.Detection.MinTotalDuration < 0:
		return errors.NewConfigurationError("min_total_duration", "cannot be negative")
	case c.Detection.MaxStepGap < 0:
		return errors.NewConfigurationError("max_step_gap", "cannot be negative")
	case c.Cleaning.DedupePrefixLength < 1:
		return errors.NewConfigurationError("dedupe_prefix_length", "must be positive")
	case c.Cleaning.Weights.Duplicates < 0 || c.Cleaning.Weights.Fixes < 0 || c.Cleaning.Weights.Missing < 0:
		return errors.NewConfigurationError("weights", "cannot be negative")
	case c.Cleaning.Weights.Duplicates+c.Cleaning.Weights.Fixes+c.Cleaning.Weights.Missing <= 0:
		return errors.NewConfigurationError("weights", "must sum to more than zero")
	case c.Features.MaxTerms < 0 || c.Features.TopTypes < 0 || c.Features.TopOfficers < 0:
		return errors.NewConfigurationError("features", "vocabulary sizes cannot be negative")
	case c.Features.MaxDFRatio <= 0 || c.Features.MaxDFRatio > 1:
		return errors.NewConfigurationError("max_df", "must be in (0, 1]")
	case c.Clustering.Eps <= 0:
		return errors.NewConfigurationError("dbscan_eps", "must be positive")
	case c.Clustering.MinSamples < 1:
		return errors.NewConfigurationError("dbscan_min_samples", "must be positive")
	case c.Clustering.MinClusters < 1:
		return errors.NewConfigurationError("min_clusters", "must be positive")
	case c.Clustering.MinClusters > c.Clustering.MaxClusters:
		return errors.NewConfigurationError("min_clusters", "cannot exceed max_clusters")
	case c.Clustering.FallbackK < 2:
		return errors.NewConfigurationError("fallback_k", "must be at least 2")
	case c.Clustering.KMeansInit < 1 || c.Clustering.KMeansMaxIter < 1:
		return errors.NewConfigurationError("kmeans", "init runs and iterations must be positive")
	}
	if err := c.Anomaly.Validate(); err != nil {
		return err
	}
	return c.Sampling.Validate()
}
