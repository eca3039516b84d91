package sampling_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/anomaly"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/clustering"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/features"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/sampling"
	"github.com/vedangtiwari01-dev/vs-demo/internal/testutil/fixtures"
)

func annotate(t *testing.T, devs []deviation.Deviation) (*clustering.Result, *anomaly.Result) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	_, matrix := features.NewEngineer(logger, features.DefaultConfig()).FitTransform(devs)

	clusters, err := clustering.NewClusterer(logger, clustering.DefaultConfig()).Cluster(ctx, matrix, devs)
	require.NoError(t, err)

	scorer, err := anomaly.NewScorer(logger, anomaly.DefaultConfig())
	require.NoError(t, err)
	scores, err := scorer.Score(ctx, matrix)
	require.NoError(t, err)

	return clusters, scores
}

func newSampler(t *testing.T, target int) *sampling.Sampler {
	t.Helper()
	cfg := sampling.DefaultConfig()
	cfg.TargetSampleSize = target
	s, err := sampling.NewSampler(zaptest.NewLogger(t), cfg)
	require.NoError(t, err)
	return s
}

func TestSampler_AnomaliesExceedTarget(t *testing.T) {
	devs := fixtures.SyntheticPopulation(t, 800, 21)
	clusters, scores := annotate(t, devs)
	require.Equal(t, 80, scores.Count())

	res := newSampler(t, 75).Sample(devs, clusters, scores)

	assert.Len(t, res.Indices, 80)
	assert.Equal(t, 80, res.Report.SelectedCount)
	assert.Equal(t, 10.0, res.Report.CompressionRatio)
	assert.True(t, res.Report.AllAnomaliesIncluded)
	assert.Equal(t, 80, res.Report.Composition.Anomalies)
	for _, a := range res.Selected {
		assert.True(t, a.IsAnomaly)
	}
}

func TestSampler_CoverageWithinTarget(t *testing.T) {
	devs := fixtures.SyntheticPopulation(t, 200, 22)
	clusters, scores := annotate(t, devs)

	res := newSampler(t, 75).Sample(devs, clusters, scores)

	require.Len(t, res.Indices, 75)
	assert.True(t, sort.IntsAreSorted(res.Indices))
	assert.True(t, res.Report.AllAnomaliesIncluded)
	assert.Empty(t, res.Report.Coverage.MissingSeverities)
	assert.Empty(t, res.Report.Coverage.MissingTimePeriods)
	assert.Equal(t, res.Report.Coverage.SeverityLevelsPresent, res.Report.Coverage.SeverityLevels)

	seen := make(map[int]bool)
	for _, i := range res.Indices {
		assert.False(t, seen[i], "duplicate index %d", i)
		seen[i] = true
	}
	for _, i := range scores.Ranked {
		assert.True(t, seen[i], "anomaly %d missing", i)
	}

	c := res.Report.Composition
	assert.Equal(t, 75, c.Anomalies+c.ClusterRepresentatives+c.SeverityBackfill+c.TemporalBackfill+c.OfficerBackfill+c.TopUp)
	assert.Equal(t, scores.Count(), c.Anomalies)
	assert.LessOrEqual(t, c.OfficerBackfill, 5)
}

func TestSampler_Annotations(t *testing.T) {
	devs := fixtures.SyntheticPopulation(t, 120, 23)
	clusters, scores := annotate(t, devs)

	res := newSampler(t, 40).Sample(devs, clusters, scores)

	require.Len(t, res.Selected, len(res.Indices))
	for k, a := range res.Selected {
		i := res.Indices[k]
		assert.Equal(t, devs[i].ID, a.ID)
		assert.Equal(t, deviation.ClusterLabel(clusters.Labels[i]), a.Cluster)
		require.NotNil(t, a.AnomalyScore)
		if a.IsAnomaly {
			assert.LessOrEqual(t, *a.AnomalyScore, 0.0)
		}
	}
}

func TestSampler_PopulationSmallerThanTarget(t *testing.T) {
	devs := fixtures.SyntheticPopulation(t, 30, 24)
	clusters, scores := annotate(t, devs)

	res := newSampler(t, 75).Sample(devs, clusters, scores)

	assert.Len(t, res.Indices, 30)
	assert.Equal(t, 1.0, res.Report.CompressionRatio)
}

func TestSampler_Deterministic(t *testing.T) {
	devs := fixtures.SyntheticPopulation(t, 300, 25)

	c1, s1 := annotate(t, devs)
	c2, s2 := annotate(t, devs)

	a := newSampler(t, 60).Sample(devs, c1, s1)
	b := newSampler(t, 60).Sample(devs, c2, s2)
	assert.Equal(t, a.Indices, b.Indices)
	assert.Equal(t, a.Report, b.Report)
}

func TestNewSampler_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sampling.Config)
	}{
		{"zero target", func(c *sampling.Config) { c.TargetSampleSize = 0 }},
		{"negative target", func(c *sampling.Config) { c.TargetSampleSize = -5 }},
		{"negative officer backfill", func(c *sampling.Config) { c.MaxOfficerBackfill = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sampling.DefaultConfig()
			tt.mutate(&cfg)
			_, err := sampling.NewSampler(zaptest.NewLogger(t), cfg)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
		})
	}
}
