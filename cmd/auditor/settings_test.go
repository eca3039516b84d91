package main

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedangtiwari01-dev/vs-demo/internal/infrastructure/config"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/detection"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/pipeline"
)

func TestPipelineConfig_DefaultsAgree(t *testing.T) {
	assert.Equal(t, pipeline.DefaultConfig(), pipelineConfig(config.Default()))
}

func TestPipelineConfig_Overrides(t *testing.T) {
	cfg := config.Default()
	cfg.Detection.Workers = 3
	cfg.Detection.MaxStepGap = 48 * time.Hour
	cfg.Detection.StepCatalog = []config.StepAliasConfig{
		{Name: "Collateral Appraisal", Aliases: []string{"appraisal"}},
	}
	cfg.Detection.ApprovalPolicies = []config.ApprovalPolicyConfig{
		{Name: "committee", StepName: "Credit Committee", Triggers: []string{"committee"}, Keywords: []string{"committee"}, Baseline: true},
	}
	cfg.Cleaning.MissingWeight = 0.2
	cfg.Analysis.Contamination = 0.05
	cfg.Analysis.TargetSampleSize = 30
	cfg.Analysis.Seed = 7

	pc := pipelineConfig(cfg)
	require.NoError(t, pc.Validate())

	assert.Equal(t, 3, pc.Detection.Workers)
	assert.Equal(t, 48*time.Hour, pc.Detection.MaxStepGap)
	assert.Equal(t, detection.StepCatalog{{Name: "Collateral Appraisal", Aliases: []string{"appraisal"}}}, pc.Detection.StepCatalog)
	require.Len(t, pc.Detection.ApprovalPolicies, 1)
	assert.True(t, pc.Detection.ApprovalPolicies[0].Baseline)
	assert.Equal(t, 0.2, pc.Cleaning.Weights.Missing)
	assert.Equal(t, 0.05, pc.Anomaly.Contamination)
	assert.Equal(t, 30, pc.Sampling.TargetSampleSize)
	assert.Equal(t, int64(7), pc.Anomaly.Seed)
	assert.Equal(t, int64(7), pc.Clustering.Seed)
}

func TestTelemetryConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.OTLPEndpoint = "collector:4317"

	tc := telemetryConfig(cfg)
	assert.True(t, tc.Enabled)
	assert.Equal(t, "collector:4317", tc.OTLPEndpoint)
	assert.Equal(t, "compliance-auditor", tc.ServiceName)
	assert.Equal(t, version, tc.ServiceVersion)
	assert.Equal(t, "production", tc.Environment)

	cfg.Version = "1.4.0"
	assert.Equal(t, "1.4.0", telemetryConfig(cfg).ServiceVersion)
}

func TestRunMetrics(t *testing.T) {
	m := newRunMetrics()

	m.observeFailure("analyze")
	m.observeDetection(&detection.Result{CasesEvaluated: 12, Failures: []detection.CaseFailure{{CaseID: "C9"}}}, 2, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("analyze", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("detect", "success")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.records.WithLabelValues("cases_evaluated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.records.WithLabelValues("cases_failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.records.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.duration.WithLabelValues("detect")))
}
