package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/infrastructure/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auditor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Hour, cfg.Detection.MinTotalDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.Detection.MaxStepGap)
	assert.Equal(t, 10, cfg.Analysis.ActivationThreshold)
	assert.Equal(t, 0.1, cfg.Analysis.Contamination)
	assert.Equal(t, 75, cfg.Analysis.TargetSampleSize)
	assert.Equal(t, int64(42), cfg.Analysis.Seed)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeFile(t, `
log_level: debug
detection:
  min_total_duration: 2h
  step_catalog:
    - name: Site Visit
      aliases: [site inspection, field visit]
  approval_policies:
    - name: committee_approval
      step_name: Committee Approval
      triggers: [committee]
      keywords: [committee, approval]
analysis:
  contamination: 0.05
  target_sample_size: 40
`)
	t.Setenv("AUDITOR_ANALYSIS__TARGET_SAMPLE_SIZE", "60")
	t.Setenv("AUDITOR_LOG_LEVEL", "warn")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over file")
	assert.Equal(t, 60, cfg.Analysis.TargetSampleSize)
	assert.Equal(t, 0.05, cfg.Analysis.Contamination)
	assert.Equal(t, 2*time.Hour, cfg.Detection.MinTotalDuration)
	require.Len(t, cfg.Detection.StepCatalog, 1)
	assert.Equal(t, "Site Visit", cfg.Detection.StepCatalog[0].Name)
	assert.Equal(t, []string{"site inspection", "field visit"}, cfg.Detection.StepCatalog[0].Aliases)
	require.Len(t, cfg.Detection.ApprovalPolicies, 1)
	assert.Equal(t, []string{"committee", "approval"}, cfg.Detection.ApprovalPolicies[0].Keywords)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{"zero contamination", map[string]string{"AUDITOR_ANALYSIS__CONTAMINATION": "0"}, "analysis.contamination"},
		{"contamination above half", map[string]string{"AUDITOR_ANALYSIS__CONTAMINATION": "0.6"}, "analysis.contamination"},
		{"negative target", map[string]string{"AUDITOR_ANALYSIS__TARGET_SAMPLE_SIZE": "-1"}, "analysis.target_sample_size"},
		{"unknown log level", map[string]string{"AUDITOR_LOG_LEVEL": "chatty"}, "log_level"},
		{"inverted cluster bounds", map[string]string{"AUDITOR_ANALYSIS__MIN_CLUSTERS": "25"}, "analysis.min_clusters"},
		{"telemetry without endpoint", map[string]string{
			"AUDITOR_TELEMETRY__ENABLED":       "true",
			"AUDITOR_TELEMETRY__OTLP_ENDPOINT": "",
		}, "telemetry.otlp_endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load("")
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestConfig_ValidateWeights(t *testing.T) {
	cfg := config.Default()
	cfg.Cleaning.DuplicateWeight, cfg.Cleaning.FixWeight, cfg.Cleaning.MissingWeight = 0, 0, 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleaning.weights")
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join("..", "..", "..", "configs", "auditor.example.yaml"))
	require.NoError(t, err)

	defaults := config.Default()
	assert.Equal(t, defaults.Analysis, cfg.Analysis)
	assert.Equal(t, defaults.Cleaning, cfg.Cleaning)
	assert.Equal(t, defaults.Detection.MaxStepGap, cfg.Detection.MaxStepGap)
	assert.Len(t, cfg.Detection.StepCatalog, 7)
	require.Len(t, cfg.Detection.ApprovalPolicies, 2)
	assert.True(t, cfg.Detection.ApprovalPolicies[1].Baseline)
	assert.Empty(t, cfg.Metrics.TextfilePath)
}
