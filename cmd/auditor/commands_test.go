package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/pipeline"
	"github.com/vedangtiwari01-dev/vs-demo/internal/testutil/fixtures"
)

const loanRulesYAML = `
rules:
  - id: R1
    rule_type: sequence
    description: Application Received
    step_number: 1
    severity: high
  - id: R2
    rule_type: sequence
    description: Document Verification
    step_number: 2
    severity: high
  - id: R3
    rule_type: sequence
    description: Credit Check
    step_number: 3
    severity: critical
  - id: R4
    rule_type: approval
    description: Manager approval required
    severity: high
`

const rushedCaseJSON = `[
  {"case_id": "LOAN-1", "officer_id": "OFF7", "step_name": "Application Received", "timestamp": "2024-01-15T09:00:00Z"},
  {"case_id": "LOAN-1", "officer_id": "OFF7", "step_name": "Final Approval", "timestamp": "2024-01-15T09:30:00Z"},
  {"case_id": "LOAN-2", "officer_id": "OFF7", "step_name": "Credit Check", "timestamp": "not a time"}
]`

func execute(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	t.Setenv("AUDITOR_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	return &out, cmd.Execute()
}

func TestDetectCommand(t *testing.T) {
	events := writeFile(t, "events.json", rushedCaseJSON)
	rules := writeFile(t, "rules.yaml", loanRulesYAML)

	out, err := execute(t, "detect", "--events", events, "--rules", rules)
	require.NoError(t, err)

	var got DetectOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))

	require.NotNil(t, got.Detection)
	assert.Equal(t, 1, got.Detection.CasesEvaluated)
	assert.Equal(t, 1, got.Detection.CasesWithDeviations)
	assert.NotEmpty(t, got.Detection.Deviations)
	assert.Positive(t, got.Detection.ByType[deviation.TypeMissingStep])

	require.Len(t, got.Rejections, 1)
	assert.Equal(t, "LOAN-2", got.Rejections[0].CaseID)
}

func TestAnalyzeCommand_FromEvents(t *testing.T) {
	events := writeFile(t, "events.json", rushedCaseJSON)
	rules := writeFile(t, "rules.yaml", loanRulesYAML)

	out, err := execute(t, "analyze", "--events", events, "--rules", rules, "--compact")
	require.NoError(t, err)

	var payload pipeline.Payload
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))

	assert.NotEmpty(t, payload.RunID)
	assert.Equal(t, 1, payload.DataQuality.InputRejected)
	assert.Len(t, payload.Deviations, payload.DataQuality.FinalCount)
	require.NotNil(t, payload.MLSummary)
	assert.False(t, payload.MLSummary.Applied, "a handful of deviations stays below the activation threshold")
	assert.Equal(t, "none", payload.MLSummary.Method)
}

func TestAnalyzeCommand_FromDeviations(t *testing.T) {
	devs := fixtures.SyntheticPopulation(t, 300, 11)
	raw, err := json.Marshal(devs)
	require.NoError(t, err)
	path := writeFile(t, "devs.json", string(raw))

	textfile := filepath.Join(t.TempDir(), "auditor.prom")
	t.Setenv("AUDITOR_METRICS__TEXTFILE_PATH", textfile)
	t.Setenv("AUDITOR_ANALYSIS__TARGET_SAMPLE_SIZE", "40")

	out, err := execute(t, "analyze", "--deviations", path)
	require.NoError(t, err)

	var payload pipeline.Payload
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))

	require.NotNil(t, payload.MLSummary)
	assert.True(t, payload.MLSummary.Applied)
	assert.True(t, payload.MLSummary.AllAnomaliesIncluded)
	assert.Equal(t, payload.MLSummary.SelectedCount, len(payload.Deviations))
	assert.Equal(t, max(40, payload.MLSummary.AnomaliesDetected), payload.MLSummary.SelectedCount)

	metrics, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `auditor_run_total{command="analyze",result="success"} 1`)
	assert.Contains(t, string(metrics), "auditor_ml_applied 1")
}

func TestAnalyzeCommand_InputFlags(t *testing.T) {
	devs := writeFile(t, "devs.json", `[]`)
	events := writeFile(t, "events.json", `[]`)

	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"analyze"}},
		{"events without rules", []string{"analyze", "--events", events}},
		{"deviations and events", []string{"analyze", "--deviations", devs, "--events", events}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestAnalyzeCommand_InvalidConfig(t *testing.T) {
	devs := writeFile(t, "devs.json", `[]`)
	cfg := writeFile(t, "config.yaml", "analysis:\n  contamination: 0.9\n")

	_, err := execute(t, "analyze", "--config", cfg, "--deviations", devs)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.Equal(t, exitConfigError, exitCode(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "auditor dev\n", out.String())
}
