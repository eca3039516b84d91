package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/workflow"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    []string
	}{
		{
			name:    "bare JSON list",
			file:    "events.json",
			content: `[{"case_id":"C1"},{"case_id":"C2"}]`,
			want:    []string{"C1", "C2"},
		},
		{
			name:    "JSON document",
			file:    "events.json",
			content: `{"events":[{"case_id":"C1"}],"meta":{"source":"lms"}}`,
			want:    []string{"C1"},
		},
		{
			name:    "YAML list",
			file:    "events.yaml",
			content: "- case_id: C1\n- case_id: C2\n",
			want:    []string{"C1", "C2"},
		},
		{
			name:    "YAML document",
			file:    "events.yml",
			content: "events:\n  - case_id: C3\n",
			want:    []string{"C3"},
		},
		{
			name:    "empty file",
			file:    "events.yaml",
			content: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)

			var records []workflow.EventRecord
			require.NoError(t, decodeList(nil, path, "events", &records))

			var got []string
			for _, r := range records {
				got = append(got, r.CaseID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeList_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		path := writeFile(t, "rules.json", `{"policies":[]}`)
		var records []workflow.RuleRecord
		err := decodeList(nil, path, "rules", &records)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		assert.Contains(t, err.Error(), `"rules"`)

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "rules", appErr.Details["key"])
	})

	t.Run("malformed JSON", func(t *testing.T) {
		path := writeFile(t, "rules.json", `[{"id":`)
		var records []workflow.RuleRecord
		err := decodeList(nil, path, "rules", &records)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})

	t.Run("missing file", func(t *testing.T) {
		var records []workflow.RuleRecord
		err := decodeList(nil, filepath.Join(t.TempDir(), "absent.yaml"), "rules", &records)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestLoadWorkflow(t *testing.T) {
	events := `
- case_id: C1
  officer_id: OFF1
  step_name: Application Received
  timestamp: "2024-01-15 09:00:00"
- case_id: C1
  officer_id: OFF1
  step_name: Credit Check
  timestamp: "2024-01-15T09:20:00Z"
- case_id: C2
  officer_id: OFF2
  step_name: Credit Check
`
	rules := `[
  {"id": "R1", "rule_type": "sequence", "description": "Application Received", "step_number": 1, "severity": "high"},
  {"id": "R2", "rule_type": "audit", "description": "Quarterly review", "severity": "low"}
]`
	eventsPath := writeFile(t, "events.yaml", events)
	rulesPath := writeFile(t, "rules.json", rules)

	evs, rs, rejected, err := loadWorkflow(nil, eventsPath, rulesPath)
	require.NoError(t, err)

	assert.Len(t, evs, 2)
	require.Len(t, rs, 1)
	assert.Equal(t, "R1", rs[0].ID)

	require.Len(t, rejected, 2)
	assert.Equal(t, "event", rejected[0].Kind)
	assert.Equal(t, "C2", rejected[0].CaseID)
	assert.Equal(t, "rule", rejected[1].Kind)
}

func TestLoadWorkflow_Stdin(t *testing.T) {
	rulesPath := writeFile(t, "rules.json", `[]`)
	stdin := strings.NewReader(`{"events":[{"case_id":"C1","officer_id":"O","step_name":"Credit Check","timestamp":"2024-01-15"}]}`)

	evs, _, rejected, err := loadWorkflow(stdin, "-", rulesPath)
	require.NoError(t, err)
	assert.Len(t, evs, 1)
	assert.Empty(t, rejected)

	_, _, _, err = loadWorkflow(stdin, "-", "-")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestLoadDeviations(t *testing.T) {
	path := writeFile(t, "devs.yaml", `
deviations:
  - case_id: C1
    officer_id: OFF1
    deviation_type: Missing Step
    severity: HIGH
    description: Missing required step Credit Check
    detected_at: 2024-01-15T09:00:00Z
`)

	devs, err := loadDeviations(nil, path)
	require.NoError(t, err)
	require.Len(t, devs, 1)

	d := devs[0]
	assert.Equal(t, "C1", d.CaseID)
	// Normalization belongs to the cleaning stage.
	assert.Equal(t, deviation.Type("Missing Step"), d.Type)
	assert.Equal(t, values.Severity("HIGH"), d.Severity)
	assert.Equal(t, 2024, d.DetectedAt.Year())
}
