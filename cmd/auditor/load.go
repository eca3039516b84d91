package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/workflow"
)

const stdinPath = "-"

// loadWorkflow reads and parses events and rules. Malformed records are
// returned as rejections rather than errors.
func loadWorkflow(stdin io.Reader, eventsPath, rulesPath string) ([]workflow.WorkflowEvent, []workflow.ComplianceRule, []workflow.Rejection, error) {
	if eventsPath == stdinPath && rulesPath == stdinPath {
		return nil, nil, nil, errors.NewValidationError("STDIN_REUSED", "events and rules cannot both be read from stdin")
	}

	var eventRecords []workflow.EventRecord
	if err := decodeList(stdin, eventsPath, "events", &eventRecords); err != nil {
		return nil, nil, nil, err
	}
	var ruleRecords []workflow.RuleRecord
	if err := decodeList(stdin, rulesPath, "rules", &ruleRecords); err != nil {
		return nil, nil, nil, err
	}

	events, rejected := workflow.ParseEvents(eventRecords)
	rules, rejectedRules := workflow.ParseRules(ruleRecords)
	return events, rules, append(rejected, rejectedRules...), nil
}

// loadDeviations reads an externally produced deviation list. Field-level
// problems are left to the cleaning stage.
func loadDeviations(stdin io.Reader, path string) ([]deviation.Deviation, error) {
	var devs []deviation.Deviation
	if err := decodeList(stdin, path, "deviations", &devs); err != nil {
		return nil, err
	}
	return devs, nil
}

// decodeList accepts either a bare list or a document with the list under
// key. Non-JSON input is parsed as YAML and converted to JSON first.
func decodeList(stdin io.Reader, path, key string, dst interface{}) error {
	data, err := readInput(stdin, path)
	if err != nil {
		return err
	}

	if !isJSONPath(path) {
		if data, err = yamlToJSON(data); err != nil {
			return malformed(path, err)
		}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return malformed(path, err)
		}
		raw, ok := doc[key]
		if !ok {
			return errors.NewValidationError("MISSING_KEY",
				fmt.Sprintf("%s: document has no %q list", displayPath(path), key)).
				WithDetail("key", key)
		}
		data = raw
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return malformed(path, err)
	}
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == stdinPath {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v interface{}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func malformed(path string, err error) error {
	return errors.NewValidationError("MALFORMED_INPUT",
		fmt.Sprintf("%s: %v", displayPath(path), err)).WithCause(err)
}

func displayPath(path string) string {
	if path == stdinPath {
		return "stdin"
	}
	return path
}
