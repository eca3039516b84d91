package workflow

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// timestampLayouts are tried in order when parsing event timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// EventRecord is a workflow event as supplied by the ingestion edge
type EventRecord struct {
	CaseID          string `json:"case_id" yaml:"case_id" validate:"required"`
	OfficerID       string `json:"officer_id" yaml:"officer_id" validate:"required"`
	StepName        string `json:"step_name" yaml:"step_name" validate:"required"`
	Action          string `json:"action" yaml:"action"`
	Timestamp       string `json:"timestamp" yaml:"timestamp" validate:"required"`
	DurationSeconds *int   `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty" validate:"omitempty,gte=0"`
	Status          string `json:"status,omitempty" yaml:"status,omitempty"`
	Note            string `json:"note,omitempty" yaml:"note,omitempty"`
}

// WorkflowEvent is one recorded step within a case
type WorkflowEvent struct {
	CaseID          string
	OfficerID       string
	StepName        string
	Action          string
	Timestamp       time.Time
	DurationSeconds *int
	Status          string
	Note            string

	// Seq is the position in the original input; it breaks timestamp ties.
	Seq int
}

// Rejection records an input record that failed validation
type Rejection struct {
	Kind   string `json:"kind"`
	Index  int    `json:"index"`
	CaseID string `json:"case_id,omitempty"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func newRejection(kind string, index int, caseID string, err *errors.AppError) Rejection {
	return Rejection{Kind: kind, Index: index, CaseID: caseID, Code: err.Code, Reason: err.Error()}
}

// ParseTimestamp parses an ISO-8601 timestamp, with or without offset.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.NewValidationError("INVALID_TIMESTAMP",
		fmt.Sprintf("timestamp '%s' is not ISO-8601", raw))
}

// ToEvent validates the record and converts it into a WorkflowEvent.
// Fields are trimmed before validation, so blank values count as missing.
func (r EventRecord) ToEvent(seq int) (WorkflowEvent, error) {
	r.CaseID = strings.TrimSpace(r.CaseID)
	r.OfficerID = strings.TrimSpace(r.OfficerID)
	r.StepName = strings.TrimSpace(r.StepName)
	r.Timestamp = strings.TrimSpace(r.Timestamp)

	if err := validate.Struct(r); err != nil {
		return WorkflowEvent{}, errors.NewValidationError("INVALID_EVENT",
			"event record is missing a required field").WithCause(err)
	}

	ts, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return WorkflowEvent{}, err
	}

	return WorkflowEvent{
		CaseID:          r.CaseID,
		OfficerID:       r.OfficerID,
		StepName:        r.StepName,
		Action:          strings.TrimSpace(r.Action),
		Timestamp:       ts,
		DurationSeconds: r.DurationSeconds,
		Status:          strings.TrimSpace(r.Status),
		Note:            strings.TrimSpace(r.Note),
		Seq:             seq,
	}, nil
}

// ParseEvents converts records into events. Malformed records are skipped and
// returned as rejections; they never fail the batch.
func ParseEvents(records []EventRecord) ([]WorkflowEvent, []Rejection) {
	events := make([]WorkflowEvent, 0, len(records))
	var rejected []Rejection

	for i, rec := range records {
		ev, err := rec.ToEvent(i)
		if err != nil {
			appErr := asAppError(err)
			rejected = append(rejected, newRejection("event", i, rec.CaseID, appErr))
			continue
		}
		events = append(events, ev)
	}

	return events, rejected
}

// Case is one end-to-end process instance
type Case struct {
	ID        string
	OfficerID string
	Events    []WorkflowEvent
}

// StepNames returns the chronological step names of the case.
func (c Case) StepNames() []string {
	names := make([]string, len(c.Events))
	for i, ev := range c.Events {
		names[i] = ev.StepName
	}
	return names
}

// First returns the earliest event. The case must not be empty.
func (c Case) First() WorkflowEvent {
	return c.Events[0]
}

// Last returns the latest event. The case must not be empty.
func (c Case) Last() WorkflowEvent {
	return c.Events[len(c.Events)-1]
}

// Elapsed is the time between the first and last event.
func (c Case) Elapsed() time.Duration {
	if len(c.Events) < 2 {
		return 0
	}
	return c.Last().Timestamp.Sub(c.First().Timestamp)
}

// GroupCases partitions events into cases, in order of each case's first
// appearance. Events within a case are ordered by timestamp, ties by input
// order. The case officer is the officer of the earliest event.
func GroupCases(events []WorkflowEvent) []Case {
	index := make(map[string]int)
	var cases []Case

	for _, ev := range events {
		i, ok := index[ev.CaseID]
		if !ok {
			i = len(cases)
			index[ev.CaseID] = i
			cases = append(cases, Case{ID: ev.CaseID})
		}
		cases[i].Events = append(cases[i].Events, ev)
	}

	for i := range cases {
		evs := cases[i].Events
		sort.SliceStable(evs, func(a, b int) bool {
			if !evs[a].Timestamp.Equal(evs[b].Timestamp) {
				return evs[a].Timestamp.Before(evs[b].Timestamp)
			}
			return evs[a].Seq < evs[b].Seq
		})
		cases[i].OfficerID = evs[0].OfficerID
	}

	return cases
}

func asAppError(err error) *errors.AppError {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	return errors.NewValidationError("INVALID_RECORD", err.Error())
}
