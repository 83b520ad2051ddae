// Package report accumulates per-task outcomes for a scenario run and
// renders them for operators and machines.
package report

import (
	"encoding/json"
	"sync"
	"time"
)

// Outcome is the terminal result of a task or of the whole run.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	// OutcomeCancelled marks a task interrupted by run-level
	// cancellation. It is distinct from a failure.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeSkipped marks a task never started because an earlier
	// sibling in a serial group failed.
	OutcomeSkipped Outcome = "skipped"
)

// TaskResult is the recorded outcome of one task.
type TaskResult struct {
	// Seq is the position of the result in completion order.
	Seq int `json:"seq"`
	// Name identifies the task.
	Name string `json:"name"`
	// Kind is "serial", "parallel" or the action kind.
	Kind string `json:"kind"`
	// Outcome is the terminal state the task reached.
	Outcome Outcome `json:"outcome"`
	// StartedAt and FinishedAt bound the task's execution.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// Diagnostic carries failure details: the last observed vs expected
	// state, or the submit error.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Duration is the wall time the task took.
func (r TaskResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Report is the ordered log of task outcomes for one run. It is safe
// for concurrent appends from parallel branches and is immutable once
// finalized.
type Report struct {
	mu        sync.Mutex
	runID     string
	scenario  string
	startedAt time.Time

	results    []TaskResult
	finalized  bool
	outcome    Outcome
	finishedAt time.Time
}

// New creates an empty report for a run.
func New(runID, scenarioName string, startedAt time.Time) *Report {
	return &Report{runID: runID, scenario: scenarioName, startedAt: startedAt}
}

// RunID returns the run identifier.
func (r *Report) RunID() string { return r.runID }

// Scenario returns the scenario name.
func (r *Report) Scenario() string { return r.scenario }

// StartedAt returns the run start time.
func (r *Report) StartedAt() time.Time { return r.startedAt }

// Append records a task result. It panics if the report was already
// finalized; results never change after the run ends.
func (r *Report) Append(res TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		panic("report: append after finalize")
	}
	res.Seq = len(r.results)
	r.results = append(r.results, res)
}

// Finalize seals the report with the overall outcome. Finalizing twice
// panics.
func (r *Report) Finalize(outcome Outcome, finishedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		panic("report: finalize twice")
	}
	r.finalized = true
	r.outcome = outcome
	r.finishedAt = finishedAt
}

// Finalized reports whether the report has been sealed.
func (r *Report) Finalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}

// Outcome returns the overall run outcome. Valid after Finalize.
func (r *Report) Outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

// FinishedAt returns the run end time. Valid after Finalize.
func (r *Report) FinishedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finishedAt
}

// Results returns a copy of the recorded results in completion order.
func (r *Report) Results() []TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TaskResult, len(r.results))
	copy(out, r.results)
	return out
}

type reportJSON struct {
	RunID      string       `json:"run_id"`
	Scenario   string       `json:"scenario"`
	Outcome    Outcome      `json:"outcome"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Tasks      []TaskResult `json:"tasks"`
}

// MarshalJSON serializes the report for the reporting collaborator.
func (r *Report) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Marshal(reportJSON{
		RunID:      r.runID,
		Scenario:   r.scenario,
		Outcome:    r.outcome,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
		Tasks:      r.results,
	})
}
