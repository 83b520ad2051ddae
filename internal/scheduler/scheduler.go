// Package scheduler walks a scenario task tree: serial children run
// strictly in order with short-circuit on failure, parallel children
// run concurrently with join-all semantics, and leaf actions are
// wrapped by the polling policy.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/scenrun/scenrun/internal/executor"
	"github.com/scenrun/scenrun/internal/logger"
	"github.com/scenrun/scenrun/internal/metrics"
	"github.com/scenrun/scenrun/internal/poll"
	"github.com/scenrun/scenrun/internal/report"
	"github.com/scenrun/scenrun/internal/scenario"
)

// Status is the per-task state machine. Every task moves
// Pending -> Running -> one of the terminal states.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusCancelled
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusSkipped:
		return "skipped"
	case StatusPending:
		fallthrough
	default:
		return "pending"
	}
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled, StatusSkipped:
		return true
	default:
		return false
	}
}

func (s Status) outcome() report.Outcome {
	switch s {
	case StatusSucceeded:
		return report.OutcomeSucceeded
	case StatusCancelled:
		return report.OutcomeCancelled
	case StatusSkipped:
		return report.OutcomeSkipped
	default:
		return report.OutcomeFailed
	}
}

// Config holds the construction-time inputs of a Scheduler. Scenario
// settings are threaded in explicitly; the scheduler reads no ambient
// state.
type Config struct {
	// Deps are the adapters handed to action executors.
	Deps executor.Deps
	// Policy bounds the polling of asynchronous actions.
	Policy poll.Policy
	// Timeout is the run-level wall-clock budget. Zero means no limit.
	Timeout time.Duration
	// Metrics receives per-task observations. Optional.
	Metrics *metrics.Metrics
	// NewExecutor builds leaf executors. Defaults to executor.New;
	// tests substitute stubs here.
	NewExecutor executor.NewFunc
}

// Scheduler executes one task tree. It owns all traversal state; the
// tree itself is a read-only shared input.
type Scheduler struct {
	cfg Config
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.NewExecutor == nil {
		cfg.NewExecutor = func(a scenario.Action, deps executor.Deps) (executor.Executor, error) {
			return executor.New(a, deps)
		}
	}
	if cfg.Policy.MaxAttempts == 0 && cfg.Policy.MaxWallTime == 0 {
		cfg.Policy = poll.Default
	}
	return &Scheduler{cfg: cfg}
}

// Run executes the tree rooted at root, appending every task and group
// completion to rep. It returns the root status; the report is always
// populated, including partial results for cancelled runs.
func (sc *Scheduler) Run(ctx context.Context, root *scenario.Task, rep *report.Report) Status {
	if sc.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sc.cfg.Timeout)
		defer cancel()
	}
	return sc.runTask(ctx, root, rep)
}

func (sc *Scheduler) runTask(ctx context.Context, task *scenario.Task, rep *report.Report) Status {
	switch task.Kind {
	case scenario.KindSerial:
		return sc.runSerial(ctx, task, rep)
	case scenario.KindParallel:
		return sc.runParallel(ctx, task, rep)
	default:
		return sc.runAction(ctx, task, rep)
	}
}

// runSerial executes children strictly in order. The first child that
// does not succeed fails the group and the remaining children are
// recorded as skipped without ever starting.
func (sc *Scheduler) runSerial(ctx context.Context, group *scenario.Task, rep *report.Report) Status {
	started := time.Now()
	groupStatus := StatusSucceeded
	var failures []string

	for _, child := range group.Children {
		if groupStatus != StatusSucceeded {
			sc.record(rep, child, StatusSkipped, time.Now(), time.Now(), "")
			continue
		}
		switch st := sc.runTask(ctx, child, rep); st {
		case StatusSucceeded:
		case StatusCancelled:
			groupStatus = StatusCancelled
		default:
			groupStatus = StatusFailed
			failures = append(failures, child.String())
		}
	}

	sc.record(rep, group, groupStatus, started, time.Now(), strings.Join(failures, "; "))
	return groupStatus
}

// runParallel starts all children concurrently and waits for every
// one to reach a terminal state. All failures are surfaced together,
// not only the first one encountered.
func (sc *Scheduler) runParallel(ctx context.Context, group *scenario.Task, rep *report.Report) Status {
	started := time.Now()
	statuses := make([]Status, len(group.Children))

	var wg sync.WaitGroup
	for i, child := range group.Children {
		wg.Add(1)
		go func(i int, child *scenario.Task) {
			defer wg.Done()
			statuses[i] = sc.runTask(ctx, child, rep)
		}(i, child)
	}
	wg.Wait()

	groupStatus := StatusSucceeded
	var failures []string
	for i, st := range statuses {
		switch st {
		case StatusSucceeded:
		case StatusCancelled:
			if groupStatus == StatusSucceeded {
				groupStatus = StatusCancelled
			}
		default:
			groupStatus = StatusFailed
			failures = append(failures, group.Children[i].String())
		}
	}

	sc.record(rep, group, groupStatus, started, time.Now(), strings.Join(failures, "; "))
	return groupStatus
}

func (sc *Scheduler) runAction(ctx context.Context, task *scenario.Task, rep *report.Report) Status {
	started := time.Now()
	logger.Info(ctx, "task started", "task", task.Name)

	status, diagnostic := sc.executeAction(ctx, task)

	logger.Info(ctx, "task finished", "task", task.Name, "status", status.String())
	sc.record(rep, task, status, started, time.Now(), diagnostic)
	return status
}

// executeAction runs one leaf: submit once, then poll the observation
// under the retry policy. Cancellation is distinguished from failure
// throughout.
func (sc *Scheduler) executeAction(ctx context.Context, task *scenario.Task) (Status, string) {
	exec, err := sc.cfg.NewExecutor(task.Action, sc.cfg.Deps)
	if err != nil {
		return StatusFailed, err.Error()
	}

	if err := exec.Submit(ctx); err != nil {
		if ctx.Err() != nil {
			return StatusCancelled, ""
		}
		submitErr := &executor.SubmitError{Err: err}
		return StatusFailed, submitErr.Error()
	}

	obs, err := sc.cfg.Policy.Do(ctx, exec.Observe)
	switch {
	case err == nil:
		return StatusSucceeded, ""

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled, ""

	case errors.Is(err, poll.ErrBudgetExhausted):
		diag := fmt.Sprintf("retry budget exhausted after %d attempts", obs.Attempts)
		if obs.Detail != "" {
			diag += ": " + obs.Detail
		}
		return StatusFailed, diag

	default:
		var mismatch *executor.MismatchError
		if errors.As(err, &mismatch) {
			return StatusFailed, mismatch.Error()
		}
		return StatusFailed, err.Error()
	}
}

func (sc *Scheduler) record(rep *report.Report, task *scenario.Task, status Status, started, finished time.Time, diagnostic string) {
	kind := task.Kind.String()
	if task.Kind == scenario.KindAction {
		kind = string(task.Action.Kind())
	}
	rep.Append(report.TaskResult{
		Name:       task.Name,
		Kind:       kind,
		Outcome:    status.outcome(),
		StartedAt:  started,
		FinishedAt: finished,
		Diagnostic: diagnostic,
	})
	if sc.cfg.Metrics != nil {
		sc.cfg.Metrics.ObserveTask(kind, string(status.outcome()), finished.Sub(started))
	}
}
