package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scenrun/scenrun/internal/executor"
	"github.com/scenrun/scenrun/internal/poll"
	"github.com/scenrun/scenrun/internal/report"
	"github.com/scenrun/scenrun/internal/scenario"
)

// stubExec is a scriptable executor keyed by action identity.
type stubExec struct {
	started   atomic.Int32
	submitErr error
	observe   func(ctx context.Context) (poll.Observation, error)
}

func (s *stubExec) Submit(context.Context) error {
	s.started.Add(1)
	return s.submitErr
}

func (s *stubExec) Observe(ctx context.Context) (poll.Observation, error) {
	if s.observe != nil {
		return s.observe(ctx)
	}
	return poll.Observation{Done: true}, nil
}

type stubEnv struct {
	execs map[scenario.Action]*stubExec
}

func newStubEnv() *stubEnv {
	return &stubEnv{execs: map[scenario.Action]*stubExec{}}
}

// action creates a leaf task backed by a fresh stub executor.
func (e *stubEnv) action(name string, stub *stubExec) *scenario.Task {
	act := &scenario.WaitBlocks{Blocks: 1}
	e.execs[act] = stub
	return &scenario.Task{Kind: scenario.KindAction, Name: name, Action: act}
}

func (e *stubEnv) newExecutor(a scenario.Action, _ executor.Deps) (executor.Executor, error) {
	stub, ok := e.execs[a]
	if !ok {
		return nil, errors.New("no stub for action")
	}
	return stub, nil
}

func (e *stubEnv) scheduler(timeout time.Duration) *Scheduler {
	return New(Config{
		Policy:      poll.Policy{MaxAttempts: 3, Interval: time.Millisecond, BackoffFactor: 1},
		Timeout:     timeout,
		NewExecutor: e.newExecutor,
	})
}

func serial(name string, children ...*scenario.Task) *scenario.Task {
	return &scenario.Task{Kind: scenario.KindSerial, Name: name, Children: children}
}

func parallel(name string, children ...*scenario.Task) *scenario.Task {
	return &scenario.Task{Kind: scenario.KindParallel, Name: name, Children: children}
}

func failing() *stubExec {
	return &stubExec{observe: func(context.Context) (poll.Observation, error) {
		return poll.Observation{Detail: "still wrong"}, nil
	}}
}

func succeeding() *stubExec { return &stubExec{} }

func outcomeByName(t *testing.T, rep *report.Report, name string) report.TaskResult {
	t.Helper()
	for _, res := range rep.Results() {
		if res.Name == name {
			return res
		}
	}
	t.Fatalf("no result for task %q", name)
	return report.TaskResult{}
}

func TestSerialShortCircuit(t *testing.T) {
	env := newStubEnv()
	okStub, failStub := succeeding(), failing()
	neverA, neverB := succeeding(), succeeding()

	root := serial("root",
		env.action("first", okStub),
		env.action("boom", failStub),
		env.action("never-1", neverA),
		env.action("never-2", neverB),
	)

	rep := report.New("run", "test", time.Now())
	status := env.scheduler(0).Run(context.Background(), root, rep)

	require.Equal(t, StatusFailed, status)
	require.Equal(t, int32(1), okStub.started.Load())
	require.Equal(t, int32(1), failStub.started.Load())
	require.Equal(t, int32(0), neverA.started.Load())
	require.Equal(t, int32(0), neverB.started.Load())

	require.Equal(t, report.OutcomeSucceeded, outcomeByName(t, rep, "first").Outcome)
	require.Equal(t, report.OutcomeFailed, outcomeByName(t, rep, "boom").Outcome)
	require.Equal(t, report.OutcomeSkipped, outcomeByName(t, rep, "never-1").Outcome)
	require.Equal(t, report.OutcomeSkipped, outcomeByName(t, rep, "never-2").Outcome)
	require.Equal(t, report.OutcomeFailed, outcomeByName(t, rep, "root").Outcome)
}

func TestParallelReportsAllFailures(t *testing.T) {
	env := newStubEnv()
	root := parallel("root",
		env.action("fail-a", failing()),
		env.action("fail-b", failing()),
		env.action("fine", succeeding()),
	)

	rep := report.New("run", "test", time.Now())
	status := env.scheduler(0).Run(context.Background(), root, rep)

	require.Equal(t, StatusFailed, status)
	require.Equal(t, report.OutcomeFailed, outcomeByName(t, rep, "fail-a").Outcome)
	require.Equal(t, report.OutcomeFailed, outcomeByName(t, rep, "fail-b").Outcome)
	require.Equal(t, report.OutcomeSucceeded, outcomeByName(t, rep, "fine").Outcome)

	group := outcomeByName(t, rep, "root")
	require.Equal(t, report.OutcomeFailed, group.Outcome)
	require.Contains(t, group.Diagnostic, "fail-a")
	require.Contains(t, group.Diagnostic, "fail-b")
	require.NotContains(t, group.Diagnostic, "fine")
}

func TestParallelRunsConcurrently(t *testing.T) {
	env := newStubEnv()
	var running atomic.Int32
	var peak atomic.Int32

	slow := func() *stubExec {
		return &stubExec{observe: func(context.Context) (poll.Observation, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return poll.Observation{Done: true}, nil
		}}
	}

	root := parallel("root",
		env.action("a", slow()),
		env.action("b", slow()),
		env.action("c", slow()),
	)

	rep := report.New("run", "test", time.Now())
	status := env.scheduler(0).Run(context.Background(), root, rep)
	require.Equal(t, StatusSucceeded, status)
	require.GreaterOrEqual(t, peak.Load(), int32(2))
}

func TestNestedGroups(t *testing.T) {
	env := newStubEnv()
	root := serial("root",
		parallel("open-channels",
			env.action("open-0-1", succeeding()),
			env.action("open-1-2", succeeding()),
		),
		serial("transfers",
			env.action("transfer-0-3", succeeding()),
		),
	)

	rep := report.New("run", "test", time.Now())
	status := env.scheduler(0).Run(context.Background(), root, rep)
	require.Equal(t, StatusSucceeded, status)

	// Leaves, inner groups and root all appear in the report.
	require.Len(t, rep.Results(), 6)
	require.Equal(t, report.OutcomeSucceeded, outcomeByName(t, rep, "open-channels").Outcome)
	require.Equal(t, report.OutcomeSucceeded, outcomeByName(t, rep, "root").Outcome)
}

func TestSerialFailureInsideParallelBranchDoesNotStopSibling(t *testing.T) {
	env := newStubEnv()
	sibling := succeeding()
	root := parallel("root",
		serial("branch-a",
			env.action("a-fail", failing()),
			env.action("a-skipped", succeeding()),
		),
		env.action("b-ok", sibling),
	)

	rep := report.New("run", "test", time.Now())
	status := env.scheduler(0).Run(context.Background(), root, rep)

	require.Equal(t, StatusFailed, status)
	require.Equal(t, int32(1), sibling.started.Load())
	require.Equal(t, report.OutcomeSkipped, outcomeByName(t, rep, "a-skipped").Outcome)
	require.Equal(t, report.OutcomeSucceeded, outcomeByName(t, rep, "b-ok").Outcome)
}

func TestRunLevelTimeoutCancelsInFlightPoll(t *testing.T) {
	env := newStubEnv()

	pending := &stubExec{observe: func(context.Context) (poll.Observation, error) {
		return poll.Observation{Detail: "pending"}, nil
	}}

	root := serial("root",
		env.action("quick", succeeding()),
		env.action("stuck", pending),
	)

	sc := New(Config{
		Policy:      poll.Policy{MaxAttempts: 1000, Interval: 10 * time.Millisecond, BackoffFactor: 1},
		Timeout:     30 * time.Millisecond,
		NewExecutor: env.newExecutor,
	})

	rep := report.New("run", "test", time.Now())
	start := time.Now()
	status := sc.Run(context.Background(), root, rep)

	require.Equal(t, StatusCancelled, status)
	// Cancellation must be observed within roughly one poll interval.
	require.Less(t, time.Since(start), 200*time.Millisecond)

	require.Equal(t, report.OutcomeSucceeded, outcomeByName(t, rep, "quick").Outcome)
	require.Equal(t, report.OutcomeCancelled, outcomeByName(t, rep, "stuck").Outcome)
}

func TestSubmitFailureIsTerminal(t *testing.T) {
	env := newStubEnv()
	broken := &stubExec{submitErr: errors.New("http 500")}
	root := serial("root", env.action("submit-fails", broken))

	rep := report.New("run", "test", time.Now())
	status := env.scheduler(0).Run(context.Background(), root, rep)

	require.Equal(t, StatusFailed, status)
	res := outcomeByName(t, rep, "submit-fails")
	require.Contains(t, res.Diagnostic, "submit failed")
	// Submit is never retried.
	require.Equal(t, int32(1), broken.started.Load())
}

func TestBudgetExhaustionDiagnosticIncludesSnapshot(t *testing.T) {
	env := newStubEnv()
	root := serial("root", env.action("assert-balance", failing()))

	rep := report.New("run", "test", time.Now())
	env.scheduler(0).Run(context.Background(), root, rep)

	res := outcomeByName(t, rep, "assert-balance")
	require.Equal(t, report.OutcomeFailed, res.Outcome)
	require.Contains(t, res.Diagnostic, "retry budget exhausted after 3 attempts")
	require.Contains(t, res.Diagnostic, "still wrong")
}

func TestMismatchErrorStopsPollingImmediately(t *testing.T) {
	env := newStubEnv()
	calls := 0
	mismatch := &stubExec{observe: func(context.Context) (poll.Observation, error) {
		calls++
		return poll.Observation{}, &executor.MismatchError{}
	}}
	root := serial("root", env.action("wrong-status", mismatch))

	rep := report.New("run", "test", time.Now())
	env.scheduler(0).Run(context.Background(), root, rep)

	require.Equal(t, 1, calls)
	require.Contains(t, outcomeByName(t, rep, "wrong-status").Diagnostic, "assertion mismatch")
}
