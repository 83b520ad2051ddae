// Package agent drives one scenario run end to end: it wires the
// configuration into clients, executes the task tree, persists the
// report and renders the summary.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/scenrun/scenrun/internal/client"
	"github.com/scenrun/scenrun/internal/config"
	"github.com/scenrun/scenrun/internal/executor"
	"github.com/scenrun/scenrun/internal/history"
	"github.com/scenrun/scenrun/internal/logger"
	"github.com/scenrun/scenrun/internal/metrics"
	"github.com/scenrun/scenrun/internal/poll"
	"github.com/scenrun/scenrun/internal/report"
	"github.com/scenrun/scenrun/internal/scenario"
	"github.com/scenrun/scenrun/internal/scheduler"
)

// requestTimeout bounds individual HTTP calls to the nodes. The run
// timeout bounds the whole tree separately.
const requestTimeout = 30 * time.Second

var (
	// ErrRunFailed is returned when at least one task failed.
	ErrRunFailed = errors.New("scenario run failed")
	// ErrRunCancelled is returned when the run was interrupted before
	// completing.
	ErrRunCancelled = errors.New("scenario run cancelled")
)

// Options tweak a single run.
type Options struct {
	// Dry validates and prints the task tree without executing anything.
	Dry bool
	// Out receives the rendered summary. Defaults to os.Stdout.
	Out io.Writer
	// RunID overrides the generated run identifier.
	RunID string
	// NoHistory skips persisting the report.
	NoHistory bool
}

// Agent runs one scenario.
type Agent struct {
	cfg  *config.Config
	scn  *scenario.Scenario
	opts Options
}

// New creates an Agent for the given scenario.
func New(cfg *config.Config, scn *scenario.Scenario, opts Options) *Agent {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Agent{cfg: cfg, scn: scn, opts: opts}
}

// Run executes the scenario. The report is rendered and persisted even
// when the run fails or is interrupted.
func (a *Agent) Run(ctx context.Context) error {
	if a.opts.Dry {
		fmt.Fprint(a.opts.Out, renderTree(a.scn))
		return nil
	}

	if got := len(a.cfg.Nodes); got < a.scn.Nodes.Count {
		return fmt.Errorf("scenario needs %d nodes, configuration provides %d", a.scn.Nodes.Count, got)
	}

	logFile := ""
	if a.cfg.Paths.LogDir != "" {
		logFile = filepath.Join(a.cfg.Paths.LogDir, a.opts.RunID+".log")
	}
	log, closeLog, err := logger.New(logger.Config{
		Level: a.cfg.Log.Level,
		File:  logFile,
		Quiet: a.cfg.Log.Quiet,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	log = log.With("run_id", a.opts.RunID, "scenario", a.scn.Name)
	ctx = logger.WithLogger(ctx, log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if a.cfg.Debug.Addr != "" {
		stopDebug := serveDebug(ctx, a.cfg.Debug.Addr, m)
		defer stopDebug()
	}

	deps, err := a.buildDeps()
	if err != nil {
		return err
	}

	sc := scheduler.New(scheduler.Config{
		Deps: deps,
		Policy: poll.Policy{
			MaxAttempts:   a.cfg.Poll.MaxAttempts,
			MaxWallTime:   a.cfg.Poll.MaxWallTime,
			Interval:      a.cfg.Poll.Interval,
			MaxInterval:   a.cfg.Poll.MaxInterval,
			BackoffFactor: a.cfg.Poll.BackoffFactor,
		},
		Timeout: a.cfg.Timeout,
		Metrics: m,
	})

	rep := report.New(a.opts.RunID, a.scn.Name, time.Now())
	logger.Info(ctx, "run started", "tasks", a.scn.Root.Size())

	status := sc.Run(ctx, a.scn.Root, rep)

	outcome := statusOutcome(status)
	rep.Finalize(outcome, time.Now())
	m.ObserveRun(string(outcome))
	logger.Info(ctx, "run finished", "outcome", string(outcome))

	fmt.Fprint(a.opts.Out, report.Render(rep))

	if !a.opts.NoHistory {
		if err := a.saveHistory(rep); err != nil {
			logger.Error(ctx, "failed to persist run history", "err", err)
		}
	}

	switch status {
	case scheduler.StatusSucceeded:
		return nil
	case scheduler.StatusCancelled:
		return ErrRunCancelled
	default:
		return ErrRunFailed
	}
}

// buildDeps constructs the node and PFS clients from the merged
// scenario settings and runner configuration. Scenario settings win
// where both specify a value.
func (a *Agent) buildDeps() (executor.Deps, error) {
	nodes := make([]client.StaticNode, len(a.cfg.Nodes))
	for i, n := range a.cfg.Nodes {
		nodes[i] = client.StaticNode{BaseURL: n.Endpoint, Address: n.Address}
	}
	resolver := client.NewStaticResolver(nodes)

	token := a.scn.Settings.Token
	if token == "" {
		token = a.cfg.Token
	}
	if token == "" {
		return executor.Deps{}, fmt.Errorf("no token address in scenario settings or configuration")
	}

	node, err := client.NewHTTPNodeClient(resolver, token, requestTimeout)
	if err != nil {
		return executor.Deps{}, err
	}

	deps := executor.Deps{Node: node}

	pfsURL := a.scn.Settings.Services.PFS.URL
	if pfsURL == "" {
		pfsURL = a.cfg.PFS.URL
	}
	if pfsURL != "" {
		pfs, err := client.NewHTTPPFSClient(pfsURL, resolver, token)
		if err != nil {
			return executor.Deps{}, err
		}
		deps.PFS = pfs
	}
	return deps, nil
}

func (a *Agent) saveHistory(rep *report.Report) error {
	store, err := history.Open(a.cfg.Paths.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(context.Background(), rep)
}

func statusOutcome(status scheduler.Status) report.Outcome {
	switch status {
	case scheduler.StatusSucceeded:
		return report.OutcomeSucceeded
	case scheduler.StatusCancelled:
		return report.OutcomeCancelled
	default:
		return report.OutcomeFailed
	}
}

// serveDebug exposes the metrics endpoint while the run is active.
func serveDebug(ctx context.Context, addr string, m *metrics.Metrics) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn(ctx, "debug listener stopped", "err", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// renderTree formats the task tree for dry runs.
func renderTree(scn *scenario.Scenario) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scenario %q (%d nodes, %d tasks)\n", scn.Name, scn.Nodes.Count, scn.Root.Size())
	writeTree(&b, scn.Root, 0)
	return b.String()
}

func writeTree(b *strings.Builder, task *scenario.Task, depth int) {
	indent := strings.Repeat("  ", depth)
	if task.IsGroup() {
		fmt.Fprintf(b, "%s- [%s] %s\n", indent, task.Kind, task.Name)
		for _, child := range task.Children {
			writeTree(b, child, depth+1)
		}
		return
	}
	fmt.Fprintf(b, "%s- %s\n", indent, task.String())
}
