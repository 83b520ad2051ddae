package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	succeededText = color.New(color.FgGreen).SprintFunc()
	failedText    = color.New(color.FgRed).SprintFunc()
	cancelledText = color.New(color.FgYellow).SprintFunc()
)

func colorize(o Outcome) string {
	switch o {
	case OutcomeSucceeded:
		return succeededText(string(o))
	case OutcomeFailed:
		return failedText(string(o))
	case OutcomeCancelled, OutcomeSkipped:
		return cancelledText(string(o))
	default:
		return string(o)
	}
}

// Render formats the finalized report as a human-readable summary with
// a per-task table.
func Render(r *Report) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "\nScenario %q (%s): %s in %s\n\n",
		r.Scenario(), r.RunID(), colorize(r.Outcome()),
		r.FinishedAt().Sub(r.StartedAt()).Round(time.Millisecond))

	tw := table.NewWriter()
	tw.SetOutputMirror(&buf)
	tw.AppendHeader(table.Row{"#", "Task", "Kind", "Outcome", "Duration", "Diagnostic"})
	for _, res := range r.Results() {
		tw.AppendRow(table.Row{
			res.Seq,
			res.Name,
			res.Kind,
			colorize(res.Outcome),
			res.Duration().Round(time.Millisecond),
			truncate(res.Diagnostic, maxDiagnosticLen),
		})
	}
	tw.Render()
	return buf.String()
}

const maxDiagnosticLen = 120

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
