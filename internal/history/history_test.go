package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scenrun/scenrun/internal/report"
)

func finalizedReport(t *testing.T, runID string, startedAt time.Time, outcome report.Outcome) *report.Report {
	t.Helper()
	rep := report.New(runID, "bootstrap", startedAt)
	rep.Append(report.TaskResult{
		Name:       "open-channel",
		Kind:       "open_channel",
		Outcome:    report.OutcomeSucceeded,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(time.Second),
	})
	rep.Finalize(outcome, startedAt.Add(2*time.Second))
	return rep
}

func TestSaveAndGet(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, finalizedReport(t, "run-1", started, report.OutcomeSucceeded)))

	entry, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, "bootstrap", entry.Scenario)
	require.Equal(t, report.OutcomeSucceeded, entry.Outcome)
	require.Len(t, entry.Tasks, 1)
	require.Equal(t, "open-channel", entry.Tasks[0].Name)
	require.True(t, entry.StartedAt.Equal(started))
}

func TestGetMissingRun(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(context.Background(), "no-such-run")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		rep := finalizedReport(t, id, base.Add(time.Duration(i)*time.Hour), report.OutcomeFailed)
		require.NoError(t, store.Save(ctx, rep))
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "run-c", entries[0].RunID)
	require.Equal(t, "run-b", entries[1].RunID)
}

func TestDuplicateRunIDRejected(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	started := time.Now()
	require.NoError(t, store.Save(ctx, finalizedReport(t, "run-1", started, report.OutcomeSucceeded)))
	require.Error(t, store.Save(ctx, finalizedReport(t, "run-1", started, report.OutcomeSucceeded)))
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, finalizedReport(t, "run-1", time.Now(), report.OutcomeSucceeded)))
	require.NoError(t, store.Close())

	store, err = Open(dir)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
