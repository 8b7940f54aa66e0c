package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ingestlab/ingest-harness/internal/catalog"
	"github.com/ingestlab/ingest-harness/internal/schema"
)

func specs(ids ...string) []catalog.TestSpec {
	out := make([]catalog.TestSpec, len(ids))
	for i, id := range ids {
		out[i] = catalog.TestSpec{ID: id, Category: catalog.CategoryScope, FixtureRef: "scope/" + id + ".json"}
	}
	return out
}

func TestTracker_CreateRecordCompleteRoundTrip(t *testing.T) {
	root := t.TempDir()
	tr := New(root)
	tr.now = func() time.Time { return time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC) }

	run, err := tr.CreateRun(specs("TEST-SCOPE-002", "TEST-SCOPE-001"), schema.Selection{Suite: "scope"})
	require.NoError(t, err)
	require.Equal(t, "run-2026-07-29-001", run.ID)
	require.Equal(t, []string{"TEST-SCOPE-002", "TEST-SCOPE-001"}, run.Order)

	// Completion arrives out of catalog order; Order must still reflect
	// catalog order regardless of completion order.
	require.NoError(t, tr.RecordResult("TEST-SCOPE-001", schema.TestResult{TestID: "TEST-SCOPE-001", Status: schema.StatusPassed}))
	require.NoError(t, tr.RecordResult("TEST-SCOPE-002", schema.TestResult{TestID: "TEST-SCOPE-002", Status: schema.StatusFailed}))

	sealed, err := tr.CompleteRun()
	require.NoError(t, err)
	require.Equal(t, []string{"TEST-SCOPE-002", "TEST-SCOPE-001"}, sealed.Order)
	require.Equal(t, 2, sealed.Summary.Total)
	require.Equal(t, 1, sealed.Summary.Passed)
	require.Equal(t, 1, sealed.Summary.Failed)

	loaded, err := tr.LoadRun(sealed.ID)
	require.NoError(t, err)
	require.Equal(t, sealed.ID, loaded.ID)

	runs, err := tr.ListRuns()
	require.NoError(t, err)
	require.Contains(t, runs, sealed.ID)
}

func TestTracker_SecondRunSameDayIncrementsSeq(t *testing.T) {
	root := t.TempDir()
	tr := New(root)
	tr.now = func() time.Time { return time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC) }

	_, err := tr.CreateRun(specs("TEST-SCOPE-001"), schema.Selection{})
	require.NoError(t, err)
	require.NoError(t, tr.RecordResult("TEST-SCOPE-001", schema.TestResult{TestID: "TEST-SCOPE-001", Status: schema.StatusPassed}))
	first, err := tr.CompleteRun()
	require.NoError(t, err)
	require.Equal(t, "run-2026-07-29-001", first.ID)

	_, err = tr.CreateRun(specs("TEST-SCOPE-001"), schema.Selection{})
	require.NoError(t, err)
	require.NoError(t, tr.RecordResult("TEST-SCOPE-001", schema.TestResult{TestID: "TEST-SCOPE-001", Status: schema.StatusPassed}))
	second, err := tr.CompleteRun()
	require.NoError(t, err)
	require.Equal(t, "run-2026-07-29-002", second.ID)
}

func TestTracker_HistoryForUnknownTestIsInsufficientData(t *testing.T) {
	tr := New(t.TempDir())
	th, err := tr.HistoryFor("TEST-NOPE-001")
	require.NoError(t, err)
	require.Equal(t, schema.TrendInsufficientData, th.Trend)
}

func TestClassifyTrend_StableOnTenUniformResults(t *testing.T) {
	var entries []schema.HistoryEntry
	for i := 0; i < 10; i++ {
		entries = append(entries, schema.HistoryEntry{Status: schema.StatusPassed})
	}
	require.Equal(t, schema.TrendStable, classifyTrend(entries))
}

func TestClassifyTrend_ImprovingOnFiveFailThenFivePass(t *testing.T) {
	var entries []schema.HistoryEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, schema.HistoryEntry{Status: schema.StatusFailed})
	}
	for i := 0; i < 5; i++ {
		entries = append(entries, schema.HistoryEntry{Status: schema.StatusPassed})
	}
	require.Equal(t, schema.TrendImproving, classifyTrend(entries))
}

func TestClassifyTrend_DegradingOnFivePassThenFiveFail(t *testing.T) {
	var entries []schema.HistoryEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, schema.HistoryEntry{Status: schema.StatusPassed})
	}
	for i := 0; i < 5; i++ {
		entries = append(entries, schema.HistoryEntry{Status: schema.StatusFailed})
	}
	require.Equal(t, schema.TrendDegrading, classifyTrend(entries))
}

func TestClassifyTrend_FlakyOnAlternatingResults(t *testing.T) {
	var entries []schema.HistoryEntry
	for i := 0; i < 10; i++ {
		status := schema.StatusPassed
		if i%2 == 0 {
			status = schema.StatusFailed
		}
		entries = append(entries, schema.HistoryEntry{Status: status})
	}
	require.Equal(t, schema.TrendFlaky, classifyTrend(entries))
}

func TestClassifyTrend_InsufficientDataBelowMinWindow(t *testing.T) {
	entries := []schema.HistoryEntry{{Status: schema.StatusPassed}, {Status: schema.StatusPassed}}
	require.Equal(t, schema.TrendInsufficientData, classifyTrend(entries))
}
