// Package history implements the Run Tracker: it creates runs, records
// per-test outcomes, computes summaries, and persists both the sealed
// per-run JSON document and the cross-run history aggregate with trend
// labels.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ingestlab/ingest-harness/internal/catalog"
	"github.com/ingestlab/ingest-harness/internal/ids"
	"github.com/ingestlab/ingest-harness/internal/schema"
	"github.com/ingestlab/ingest-harness/internal/store"
)

const historyFileName = "test-history.json"

// Tracker owns the only write path to a run's in-progress state and to the
// history aggregate, a single serialising actor realized as a mutex
// rather than a goroutine actor, since the runner already serialises
// through this one struct.
type Tracker struct {
	runsRoot string
	now      func() time.Time

	mu      sync.Mutex
	current *schema.Run
}

// New constructs a Tracker rooted at runsRoot (<runsRoot>/run-*.json,
// <runsRoot>/test-history.json).
func New(runsRoot string) *Tracker {
	return &Tracker{runsRoot: runsRoot, now: time.Now}
}

// CreateRun allocates a fresh run-YYYY-MM-DD-NNN id (seq is the next unused
// sequence number for today) and seeds Order from specs in catalog order.
func (t *Tracker) CreateRun(specs []catalog.TestSpec, selection schema.Selection) (*schema.Run, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().UTC()
	date := now.Format("2006-01-02")
	seq, err := t.nextSeq(date)
	if err != nil {
		return nil, err
	}

	order := make([]string, len(specs))
	for i, s := range specs {
		order[i] = s.ID
	}

	run := &schema.Run{
		ID:        ids.NewRunID(date, seq),
		StartedAt: now,
		Selection: selection,
		Order:     order,
		Results:   map[string]schema.TestResult{},
	}
	t.current = run
	return run, nil
}

func (t *Tracker) nextSeq(date string) (int, error) {
	entries, err := os.ReadDir(t.runsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, err
	}
	prefix := "run-" + date + "-"
	max := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		var seq int
		if _, err := fmt.Sscanf(strings.TrimSuffix(name, ".json"), "run-"+date+"-%03d", &seq); err == nil && seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

// RecordResult appends/replaces a result on the in-progress run; a run is
// mutated only by appending results until it is sealed.
func (t *Tracker) RecordResult(testID string, result schema.TestResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return fmt.Errorf("history: no run in progress")
	}
	t.current.RecordResult(testID, result)
	return nil
}

// RecordSemanticResult attaches a semantic judgement to an already-recorded
// result.
func (t *Tracker) RecordSemanticResult(testID string, sem schema.SemanticResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return fmt.Errorf("history: no run in progress")
	}
	res, ok := t.current.Results[testID]
	if !ok {
		return fmt.Errorf("history: no result recorded yet for %s", testID)
	}
	res.Semantic = &sem
	t.current.RecordResult(testID, res)
	return nil
}

// CompleteRun seals the in-progress run: stamps CompletedAt, writes
// <runsRoot>/<runID>.json atomically, and folds each touched test's outcome into the history
// aggregate, recomputing passRate/avgDuration/trend.
func (t *Tracker) CompleteRun() (*schema.Run, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil, fmt.Errorf("history: no run in progress")
	}
	run := t.current
	run.CompletedAt = t.now().UTC()

	if err := os.MkdirAll(t.runsRoot, 0o755); err != nil {
		return nil, err
	}
	// The dir lock serialises sealing across processes: two harness
	// invocations on the same runs root must not interleave history
	// updates or land on the same run id.
	err := store.WithDirLock(filepath.Join(t.runsRoot, ".lock"), 10*time.Second, func() error {
		for {
			if _, err := os.Stat(t.runPath(run.ID)); os.IsNotExist(err) {
				break
			}
			date := run.StartedAt.Format("2006-01-02")
			seq, err := t.nextSeq(date)
			if err != nil {
				return err
			}
			run.ID = ids.NewRunID(date, seq)
		}
		if err := store.WriteJSONAtomic(t.runPath(run.ID), run); err != nil {
			return err
		}
		return t.appendToHistory(run)
	})
	if err != nil {
		return nil, err
	}
	t.current = nil
	return run, nil
}

func (t *Tracker) runPath(runID string) string {
	return filepath.Join(t.runsRoot, runID+".json")
}

func (t *Tracker) historyPath() string {
	return filepath.Join(t.runsRoot, historyFileName)
}

// LoadRun reads a previously sealed run by id.
func (t *Tracker) LoadRun(runID string) (*schema.Run, error) {
	raw, err := os.ReadFile(t.runPath(runID))
	if err != nil {
		return nil, err
	}
	var run schema.Run
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, fmt.Errorf("history: decode %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns every sealed run id under runsRoot, newest first.
func (t *Tracker) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(t.runsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var runIDs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "run-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		runIDs = append(runIDs, strings.TrimSuffix(name, ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runIDs)))
	return runIDs, nil
}

// HistoryFor returns the rolling series for one test id.
func (t *Tracker) HistoryFor(testID string) (*schema.TestHistory, error) {
	h, err := t.LoadHistory()
	if err != nil {
		return nil, err
	}
	th, ok := h.Tests[testID]
	if !ok {
		return &schema.TestHistory{TestID: testID, Trend: schema.TrendInsufficientData}, nil
	}
	return th, nil
}

// LoadHistory reads the aggregate history document, returning an empty
// aggregate when none has been written yet.
func (t *Tracker) LoadHistory() (*schema.History, error) {
	raw, err := os.ReadFile(t.historyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return schema.NewHistory(), nil
		}
		return nil, err
	}
	h := schema.NewHistory()
	if err := json.Unmarshal(raw, h); err != nil {
		return nil, fmt.Errorf("history: decode %s: %w", t.historyPath(), err)
	}
	if h.Tests == nil {
		h.Tests = map[string]*schema.TestHistory{}
	}
	return h, nil
}

// appendToHistory appends one compact entry per result in run to the
// aggregate and recomputes each touched test's derived fields, with
// bounded retention (retentionCap).
const retentionCap = 200

func (t *Tracker) appendToHistory(run *schema.Run) error {
	h, err := t.LoadHistory()
	if err != nil {
		return err
	}

	for _, testID := range run.Order {
		res, ok := run.Results[testID]
		if !ok {
			continue
		}
		th, ok := h.Tests[testID]
		if !ok {
			th = &schema.TestHistory{TestID: testID}
			h.Tests[testID] = th
		}
		th.Entries = append(th.Entries, schema.HistoryEntry{
			RunID:     run.ID,
			Timestamp: run.CompletedAt,
			Status:    res.Status,
			Duration:  res.Duration,
		})
		if len(th.Entries) > retentionCap {
			th.Entries = th.Entries[len(th.Entries)-retentionCap:]
		}
		recompute(th)
	}

	return store.WriteJSONAtomic(t.historyPath(), h)
}

func recompute(th *schema.TestHistory) {
	var passed int
	var totalDuration time.Duration
	for _, e := range th.Entries {
		if e.Status == schema.StatusPassed {
			passed++
		}
		totalDuration += e.Duration
	}
	if n := len(th.Entries); n > 0 {
		th.PassRate = float64(passed) / float64(n)
		th.AvgDuration = totalDuration / time.Duration(n)
	}
	th.Trend = classifyTrend(th.Entries)
}
