// Package gc prunes sealed run documents under the runs root. History
// retention is the tracker's job; this keeps the flat run-*.json index from
// growing without bound on long-lived installations. The aggregate
// test-history.json and the Markdown report are never touched.
package gc

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ingestlab/ingest-harness/internal/ids"
)

// RunInfo describes one sealed run file considered for pruning.
type RunInfo struct {
	RunID string `json:"runId"`
	Path  string `json:"path"`
	Date  string `json:"date"`
	Bytes int64  `json:"bytes"`
}

// Result summarizes one prune pass.
type Result struct {
	RunsRoot    string    `json:"runsRoot"`
	DryRun      bool      `json:"dryRun"`
	Deleted     []RunInfo `json:"deleted,omitempty"`
	Kept        []RunInfo `json:"kept,omitempty"`
	TotalBefore int64     `json:"totalBeforeBytes"`
	TotalAfter  int64     `json:"totalAfterBytes"`
}

// Opts configures a prune pass. Zero values disable the corresponding rule.
type Opts struct {
	RunsRoot string
	Now      time.Time
	// MaxAgeDays deletes runs whose embedded date is older than the cutoff.
	MaxAgeDays int
	// MaxRuns keeps at most this many newest runs.
	MaxRuns int
	// DryRun reports what would be deleted without deleting anything.
	DryRun bool
}

// Run scans <runsRoot>/run-*.json oldest-first and applies the age and
// count rules. The run id embeds its date, so no file contents are read.
func Run(opts Opts) (Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	entries, err := os.ReadDir(opts.RunsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{RunsRoot: opts.RunsRoot, DryRun: opts.DryRun}, nil
		}
		return Result{}, err
	}

	var runs []RunInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		runID := strings.TrimSuffix(name, ".json")
		if !ids.IsValidRunID(runID) {
			continue
		}
		info, err := e.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}
		runs = append(runs, RunInfo{
			RunID: runID,
			Path:  filepath.Join(opts.RunsRoot, name),
			Date:  strings.TrimPrefix(runID, "run-")[:10],
			Bytes: size,
		})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].RunID < runs[j].RunID })

	res := Result{RunsRoot: opts.RunsRoot, DryRun: opts.DryRun}
	for _, r := range runs {
		res.TotalBefore += r.Bytes
	}
	res.TotalAfter = res.TotalBefore

	shouldDelete := map[string]bool{}
	if opts.MaxAgeDays > 0 {
		cutoff := now.UTC().AddDate(0, 0, -opts.MaxAgeDays).Format("2006-01-02")
		for _, r := range runs {
			if r.Date < cutoff {
				shouldDelete[r.RunID] = true
			}
		}
	}
	if opts.MaxRuns > 0 {
		keep := 0
		for i := len(runs) - 1; i >= 0; i-- {
			if shouldDelete[runs[i].RunID] {
				continue
			}
			keep++
			if keep > opts.MaxRuns {
				shouldDelete[runs[i].RunID] = true
			}
		}
	}

	for _, r := range runs {
		if shouldDelete[r.RunID] {
			res.Deleted = append(res.Deleted, r)
			res.TotalAfter -= r.Bytes
			if !opts.DryRun {
				_ = os.Remove(r.Path)
			}
		} else {
			res.Kept = append(res.Kept, r)
		}
	}
	return res, nil
}
