package history

import "github.com/ingestlab/ingest-harness/internal/schema"

// windowSize bounds how many recent results the classifier looks at.
const windowSize = 10

// minWindow guards classification: below this many results the series is
// insufficient-data rather than a guessed stable.
const minWindow = 3

// flakyFlipThreshold marks a series flaky once status flips more than this
// many times inside the window.
const flakyFlipThreshold = 3

// classifyTrend classifies the trend over the most recent results in
// entries (already in chronological order).
func classifyTrend(entries []schema.HistoryEntry) schema.Trend {
	if len(entries) < minWindow {
		return schema.TrendInsufficientData
	}

	window := entries
	if len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}

	passes := make([]bool, len(window))
	for i, e := range window {
		passes[i] = e.Status == schema.StatusPassed
	}

	allAgree := true
	for _, p := range passes {
		if p != passes[0] {
			allAgree = false
			break
		}
	}
	if allAgree {
		return schema.TrendStable
	}

	flips := 0
	for i := 1; i < len(passes); i++ {
		if passes[i] != passes[i-1] {
			flips++
		}
	}
	if flips > flakyFlipThreshold {
		return schema.TrendFlaky
	}

	mid := len(passes) / 2
	firstRate := passRate(passes[:mid])
	secondRate := passRate(passes[mid:])
	switch {
	case secondRate > firstRate:
		return schema.TrendImproving
	case secondRate < firstRate:
		return schema.TrendDegrading
	default:
		return schema.TrendStable
	}
}

func passRate(passes []bool) float64 {
	if len(passes) == 0 {
		return 0
	}
	n := 0
	for _, p := range passes {
		if p {
			n++
		}
	}
	return float64(n) / float64(len(passes))
}
