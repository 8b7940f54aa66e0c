package schema

import "time"

// Status closes the outcome enum a TestResult can carry.
type Status string

const (
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusTimeout   Status = "timeout"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Check is one deterministic validation outcome with a human-readable
// reasoning string describing what was examined.
type Check struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Expected  string `json:"expected,omitempty"`
	Actual    string `json:"actual,omitempty"`
	Reasoning string `json:"reasoning"`
}

// CheckpointResult is the per-checkpoint verdict inside a SemanticResult.
type CheckpointResult struct {
	Checkpoint string `json:"checkpoint"`
	Satisfied  bool   `json:"satisfied"`
	Reasoning  string `json:"reasoning,omitempty"`
}

// SemanticResult is the Semantic Judge Driver's verdict for one spec.
type SemanticResult struct {
	Passed      bool               `json:"passed"`
	Confidence  int                `json:"confidence"`
	Reasoning   string             `json:"reasoning"`
	Checkpoints []CheckpointResult `json:"checkpoints,omitempty"`
}

// Actual holds everything the runner observed for one spec execution.
type Actual struct {
	Pipeline      string            `json:"pipeline,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Frontmatter   map[string]string `json:"frontmatter,omitempty"`
	VaultPath     string            `json:"vaultPath,omitempty"`
	Content       string            `json:"content,omitempty"`
	Notification  Notification      `json:"-"`
	ArchivePath   string            `json:"archivePath,omitempty"`
	ArchiveExists bool              `json:"archiveExists,omitempty"`
	Verbose       string            `json:"verbose,omitempty"`
}

// TestResult is the per-spec-per-run outcome.
type TestResult struct {
	TestID string `json:"testId"`
	// ExecutionID is a unique token minted per spec execution so a result
	// can be correlated across run JSON, verbose logs, and backend traffic
	// even when the same test runs many times a day.
	ExecutionID      string          `json:"executionId,omitempty"`
	Status           Status          `json:"status"`
	Reason           string          `json:"reason,omitempty"`
	StartedAt        time.Time       `json:"startedAt"`
	Duration         time.Duration   `json:"duration"`
	Actual           Actual          `json:"actual"`
	Checks           []Check         `json:"checks"`
	SemanticRequired bool            `json:"semanticRequired"`
	Semantic         *SemanticResult `json:"semantic,omitempty"`
}

// Passed reports whether every emitted check passed.
func (r TestResult) Passed() bool {
	if r.Status != StatusPassed {
		return false
	}
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}
