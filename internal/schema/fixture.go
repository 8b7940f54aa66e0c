package schema

import "time"

// FixtureMeta carries provenance for a captured upstream message.
type FixtureMeta struct {
	TestID      string    `json:"testId"`
	CapturedAt  time.Time `json:"capturedAt"`
	CapturedBy  string    `json:"capturedBy"`
	Description string    `json:"description,omitempty"`
	Synthetic   bool      `json:"synthetic,omitempty"`
}

// Fixture is the on-disk document under <fixtureRoot>/<category>/<testId>.json.
type Fixture struct {
	Meta    FixtureMeta `json:"meta"`
	Message Message     `json:"message"`
}
