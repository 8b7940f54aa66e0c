// Package fixture implements the Fixture Store: a filesystem of per-test
// JSON documents grouped by category.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ingestlab/ingest-harness/internal/redact"
	"github.com/ingestlab/ingest-harness/internal/schema"
	"github.com/ingestlab/ingest-harness/internal/store"
)

// ErrorCode closes the fixture-store error kinds.
type ErrorCode string

const (
	FixtureInvalid  ErrorCode = "FixtureInvalid"
	FixtureNotFound ErrorCode = "FixtureNotFound"
)

type Error struct {
	Code    ErrorCode
	TestID  string
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s: %s", e.Code, e.TestID, e.Message) }

func IsCode(err error, code ErrorCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

// Store is the Fixture Store rooted at a fixture root directory.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

// Find searches every category sub-root for <testId>.json.
func (s *Store) Find(testID string) (schema.Fixture, bool, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return schema.Fixture{}, false, nil
		}
		return schema.Fixture{}, false, err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(s.root, e.Name(), testID+".json")
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return schema.Fixture{}, false, err
		}
		var f schema.Fixture
		if err := json.Unmarshal(raw, &f); err != nil {
			return schema.Fixture{}, false, &Error{Code: FixtureInvalid, TestID: testID, Message: err.Error()}
		}
		rehydrate(&f)
		return f, true, nil
	}
	return schema.Fixture{}, false, nil
}

// Write persists a fixture under <root>/<category>/<testId>.json atomically.
// Captured text and captions pass through redaction first: fixtures are
// committed to version control, and an upstream message can carry anything
// the operator pasted into a chat.
func (s *Store) Write(testID, category string, f schema.Fixture) error {
	f.Message.Text, _ = redact.Text(f.Message.Text)
	f.Meta.Description, _ = redact.Text(f.Meta.Description)
	if media := f.Message.Media(); media != nil {
		// Clone before redacting: Media() aliases the caller's payload.
		clean := *media
		clean.Caption, _ = redact.Text(clean.Caption)
		f.Message.SetMedia(&clean)
	}
	path := filepath.Join(s.root, category, testID+".json")
	return store.WriteJSONAtomic(path, f)
}

// rehydrate replaces the committed placeholder chat id with a synthetic
// sentinel so downstream consumers never see an unresolved token.
func rehydrate(f *schema.Fixture) {
	if f.Message.ChatID == schema.PlaceholderChatID {
		f.Message.ChatID = "synthetic-test-chat"
	}
}

// CategoryForTestID derives the fixture-store category sub-root from a
// TEST-<CATEGORY>-<NNN> identifier. Unrecognized or ambiguous segments
// (voice/audio specs, which typically live under regression or acceptance)
// fall back to regression.
func CategoryForTestID(testID string) string {
	parts := strings.Split(testID, "-")
	if len(parts) < 3 {
		return "regression"
	}
	switch strings.ToLower(parts[1]) {
	case "scope":
		return "scope"
	case "date":
		return "date"
	case "arc", "archive":
		return "archive"
	case "reg", "regression":
		return "regression"
	case "cli":
		return "cli"
	case "acc", "acceptance":
		return "acceptance"
	case "int", "integration":
		return "integration"
	default:
		return "regression"
	}
}

// IsValid implements the Fixture Store validity rule: a numeric backend
// message identifier, no redacted/placeholder media handle, and either a
// trusted (populator) capture or one less than seven days old.
func IsValid(f schema.Fixture) bool {
	if f.Message.MessageID <= 0 {
		return false
	}
	if media := f.Message.Media(); media != nil {
		if strings.Contains(media.FileID, "REDACTED") || strings.Contains(media.FileID, "__PLACEHOLDER__") {
			return false
		}
	}
	if f.Meta.CapturedBy == "populator" {
		return true
	}
	return time.Since(f.Meta.CapturedAt) < 7*24*time.Hour
}
