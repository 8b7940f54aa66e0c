package fixture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ingestlab/ingest-harness/internal/schema"
)

func sample(id string) schema.Fixture {
	return schema.Fixture{
		Meta: schema.FixtureMeta{
			TestID:      id,
			CapturedAt:  time.Date(2026, 7, 28, 10, 0, 0, 0, time.UTC),
			CapturedBy:  "populator",
			Description: "a captured note",
		},
		Message: schema.Message{
			Kind:      schema.MessageText,
			Text:      "[" + id + "] hello",
			ChatID:    "123456",
			MessageID: 42,
		},
	}
}

func TestWriteFindRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	want := sample("TEST-SCOPE-001")
	require.NoError(t, s.Write("TEST-SCOPE-001", "scope", want))

	got, found, err := s.Find("TEST-SCOPE-001")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, want, got)
}

func TestFindSearchesEveryCategory(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Write("TEST-ARC-001", "archive", sample("TEST-ARC-001")))
	require.NoError(t, s.Write("TEST-SCOPE-001", "scope", sample("TEST-SCOPE-001")))

	_, found, err := s.Find("TEST-ARC-001")
	require.NoError(t, err)
	require.True(t, found)

	_, found, err = s.Find("TEST-DATE-009")
	require.NoError(t, err)
	require.False(t, found)
}

func TestFindRehydratesPlaceholderChatID(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	f := sample("TEST-REG-001")
	f.Message.ChatID = schema.PlaceholderChatID
	require.NoError(t, s.Write("TEST-REG-001", "regression", f))

	got, found, err := s.Find("TEST-REG-001")
	require.NoError(t, err)
	require.True(t, found)
	require.NotEqual(t, schema.PlaceholderChatID, got.Message.ChatID)
	require.NotEmpty(t, got.Message.ChatID)

	// The committed file keeps the placeholder.
	raw, err := os.ReadFile(filepath.Join(root, "regression", "TEST-REG-001.json"))
	require.NoError(t, err)
	require.Contains(t, string(raw), schema.PlaceholderChatID)
}

func TestWriteRedactsCapturedSecrets(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	f := sample("TEST-REG-002")
	f.Message.Text = "[TEST-REG-002] deploy with ghp_abcdefghij1234567890"
	require.NoError(t, s.Write("TEST-REG-002", "regression", f))

	raw, err := os.ReadFile(filepath.Join(root, "regression", "TEST-REG-002.json"))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "ghp_abcdefghij1234567890")
	require.Contains(t, string(raw), "[REDACTED:GITHUB_TOKEN]")
}

func TestIsValid(t *testing.T) {
	valid := sample("TEST-SCOPE-001")
	require.True(t, IsValid(valid))

	noID := valid
	noID.Message.MessageID = 0
	require.False(t, IsValid(noID))

	redacted := sample("TEST-ARC-001")
	redacted.Message.Kind = schema.MessageDocument
	redacted.Message.Document = &schema.MediaPayload{FileID: "REDACTED"}
	require.False(t, IsValid(redacted))

	// Manual captures expire after seven days; populator captures do not.
	stale := sample("TEST-SCOPE-001")
	stale.Meta.CapturedBy = "manual"
	stale.Meta.CapturedAt = time.Now().Add(-8 * 24 * time.Hour)
	require.False(t, IsValid(stale))

	fresh := stale
	fresh.Meta.CapturedAt = time.Now().Add(-time.Hour)
	require.True(t, IsValid(fresh))

	oldPopulator := sample("TEST-SCOPE-001")
	oldPopulator.Meta.CapturedAt = time.Now().Add(-30 * 24 * time.Hour)
	require.True(t, IsValid(oldPopulator))
}

func TestCategoryForTestID(t *testing.T) {
	require.Equal(t, "scope", CategoryForTestID("TEST-SCOPE-001"))
	require.Equal(t, "archive", CategoryForTestID("TEST-ARC-001"))
	require.Equal(t, "regression", CategoryForTestID("TEST-VOICE-002"))
	require.Equal(t, "acceptance", CategoryForTestID("TEST-ACC-004"))
	require.Equal(t, "regression", CategoryForTestID("bogus"))
}
