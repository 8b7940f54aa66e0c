package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ingestlab/ingest-harness/internal/catalog"
	"github.com/ingestlab/ingest-harness/internal/schema"
)

func TestEvaluate_ScenarioOneTextExplicitScopeSigil(t *testing.T) {
	expected := catalog.Expectations{
		RequiredTags:  []string{"scope/private"},
		ForbiddenTags: []string{"scope/work"},
	}
	actual := schema.Actual{
		VaultPath: "20260101-health-note.md",
		Tags:      []string{"scope/private", "incoming", "source/telegram"},
	}

	checks := Evaluate(expected, actual)
	require.True(t, Passed(checks))

	var tagCheck schema.Check
	for _, c := range checks {
		if c.Name == "tag_present:scope/private" {
			tagCheck = c
		}
	}
	require.True(t, tagCheck.Passed)
	require.Contains(t, tagCheck.Reasoning, "scope/private")
}

func TestEvaluate_Totality_EmitsOneCheckPerFacet(t *testing.T) {
	expected := catalog.Expectations{
		Pipeline:      "archive",
		RequiredTags:  []string{"a", "b"},
		ForbiddenTags: []string{"c"},
		Frontmatter:   map[string]string{"k1": "v1"},
		FilenamePattern: "^RECEIPT",
		ContentContains: []string{"x", "y"},
	}
	actual := schema.Actual{VaultPath: "RECEIPT-20260101.md", Frontmatter: map[string]string{"k1": "v1"}, Content: "x y"}

	checks := Evaluate(expected, actual)
	// vault_file_created + pipeline + 2 required tags + 1 forbidden tag +
	// 1 frontmatter + 1 filename pattern + 2 content_contains == 9
	require.Len(t, checks, 9)
}

func TestEvaluate_FrontmatterMatchTrimsWhitespace(t *testing.T) {
	expected := catalog.Expectations{Frontmatter: map[string]string{"source_shortcut": "voice-memo"}}
	actual := schema.Actual{VaultPath: "x.md", Frontmatter: map[string]string{"source_shortcut": "  voice-memo  "}}
	checks := Evaluate(expected, actual)
	require.True(t, Passed(checks))
}

func TestEvaluate_TagMatchingIsCaseInsensitive(t *testing.T) {
	expected := catalog.Expectations{RequiredTags: []string{"Project/PAI"}}
	actual := schema.Actual{VaultPath: "x.md", Tags: []string{"project/pai"}}
	require.True(t, Passed(Evaluate(expected, actual)))
}

func TestEvaluate_ArchiveFilenamePatternAnchored(t *testing.T) {
	expected := catalog.Expectations{ArchiveFilenamePattern: `^RECEIPT\s*-\s*\d{8}\s*-.*HOME$`}
	ok := schema.Actual{VaultPath: "x.md", ArchivePath: "RECEIPT - 20260101 - HOME"}
	bad := schema.Actual{VaultPath: "x.md", ArchivePath: "not a receipt"}

	require.True(t, Passed(Evaluate(expected, ok)))
	require.False(t, Passed(Evaluate(expected, bad)))
}

func TestEvaluate_ArchiveFilenamePatternSubstringWhenUnanchored(t *testing.T) {
	expected := catalog.Expectations{ArchiveFilenamePattern: `receipt`}
	actual := schema.Actual{VaultPath: "x.md", ArchivePath: "2026-01-01-receipt-home.pdf"}
	require.True(t, Passed(Evaluate(expected, actual)))
}

func TestEvaluate_EventsSeverityAndHasField(t *testing.T) {
	expected := catalog.Expectations{NotificationSeverity: "info", NotificationFields: []string{"dropbox_path"}}
	actual := schema.Actual{
		VaultPath:    "x.md",
		Notification: schema.Notification{Severity: "info", DropboxPath: "/archive/x.pdf"},
	}
	require.True(t, Passed(Evaluate(expected, actual)))
}

func TestEvaluate_NeverShortCircuits(t *testing.T) {
	expected := catalog.Expectations{
		RequiredTags:  []string{"present", "missing"},
		ForbiddenTags: []string{"forbidden-but-present"},
	}
	actual := schema.Actual{VaultPath: "x.md", Tags: []string{"present", "forbidden-but-present"}}
	checks := Evaluate(expected, actual)
	require.False(t, Passed(checks))
	// Every declared facet still produced a check, not just the first failure.
	require.Len(t, checks, 4) // vault_file_created + 2 required tags + 1 forbidden tag
}
