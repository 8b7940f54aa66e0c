package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_FrontmatterTagsAndBody(t *testing.T) {
	f := Parse("---\ntags:\n  - scope/private\n  - incoming\nsource_device: mac\n---\nThis is a personal health note\n")

	require.Equal(t, []string{"scope/private", "incoming"}, f.Tags)
	require.Equal(t, "mac", f.Frontmatter["source_device"])
	require.Equal(t, "This is a personal health note\n", f.Content)
}

func TestParse_NoFrontmatter(t *testing.T) {
	f := Parse("just a body\n")
	require.Empty(t, f.Tags)
	require.Empty(t, f.Frontmatter)
	require.Equal(t, "just a body\n", f.Content)
}

func TestParse_MalformedFrontmatterFallsBackToRawBody(t *testing.T) {
	raw := "---\n[unclosed\n---\nbody\n"
	f := Parse(raw)
	require.Equal(t, "body\n", f.Content)
	require.Empty(t, f.Tags)
}

func TestRead_JoinsRootAndRelative(t *testing.T) {
	root := t.TempDir()
	rel := filepath.Join("inbox", "note.md")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inbox"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte("---\ntags:\n  - a\n---\nhi\n"), 0o644))

	f, err := Read(root, rel)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, f.Tags)

	_, err = Read(root, "missing.md")
	require.Error(t, err)
}

func TestArchiveExists(t *testing.T) {
	root := t.TempDir()
	require.False(t, ArchiveExists(root, "receipts/r.pdf"))
	require.False(t, ArchiveExists(root, ""))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "receipts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "receipts", "r.pdf"), []byte("x"), 0o644))
	require.True(t, ArchiveExists(root, "receipts/r.pdf"))
}
