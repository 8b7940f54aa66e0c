// Package vault reads production-pipeline output: a Markdown file with an
// optional YAML frontmatter block, plus a read-only archive existence
// probe. The runner is read-only against both.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is one parsed vault artifact.
type File struct {
	Frontmatter map[string]string
	Tags        []string
	Content     string
}

const delimiter = "---"

// Read loads <root>/<relPath>, splitting the leading "---\n...\n---\n"
// frontmatter block (if present) from the remaining Markdown body.
func Read(root, relPath string) (File, error) {
	full := filepath.Join(root, relPath)
	raw, err := os.ReadFile(full)
	if err != nil {
		return File{}, fmt.Errorf("vault: read %s: %w", full, err)
	}
	return Parse(string(raw)), nil
}

// Parse splits raw Markdown into frontmatter and body without touching the
// filesystem, used directly by tests.
func Parse(raw string) File {
	text := raw
	fm := map[string]string{}
	var tags []string

	if strings.HasPrefix(text, delimiter) {
		rest := text[len(delimiter):]
		if end := strings.Index(rest, "\n"+delimiter); end != -1 {
			block := strings.TrimPrefix(rest[:end], "\n")
			body := rest[end+len(delimiter)+1:]
			body = strings.TrimPrefix(body, "\n")

			var raw map[string]any
			if err := yaml.Unmarshal([]byte(block), &raw); err == nil {
				for k, v := range raw {
					switch val := v.(type) {
					case []any:
						if strings.EqualFold(k, "tags") {
							for _, item := range val {
								tags = append(tags, fmt.Sprint(item))
							}
						}
						fm[k] = joinAny(val)
					default:
						fm[k] = fmt.Sprint(val)
					}
				}
			}
			text = body
		}
	}

	return File{Frontmatter: fm, Tags: tags, Content: text}
}

func joinAny(items []any) string {
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

// FullPath resolves a vault-relative path against the vault root.
func FullPath(root, relPath string) string {
	return filepath.Join(root, relPath)
}

// ArchiveExists probes whether an archive-relative path exists under root.
func ArchiveExists(root, relPath string) bool {
	if relPath == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(root, relPath))
	return err == nil
}
