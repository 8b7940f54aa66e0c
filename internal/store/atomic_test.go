package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSONAtomic_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")

	if err := WriteJSONAtomic(path, map[string]any{"a": 1}); err != nil {
		t.Fatalf("WriteJSONAtomic: %v", err)
	}
	if err := WriteJSONAtomic(path, map[string]any{"a": 2}); err != nil {
		t.Fatalf("WriteJSONAtomic overwrite: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v["a"] != float64(2) {
		t.Fatalf("unexpected value: %#v", v["a"])
	}
}

func TestWriteFileAtomic_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.txt")

	if err := WriteFileAtomic(path, []byte("a")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("b")); err != nil {
		t.Fatalf("WriteFileAtomic overwrite: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(raw) != "b" {
		t.Fatalf("unexpected content: %q", string(raw))
	}
}

func TestWriteJSONAtomic_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scope", "TEST-SCOPE-001.json")

	if err := WriteJSONAtomic(path, map[string]any{"testId": "TEST-SCOPE-001"}); err != nil {
		t.Fatalf("WriteJSONAtomic: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected nested file to exist: %v", err)
	}
}

func TestWriteJSONAtomic_LeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	if err := WriteJSONAtomic(path, map[string]any{"id": "run-2026-07-30-001"}); err != nil {
		t.Fatalf("WriteJSONAtomic: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "run.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}
