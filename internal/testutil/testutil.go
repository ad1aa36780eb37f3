// Package testutil provides helper functions for testing rux components
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ludo-technologies/rux/internal/parser"
)

// CreateTestAST parses source with the grammar selected by filename's extension
func CreateTestAST(t *testing.T, filename, source string) *parser.Node {
	t.Helper()
	ast, err := parser.ParseForLanguage(filename, []byte(source))
	if err != nil {
		t.Fatalf("Failed to parse test code: %v", err)
	}
	return ast
}

// WriteFiles writes files (slash-separated paths relative to root) below root
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}

// WriteTree writes files into a fresh temporary directory and returns it
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, files)
	return root
}

// EqualStrings reports whether two string slices hold the same elements in order
func EqualStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
