package service

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/config"
	"github.com/ludo-technologies/rux/internal/testutil"
)

func discoveryRequest(root string) domain.ValidateRequest {
	req := NewConfigurationLoader().ToRequest(config.DefaultConfig(), root)
	return req
}

func rels(specs []SpecFile) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Rel)
	}
	return out
}

func TestSpecDiscovery_SplitsGlobals(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"Global.RUX":                  "",
		"specs/base.rux":              "",
		"specs/button.rux":            "",
		"specs/forms/input.rux":       "",
		"specs/readme.md":             "",
		"node_modules/pkg/global.rux": "",
		"dist/out.rux":                "",
		"specs/generated/skip.rux":    "",
		".gitignore":                  "specs/generated/\n",
		".git/hooks/pre-commit.rux":   "",
	})

	found, err := NewSpecDiscovery(nil).Discover(discoveryRequest(root))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if want := []string{"Global.RUX", "specs/base.rux"}; !testutil.EqualStrings(rels(found.Globals), want) {
		t.Errorf("globals = %v, want %v", rels(found.Globals), want)
	}
	if want := []string{"specs/button.rux", "specs/forms/input.rux"}; !testutil.EqualStrings(rels(found.Components), want) {
		t.Errorf("components = %v, want %v", rels(found.Components), want)
	}
	for _, g := range found.Globals {
		if !g.Global {
			t.Errorf("%s should be marked global", g.Rel)
		}
	}
	if found.Len() != 4 {
		t.Errorf("expected 4 specs, got %d", found.Len())
	}
}

func TestSpecDiscovery_GitignoreOptional(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"a.rux":      "",
		"gen/b.rux":  "",
		".gitignore": "gen/\n",
	})

	req := discoveryRequest(root)
	req.RespectGitignore = false

	found, err := NewSpecDiscovery(nil).Discover(req)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if want := []string{"a.rux", "gen/b.rux"}; !testutil.EqualStrings(rels(found.Components), want) {
		t.Errorf("components = %v, want %v", rels(found.Components), want)
	}
}

func TestSpecDiscovery_IncludePatterns(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"src/ui/button.rux": "",
		"docs/example.rux":  "",
	})

	req := discoveryRequest(root)
	req.IncludePatterns = []string{"src/**/*.rux"}

	found, err := NewSpecDiscovery(nil).Discover(req)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if want := []string{"src/ui/button.rux"}; !testutil.EqualStrings(rels(found.Components), want) {
		t.Errorf("components = %v, want %v", rels(found.Components), want)
	}
}

func TestSpecDiscovery_ExtensionCase(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"src/ui/Card.Rux":   "",
		"src/ui/button.rux": "",
		"src/ui/notes.txt":  "",
	})

	req := discoveryRequest(root)
	req.IncludePatterns = []string{"src/**/*.rux"}

	found, err := NewSpecDiscovery(nil).Discover(req)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if want := []string{"src/ui/Card.Rux", "src/ui/button.rux"}; !testutil.EqualStrings(rels(found.Components), want) {
		t.Errorf("components = %v, want %v", rels(found.Components), want)
	}
}

func TestSpecDiscovery_SingleFile(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"button.rux": "", "notes.txt": ""})

	found, err := NewSpecDiscovery(nil).Discover(discoveryRequest(filepath.Join(root, "button.rux")))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if want := []string{"button.rux"}; !testutil.EqualStrings(rels(found.Components), want) {
		t.Errorf("components = %v, want %v", rels(found.Components), want)
	}

	_, err = NewSpecDiscovery(nil).Discover(discoveryRequest(filepath.Join(root, "notes.txt")))
	var discErr *domain.DiscoveryError
	if !errors.As(err, &discErr) {
		t.Errorf("expected DiscoveryError for a non-spec file, got %v", err)
	}
}

func TestSpecDiscovery_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")

	_, err := NewSpecDiscovery(nil).Discover(discoveryRequest(root))

	var discErr *domain.DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("expected DiscoveryError, got %v", err)
	}
	if discErr.Root != root || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("unexpected error %v", err)
	}
}
