package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/rules"
	"github.com/ludo-technologies/rux/internal/testutil"
)

func TestSpecLoader_Parsed(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"btn.rux": `module Btn { type: "presentation" location: "src/Btn.tsx" constraints { deny io.console.* } }`,
	})

	compiled := NewSpecLoader(nil).Load(context.Background(), SpecFile{Path: filepath.Join(root, "btn.rux"), Rel: "btn.rux"})

	if compiled.Source != domain.RuleSourceParsed {
		t.Errorf("expected parsed source, got %s", compiled.Source)
	}
	if len(compiled.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %+v", compiled.Diagnostics)
	}
	if _, ok := compiled.Outcome.(*rules.Parsed); !ok {
		t.Errorf("expected *rules.Parsed, got %T", compiled.Outcome)
	}
	if rs := compiled.RuleSet(); rs.ModuleName != "Btn" || rs.Location != "src/Btn.tsx" {
		t.Errorf("unexpected rule set %+v", rs)
	}
}

func TestSpecLoader_Diagnosed(t *testing.T) {
	src := "module Btn {\n  type: component\n  location: \"src/Btn.tsx\"\n}\n"

	compiled := NewSpecLoader(nil).Compile(SpecFile{Rel: "specs/btn.rux"}, src)

	if compiled.Source == domain.RuleSourceParsed {
		t.Fatal("a malformed spec must not report a parsed source")
	}
	if len(compiled.Diagnostics) == 0 {
		t.Fatal("expected diagnostics")
	}
	d := compiled.Diagnostics[0]
	if !strings.Contains(d.Message, "must be quoted") || d.Line != 2 {
		t.Errorf("unexpected first diagnostic %+v", d)
	}
	for _, d := range compiled.Diagnostics {
		if d.File != "specs/btn.rux" {
			t.Errorf("diagnostic should carry the spec path, got %q", d.File)
		}
	}
	if compiled.RuleSet().ModuleName != "Btn" {
		t.Errorf("expected a partial rule set, got %+v", compiled.RuleSet())
	}
}

func TestSpecLoader_Unreadable(t *testing.T) {
	compiled := NewSpecLoader(nil).Load(context.Background(), SpecFile{Path: filepath.Join(t.TempDir(), "gone.rux"), Rel: "gone.rux"})

	if len(compiled.Diagnostics) != 1 || compiled.Diagnostics[0].Category != CategoryIO {
		t.Fatalf("expected one io diagnostic, got %+v", compiled.Diagnostics)
	}
	if compiled.RuleSet() == nil || compiled.RuleSet().RuleCount() != 0 {
		t.Error("an unreadable spec yields an empty rule set")
	}
}
