package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/rux/internal/pattern"
	"github.com/ludo-technologies/rux/internal/rux"
)

const cardSpec = `module Card {
  type: "component"
  location: "src/Card.tsx"

  interface {
    function render() -> JSX.Element
    readonly title: string
    type CardProps
  }

  state {
    protected open: boolean = false
    label: string = "card"
  }

  imports {
    allow "react" as external
    allow "../hooks/*" as {useTheme} except: ["../hooks/legacy"]
    deny imports ["../services/*", "axios"] except: ["../services/types"]
  }

  constraints {
    deny io.console.* // no logging
    deny pattern.mutations
    deny file.lines > 500
    warn io.network.*
    require pattern.accessibility
    deny exports ["_*"] except: ["__esModule"]
    deny imports ["../db/*"]
  }
}
`

func mustParse(t *testing.T, src string) *rux.Module {
	t.Helper()
	mod, err := rux.Parse(src)
	require.NoError(t, err)
	return mod
}

func TestExtract(t *testing.T) {
	rs := Extract(mustParse(t, cardSpec))

	assert.Equal(t, "Card", rs.ModuleName)
	assert.Equal(t, "component", rs.Type)
	assert.Equal(t, "src/Card.tsx", rs.Location)

	assert.Equal(t, []Method{{Name: "render", ReturnType: "JSX.Element", Visibility: "public"}}, rs.Interface.Methods)
	assert.Equal(t, []Property{{Name: "title", Type: "string", Readonly: true, Visibility: "public"}}, rs.Interface.Properties)
	assert.Equal(t, []string{"CardProps"}, rs.Interface.Types)

	require.Len(t, rs.State.Properties, 2)
	assert.Equal(t, "false", rs.State.Properties[0].Initializer)
	assert.Equal(t, `"card"`, rs.State.Properties[1].Initializer)

	assert.Equal(t, []AllowedImport{
		{Path: "react", Alias: "external"},
		{Path: "../hooks/*", Alias: "named", Names: []string{"useTheme"}, Exceptions: []string{"../hooks/legacy"}},
	}, rs.AllowedImports)

	assert.Equal(t, []PatternRule{
		{Pattern: "../services/*", Exceptions: []string{"../services/types"}},
		{Pattern: "axios", Exceptions: []string{"../services/types"}},
		{Pattern: "../db/*"},
	}, rs.DeniedImports)

	assert.Equal(t, []string{"io.console.*", "pattern.mutations"}, rs.DeniedOperations)

	require.Len(t, rs.Constraints.Deny, 4)
	assert.Equal(t, "no logging", rs.Constraints.Deny[0].Comment)
	assert.Equal(t, 23, rs.Constraints.Deny[0].Line)
	assert.Equal(t, &Comparison{Operator: ">", Value: 500}, rs.Constraints.Deny[2].Comparison)

	exports := rs.Constraints.Deny[3]
	assert.True(t, exports.IsExports())
	assert.Equal(t, ExportsPattern, exports.Pattern)
	assert.Equal(t, []string{"_*"}, exports.Patterns)
	assert.Equal(t, []string{"__esModule"}, exports.Exceptions)

	require.Len(t, rs.Constraints.Warn, 1)
	assert.Equal(t, "io.network.*", rs.Constraints.Warn[0].Pattern)
	require.Len(t, rs.Constraints.Require, 1)
	assert.Equal(t, "pattern.accessibility", rs.Constraints.Require[0].Pattern)
}

func TestExtract_Deterministic(t *testing.T) {
	first := Extract(mustParse(t, cardSpec))
	second := Extract(mustParse(t, cardSpec))
	assert.Equal(t, first, second)
}

func TestExtract_Nil(t *testing.T) {
	assert.Equal(t, &RuleSet{}, Extract(nil))
}

func TestComparison_Holds(t *testing.T) {
	tests := []struct {
		op     string
		actual float64
		want   bool
	}{
		{">", 250, true},
		{">", 200, false},
		{"<", 10, true},
		{">=", 200, true},
		{"<=", 201, false},
		{"==", 200, true},
		{"!=", 200, false},
	}
	for _, tt := range tests {
		c := Comparison{Operator: tt.op, Value: 200}
		assert.Equal(t, tt.want, c.Holds(tt.actual), "%s 200 with %v", tt.op, tt.actual)
	}
}

func TestConstraint_Describe(t *testing.T) {
	assert.Equal(t, "warn file.lines > 200", Constraint{Kind: KindWarn, Pattern: "file.lines", Comparison: &Comparison{Operator: ">", Value: 200}}.Describe())
	assert.Equal(t, "deny exports [_*, internal*]", Constraint{Kind: KindDeny, Pattern: ExportsPattern, Patterns: []string{"_*", "internal*"}}.Describe())
	assert.Equal(t, "deny io.console.*", Constraint{Kind: KindDeny, Pattern: "io.console.*"}.Describe())
}

func TestConstraint_Excepts(t *testing.T) {
	m := pattern.NewMatcher(8)
	c := Constraint{Kind: KindDeny, Pattern: "io.console.*", Exceptions: []string{"io.console.error"}}
	assert.True(t, c.Excepts(m, "io.console.error"))
	assert.False(t, c.Excepts(m, "io.console.log"))
}

func TestMerge(t *testing.T) {
	base := &RuleSet{
		ModuleName:       "Global",
		DeniedOperations: []string{"pattern.mutations"},
		Constraints:      Constraints{Deny: []Constraint{{Kind: KindDeny, Pattern: "pattern.mutations"}}},
	}
	component := &RuleSet{
		ModuleName:       "Card",
		Type:             "component",
		Location:         "src/Card.tsx",
		DeniedOperations: []string{"io.network.*"},
		Constraints:      Constraints{Deny: []Constraint{{Kind: KindDeny, Pattern: "io.network.*"}}},
	}

	merged := Merge(base, component)
	assert.Equal(t, "Card", merged.ModuleName)
	assert.Equal(t, "component", merged.Type)
	assert.Equal(t, "src/Card.tsx", merged.Location)
	assert.Equal(t, []string{"io.network.*", "pattern.mutations"}, merged.DeniedOperations)
	require.Len(t, merged.Constraints.Deny, 2)
	assert.Equal(t, "io.network.*", merged.Constraints.Deny[0].Pattern)
	assert.Equal(t, "pattern.mutations", merged.Constraints.Deny[1].Pattern)

	// inputs untouched
	assert.Equal(t, []string{"pattern.mutations"}, base.DeniedOperations)
	assert.Len(t, component.Constraints.Deny, 1)
}

func TestMerge_KeepsDuplicates(t *testing.T) {
	rs := &RuleSet{DeniedImports: []PatternRule{{Pattern: "axios"}}}
	merged := Merge(rs, rs)
	assert.Equal(t, []PatternRule{{Pattern: "axios"}, {Pattern: "axios"}}, merged.DeniedImports)
}

func TestMerge_NilSafe(t *testing.T) {
	rs := &RuleSet{ModuleName: "A", DeniedOperations: []string{"io.*"}}

	assert.Equal(t, rs, Merge(nil, rs))
	assert.Equal(t, []string{"io.*"}, Merge(rs, nil).DeniedOperations)
	assert.Equal(t, "", Merge(rs, nil).ModuleName)
	assert.Equal(t, &RuleSet{}, Merge(nil, nil))
}

func TestMerge_Associative(t *testing.T) {
	a := &RuleSet{ModuleName: "A", DeniedOperations: []string{"a"}, DeniedImports: []PatternRule{{Pattern: "a"}},
		Constraints: Constraints{Require: []Constraint{{Pattern: "a"}}, Warn: []Constraint{{Pattern: "a"}}}}
	b := &RuleSet{DeniedOperations: []string{"b"}, Constraints: Constraints{Deny: []Constraint{{Pattern: "b"}}}}
	c := &RuleSet{DeniedOperations: []string{"c"}, DeniedImports: []PatternRule{{Pattern: "c"}},
		Constraints: Constraints{Require: []Constraint{{Pattern: "c"}}, Deny: []Constraint{{Pattern: "c"}}}}

	// A ++ B ++ C grouped either way
	left := Merge(c, Merge(b, a))
	right := Merge(Merge(c, b), a)
	assert.Equal(t, left, right)
	assert.Equal(t, left, MergeAll(a, b, c))

	assert.Equal(t, []string{"a", "b", "c"}, left.DeniedOperations)
	assert.Equal(t, []PatternRule{{Pattern: "a"}, {Pattern: "c"}}, left.DeniedImports)
	assert.Equal(t, []Constraint{{Pattern: "a"}, {Pattern: "c"}}, left.Constraints.Require)
	assert.Equal(t, []Constraint{{Pattern: "b"}, {Pattern: "c"}}, left.Constraints.Deny)
	assert.Equal(t, []Constraint{{Pattern: "a"}}, left.Constraints.Warn)
	assert.Equal(t, "A", left.ModuleName)

	// no field shrinks
	for _, in := range []*RuleSet{a, b, c} {
		assert.GreaterOrEqual(t, len(left.DeniedOperations), len(in.DeniedOperations))
		assert.GreaterOrEqual(t, left.RuleCount(), in.RuleCount())
	}
}

func TestMergeAll_Empty(t *testing.T) {
	assert.Equal(t, &RuleSet{}, MergeAll())
}

func TestFallbackExtract(t *testing.T) {
	src := `@ broken spec
module Legacy {
  type: component
  location: src/Legacy.tsx

  imports {
    allow react as "external"
    deny imports [axios, "../api/*"]
  }

  constraints {
    // comment lines are ignored
    @ so are annotations
    deny "io.console.*" except: ["io.console.error"]
    deny imports ["../db/*"]
    deny exports ["_*"]
    warn file.lines > 300 // keep it short
    require pattern.accessibility when strict
    allow io.dom.*
  }
}
`
	rs := FallbackExtract(src)

	assert.Equal(t, "Legacy", rs.ModuleName)
	assert.Equal(t, "component", rs.Type)
	assert.Equal(t, "src/Legacy.tsx", rs.Location)

	assert.Equal(t, []PatternRule{
		{Pattern: "axios"}, {Pattern: "../api/*"}, {Pattern: "../db/*"},
	}, rs.DeniedImports)

	require.Len(t, rs.Constraints.Deny, 2)
	assert.Equal(t, "io.console.*", rs.Constraints.Deny[0].Pattern)
	assert.Equal(t, []string{"io.console.error"}, rs.Constraints.Deny[0].Exceptions)
	assert.Equal(t, 14, rs.Constraints.Deny[0].Line)
	assert.True(t, rs.Constraints.Deny[1].IsExports())
	assert.Equal(t, []string{"_*"}, rs.Constraints.Deny[1].Patterns)
	assert.Equal(t, []string{"io.console.*"}, rs.DeniedOperations)

	require.Len(t, rs.Constraints.Warn, 1)
	assert.Equal(t, &Comparison{Operator: ">", Value: 300}, rs.Constraints.Warn[0].Comparison)
	assert.Equal(t, "keep it short", rs.Constraints.Warn[0].Comment)

	require.Len(t, rs.Constraints.Require, 1)
	assert.Equal(t, "pattern.accessibility", rs.Constraints.Require[0].Pattern)
}

func TestFallbackExtract_SingleLine(t *testing.T) {
	rs := FallbackExtract(`module Btn { type: presentation location: "src/Btn.tsx" version: '2' imports { deny imports [axios] } ` +
		`constraints { @ "no logs" deny io.console.* except: ["io.console.error"] warn file.lines > 200 require pattern.accessibility } }`)

	assert.Equal(t, "Btn", rs.ModuleName)
	assert.Equal(t, "presentation", rs.Type)
	assert.Equal(t, "src/Btn.tsx", rs.Location)
	assert.Equal(t, "2", rs.Version)
	assert.Equal(t, []PatternRule{{Pattern: "axios"}}, rs.DeniedImports)

	require.Len(t, rs.Constraints.Deny, 1)
	assert.Equal(t, "io.console.*", rs.Constraints.Deny[0].Pattern)
	assert.Equal(t, []string{"io.console.error"}, rs.Constraints.Deny[0].Exceptions)
	assert.Equal(t, 1, rs.Constraints.Deny[0].Line)
	require.Len(t, rs.Constraints.Warn, 1)
	assert.Equal(t, &Comparison{Operator: ">", Value: 200}, rs.Constraints.Warn[0].Comparison)
	require.Len(t, rs.Constraints.Require, 1)
	assert.Equal(t, "pattern.accessibility", rs.Constraints.Require[0].Pattern)
	assert.Equal(t, []string{"io.console.*"}, rs.DeniedOperations)
}

func TestFallbackExtract_SeveralRulesPerLine(t *testing.T) {
	rs := FallbackExtract("module A {\n  constraints {\n    deny io.console.* deny io.network.* // no side effects\n  }\n}\n")

	require.Len(t, rs.Constraints.Deny, 2)
	assert.Equal(t, "io.console.*", rs.Constraints.Deny[0].Pattern)
	assert.Empty(t, rs.Constraints.Deny[0].Comment)
	assert.Equal(t, "io.network.*", rs.Constraints.Deny[1].Pattern)
	assert.Equal(t, "no side effects", rs.Constraints.Deny[1].Comment)
	assert.Equal(t, 3, rs.Constraints.Deny[1].Line)
}

func TestFallbackExtract_NeverFails(t *testing.T) {
	for _, src := range []string{"", "}}}{{{", "constraints {", "module", "\x00\xff"} {
		assert.NotNil(t, FallbackExtract(src))
	}
	assert.Equal(t, &RuleSet{}, FallbackExtract("nothing here"))
}

func TestCompile_Parsed(t *testing.T) {
	out := Compile(cardSpec)
	parsed, ok := out.(*Parsed)
	require.True(t, ok)
	assert.Equal(t, "Card", parsed.Module.Name)
	assert.Equal(t, parsed.RuleSet, out.Rules())
	assert.Len(t, parsed.RuleSet.Constraints.Deny, 4)
}

func TestCompile_Repaired(t *testing.T) {
	src := "module Btn {\n  type: component\n  location: src/Btn.tsx\n  constraints {\n    deny 'io.console.*'\n  }\n}\n"

	out := Compile(src)
	diagnosed, ok := out.(*Diagnosed)
	require.True(t, ok)
	assert.Equal(t, SourceRepaired, diagnosed.Source)

	require.Len(t, diagnosed.Diagnostics, 4)
	// strict error first, then every recovery diagnostic
	assert.Equal(t, "type value must be quoted", diagnosed.Diagnostics[0].Message)
	assert.Equal(t, "type value must be quoted", diagnosed.Diagnostics[1].Message)
	assert.Equal(t, "location value must be quoted", diagnosed.Diagnostics[2].Message)
	assert.Equal(t, "constraint patterns must not be quoted", diagnosed.Diagnostics[3].Message)

	rs := out.Rules()
	assert.Equal(t, "Btn", rs.ModuleName)
	assert.Equal(t, "src/Btn.tsx", rs.Location)
	assert.Equal(t, []string{"io.console.*"}, rs.DeniedOperations)
}

func TestCompile_SingleLineKeepsRules(t *testing.T) {
	out := Compile(`module Btn { type: presentation location: "src/Btn.tsx" constraints { deny io.console.* } }`)
	_, ok := out.(*Diagnosed)
	require.True(t, ok)

	rs := out.Rules()
	assert.Equal(t, "Btn", rs.ModuleName)
	assert.Equal(t, "presentation", rs.Type)
	assert.Equal(t, "src/Btn.tsx", rs.Location)
	require.Len(t, rs.Constraints.Deny, 1)
	assert.Equal(t, []string{"io.console.*"}, rs.DeniedOperations)
}

func TestCompile_Fallback(t *testing.T) {
	src := "module Btn {\n  type: \"component\"\n  constraints {\n    allow io.dom.*\n    deny io.console.*\n  }\n}\n"

	out := Compile(src)
	diagnosed, ok := out.(*Diagnosed)
	require.True(t, ok)
	assert.Equal(t, SourceFallback, diagnosed.Source)
	require.NotEmpty(t, diagnosed.Diagnostics)
	assert.Contains(t, diagnosed.Diagnostics[0].Message, "allow rules are not valid")
	assert.Equal(t, 4, diagnosed.Diagnostics[0].Line)
	assert.Equal(t, []string{"io.console.*"}, out.Rules().DeniedOperations)
}
