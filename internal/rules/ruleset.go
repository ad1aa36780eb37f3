// Package rules lowers parsed specifications into the canonical RuleSet used
// by the evaluator, merges base and component rule sets and provides the
// regex fallback extractor for specifications that do not parse.
package rules

import (
	"strings"

	"github.com/ludo-technologies/rux/internal/pattern"
)

// Rule kinds
const (
	KindRequire = "require"
	KindDeny    = "deny"
	KindWarn    = "warn"
)

// ExportsPattern is the Pattern of a deny-exports constraint
const ExportsPattern = "exports"

// AllowedImport is one allow rule of the imports block
type AllowedImport struct {
	Path       string   `json:"path" yaml:"path"`
	Alias      string   `json:"alias,omitempty" yaml:"alias,omitempty"`
	Names      []string `json:"names,omitempty" yaml:"names,omitempty"`
	Exceptions []string `json:"exceptions,omitempty" yaml:"exceptions,omitempty"`
}

// PatternRule is one flattened denied-import pattern with its rule's exceptions
type PatternRule struct {
	Pattern    string   `json:"pattern" yaml:"pattern"`
	Exceptions []string `json:"exceptions,omitempty" yaml:"exceptions,omitempty"`
}

// Comparison is a metric threshold
type Comparison struct {
	Operator string  `json:"operator" yaml:"operator"`
	Value    float64 `json:"value" yaml:"value"`
}

// Holds reports whether actual satisfies the comparison
func (c Comparison) Holds(actual float64) bool {
	switch c.Operator {
	case ">":
		return actual > c.Value
	case "<":
		return actual < c.Value
	case ">=":
		return actual >= c.Value
	case "<=":
		return actual <= c.Value
	case "==":
		return actual == c.Value
	}
	return false
}

// Constraint is one require/deny/warn rule
type Constraint struct {
	Kind       string      `json:"kind" yaml:"kind"`
	Pattern    string      `json:"pattern" yaml:"pattern"`
	Patterns   []string    `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Comparison *Comparison `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	Comment    string      `json:"comment,omitempty" yaml:"comment,omitempty"`
	Exceptions []string    `json:"exceptions,omitempty" yaml:"exceptions,omitempty"`
	Line       int         `json:"line,omitempty" yaml:"line,omitempty"`
}

// IsExports reports whether c is a deny-exports constraint
func (c Constraint) IsExports() bool {
	return c.Pattern == ExportsPattern && c.Patterns != nil
}

// Excepts reports whether candidate matches one of c's exceptions
func (c Constraint) Excepts(m *pattern.Matcher, candidate string) bool {
	_, ok := m.MatchAny(c.Exceptions, candidate)
	return ok
}

// Describe renders the rule as written in a specification
func (c Constraint) Describe() string {
	var sb strings.Builder
	sb.WriteString(c.Kind)
	sb.WriteString(" ")
	if c.IsExports() {
		sb.WriteString("exports [")
		sb.WriteString(strings.Join(c.Patterns, ", "))
		sb.WriteString("]")
		return sb.String()
	}
	sb.WriteString(c.Pattern)
	if c.Comparison != nil {
		sb.WriteString(" ")
		sb.WriteString(c.Comparison.Operator)
		sb.WriteString(" ")
		sb.WriteString(formatValue(c.Comparison.Value))
	}
	return sb.String()
}

// Constraints groups constraint rules by kind
type Constraints struct {
	Require []Constraint `json:"require" yaml:"require"`
	Deny    []Constraint `json:"deny" yaml:"deny"`
	Warn    []Constraint `json:"warn" yaml:"warn"`
}

// Method is a nullary interface function
type Method struct {
	Name       string `json:"name" yaml:"name"`
	ReturnType string `json:"return_type" yaml:"return_type"`
	Visibility string `json:"visibility" yaml:"visibility"`
}

// Property is an interface property
type Property struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	Readonly   bool   `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Visibility string `json:"visibility" yaml:"visibility"`
}

// InterfaceRules is the declared public shape of the module
type InterfaceRules struct {
	Methods    []Method   `json:"methods" yaml:"methods"`
	Properties []Property `json:"properties" yaml:"properties"`
	Types      []string   `json:"types,omitempty" yaml:"types,omitempty"`
}

// StateProperty is a declared state property
type StateProperty struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Visibility  string `json:"visibility" yaml:"visibility"`
	Static      bool   `json:"static,omitempty" yaml:"static,omitempty"`
	Readonly    bool   `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Initializer string `json:"initializer,omitempty" yaml:"initializer,omitempty"`
}

// StateRules holds state declarations
type StateRules struct {
	Properties []StateProperty `json:"properties" yaml:"properties"`
}

// RuleSet is the canonical, flattened form of a module specification
type RuleSet struct {
	ModuleName string `json:"module_name" yaml:"module_name"`
	Type       string `json:"type" yaml:"type"`
	Location   string `json:"location" yaml:"location"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`

	AllowedImports   []AllowedImport `json:"allowed_imports" yaml:"allowed_imports"`
	DeniedImports    []PatternRule   `json:"denied_imports" yaml:"denied_imports"`
	DeniedOperations []string        `json:"denied_operations" yaml:"denied_operations"`
	Constraints      Constraints     `json:"constraints" yaml:"constraints"`
	Interface        InterfaceRules  `json:"interface" yaml:"interface"`
	State            StateRules      `json:"state" yaml:"state"`
}

// RuleCount returns the number of evaluable rules
func (rs *RuleSet) RuleCount() int {
	if rs == nil {
		return 0
	}
	return len(rs.AllowedImports) + len(rs.DeniedImports) +
		len(rs.Constraints.Require) + len(rs.Constraints.Deny) + len(rs.Constraints.Warn)
}

// IsOperation reports whether pattern names an operation family
func IsOperation(p string) bool {
	return strings.HasPrefix(p, "io.") || strings.HasPrefix(p, "pattern.")
}

func addConstraint(cs *Constraints, c Constraint) {
	switch c.Kind {
	case KindRequire:
		cs.Require = append(cs.Require, c)
	case KindDeny:
		cs.Deny = append(cs.Deny, c)
	case KindWarn:
		cs.Warn = append(cs.Warn, c)
	}
}
