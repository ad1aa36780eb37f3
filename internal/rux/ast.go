// Package rux parses architecture specification files (.rux) into a Module
// syntax tree and produces recovery diagnostics for malformed specifications.
package rux

import "fmt"

// ModuleType is the declared kind of a module
type ModuleType string

const (
	ModuleTypeComponent     ModuleType = "component"
	ModuleTypeService       ModuleType = "service"
	ModuleTypeUtility       ModuleType = "utility"
	ModuleTypeStore         ModuleType = "store"
	ModuleTypeHook          ModuleType = "hook"
	ModuleTypeProvider      ModuleType = "provider"
	ModuleTypeGuard         ModuleType = "guard"
	ModuleTypeData          ModuleType = "data"
	ModuleTypePresentation  ModuleType = "presentation"
	ModuleTypeContainer     ModuleType = "container"
	ModuleTypeSpecification ModuleType = "specification"
)

// ModuleTypes lists every valid module type in declaration order
var ModuleTypes = []ModuleType{
	ModuleTypeComponent, ModuleTypeService, ModuleTypeUtility, ModuleTypeStore,
	ModuleTypeHook, ModuleTypeProvider, ModuleTypeGuard, ModuleTypeData,
	ModuleTypePresentation, ModuleTypeContainer, ModuleTypeSpecification,
}

// IsValid reports whether t is one of ModuleTypes
func (t ModuleType) IsValid() bool {
	for _, mt := range ModuleTypes {
		if t == mt {
			return true
		}
	}
	return false
}

// Visibility of an interface member or state property
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
)

// Position is a 1-based line/column location in specification text
type Position struct {
	Line   int
	Column int
}

// String returns line:column
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Module is one parsed specification unit
type Module struct {
	Name        string
	Annotations []string
	Type        ModuleType
	Location    string
	Version     string

	Interface   *InterfaceBlock
	State       *StateBlock
	Imports     *ImportsBlock
	Constraints *ConstraintsBlock

	Pos Position
}

// MemberKind discriminates interface members
type MemberKind string

const (
	MemberFunction MemberKind = "function"
	MemberProperty MemberKind = "property"
	MemberType     MemberKind = "type"
)

// Member is one interface declaration. Functions are nullary by construction.
type Member struct {
	Kind       MemberKind
	Name       string
	Type       string // return type for functions, declared type for properties
	Readonly   bool
	Visibility Visibility
	Pos        Position
}

// InterfaceBlock holds the public shape of the module
type InterfaceBlock struct {
	Annotations []string
	Members     []Member
	Pos         Position
}

// LiteralKind is the kind of a state initializer
type LiteralKind string

const (
	LiteralString    LiteralKind = "string"
	LiteralNumber    LiteralKind = "number"
	LiteralBoolean   LiteralKind = "boolean"
	LiteralNull      LiteralKind = "null"
	LiteralUndefined LiteralKind = "undefined"
)

// Literal is a constant initializer value
type Literal struct {
	Kind  LiteralKind
	Value string
}

// StateProperty is one state declaration
type StateProperty struct {
	Name        string
	Type        string
	Visibility  Visibility
	Static      bool
	Readonly    bool
	Initializer *Literal
	Pos         Position
}

// StateBlock holds the module's internal state declarations
type StateBlock struct {
	Annotations []string
	Properties  []StateProperty
	Pos         Position
}

// AliasKind discriminates allow-rule aliases
type AliasKind string

const (
	AliasExternal AliasKind = "external"
	AliasNamed    AliasKind = "named"
	AliasDefault  AliasKind = "default"
)

// Alias is the optional "as" clause of an allow rule
type Alias struct {
	Kind  AliasKind
	Names []string
}

// ImportRuleKind discriminates rules of an imports block
type ImportRuleKind string

const (
	ImportAllow ImportRuleKind = "allow"
	ImportDeny  ImportRuleKind = "deny"
)

// ImportRule is an allow or deny entry of the imports block
type ImportRule struct {
	Kind       ImportRuleKind
	Path       string   // allow only
	Alias      *Alias   // allow only
	Patterns   []string // deny only
	Exceptions []string
	Pos        Position
}

// ImportsBlock holds import restrictions
type ImportsBlock struct {
	Rules []ImportRule
	Pos   Position
}

// RuleKind is the keyword introducing a constraint
type RuleKind string

const (
	RuleRequire RuleKind = "require"
	RuleDeny    RuleKind = "deny"
	RuleWarn    RuleKind = "warn"
)

// Comparison is a metric threshold such as "> 200"
type Comparison struct {
	Operator string
	Value    float64
}

// String returns the comparison as written
func (c Comparison) String() string {
	return fmt.Sprintf("%s %s", c.Operator, formatNumber(c.Value))
}

// Target names what a constraint rule applies to
type Target string

const (
	TargetPattern Target = "pattern"
	TargetExports Target = "exports"
	TargetImports Target = "imports"
)

// ConstraintRule is one require/deny/warn entry
type ConstraintRule struct {
	Kind       RuleKind
	Target     Target
	Pattern    string   // TargetPattern only
	Patterns   []string // TargetExports and TargetImports
	Comparison *Comparison
	Comment    string
	Exceptions []string
	Pos        Position
}

// ConstraintsBlock holds code-pattern rules
type ConstraintsBlock struct {
	Annotations []string
	Rules       []ConstraintRule
	Pos         Position
}
