package domain

import (
	"context"
	"io"
	"sort"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// Severity of a violation
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ViolationType classifies what kind of rule a violation broke
type ViolationType string

const (
	ViolationConstraint ViolationType = "constraint"
	ViolationImport     ViolationType = "import"
	ViolationExport     ViolationType = "export"
	ViolationOperation  ViolationType = "operation"
	ViolationMissing    ViolationType = "missing"
)

// Violation is one concrete instance of a target file breaking one rule
type Violation struct {
	Type     ViolationType `json:"type" yaml:"type"`
	Severity Severity      `json:"severity" yaml:"severity"`
	Message  string        `json:"message" yaml:"message"`
	// Line is 1-based; 0 when the violation is not tied to a line
	Line   int    `json:"line" yaml:"line"`
	Module string `json:"module" yaml:"module"`
	File   string `json:"file" yaml:"file"`
	Rule   string `json:"rule,omitempty" yaml:"rule,omitempty"`
}

// Diagnostic describes one problem in a specification file
type Diagnostic struct {
	Message  string   `json:"message" yaml:"message"`
	Line     int      `json:"line" yaml:"line"`
	Column   int      `json:"column" yaml:"column"`
	Found    string   `json:"found,omitempty" yaml:"found,omitempty"`
	Expected []string `json:"expected,omitempty" yaml:"expected,omitempty"`
	Category string   `json:"category" yaml:"category"`
	File     string   `json:"file" yaml:"file"`
}

// RuleSource records how a module's rule set was obtained
type RuleSource string

const (
	RuleSourceParsed   RuleSource = "parsed"
	RuleSourceRepaired RuleSource = "repaired"
	RuleSourceFallback RuleSource = "fallback"
)

// EvaluationMode records how the target file was inspected
type EvaluationMode string

const (
	ModeStructural EvaluationMode = "structural"
	ModeText       EvaluationMode = "text"
	ModeSkipped    EvaluationMode = "skipped"
)

// ModuleResult is the outcome of validating one specification file
type ModuleResult struct {
	Spec        string         `json:"spec" yaml:"spec"`
	Module      string         `json:"module" yaml:"module"`
	Target      string         `json:"target,omitempty" yaml:"target,omitempty"`
	Base        bool           `json:"base,omitempty" yaml:"base,omitempty"`
	Source      RuleSource     `json:"source" yaml:"source"`
	Mode        EvaluationMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	RuleCount   int            `json:"rule_count" yaml:"rule_count"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Violations  []Violation    `json:"violations,omitempty" yaml:"violations,omitempty"`
	DurationMs  int64          `json:"duration_ms" yaml:"duration_ms"`
}

// Errors counts error-severity violations
func (m *ModuleResult) Errors() int {
	return m.count(SeverityError)
}

// Warnings counts warning-severity violations
func (m *ModuleResult) Warnings() int {
	return m.count(SeverityWarning)
}

func (m *ModuleResult) count(severity Severity) int {
	n := 0
	for _, v := range m.Violations {
		if v.Severity == severity {
			n++
		}
	}
	return n
}

// ValidateSummary provides aggregate statistics for a run
type ValidateSummary struct {
	SpecsFound       int `json:"specs_found" yaml:"specs_found"`
	BaseSpecs        int `json:"base_specs" yaml:"base_specs"`
	ModulesValidated int `json:"modules_validated" yaml:"modules_validated"`
	SyntaxErrors     int `json:"syntax_errors" yaml:"syntax_errors"`
	Errors           int `json:"errors" yaml:"errors"`
	Warnings         int `json:"warnings" yaml:"warnings"`
}

// ValidateRequest represents a request to validate a tree of specifications
type ValidateRequest struct {
	// Root directory searched for specification files
	Root string

	// Output configuration
	OutputFormat    OutputFormat
	OutputWriter    io.Writer
	NoColor         bool
	ShowDiagnostics bool
	GroupBy         string

	// Configuration
	ConfigPath string

	// Discovery
	IncludePatterns  []string
	ExcludePatterns  []string
	GlobalFiles      []string
	RespectGitignore bool

	// Evaluation
	BaseDir              string
	StrictImports        bool
	CheckInterface       bool
	FallbackOnParseError bool
	AllowWarnings        bool
}

// ValidateResponse is the complete result of a validation run
type ValidateResponse struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	Root        string          `json:"root" yaml:"root"`
	Modules     []ModuleResult  `json:"modules" yaml:"modules"`
	Summary     ValidateSummary `json:"summary" yaml:"summary"`
	GeneratedAt string          `json:"generated_at" yaml:"generated_at"`
	Version     string          `json:"version" yaml:"version"`
	DurationMs  int64           `json:"duration_ms" yaml:"duration_ms"`
}

// Summarize recomputes Summary from Modules
func (r *ValidateResponse) Summarize() {
	s := ValidateSummary{SpecsFound: len(r.Modules)}
	for i := range r.Modules {
		m := &r.Modules[i]
		if m.Base {
			s.BaseSpecs++
		} else {
			s.ModulesValidated++
		}
		s.SyntaxErrors += len(m.Diagnostics)
		s.Errors += m.Errors()
		s.Warnings += m.Warnings()
	}
	r.Summary = s
}

// Passed reports whether the run is clean: no syntax errors and no
// violations. Warnings are ignored only when allowWarnings is set.
func (r *ValidateResponse) Passed(allowWarnings bool) bool {
	if r.Summary.SyntaxErrors > 0 || r.Summary.Errors > 0 {
		return false
	}
	return allowWarnings || r.Summary.Warnings == 0
}

// SortModules orders results by specification path, base files first
func (r *ValidateResponse) SortModules() {
	sort.SliceStable(r.Modules, func(i, j int) bool {
		if r.Modules[i].Base != r.Modules[j].Base {
			return r.Modules[i].Base
		}
		return r.Modules[i].Spec < r.Modules[j].Spec
	})
}

// ValidationService validates specification trees
type ValidationService interface {
	Validate(ctx context.Context, req ValidateRequest) (*ValidateResponse, error)
}

// OutputFormatter renders validation results
type OutputFormatter interface {
	// Format formats the response according to the specified format
	Format(response *ValidateResponse, format OutputFormat) (string, error)

	// Write writes the formatted output to the writer
	Write(response *ValidateResponse, format OutputFormat, writer io.Writer) error
}
