package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/rules"
	"github.com/ludo-technologies/rux/internal/rux"
)

// CategoryIO marks a diagnostic for a spec file that could not be read
const CategoryIO = "io"

// CompiledSpec is one specification after compilation
type CompiledSpec struct {
	Spec        SpecFile
	Outcome     rules.Outcome
	Source      domain.RuleSource
	Diagnostics []domain.Diagnostic
}

// RuleSet returns the compiled rules; never nil
func (c *CompiledSpec) RuleSet() *rules.RuleSet {
	if c.Outcome == nil || c.Outcome.Rules() == nil {
		return &rules.RuleSet{}
	}
	return c.Outcome.Rules()
}

// SpecLoader reads and compiles specification files
type SpecLoader struct {
	logger *slog.Logger
}

// NewSpecLoader creates a spec loader
func NewSpecLoader(logger *slog.Logger) *SpecLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpecLoader{logger: logger}
}

// Load reads spec from disk and compiles it. A read failure is reported as
// an io diagnostic with an empty rule set rather than an error, so one
// broken file never stops a run.
func (l *SpecLoader) Load(ctx context.Context, spec SpecFile) *CompiledSpec {
	if err := ctx.Err(); err != nil {
		return l.unreadable(spec, err)
	}
	text, err := os.ReadFile(spec.Path)
	if err != nil {
		return l.unreadable(spec, err)
	}
	return l.Compile(spec, string(text))
}

// Compile compiles spec text
func (l *SpecLoader) Compile(spec SpecFile, text string) *CompiledSpec {
	outcome := rules.Compile(text)
	compiled := &CompiledSpec{Spec: spec, Outcome: outcome}

	switch o := outcome.(type) {
	case *rules.Parsed:
		compiled.Source = domain.RuleSourceParsed
	case *rules.Diagnosed:
		compiled.Source = domain.RuleSource(o.Source)
		compiled.Diagnostics = ToDiagnostics(spec.Rel, o.Diagnostics)
		l.logger.Debug("specification did not parse strictly",
			"spec", spec.Rel, "diagnostics", len(o.Diagnostics), "source", o.Source, "rules", o.RuleSet.RuleCount())
	}
	return compiled
}

func (l *SpecLoader) unreadable(spec SpecFile, err error) *CompiledSpec {
	l.logger.Warn("cannot read specification", "spec", spec.Path, "error", err)
	return &CompiledSpec{
		Spec:    spec,
		Outcome: &rules.Diagnosed{RuleSet: &rules.RuleSet{}, Source: rules.SourceFallback},
		Source:  domain.RuleSourceFallback,
		Diagnostics: []domain.Diagnostic{{
			Message:  fmt.Sprintf("cannot read specification: %v", err),
			Category: CategoryIO,
			File:     spec.Rel,
		}},
	}
}

// ToDiagnostics converts parser diagnostics for output
func ToDiagnostics(file string, diags []rux.Diagnostic) []domain.Diagnostic {
	out := make([]domain.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, domain.Diagnostic{
			Message:  d.Message,
			Line:     d.Line,
			Column:   d.Column,
			Found:    d.Found,
			Expected: d.Expected,
			Category: string(d.Category),
			File:     file,
		})
	}
	return out
}
