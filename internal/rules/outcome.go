package rules

import (
	"github.com/ludo-technologies/rux/internal/rux"
)

// Source records how a Diagnosed rule set was obtained
type Source string

const (
	// SourceRepaired means the repaired text parsed strictly
	SourceRepaired Source = "repaired"
	// SourceFallback means the regex extractor produced the rule set
	SourceFallback Source = "fallback"
)

// Outcome is the result of compiling specification text: either *Parsed or
// *Diagnosed.
type Outcome interface {
	Rules() *RuleSet
	outcome()
}

// Parsed is a specification that passed the strict parser
type Parsed struct {
	Module  *rux.Module
	RuleSet *RuleSet
}

// Diagnosed is a specification that failed the strict parser. Diagnostics
// starts with the strict parse error followed by every recovery diagnostic.
type Diagnosed struct {
	Diagnostics []rux.Diagnostic
	RuleSet     *RuleSet
	Source      Source
}

func (p *Parsed) Rules() *RuleSet    { return p.RuleSet }
func (d *Diagnosed) Rules() *RuleSet { return d.RuleSet }

func (*Parsed) outcome()    {}
func (*Diagnosed) outcome() {}

// Compile parses text and extracts its rule set. When strict parsing fails the
// recovery heuristics run, the repaired text is tried once more and, failing
// that, the fallback extractor supplies a partial rule set.
func Compile(text string) Outcome {
	mod, err := rux.Parse(text)
	if err == nil {
		return &Parsed{Module: mod, RuleSet: Extract(mod)}
	}

	diags := []rux.Diagnostic{rux.DiagnosticFromError(err)}
	diags = append(diags, rux.Recover(text)...)

	if repaired, changed := rux.Repair(text); changed {
		if mod, err := rux.Parse(repaired); err == nil {
			return &Diagnosed{Diagnostics: diags, RuleSet: Extract(mod), Source: SourceRepaired}
		}
	}
	return &Diagnosed{Diagnostics: diags, RuleSet: FallbackExtract(text), Source: SourceFallback}
}
