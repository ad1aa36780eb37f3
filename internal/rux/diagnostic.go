package rux

import (
	"errors"
	"sort"
	"strings"
)

// Category groups diagnostics by the kind of mistake
type Category string

const (
	CategoryQuoting     Category = "quoting"
	CategoryUnsupported Category = "unsupported"
	CategoryStructural  Category = "structural"
)

// Diagnostic is one problem found in specification text
type Diagnostic struct {
	Message  string
	Line     int
	Column   int
	Found    string
	Expected []string
	Category Category
}

// Category classifies a strict parse error
func (e *ParseError) Category() Category {
	return classify(e.Message)
}

func classify(message string) Category {
	switch {
	case strings.Contains(message, "quoted"):
		return CategoryQuoting
	case strings.Contains(message, "not supported"),
		strings.Contains(message, "cannot"),
		strings.Contains(message, "not valid"),
		strings.Contains(message, "must be literal"):
		return CategoryUnsupported
	default:
		return CategoryStructural
	}
}

// DiagnosticFromError converts a parse failure into a Diagnostic. Errors other
// than *ParseError become a structural diagnostic without a location.
func DiagnosticFromError(err error) Diagnostic {
	var perr *ParseError
	if errors.As(err, &perr) {
		return Diagnostic{
			Message:  perr.Message,
			Line:     perr.Pos.Line,
			Column:   perr.Pos.Column,
			Found:    perr.Found,
			Expected: perr.Expected,
			Category: perr.Category(),
		}
	}
	return Diagnostic{Message: err.Error(), Category: CategoryStructural}
}

func sortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Line != diags[j].Line {
			return diags[i].Line < diags[j].Line
		}
		return diags[i].Column < diags[j].Column
	})
}
