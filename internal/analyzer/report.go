package analyzer

import (
	"sort"

	"github.com/ludo-technologies/rux/domain"
)

// Report accumulates the violations of one evaluation. It is owned by the
// caller of the evaluator and threaded through every check.
type Report struct {
	module  string
	file    string
	entries []reportEntry
}

type reportEntry struct {
	violation domain.Violation
	column    int
	seq       int
}

// NewReport creates an empty report for one module/target pair
func NewReport(module, file string) *Report {
	return &Report{module: module, file: file}
}

// Add records a violation, filling in the module and file
func (r *Report) Add(v domain.Violation) {
	r.add(v, 0)
}

func (r *Report) add(v domain.Violation, column int) {
	if v.Module == "" {
		v.Module = r.module
	}
	if v.File == "" {
		v.File = r.file
	}
	r.entries = append(r.entries, reportEntry{violation: v, column: column, seq: len(r.entries)})
}

// Len returns the number of recorded violations
func (r *Report) Len() int {
	return len(r.entries)
}

// Violations returns the recorded violations ordered by line and column.
// Violations on the same position keep the order they were recorded in.
func (r *Report) Violations() []domain.Violation {
	entries := make([]reportEntry, len(r.entries))
	copy(entries, r.entries)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.violation.Line != b.violation.Line {
			return a.violation.Line < b.violation.Line
		}
		if a.column != b.column {
			return a.column < b.column
		}
		return a.seq < b.seq
	})

	violations := make([]domain.Violation, len(entries))
	for i, e := range entries {
		violations[i] = e.violation
	}
	return violations
}
