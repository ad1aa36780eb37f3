package rules

import (
	"strconv"

	"github.com/ludo-technologies/rux/internal/rux"
)

// Extract lowers a parsed module into a RuleSet. Identity fields are read
// first, then each block's members in declaration order.
func Extract(mod *rux.Module) *RuleSet {
	rs := &RuleSet{}
	if mod == nil {
		return rs
	}
	rs.ModuleName = mod.Name
	rs.Type = string(mod.Type)
	rs.Location = mod.Location
	rs.Version = mod.Version

	if mod.Interface != nil {
		extractInterface(rs, mod.Interface)
	}
	if mod.State != nil {
		extractState(rs, mod.State)
	}
	if mod.Imports != nil {
		extractImports(rs, mod.Imports)
	}
	if mod.Constraints != nil {
		extractConstraints(rs, mod.Constraints)
	}
	return rs
}

func extractInterface(rs *RuleSet, block *rux.InterfaceBlock) {
	for _, m := range block.Members {
		switch m.Kind {
		case rux.MemberFunction:
			rs.Interface.Methods = append(rs.Interface.Methods, Method{
				Name:       m.Name,
				ReturnType: m.Type,
				Visibility: string(m.Visibility),
			})
		case rux.MemberProperty:
			rs.Interface.Properties = append(rs.Interface.Properties, Property{
				Name:       m.Name,
				Type:       m.Type,
				Readonly:   m.Readonly,
				Visibility: string(m.Visibility),
			})
		case rux.MemberType:
			rs.Interface.Types = append(rs.Interface.Types, m.Name)
		}
	}
}

func extractState(rs *RuleSet, block *rux.StateBlock) {
	for _, p := range block.Properties {
		prop := StateProperty{
			Name:       p.Name,
			Type:       p.Type,
			Visibility: string(p.Visibility),
			Static:     p.Static,
			Readonly:   p.Readonly,
		}
		if p.Initializer != nil {
			prop.Initializer = p.Initializer.Value
			if p.Initializer.Kind == rux.LiteralString {
				prop.Initializer = strconv.Quote(p.Initializer.Value)
			}
		}
		rs.State.Properties = append(rs.State.Properties, prop)
	}
}

func extractImports(rs *RuleSet, block *rux.ImportsBlock) {
	for _, r := range block.Rules {
		switch r.Kind {
		case rux.ImportAllow:
			allowed := AllowedImport{Path: r.Path, Exceptions: copyStrings(r.Exceptions)}
			if r.Alias != nil {
				allowed.Alias = string(r.Alias.Kind)
				allowed.Names = copyStrings(r.Alias.Names)
			}
			rs.AllowedImports = append(rs.AllowedImports, allowed)
		case rux.ImportDeny:
			appendDeniedImports(rs, r.Patterns, r.Exceptions)
		}
	}
}

func extractConstraints(rs *RuleSet, block *rux.ConstraintsBlock) {
	for _, r := range block.Rules {
		switch r.Target {
		case rux.TargetImports:
			appendDeniedImports(rs, r.Patterns, r.Exceptions)
			continue
		case rux.TargetExports:
			addConstraint(&rs.Constraints, Constraint{
				Kind:       KindDeny,
				Pattern:    ExportsPattern,
				Patterns:   copyStrings(r.Patterns),
				Comment:    r.Comment,
				Exceptions: copyStrings(r.Exceptions),
				Line:       r.Pos.Line,
			})
			continue
		}

		c := Constraint{
			Kind:       string(r.Kind),
			Pattern:    r.Pattern,
			Comment:    r.Comment,
			Exceptions: copyStrings(r.Exceptions),
			Line:       r.Pos.Line,
		}
		if r.Comparison != nil {
			c.Comparison = &Comparison{Operator: r.Comparison.Operator, Value: r.Comparison.Value}
		}
		addConstraint(&rs.Constraints, c)
		if c.Kind == KindDeny && IsOperation(c.Pattern) {
			rs.DeniedOperations = append(rs.DeniedOperations, c.Pattern)
		}
	}
}

// appendDeniedImports flattens a deny rule into one entry per pattern
func appendDeniedImports(rs *RuleSet, patterns, exceptions []string) {
	for _, p := range patterns {
		rs.DeniedImports = append(rs.DeniedImports, PatternRule{
			Pattern:    p,
			Exceptions: copyStrings(exceptions),
		})
	}
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
