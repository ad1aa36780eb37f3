package rules

// Merge combines a base (global) rule set with a component rule set. Identity
// fields come from component; every list is component's entries followed by
// base's. Nothing is deduplicated and neither input is modified.
func Merge(base, component *RuleSet) *RuleSet {
	if base == nil {
		base = &RuleSet{}
	}
	if component == nil {
		component = &RuleSet{}
	}

	return &RuleSet{
		ModuleName: component.ModuleName,
		Type:       component.Type,
		Location:   component.Location,
		Version:    component.Version,

		AllowedImports:   concat(component.AllowedImports, base.AllowedImports),
		DeniedImports:    concat(component.DeniedImports, base.DeniedImports),
		DeniedOperations: concat(component.DeniedOperations, base.DeniedOperations),
		Constraints: Constraints{
			Require: concat(component.Constraints.Require, base.Constraints.Require),
			Deny:    concat(component.Constraints.Deny, base.Constraints.Deny),
			Warn:    concat(component.Constraints.Warn, base.Constraints.Warn),
		},
		Interface: InterfaceRules{
			Methods:    concat(component.Interface.Methods, base.Interface.Methods),
			Properties: concat(component.Interface.Properties, base.Interface.Properties),
			Types:      concat(component.Interface.Types, base.Interface.Types),
		},
		State: StateRules{
			Properties: concat(component.State.Properties, base.State.Properties),
		},
	}
}

// MergeAll concatenates rule sets in argument order, so every list of the
// result is sets[0]'s entries, then sets[1]'s, and so on. Identity fields
// come from sets[0].
func MergeAll(sets ...*RuleSet) *RuleSet {
	if len(sets) == 0 {
		return &RuleSet{}
	}
	acc := Merge(nil, sets[0])
	for _, rs := range sets[1:] {
		acc = Merge(rs, acc)
	}
	return acc
}

// concat returns a fresh slice holding a then b
func concat[T any](a, b []T) []T {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
