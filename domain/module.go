package domain

// ImportType represents the type of import statement
type ImportType string

const (
	// ImportTypeDefault represents default imports: import x from 'y'
	ImportTypeDefault ImportType = "default"

	// ImportTypeNamed represents named imports: import { x } from 'y'
	ImportTypeNamed ImportType = "named"

	// ImportTypeNamespace represents namespace imports: import * as x from 'y'
	ImportTypeNamespace ImportType = "namespace"

	// ImportTypeSideEffect represents side-effect imports: import 'y'
	ImportTypeSideEffect ImportType = "side_effect"

	// ImportTypeDynamic represents dynamic imports: import('y')
	ImportTypeDynamic ImportType = "dynamic"

	// ImportTypeRequire represents CommonJS require: require('y')
	ImportTypeRequire ImportType = "require"

	// ImportTypeReExport represents re-exports: export { x } from 'y'
	ImportTypeReExport ImportType = "re_export"
)

// SourceType represents the kind of module specifier
type SourceType string

const (
	// SourceTypeRelative represents relative imports: ./foo, ../bar
	SourceTypeRelative SourceType = "relative"

	// SourceTypeAbsolute represents absolute imports: /foo/bar
	SourceTypeAbsolute SourceType = "absolute"

	// SourceTypePackage represents package imports: lodash, react
	SourceTypePackage SourceType = "package"

	// SourceTypeBuiltin represents Node.js builtins: node:fs, fs
	SourceTypeBuiltin SourceType = "builtin"

	// SourceTypeAlias represents aliased imports: @/components, ~/utils
	SourceTypeAlias SourceType = "alias"
)

// Import is one module dependency of a target file
type Import struct {
	// Source is the module specifier (e.g., 'lodash', './utils')
	Source     string     `json:"source" yaml:"source"`
	SourceType SourceType `json:"source_type" yaml:"source_type"`
	ImportType ImportType `json:"import_type" yaml:"import_type"`

	// Names are the local bindings the import introduces
	Names []string `json:"names,omitempty" yaml:"names,omitempty"`

	Line int `json:"line" yaml:"line"`
}

// ExportKind represents how a name is exported
type ExportKind string

const (
	ExportKindNamed       ExportKind = "named"
	ExportKindDefault     ExportKind = "default"
	ExportKindAll         ExportKind = "all"
	ExportKindDeclaration ExportKind = "declaration"
	ExportKindCommonJS    ExportKind = "commonjs"
)

// Export is one exported binding of a target file. Name is "default" for
// anonymous default exports and "*" for unnamed star re-exports.
type Export struct {
	Name   string     `json:"name" yaml:"name"`
	Kind   ExportKind `json:"kind" yaml:"kind"`
	Source string     `json:"source,omitempty" yaml:"source,omitempty"`
	Line   int        `json:"line" yaml:"line"`
}

// ModuleSurface is the import/export surface of one target file
type ModuleSurface struct {
	File    string   `json:"file" yaml:"file"`
	Imports []Import `json:"imports" yaml:"imports"`
	Exports []Export `json:"exports" yaml:"exports"`

	// Structural is false when the surface was recovered by text scanning
	Structural bool `json:"structural" yaml:"structural"`
}

// ExportedNames returns the set of exported names
func (s *ModuleSurface) ExportedNames() map[string]bool {
	names := make(map[string]bool, len(s.Exports))
	for _, exp := range s.Exports {
		names[exp.Name] = true
	}
	return names
}
