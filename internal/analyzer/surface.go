package analyzer

import (
	"regexp"
	"strings"

	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/parser"
)

// Node.js built-in modules list (node: prefix or bare)
var nodeBuiltins = map[string]bool{
	"assert":         true,
	"buffer":         true,
	"child_process":  true,
	"cluster":        true,
	"console":        true,
	"constants":      true,
	"crypto":         true,
	"dgram":          true,
	"dns":            true,
	"domain":         true,
	"events":         true,
	"fs":             true,
	"http":           true,
	"http2":          true,
	"https":          true,
	"module":         true,
	"net":            true,
	"os":             true,
	"path":           true,
	"perf_hooks":     true,
	"process":        true,
	"punycode":       true,
	"querystring":    true,
	"readline":       true,
	"repl":           true,
	"stream":         true,
	"string_decoder": true,
	"sys":            true,
	"timers":         true,
	"tls":            true,
	"tty":            true,
	"url":            true,
	"util":           true,
	"v8":             true,
	"vm":             true,
	"wasi":           true,
	"worker_threads": true,
	"zlib":           true,
}

// SurfaceConfig holds configuration for surface extraction
type SurfaceConfig struct {
	// AliasPatterns are path alias prefixes to recognize (@/, ~/, etc.)
	AliasPatterns []string
}

// DefaultSurfaceConfig returns the default configuration
func DefaultSurfaceConfig() *SurfaceConfig {
	return &SurfaceConfig{
		AliasPatterns: []string{"@/", "~/"},
	}
}

// SurfaceExtractor collects the imports and exports of a target file, from
// its syntax tree when one is available and from its text otherwise
type SurfaceExtractor struct {
	config *SurfaceConfig
}

// NewSurfaceExtractor creates a surface extractor with the given configuration
func NewSurfaceExtractor(config *SurfaceConfig) *SurfaceExtractor {
	if config == nil {
		config = DefaultSurfaceConfig()
	}
	return &SurfaceExtractor{config: config}
}

// Extract walks the AST and collects imports and exports
func (se *SurfaceExtractor) Extract(ast *parser.Node, file string) *domain.ModuleSurface {
	surface := &domain.ModuleSurface{
		File:       file,
		Imports:    make([]domain.Import, 0),
		Exports:    make([]domain.Export, 0),
		Structural: true,
	}
	if ast == nil {
		return surface
	}

	ast.Walk(func(node *parser.Node) bool {
		switch node.Type {
		case parser.NodeImportDeclaration:
			if imp, ok := se.importDeclaration(node); ok {
				surface.Imports = append(surface.Imports, imp)
			}
			return false

		case parser.NodeCallExpression:
			if imp, ok := se.callImport(node); ok {
				surface.Imports = append(surface.Imports, imp)
			}

		case parser.NodeExportNamedDeclaration, parser.NodeExportDefaultDeclaration, parser.NodeExportAllDeclaration:
			surface.Exports = append(surface.Exports, se.exportDeclaration(node)...)
			if source, ok := node.ImportSource(); ok {
				surface.Imports = append(surface.Imports, domain.Import{
					Source:     source,
					SourceType: se.ClassifySource(source),
					ImportType: domain.ImportTypeReExport,
					Line:       node.Location.StartLine,
				})
			}

		case parser.NodeAssignmentExpression:
			if exp, ok := commonJSExport(node); ok {
				surface.Exports = append(surface.Exports, exp)
			}
		}
		return true
	})

	return surface
}

// importDeclaration processes an ES6 import declaration
func (se *SurfaceExtractor) importDeclaration(node *parser.Node) (domain.Import, bool) {
	source, ok := node.ImportSource()
	if !ok || source == "" {
		return domain.Import{}, false
	}

	imp := domain.Import{
		Source:     source,
		SourceType: se.ClassifySource(source),
		Line:       node.Location.StartLine,
	}

	hasDefault, hasNamed, hasNamespace := false, false, false
	for _, spec := range node.Specifiers {
		switch spec.Type {
		case parser.NodeImportDefaultSpecifier:
			hasDefault = true
		case parser.NodeImportNamespaceSpecifier:
			hasNamespace = true
		case parser.NodeImportSpecifier:
			hasNamed = true
		}
		if spec.Name != "" {
			imp.Names = append(imp.Names, spec.Name)
		}
	}

	switch {
	case hasNamespace:
		imp.ImportType = domain.ImportTypeNamespace
	case hasDefault && !hasNamed:
		imp.ImportType = domain.ImportTypeDefault
	case hasNamed:
		imp.ImportType = domain.ImportTypeNamed
	default:
		imp.ImportType = domain.ImportTypeSideEffect
	}

	return imp, true
}

// callImport recognizes require('x') and import('x')
func (se *SurfaceExtractor) callImport(node *parser.Node) (domain.Import, bool) {
	source, ok := node.ImportSource()
	if !ok || source == "" {
		return domain.Import{}, false
	}

	importType := domain.ImportTypeRequire
	if node.Callee.Name == "import" {
		importType = domain.ImportTypeDynamic
	}
	return domain.Import{
		Source:     source,
		SourceType: se.ClassifySource(source),
		ImportType: importType,
		Line:       node.Location.StartLine,
	}, true
}

// exportDeclaration lists the names an export statement makes visible
func (se *SurfaceExtractor) exportDeclaration(node *parser.Node) []domain.Export {
	line := node.Location.StartLine
	source, _ := node.ImportSource()

	switch node.Type {
	case parser.NodeExportDefaultDeclaration:
		name := "default"
		if decl := node.Declaration; decl != nil && (decl.Type == parser.NodeFunction || decl.Type == parser.NodeClass) && decl.Name != "" {
			name = decl.Name
		}
		return []domain.Export{{Name: name, Kind: domain.ExportKindDefault, Line: line}}

	case parser.NodeExportAllDeclaration:
		name := node.Name
		if name == "" {
			name = "*"
		}
		return []domain.Export{{Name: name, Kind: domain.ExportKindAll, Source: source, Line: line}}
	}

	var exports []domain.Export
	if decl := node.Declaration; decl != nil {
		if decl.Name != "" {
			exports = append(exports, domain.Export{Name: decl.Name, Kind: domain.ExportKindDeclaration, Line: line})
		}
		for _, declarator := range decl.Declarations {
			if declarator.Name != "" {
				exports = append(exports, domain.Export{Name: declarator.Name, Kind: domain.ExportKindDeclaration, Line: line})
			}
		}
	}
	for _, spec := range node.Specifiers {
		if spec.Name != "" {
			exports = append(exports, domain.Export{Name: spec.Name, Kind: domain.ExportKindNamed, Source: source, Line: spec.Location.StartLine})
		}
	}
	return exports
}

// commonJSExport checks for module.exports = ... and exports.foo = ...
func commonJSExport(node *parser.Node) (domain.Export, bool) {
	target := node.Left.QualifiedName()
	line := node.Location.StartLine

	switch {
	case target == "module.exports":
		return domain.Export{Name: "default", Kind: domain.ExportKindCommonJS, Line: line}, true
	case strings.HasPrefix(target, "module.exports."):
		return domain.Export{Name: strings.TrimPrefix(target, "module.exports."), Kind: domain.ExportKindCommonJS, Line: line}, true
	case strings.HasPrefix(target, "exports."):
		return domain.Export{Name: strings.TrimPrefix(target, "exports."), Kind: domain.ExportKindCommonJS, Line: line}, true
	}
	return domain.Export{}, false
}

var (
	importFromRe    = regexp.MustCompile(`^\s*import\s+(?:type\s+)?(?:([^'"]*?)\s+from\s+)?['"]([^'"]+)['"]`)
	callImportRe    = regexp.MustCompile(`\b(require|import)\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	reExportRe      = regexp.MustCompile(`^\s*export\s+(?:type\s+)?(\*(?:\s+as\s+([A-Za-z_$][\w$]*))?|\{([^}]*)\})\s*from\s*['"]([^'"]+)['"]`)
	exportDeclRe    = regexp.MustCompile(`^\s*export\s+(?:default\s+)?(?:declare\s+)?(?:abstract\s+)?(?:async\s+)?(?:function\s*\*?|class|const|let|var|interface|type|enum|namespace)\s+([A-Za-z_$][\w$]*)`)
	exportDefaultRe = regexp.MustCompile(`^\s*export\s+default\b`)
	exportListRe    = regexp.MustCompile(`^\s*export\s+(?:type\s+)?\{([^}]*)\}`)
	commonJSRe      = regexp.MustCompile(`^\s*(?:module\.)?exports(?:\.([A-Za-z_$][\w$]*))?\s*=[^=]`)
)

// Scan recovers the surface from raw text, one line at a time. Statements
// spanning several lines are only seen through their first line.
func (se *SurfaceExtractor) Scan(text, file string) *domain.ModuleSurface {
	surface := &domain.ModuleSurface{
		File:    file,
		Imports: make([]domain.Import, 0),
		Exports: make([]domain.Export, 0),
	}

	for i, line := range strings.Split(text, "\n") {
		lineNo := i + 1
		if isCommentLine(line) {
			continue
		}

		if m := reExportRe.FindStringSubmatch(line); m != nil {
			surface.Imports = append(surface.Imports, domain.Import{
				Source: m[4], SourceType: se.ClassifySource(m[4]), ImportType: domain.ImportTypeReExport, Line: lineNo,
			})
			switch {
			case m[3] != "":
				for _, name := range exportListNames(m[3]) {
					surface.Exports = append(surface.Exports, domain.Export{Name: name, Kind: domain.ExportKindNamed, Source: m[4], Line: lineNo})
				}
			case m[2] != "":
				surface.Exports = append(surface.Exports, domain.Export{Name: m[2], Kind: domain.ExportKindAll, Source: m[4], Line: lineNo})
			default:
				surface.Exports = append(surface.Exports, domain.Export{Name: "*", Kind: domain.ExportKindAll, Source: m[4], Line: lineNo})
			}
			continue
		}

		if m := importFromRe.FindStringSubmatch(line); m != nil {
			imp := domain.Import{Source: m[2], SourceType: se.ClassifySource(m[2]), Line: lineNo}
			imp.ImportType, imp.Names = importClause(m[1])
			surface.Imports = append(surface.Imports, imp)
		} else {
			for _, m := range callImportRe.FindAllStringSubmatch(line, -1) {
				importType := domain.ImportTypeRequire
				if m[1] == "import" {
					importType = domain.ImportTypeDynamic
				}
				surface.Imports = append(surface.Imports, domain.Import{
					Source: m[2], SourceType: se.ClassifySource(m[2]), ImportType: importType, Line: lineNo,
				})
			}
		}

		switch {
		case exportDeclRe.MatchString(line):
			name := exportDeclRe.FindStringSubmatch(line)[1]
			kind := domain.ExportKindDeclaration
			if exportDefaultRe.MatchString(line) {
				kind = domain.ExportKindDefault
			}
			surface.Exports = append(surface.Exports, domain.Export{Name: name, Kind: kind, Line: lineNo})
		case exportDefaultRe.MatchString(line):
			surface.Exports = append(surface.Exports, domain.Export{Name: "default", Kind: domain.ExportKindDefault, Line: lineNo})
		case exportListRe.MatchString(line):
			for _, name := range exportListNames(exportListRe.FindStringSubmatch(line)[1]) {
				surface.Exports = append(surface.Exports, domain.Export{Name: name, Kind: domain.ExportKindNamed, Line: lineNo})
			}
		case commonJSRe.MatchString(line):
			name := commonJSRe.FindStringSubmatch(line)[1]
			if name == "" {
				name = "default"
			}
			surface.Exports = append(surface.Exports, domain.Export{Name: name, Kind: domain.ExportKindCommonJS, Line: lineNo})
		}
	}

	return surface
}

// importClause classifies the text between "import" and "from"
func importClause(clause string) (domain.ImportType, []string) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return domain.ImportTypeSideEffect, nil
	}

	var names []string
	importType := domain.ImportTypeDefault
	if open := strings.Index(clause, "{"); open >= 0 {
		importType = domain.ImportTypeNamed
		if closing := strings.Index(clause[open:], "}"); closing > 0 {
			names = append(names, exportListNames(clause[open+1:open+closing])...)
		}
		clause = clause[:open]
	}
	if idx := strings.Index(clause, "* as "); idx >= 0 {
		importType = domain.ImportTypeNamespace
		names = append(names, strings.Trim(strings.TrimSpace(clause[idx+5:]), ","))
		clause = clause[:idx]
	}
	if def := strings.Trim(strings.TrimSpace(clause), ","); def != "" {
		names = append([]string{strings.TrimSpace(def)}, names...)
	}
	return importType, names
}

// exportListNames returns the visible names of "a, b as c" lists
func exportListNames(list string) []string {
	var names []string
	for _, item := range strings.Split(list, ",") {
		fields := strings.Fields(item)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "type" && len(fields) > 1 {
			fields = fields[1:]
		}
		names = append(names, strings.Trim(fields[len(fields)-1], `"'`))
	}
	return names
}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*")
}

// ClassifySource determines the type of module source
func (se *SurfaceExtractor) ClassifySource(source string) domain.SourceType {
	if source == "" {
		return domain.SourceTypePackage
	}

	// Check for node: prefix (explicit builtin)
	if strings.HasPrefix(source, "node:") {
		return domain.SourceTypeBuiltin
	}

	if strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") || source == "." || source == ".." {
		return domain.SourceTypeRelative
	}

	if strings.HasPrefix(source, "/") {
		return domain.SourceTypeAbsolute
	}

	for _, prefix := range se.config.AliasPatterns {
		if strings.HasPrefix(source, prefix) {
			return domain.SourceTypeAlias
		}
	}

	// Extract package name (before any /)
	pkgName := source
	if idx := strings.Index(source, "/"); idx > 0 {
		pkgName = source[:idx]
	}
	if nodeBuiltins[pkgName] {
		return domain.SourceTypeBuiltin
	}

	return domain.SourceTypePackage
}
