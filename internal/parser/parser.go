package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies the tree-sitter grammar used for a file
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageTSX        Language = "tsx"
)

// SyntaxError reports that the target source did not parse cleanly. The
// position is the first error or missing node tree-sitter produced.
type SyntaxError struct {
	File   string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %s at line %d, column %d", e.File, e.Line, e.Column)
}

// Parser wraps tree-sitter parser for JavaScript/TypeScript
type Parser struct {
	parser   *sitter.Parser
	language Language
}

// NewParser creates a new JavaScript parser. JSX is accepted.
func NewParser() *Parser {
	return NewParserFor(LanguageJavaScript)
}

// NewTypeScriptParser creates a new TypeScript parser
func NewTypeScriptParser() *Parser {
	return NewParserFor(LanguageTypeScript)
}

// NewTSXParser creates a parser for TypeScript with JSX
func NewTSXParser() *Parser {
	return NewParserFor(LanguageTSX)
}

// NewParserFor creates a parser for the given grammar
func NewParserFor(language Language) *Parser {
	parser := sitter.NewParser()
	switch language {
	case LanguageTypeScript:
		parser.SetLanguage(typescript.GetLanguage())
	case LanguageTSX:
		parser.SetLanguage(tsx.GetLanguage())
	default:
		language = LanguageJavaScript
		parser.SetLanguage(javascript.GetLanguage())
	}
	return &Parser{parser: parser, language: language}
}

// LanguageFor selects the grammar from a file extension
func LanguageFor(filename string) Language {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ts", ".mts", ".cts":
		return LanguageTypeScript
	case ".tsx":
		return LanguageTSX
	default:
		return LanguageJavaScript
	}
}

// ParseFile parses a JavaScript/TypeScript file. When the source contains
// syntax errors the partial AST is returned together with a *SyntaxError.
func (p *Parser) ParseFile(filename string, source []byte) (*Node, error) {
	return p.ParseFileContext(context.Background(), filename, source)
}

// ParseFileContext is ParseFile with cancellation
func (p *Parser) ParseFileContext(ctx context.Context, filename string, source []byte) (*Node, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse file %s: %v", filename, err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode == nil {
		return nil, fmt.Errorf("no root node in parse tree for %s", filename)
	}

	// Build our internal AST from tree-sitter CST
	builder := NewASTBuilder(filename, source)
	ast := builder.Build(rootNode)

	if rootNode.HasError() {
		synErr := &SyntaxError{File: filename, Line: 1, Column: 1}
		if bad := firstError(rootNode); bad != nil {
			synErr.Line = int(bad.StartPoint().Row) + 1
			synErr.Column = int(bad.StartPoint().Column) + 1
		}
		return ast, synErr
	}

	return ast, nil
}

// Parse parses JavaScript/TypeScript source code
func (p *Parser) Parse(source []byte) (*Node, error) {
	return p.ParseFile("<input>", source)
}

// ParseString parses JavaScript/TypeScript source code from a string
func (p *Parser) ParseString(source string) (*Node, error) {
	return p.Parse([]byte(source))
}

// Language returns the grammar this parser is configured for
func (p *Parser) Language() Language {
	return p.language
}

// IsTypeScript returns true if this parser is configured for TypeScript
func (p *Parser) IsTypeScript() bool {
	return p.language != LanguageJavaScript
}

// Close closes the parser and frees resources
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// ParseForLanguage selects the grammar from the file extension and parses source
func ParseForLanguage(filename string, source []byte) (*Node, error) {
	parser := NewParserFor(LanguageFor(filename))
	defer parser.Close()

	return parser.ParseFile(filename, source)
}

// firstError finds the first ERROR or missing node in document order
func firstError(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}
