package parser

import (
	"fmt"
	"strings"
)

// NodeType represents the type of AST node
type NodeType string

// JavaScript/TypeScript AST node types
const (
	// Program and structure
	NodeProgram        NodeType = "Program"
	NodeBlockStatement NodeType = "BlockStatement"

	// Declarations
	NodeFunction            NodeType = "FunctionDeclaration"
	NodeClass               NodeType = "ClassDeclaration"
	NodeVariableDeclaration NodeType = "VariableDeclaration"
	NodeVariableDeclarator  NodeType = "VariableDeclarator"
	NodeIdentifier          NodeType = "Identifier"

	// TypeScript declarations
	NodeInterfaceDeclaration NodeType = "InterfaceDeclaration"
	NodeTypeAlias            NodeType = "TypeAliasDeclaration"
	NodeEnumDeclaration      NodeType = "EnumDeclaration"

	// Expressions
	NodeCallExpression       NodeType = "CallExpression"
	NodeMemberExpression     NodeType = "MemberExpression"
	NodeNewExpression        NodeType = "NewExpression"
	NodeAssignmentExpression NodeType = "AssignmentExpression"
	NodeUpdateExpression     NodeType = "UpdateExpression"
	NodeThisExpression       NodeType = "ThisExpression"

	// Literals
	NodeStringLiteral   NodeType = "StringLiteral"
	NodeTemplateLiteral NodeType = "TemplateLiteral"
	NodeNumberLiteral   NodeType = "NumberLiteral"
	NodeBooleanLiteral  NodeType = "BooleanLiteral"
	NodeNullLiteral     NodeType = "NullLiteral"

	// Module system (ESM)
	NodeImportDeclaration        NodeType = "ImportDeclaration"
	NodeImportSpecifier          NodeType = "ImportSpecifier"
	NodeImportDefaultSpecifier   NodeType = "ImportDefaultSpecifier"
	NodeImportNamespaceSpecifier NodeType = "ImportNamespaceSpecifier"
	NodeExportNamedDeclaration   NodeType = "ExportNamedDeclaration"
	NodeExportDefaultDeclaration NodeType = "ExportDefaultDeclaration"
	NodeExportAllDeclaration     NodeType = "ExportAllDeclaration"
	NodeExportSpecifier          NodeType = "ExportSpecifier"

	// JSX
	NodeJSXElement            NodeType = "JSXElement"
	NodeJSXOpeningElement     NodeType = "JSXOpeningElement"
	NodeJSXSelfClosingElement NodeType = "JSXSelfClosingElement"
	NodeJSXAttribute          NodeType = "JSXAttribute"

	// Tree-sitter error recovery
	NodeError NodeType = "ERROR"
)

// Location represents the position of a node in the source code.
// Lines and columns are 1-based.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// String returns a string representation of the location
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.StartLine, l.StartCol)
}

// Node represents an AST node
type Node struct {
	Type     NodeType
	Children []*Node
	Location Location
	Parent   *Node

	// Identifier, declaration, JSX element and attribute names
	Name string

	// Declaration bodies and declarators
	Body         []*Node
	Declarations []*Node

	// Expression fields
	Left      *Node
	Right     *Node
	Operator  string
	Argument  *Node
	Arguments []*Node
	Callee    *Node
	Object    *Node
	Property  *Node

	// Import/Export fields
	Source      *Node
	Specifiers  []*Node
	Declaration *Node
	Imported    *Node
	Local       *Node

	// JSX opening and self-closing elements
	Attributes []*Node

	Raw string // raw source text for literals
}

// NewNode creates a new AST node
func NewNode(nodeType NodeType) *Node {
	return &Node{Type: nodeType}
}

// AddChild adds a child node
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Walk traverses the AST depth-first and calls the visitor function for each node
// If the visitor returns false, traversal of that branch is stopped
func (n *Node) Walk(visitor func(*Node) bool) {
	if n == nil {
		return
	}

	if !visitor(n) {
		return
	}

	for _, list := range [][]*Node{n.Children, n.Body, n.Declarations, n.Arguments, n.Specifiers, n.Attributes} {
		for _, child := range list {
			child.Walk(visitor)
		}
	}
	for _, child := range []*Node{n.Left, n.Right, n.Argument, n.Callee, n.Object, n.Property, n.Source, n.Declaration} {
		if child != nil {
			child.Walk(visitor)
		}
	}
}

// String returns a string representation of the node
func (n *Node) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s(%s) at %s", n.Type, n.Name, n.Location)
	}
	return fmt.Sprintf("%s at %s", n.Type, n.Location)
}

// QualifiedName renders an identifier or a chain of non-computed member
// accesses ("window.localStorage.getItem"). It returns "" for anything else.
func (n *Node) QualifiedName() string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case NodeIdentifier:
		return n.Name
	case NodeThisExpression:
		return "this"
	case NodeMemberExpression:
		object := n.Object.QualifiedName()
		if object == "" || n.Property == nil || n.Property.Type != NodeIdentifier {
			return ""
		}
		return object + "." + n.Property.Name
	}
	return ""
}

// StringValue returns the unquoted value of a string or substitution-free
// template literal, and false for any other node
func (n *Node) StringValue() (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type {
	case NodeStringLiteral, NodeTemplateLiteral:
		raw := n.Raw
		if len(raw) >= 2 {
			first, last := raw[0], raw[len(raw)-1]
			if first == last && (first == '"' || first == '\'' || first == '`') {
				inner := raw[1 : len(raw)-1]
				if first == '`' && strings.Contains(inner, "${") {
					return "", false
				}
				return inner, true
			}
		}
		return raw, true
	}
	return "", false
}

// ImportSource returns the module specifier of an import declaration, a
// re-export, a dynamic import() or a require() call
func (n *Node) ImportSource() (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type {
	case NodeImportDeclaration, NodeExportAllDeclaration, NodeExportNamedDeclaration:
		return n.Source.StringValue()
	case NodeCallExpression:
		if n.Callee == nil || n.Callee.Type != NodeIdentifier || len(n.Arguments) == 0 {
			return "", false
		}
		if n.Callee.Name != "require" && n.Callee.Name != "import" {
			return "", false
		}
		return n.Arguments[0].StringValue()
	}
	return "", false
}

// HasAttributePrefix reports whether a JSX element carries an attribute whose
// name starts with prefix
func (n *Node) HasAttributePrefix(prefix string) bool {
	for _, attr := range n.Attributes {
		if strings.HasPrefix(attr.Name, prefix) {
			return true
		}
	}
	return false
}

// IsJSXElement returns true for opening and self-closing JSX elements
func (n *Node) IsJSXElement() bool {
	return n.Type == NodeJSXOpeningElement || n.Type == NodeJSXSelfClosingElement
}
