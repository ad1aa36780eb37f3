package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// ASTBuilder builds our internal AST from tree-sitter CST
type ASTBuilder struct {
	filename string
	source   []byte
}

// NewASTBuilder creates a new AST builder
func NewASTBuilder(filename string, source []byte) *ASTBuilder {
	return &ASTBuilder{
		filename: filename,
		source:   source,
	}
}

// Build builds the AST from a tree-sitter node
func (b *ASTBuilder) Build(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}
	return b.buildNode(tsNode)
}

// buildNode converts a tree-sitter node to our internal AST node
func (b *ASTBuilder) buildNode(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}

	switch tsNode.Type() {
	case "program":
		return b.buildProgram(tsNode)
	case "function_declaration", "generator_function_declaration",
		"function_expression", "function", "generator_function":
		return b.buildNamedDeclaration(tsNode, NodeFunction)
	case "class_declaration", "abstract_class_declaration", "class":
		return b.buildNamedDeclaration(tsNode, NodeClass)
	case "interface_declaration":
		return b.buildNamedDeclaration(tsNode, NodeInterfaceDeclaration)
	case "type_alias_declaration":
		return b.buildNamedDeclaration(tsNode, NodeTypeAlias)
	case "enum_declaration":
		return b.buildNamedDeclaration(tsNode, NodeEnumDeclaration)
	case "variable_declaration", "lexical_declaration":
		return b.buildVariableDeclaration(tsNode)
	case "variable_declarator":
		return b.buildVariableDeclarator(tsNode)
	case "expression_statement":
		return b.buildExpressionStatement(tsNode)
	case "call_expression":
		return b.buildCallExpression(tsNode)
	case "new_expression":
		return b.buildNewExpression(tsNode)
	case "member_expression":
		return b.buildMemberExpression(tsNode)
	case "assignment_expression", "augmented_assignment_expression":
		return b.buildAssignmentExpression(tsNode)
	case "update_expression":
		return b.buildUpdateExpression(tsNode)
	case "identifier", "property_identifier", "shorthand_property_identifier",
		"type_identifier", "private_property_identifier":
		return b.buildIdentifier(tsNode)
	case "this":
		node := NewNode(NodeThisExpression)
		node.Location = b.getLocation(tsNode)
		return node
	case "string", "template_string", "number", "true", "false", "null":
		return b.buildLiteral(tsNode)
	case "import_statement":
		return b.buildImportStatement(tsNode)
	case "export_statement":
		return b.buildExportStatement(tsNode)
	case "statement_block":
		return b.buildBlockStatement(tsNode)
	case "jsx_opening_element":
		return b.buildJSXElement(tsNode, NodeJSXOpeningElement)
	case "jsx_self_closing_element":
		return b.buildJSXElement(tsNode, NodeJSXSelfClosingElement)
	case "jsx_element":
		node := b.buildGenericNode(tsNode)
		node.Type = NodeJSXElement
		return node
	default:
		// For unknown nodes, create a generic node and process children
		return b.buildGenericNode(tsNode)
	}
}

// buildProgram builds a program node
func (b *ASTBuilder) buildProgram(tsNode *sitter.Node) *Node {
	node := b.buildGenericNode(tsNode)
	node.Type = NodeProgram
	return node
}

// buildNamedDeclaration builds a function, class or type declaration. The
// body is kept as generic children so nested expressions stay reachable.
func (b *ASTBuilder) buildNamedDeclaration(tsNode *sitter.Node, nodeType NodeType) *Node {
	node := NewNode(nodeType)
	node.Location = b.getLocation(tsNode)

	if nameNode := b.getChildByFieldName(tsNode, "name"); nameNode != nil {
		node.Name = nameNode.Content(b.source)
	}

	if bodyNode := b.getChildByFieldName(tsNode, "body"); bodyNode != nil {
		node.Body = append(node.Body, b.buildNode(bodyNode))
	}
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		field := tsNode.FieldNameForChild(i)
		if child == nil || b.isTrivia(child) || field == "name" || field == "body" {
			continue
		}
		if child.IsNamed() {
			node.AddChild(b.buildNode(child))
		}
	}

	return node
}

// buildVariableDeclaration builds a variable declaration node
func (b *ASTBuilder) buildVariableDeclaration(tsNode *sitter.Node) *Node {
	node := NewNode(NodeVariableDeclaration)
	node.Location = b.getLocation(tsNode)

	if tsNode.ChildCount() > 0 {
		node.Operator = tsNode.Child(0).Content(b.source) // var, let, const
	}

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && child.Type() == "variable_declarator" {
			node.Declarations = append(node.Declarations, b.buildNode(child))
		}
	}

	return node
}

// buildVariableDeclarator builds a declarator; destructuring patterns leave Name empty
func (b *ASTBuilder) buildVariableDeclarator(tsNode *sitter.Node) *Node {
	node := NewNode(NodeVariableDeclarator)
	node.Location = b.getLocation(tsNode)

	if nameNode := b.getChildByFieldName(tsNode, "name"); nameNode != nil {
		if nameNode.Type() == "identifier" {
			node.Name = nameNode.Content(b.source)
		} else {
			node.Left = b.buildNode(nameNode)
		}
	}
	if valueNode := b.getChildByFieldName(tsNode, "value"); valueNode != nil {
		node.Right = b.buildNode(valueNode)
	}

	return node
}

// buildExpressionStatement returns the wrapped expression
func (b *ASTBuilder) buildExpressionStatement(tsNode *sitter.Node) *Node {
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && !b.isTrivia(child) && child.Type() != ";" {
			return b.buildNode(child)
		}
	}

	node := NewNode(NodeBlockStatement)
	node.Location = b.getLocation(tsNode)
	return node
}

// buildCallExpression builds a call expression node
func (b *ASTBuilder) buildCallExpression(tsNode *sitter.Node) *Node {
	node := NewNode(NodeCallExpression)
	node.Location = b.getLocation(tsNode)

	if funcNode := b.getChildByFieldName(tsNode, "function"); funcNode != nil {
		if funcNode.Type() == "import" {
			// dynamic import(): the callee is a keyword, not an identifier
			node.Callee = NewNode(NodeIdentifier)
			node.Callee.Name = "import"
			node.Callee.Location = b.getLocation(funcNode)
		} else {
			node.Callee = b.buildNode(funcNode)
		}
	}

	if argsNode := b.getChildByFieldName(tsNode, "arguments"); argsNode != nil {
		node.Arguments = b.buildArguments(argsNode)
	}

	return node
}

// buildNewExpression builds a constructor call; Callee is the constructor
func (b *ASTBuilder) buildNewExpression(tsNode *sitter.Node) *Node {
	node := NewNode(NodeNewExpression)
	node.Location = b.getLocation(tsNode)

	if ctorNode := b.getChildByFieldName(tsNode, "constructor"); ctorNode != nil {
		node.Callee = b.buildNode(ctorNode)
	}
	if argsNode := b.getChildByFieldName(tsNode, "arguments"); argsNode != nil {
		node.Arguments = b.buildArguments(argsNode)
	}

	return node
}

// buildMemberExpression builds a member expression node
func (b *ASTBuilder) buildMemberExpression(tsNode *sitter.Node) *Node {
	node := NewNode(NodeMemberExpression)
	node.Location = b.getLocation(tsNode)

	if objNode := b.getChildByFieldName(tsNode, "object"); objNode != nil {
		node.Object = b.buildNode(objNode)
	}
	if propNode := b.getChildByFieldName(tsNode, "property"); propNode != nil {
		node.Property = b.buildNode(propNode)
	}

	return node
}

// buildAssignmentExpression builds plain and compound assignments
func (b *ASTBuilder) buildAssignmentExpression(tsNode *sitter.Node) *Node {
	node := NewNode(NodeAssignmentExpression)
	node.Location = b.getLocation(tsNode)

	if leftNode := b.getChildByFieldName(tsNode, "left"); leftNode != nil {
		node.Left = b.buildNode(leftNode)
	}
	if opNode := b.getChildByFieldName(tsNode, "operator"); opNode != nil {
		node.Operator = opNode.Content(b.source)
	} else {
		node.Operator = "="
	}
	if rightNode := b.getChildByFieldName(tsNode, "right"); rightNode != nil {
		node.Right = b.buildNode(rightNode)
	}

	return node
}

// buildUpdateExpression builds an update expression node (++, --)
func (b *ASTBuilder) buildUpdateExpression(tsNode *sitter.Node) *Node {
	node := NewNode(NodeUpdateExpression)
	node.Location = b.getLocation(tsNode)

	if opNode := b.getChildByFieldName(tsNode, "operator"); opNode != nil {
		node.Operator = opNode.Content(b.source)
	}
	if argNode := b.getChildByFieldName(tsNode, "argument"); argNode != nil {
		node.Argument = b.buildNode(argNode)
	}

	return node
}

// buildIdentifier builds an identifier node
func (b *ASTBuilder) buildIdentifier(tsNode *sitter.Node) *Node {
	node := NewNode(NodeIdentifier)
	node.Location = b.getLocation(tsNode)
	node.Name = tsNode.Content(b.source)
	return node
}

// buildLiteral builds a literal node
func (b *ASTBuilder) buildLiteral(tsNode *sitter.Node) *Node {
	var node *Node
	switch tsNode.Type() {
	case "string":
		node = NewNode(NodeStringLiteral)
	case "template_string":
		// substitutions may hold calls, keep them reachable
		node = b.buildGenericNode(tsNode)
		node.Type = NodeTemplateLiteral
	case "number":
		node = NewNode(NodeNumberLiteral)
	case "true", "false":
		node = NewNode(NodeBooleanLiteral)
	default:
		node = NewNode(NodeNullLiteral)
	}
	node.Location = b.getLocation(tsNode)
	node.Raw = tsNode.Content(b.source)
	return node
}

// buildImportStatement builds an import statement node
func (b *ASTBuilder) buildImportStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeImportDeclaration)
	node.Location = b.getLocation(tsNode)

	if sourceNode := b.getChildByFieldName(tsNode, "source"); sourceNode != nil {
		node.Source = b.buildNode(sourceNode)
	}

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && child.Type() == "import_clause" {
			b.extractImportClause(child, node)
		}
	}

	return node
}

// extractImportClause extracts specifiers from an import_clause node
func (b *ASTBuilder) extractImportClause(clauseNode *sitter.Node, node *Node) {
	for i := 0; i < int(clauseNode.ChildCount()); i++ {
		child := clauseNode.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "identifier":
			// import React from 'react'
			spec := NewNode(NodeImportDefaultSpecifier)
			spec.Location = b.getLocation(child)
			spec.Name = child.Content(b.source)
			node.Specifiers = append(node.Specifiers, spec)

		case "namespace_import":
			// import * as React from 'react'
			spec := NewNode(NodeImportNamespaceSpecifier)
			spec.Location = b.getLocation(child)
			for j := 0; j < int(child.ChildCount()); j++ {
				if grandchild := child.Child(j); grandchild != nil && grandchild.Type() == "identifier" {
					spec.Name = grandchild.Content(b.source)
				}
			}
			node.Specifiers = append(node.Specifiers, spec)

		case "named_imports":
			// import { useState, useEffect as effect } from 'react'
			for j := 0; j < int(child.ChildCount()); j++ {
				importSpec := child.Child(j)
				if importSpec != nil && importSpec.Type() == "import_specifier" {
					node.Specifiers = append(node.Specifiers, b.buildSpecifier(importSpec, NodeImportSpecifier))
				}
			}
		}
	}
}

// buildSpecifier builds an import or export specifier. For imports Imported
// holds the original name; for exports Local does. Name is always the name
// visible on the far side of the "as".
func (b *ASTBuilder) buildSpecifier(tsNode *sitter.Node, nodeType NodeType) *Node {
	spec := NewNode(nodeType)
	spec.Location = b.getLocation(tsNode)

	var names []string
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "string", "default":
			names = append(names, child.Content(b.source))
		}
	}
	if len(names) == 0 {
		return spec
	}

	original := NewNode(NodeIdentifier)
	original.Name = names[0]
	spec.Name = names[len(names)-1]
	if nodeType == NodeImportSpecifier {
		spec.Imported = original
	} else {
		spec.Local = original
	}
	return spec
}

// buildExportStatement builds an export statement node
func (b *ASTBuilder) buildExportStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeExportNamedDeclaration)
	node.Location = b.getLocation(tsNode)

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "default":
			node.Type = NodeExportDefaultDeclaration
		case "*":
			node.Type = NodeExportAllDeclaration
		case "namespace_export":
			// export * as ns from 'mod'
			node.Type = NodeExportAllDeclaration
			for j := 0; j < int(child.ChildCount()); j++ {
				if grandchild := child.Child(j); grandchild != nil && grandchild.Type() == "identifier" {
					node.Name = grandchild.Content(b.source)
				}
			}
		case "export_clause":
			for j := 0; j < int(child.ChildCount()); j++ {
				exportSpec := child.Child(j)
				if exportSpec != nil && exportSpec.Type() == "export_specifier" {
					node.Specifiers = append(node.Specifiers, b.buildSpecifier(exportSpec, NodeExportSpecifier))
				}
			}
		}
	}

	if declNode := b.getChildByFieldName(tsNode, "declaration"); declNode != nil {
		node.Declaration = b.buildNode(declNode)
	}
	if valueNode := b.getChildByFieldName(tsNode, "value"); valueNode != nil {
		node.Declaration = b.buildNode(valueNode)
	}
	if sourceNode := b.getChildByFieldName(tsNode, "source"); sourceNode != nil {
		node.Source = b.buildNode(sourceNode)
	}

	return node
}

// buildJSXElement builds an opening or self-closing element with its attributes
func (b *ASTBuilder) buildJSXElement(tsNode *sitter.Node, nodeType NodeType) *Node {
	node := NewNode(nodeType)
	node.Location = b.getLocation(tsNode)

	nameNode := b.getChildByFieldName(tsNode, "name")
	if nameNode != nil {
		node.Name = nameNode.Content(b.source)
	}

	// a nested element's range can start in the whitespace before its "<"
	if open := b.firstChildOfType(tsNode, "<"); open != nil {
		start := b.getLocation(open)
		node.Location.StartLine, node.Location.StartCol = start.StartLine, start.StartCol
	} else if nameNode != nil {
		start := b.getLocation(nameNode)
		node.Location.StartLine, node.Location.StartCol = start.StartLine, start.StartCol-1
	}

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil || !child.IsNamed() || tsNode.FieldNameForChild(i) == "name" {
			continue
		}
		if child.Type() == "jsx_attribute" {
			node.Attributes = append(node.Attributes, b.buildJSXAttribute(child))
			continue
		}
		// spread attributes and type arguments
		node.AddChild(b.buildNode(child))
	}

	return node
}

// buildJSXAttribute builds an attribute; its value expression becomes a child
func (b *ASTBuilder) buildJSXAttribute(tsNode *sitter.Node) *Node {
	node := NewNode(NodeJSXAttribute)
	node.Location = b.getLocation(tsNode)

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil || !child.IsNamed() {
			continue
		}
		if node.Name == "" {
			node.Name = child.Content(b.source)
			continue
		}
		node.AddChild(b.buildNode(child))
	}

	return node
}

// buildBlockStatement builds a block statement node
func (b *ASTBuilder) buildBlockStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeBlockStatement)
	node.Location = b.getLocation(tsNode)

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && !b.isTrivia(child) && child.Type() != "{" && child.Type() != "}" {
			node.Body = append(node.Body, b.buildNode(child))
		}
	}

	return node
}

// buildGenericNode builds a generic node for unknown types
func (b *ASTBuilder) buildGenericNode(tsNode *sitter.Node) *Node {
	node := NewNode(NodeType(tsNode.Type()))
	node.Location = b.getLocation(tsNode)

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && !b.isTrivia(child) && child.IsNamed() {
			node.AddChild(b.buildNode(child))
		}
	}

	return node
}

// buildArguments builds an argument list, skipping punctuation
func (b *ASTBuilder) buildArguments(tsNode *sitter.Node) []*Node {
	var args []*Node
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && !b.isTrivia(child) && child.IsNamed() {
			args = append(args, b.buildNode(child))
		}
	}
	return args
}

// Helper methods

// getLocation extracts 1-based location information from a tree-sitter node
func (b *ASTBuilder) getLocation(tsNode *sitter.Node) Location {
	return Location{
		File:      b.filename,
		StartLine: int(tsNode.StartPoint().Row) + 1,
		StartCol:  int(tsNode.StartPoint().Column) + 1,
		EndLine:   int(tsNode.EndPoint().Row) + 1,
		EndCol:    int(tsNode.EndPoint().Column) + 1,
	}
}

// firstChildOfType returns the first direct child with the given node type
func (b *ASTBuilder) firstChildOfType(tsNode *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		if child := tsNode.Child(i); child != nil && child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// getChildByFieldName gets a child node by field name
func (b *ASTBuilder) getChildByFieldName(tsNode *sitter.Node, fieldName string) *sitter.Node {
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && tsNode.FieldNameForChild(i) == fieldName {
			return child
		}
	}
	return nil
}

// isTrivia checks if a node is trivia (whitespace, comments, etc.)
func (b *ASTBuilder) isTrivia(tsNode *sitter.Node) bool {
	nodeType := tsNode.Type()
	return nodeType == "comment" ||
		nodeType == "line_comment" ||
		nodeType == "block_comment" ||
		nodeType == ""
}
