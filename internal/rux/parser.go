package rux

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	identifierRe  = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	dottedPathRe  = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)
	typeNameRe    = dottedPathRe
	comparisonOps = map[TokenKind]string{
		TokenGT: ">", TokenLT: "<", TokenGE: ">=", TokenLE: "<=", TokenEQ: "==",
	}
)

// ParseError is the structured failure of the strict parser
type ParseError struct {
	Message  string
	Pos      Position
	Found    string
	Expected []string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message))
	if e.Found != "" || len(e.Expected) > 0 {
		sb.WriteString(" (")
		if len(e.Expected) > 0 {
			sb.WriteString("expected ")
			sb.WriteString(strings.Join(e.Expected, ", "))
		}
		if e.Found != "" {
			if len(e.Expected) > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString("found ")
			sb.WriteString(e.Found)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// Parse parses specification text into a Module. On failure the returned
// error is a *ParseError describing the first problem encountered.
func Parse(src string) (*Module, error) {
	p := &parser{tokens: Tokenize(src)}
	mod, err := p.parseModule()
	if err != nil {
		return nil, err
	}
	return mod, nil
}

type parser struct {
	tokens []Token
	pos    int
	last   Token
}

// peekAt returns the k-th upcoming non-comment token without consuming
func (p *parser) peekAt(k int) Token {
	i := p.pos
	for {
		if i >= len(p.tokens) {
			return p.tokens[len(p.tokens)-1]
		}
		if p.tokens[i].Kind == TokenComment {
			i++
			continue
		}
		if k == 0 {
			return p.tokens[i]
		}
		k--
		i++
	}
}

func (p *parser) peek() Token {
	return p.peekAt(0)
}

// next consumes and returns the next non-comment token
func (p *parser) next() Token {
	for p.pos < len(p.tokens) && p.tokens[p.pos].Kind == TokenComment {
		p.pos++
	}
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	tok := p.tokens[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	p.last = tok
	return tok
}

// trailingComment consumes a // comment on the same line as the last token
func (p *parser) trailingComment() (string, bool) {
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.Kind == TokenComment && tok.Pos.Line == p.last.Pos.Line {
			p.pos++
			return tok.Text, true
		}
	}
	return "", false
}

func (p *parser) isWord(tok Token, words ...string) bool {
	if tok.Kind != TokenWord {
		return false
	}
	for _, w := range words {
		if tok.Text == w {
			return true
		}
	}
	return false
}

func (p *parser) errorf(tok Token, expected []string, format string, args ...any) *ParseError {
	if tok.Kind == TokenIllegal && tok.Text == "unterminated string" {
		format = "unterminated string literal"
		args = nil
	}
	return &ParseError{
		Message:  fmt.Sprintf(format, args...),
		Pos:      tok.Pos,
		Found:    tok.describe(),
		Expected: expected,
	}
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, p.errorf(tok, []string{kind.String()}, "unexpected %s", tok.Kind)
	}
	return p.next(), nil
}

func (p *parser) expectWord(word string) (Token, error) {
	tok := p.peek()
	if !p.isWord(tok, word) {
		return tok, p.errorf(tok, []string{strconv.Quote(word)}, "expected %q", word)
	}
	return p.next(), nil
}

func (p *parser) expectIdentifier(what string) (Token, error) {
	tok := p.peek()
	if tok.Kind == TokenString {
		return tok, p.errorf(tok, []string{"identifier"}, "%s must not be quoted", what)
	}
	if tok.Kind != TokenWord || !identifierRe.MatchString(tok.Text) {
		return tok, p.errorf(tok, []string{"identifier"}, "invalid %s", what)
	}
	return p.next(), nil
}

// annotation consumes an annotation token; its text must not be quoted
func (p *parser) annotation() (string, error) {
	tok := p.peek()
	if strings.HasPrefix(tok.Text, `"`) || strings.HasPrefix(tok.Text, "'") {
		return "", p.errorf(tok, []string{"unquoted text"}, "annotations must not be quoted")
	}
	return p.next().Text, nil
}

func (p *parser) parseModule() (*Module, error) {
	mod := &Module{}
	for p.peek().Kind == TokenAnnotation {
		text, err := p.annotation()
		if err != nil {
			return nil, err
		}
		mod.Annotations = append(mod.Annotations, text)
	}

	kw, err := p.expectWord("module")
	if err != nil {
		return nil, err
	}
	mod.Pos = kw.Pos

	name, err := p.expectIdentifier("module name")
	if err != nil {
		return nil, err
	}
	mod.Name = name.Text

	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for {
		tok := p.peek()
		switch {
		case tok.Kind == TokenRBrace:
			p.next()
			if end := p.peek(); end.Kind != TokenEOF {
				return nil, p.errorf(end, []string{"end of input"}, "unexpected content after module")
			}
			return mod, nil
		case tok.Kind == TokenAnnotation:
			text, err := p.annotation()
			if err != nil {
				return nil, err
			}
			mod.Annotations = append(mod.Annotations, text)
		case p.isWord(tok, "type", "location", "version") && p.peekAt(1).Kind == TokenColon:
			if seen[tok.Text] {
				return nil, p.errorf(tok, nil, "duplicate %s declaration", tok.Text)
			}
			seen[tok.Text] = true
			if err := p.parseDeclaration(mod); err != nil {
				return nil, err
			}
		case p.isWord(tok, "interface", "state", "imports", "constraints"):
			if seen[tok.Text] {
				return nil, p.errorf(tok, nil, "duplicate %s block", tok.Text)
			}
			seen[tok.Text] = true
			if err := p.parseBlock(mod, tok.Text); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf(tok, []string{
				"annotation", `"type:"`, `"location:"`, `"version:"`,
				`"interface"`, `"state"`, `"imports"`, `"constraints"`, `"}"`,
			}, "unexpected %s in module body", tok.Kind)
		}
	}
}

func (p *parser) parseDeclaration(mod *Module) error {
	key := p.next()
	p.next() // ':'
	val := p.peek()
	if val.Kind != TokenString {
		return p.errorf(val, []string{"string"}, "%s value must be quoted", key.Text)
	}
	p.next()

	switch key.Text {
	case "type":
		mt := ModuleType(val.Text)
		if !mt.IsValid() {
			names := make([]string, len(ModuleTypes))
			for i, t := range ModuleTypes {
				names[i] = strconv.Quote(string(t))
			}
			return p.errorf(val, names, "invalid module type %q", val.Text)
		}
		mod.Type = mt
	case "location":
		mod.Location = val.Text
	case "version":
		mod.Version = val.Text
	}
	return nil
}

func (p *parser) parseBlock(mod *Module, kind string) error {
	kw := p.next()
	if _, err := p.expect(TokenLBrace); err != nil {
		return err
	}
	var err error
	switch kind {
	case "interface":
		mod.Interface, err = p.parseInterface(kw.Pos)
	case "state":
		mod.State, err = p.parseState(kw.Pos)
	case "imports":
		mod.Imports, err = p.parseImports(kw.Pos)
	case "constraints":
		mod.Constraints, err = p.parseConstraints(kw.Pos)
	}
	return err
}

// modifier reports whether tok is one of words used as a modifier, i.e.
// followed by another word rather than a ':'
func (p *parser) modifier(k int, words ...string) bool {
	tok := p.peekAt(k)
	return p.isWord(tok, words...) && p.peekAt(k+1).Kind == TokenWord
}

func (p *parser) parseInterface(pos Position) (*InterfaceBlock, error) {
	block := &InterfaceBlock{Pos: pos}
	for {
		tok := p.peek()
		if tok.Kind == TokenRBrace {
			p.next()
			return block, nil
		}
		if tok.Kind == TokenAnnotation {
			text, err := p.annotation()
			if err != nil {
				return nil, err
			}
			block.Annotations = append(block.Annotations, text)
			continue
		}
		if tok.Kind != TokenWord {
			return nil, p.errorf(tok, []string{"annotation", `"function"`, "property", `"type"`, `"}"`},
				"unexpected %s in interface block", tok.Kind)
		}

		member := Member{Visibility: VisibilityPublic, Pos: tok.Pos}
		if p.modifier(0, "public", "private", "protected") {
			member.Visibility = Visibility(p.next().Text)
		}

		switch {
		case p.isWord(p.peek(), "function") && p.peekAt(1).Kind == TokenWord:
			p.next()
			name, err := p.expectIdentifier("function name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenLParen); err != nil {
				return nil, err
			}
			if tok := p.peek(); tok.Kind != TokenRParen {
				return nil, p.errorf(tok, []string{`")"`}, "interface functions cannot declare parameters")
			}
			p.next()
			if _, err := p.expect(TokenArrow); err != nil {
				return nil, err
			}
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			member.Kind = MemberFunction
			member.Name = name.Text
			member.Type = typ
		case p.isWord(p.peek(), "type") && p.peekAt(1).Kind == TokenWord:
			p.next()
			name, err := p.expectIdentifier("type name")
			if err != nil {
				return nil, err
			}
			member.Kind = MemberType
			member.Name = name.Text
		default:
			if p.modifier(0, "readonly") {
				p.next()
				member.Readonly = true
			}
			name, err := p.expectIdentifier("property name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenColon); err != nil {
				return nil, err
			}
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			member.Kind = MemberProperty
			member.Name = name.Text
			member.Type = typ
		}
		block.Members = append(block.Members, member)
	}
}

func (p *parser) parseType() (string, error) {
	tok := p.peek()
	if tok.Kind == TokenString {
		return "", p.errorf(tok, []string{"type name"}, "types must not be quoted")
	}
	if tok.Kind != TokenWord || !typeNameRe.MatchString(tok.Text) {
		return "", p.errorf(tok, []string{"type name"}, "invalid type")
	}
	p.next()
	typ := tok.Text
	for p.peek().Kind == TokenLBracket {
		p.next()
		if _, err := p.expect(TokenRBracket); err != nil {
			return "", err
		}
		typ += "[]"
	}
	if p.peek().Kind == TokenQuestion {
		p.next()
		typ += "?"
	}
	switch next := p.peek(); next.Kind {
	case TokenLT:
		return "", p.errorf(next, nil, "generic types are not supported")
	case TokenPipe:
		return "", p.errorf(next, nil, "union types are not supported")
	}
	return typ, nil
}

func (p *parser) parseState(pos Position) (*StateBlock, error) {
	block := &StateBlock{Pos: pos}
	for {
		tok := p.peek()
		if tok.Kind == TokenRBrace {
			p.next()
			return block, nil
		}
		if tok.Kind == TokenAnnotation {
			text, err := p.annotation()
			if err != nil {
				return nil, err
			}
			block.Annotations = append(block.Annotations, text)
			continue
		}
		if tok.Kind != TokenWord {
			return nil, p.errorf(tok, []string{"annotation", "state property", `"}"`},
				"unexpected %s in state block", tok.Kind)
		}

		prop := StateProperty{Visibility: VisibilityPrivate, Pos: tok.Pos}
		if p.modifier(0, "public") {
			return nil, p.errorf(tok, []string{`"private"`, `"protected"`}, "state properties cannot be public")
		}
		if p.modifier(0, "private", "protected") {
			prop.Visibility = Visibility(p.next().Text)
		}
		if p.modifier(0, "static") {
			p.next()
			prop.Static = true
		}
		if p.modifier(0, "readonly") {
			p.next()
			prop.Readonly = true
		}

		name, err := p.expectIdentifier("state property name")
		if err != nil {
			return nil, err
		}
		prop.Name = name.Text
		if tok := p.peek(); tok.Kind != TokenColon {
			return nil, p.errorf(tok, []string{`":"`}, "state property %q is missing a type", prop.Name)
		}
		p.next()
		if prop.Type, err = p.parseType(); err != nil {
			return nil, err
		}

		if p.peek().Kind == TokenAssign {
			p.next()
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			prop.Initializer = lit
		}
		block.Properties = append(block.Properties, prop)
	}
}

func (p *parser) parseLiteral() (*Literal, error) {
	tok := p.peek()
	switch {
	case tok.Kind == TokenString:
		p.next()
		return &Literal{Kind: LiteralString, Value: tok.Text}, nil
	case tok.Kind == TokenNumber:
		p.next()
		return &Literal{Kind: LiteralNumber, Value: tok.Text}, nil
	case p.isWord(tok, "true", "false"):
		p.next()
		return &Literal{Kind: LiteralBoolean, Value: tok.Text}, nil
	case p.isWord(tok, "null"):
		p.next()
		return &Literal{Kind: LiteralNull, Value: tok.Text}, nil
	case p.isWord(tok, "undefined"):
		p.next()
		return &Literal{Kind: LiteralUndefined, Value: tok.Text}, nil
	}
	return nil, p.errorf(tok, []string{"string", "number", "boolean", `"null"`, `"undefined"`},
		"state initializers must be literal values")
}

func (p *parser) parseImports(pos Position) (*ImportsBlock, error) {
	block := &ImportsBlock{Pos: pos}
	for {
		tok := p.peek()
		switch {
		case tok.Kind == TokenRBrace:
			p.next()
			return block, nil
		case p.isWord(tok, "allow"):
			rule, err := p.parseAllow()
			if err != nil {
				return nil, err
			}
			block.Rules = append(block.Rules, *rule)
		case p.isWord(tok, "deny"):
			p.next()
			if _, err := p.expectWord("imports"); err != nil {
				return nil, err
			}
			patterns, err := p.parsePatternList()
			if err != nil {
				return nil, err
			}
			exceptions, err := p.parseExcept()
			if err != nil {
				return nil, err
			}
			block.Rules = append(block.Rules, ImportRule{
				Kind: ImportDeny, Patterns: patterns, Exceptions: exceptions, Pos: tok.Pos,
			})
		default:
			return nil, p.errorf(tok, []string{`"allow"`, `"deny"`, `"}"`}, "unexpected %s in imports block", tok.Kind)
		}
	}
}

func (p *parser) parseAllow() (*ImportRule, error) {
	kw := p.next()
	rule := &ImportRule{Kind: ImportAllow, Pos: kw.Pos}

	path := p.peek()
	switch {
	case path.Kind == TokenString:
		rule.Path = path.Text
	case path.Kind == TokenWord && dottedPathRe.MatchString(path.Text):
		rule.Path = path.Text
	default:
		return nil, p.errorf(path, []string{"string"}, "import path must be quoted")
	}
	p.next()

	if p.isWord(p.peek(), "as") {
		p.next()
		alias, err := p.parseAlias()
		if err != nil {
			return nil, err
		}
		rule.Alias = alias
	}

	exceptions, err := p.parseExcept()
	if err != nil {
		return nil, err
	}
	rule.Exceptions = exceptions
	return rule, nil
}

func (p *parser) parseAlias() (*Alias, error) {
	tok := p.peek()
	switch {
	case p.isWord(tok, "external"):
		p.next()
		return &Alias{Kind: AliasExternal}, nil
	case tok.Kind == TokenString && tok.Text == "external":
		return nil, p.errorf(tok, []string{`external`}, "the external alias must not be quoted")
	case tok.Kind == TokenLBrace:
		p.next()
		alias := &Alias{Kind: AliasNamed}
		for {
			name, err := p.expectIdentifier("import name")
			if err != nil {
				return nil, err
			}
			alias.Names = append(alias.Names, name.Text)
			if p.peek().Kind != TokenComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(TokenRBrace); err != nil {
			return nil, err
		}
		return alias, nil
	}
	name, err := p.expectIdentifier("import alias")
	if err != nil {
		return nil, err
	}
	return &Alias{Kind: AliasDefault, Names: []string{name.Text}}, nil
}

// parseExcept parses an optional `except: [...]` clause
func (p *parser) parseExcept() ([]string, error) {
	if !p.isWord(p.peek(), "except") || p.peekAt(1).Kind != TokenColon {
		return nil, nil
	}
	p.next()
	p.next()
	return p.parsePatternList()
}

func (p *parser) parsePatternList() ([]string, error) {
	if _, err := p.expect(TokenLBracket); err != nil {
		return nil, err
	}
	patterns := []string{}
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenRBracket:
			p.next()
			return patterns, nil
		case TokenString:
			p.next()
			patterns = append(patterns, tok.Text)
		case TokenWord, TokenNumber:
			return nil, p.errorf(tok, []string{"string"}, "array items must be quoted")
		default:
			return nil, p.errorf(tok, []string{"string", `"]"`}, "unexpected %s in array", tok.Kind)
		}
		if p.peek().Kind == TokenComma {
			p.next()
			continue
		}
		if end := p.peek(); end.Kind != TokenRBracket {
			return nil, p.errorf(end, []string{`","`, `"]"`}, "unexpected %s in array", end.Kind)
		}
	}
}

func (p *parser) parseConstraints(pos Position) (*ConstraintsBlock, error) {
	block := &ConstraintsBlock{Pos: pos}
	for {
		tok := p.peek()
		switch {
		case tok.Kind == TokenRBrace:
			p.next()
			return block, nil
		case tok.Kind == TokenAnnotation:
			text, err := p.annotation()
			if err != nil {
				return nil, err
			}
			block.Annotations = append(block.Annotations, text)
		case p.isWord(tok, "require", "deny", "warn"):
			rule, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			block.Rules = append(block.Rules, *rule)
		case p.isWord(tok, "allow"):
			return nil, p.errorf(tok, []string{`"require"`, `"deny"`, `"warn"`},
				"allow rules are not valid in a constraints block")
		case p.isWord(tok, "when"):
			return nil, p.errorf(tok, nil, "conditional when clauses are not supported")
		default:
			return nil, p.errorf(tok, []string{"annotation", `"require"`, `"deny"`, `"warn"`, `"}"`},
				"unexpected %s in constraints block", tok.Kind)
		}
	}
}

func (p *parser) parseConstraint() (*ConstraintRule, error) {
	kw := p.next()
	rule := &ConstraintRule{Kind: RuleKind(kw.Text), Target: TargetPattern, Pos: kw.Pos}

	if rule.Kind == RuleDeny && p.isWord(p.peek(), "imports", "exports") && p.peekAt(1).Kind == TokenLBracket {
		rule.Target = Target(p.next().Text)
		patterns, err := p.parsePatternList()
		if err != nil {
			return nil, err
		}
		rule.Patterns = patterns
	} else {
		tok := p.peek()
		if tok.Kind == TokenString {
			return nil, p.errorf(tok, []string{"pattern"}, "constraint patterns must not be quoted")
		}
		if tok.Kind != TokenWord {
			return nil, p.errorf(tok, []string{"pattern"}, "unexpected %s after %s", tok.Kind, kw.Text)
		}
		rule.Pattern = p.next().Text

		if op, ok := comparisonOps[p.peek().Kind]; ok {
			p.next()
			num := p.peek()
			if num.Kind != TokenNumber {
				return nil, p.errorf(num, []string{"number"}, "comparison value must be a number")
			}
			p.next()
			value, err := strconv.ParseFloat(num.Text, 64)
			if err != nil {
				return nil, p.errorf(num, []string{"number"}, "invalid number %q", num.Text)
			}
			rule.Comparison = &Comparison{Operator: op, Value: value}
		}
	}

	if comment, ok := p.trailingComment(); ok {
		rule.Comment = comment
	}
	exceptions, err := p.parseExcept()
	if err != nil {
		return nil, err
	}
	rule.Exceptions = exceptions
	if rule.Comment == "" && exceptions != nil {
		if comment, ok := p.trailingComment(); ok {
			rule.Comment = comment
		}
	}
	return rule, nil
}
