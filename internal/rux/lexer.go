package rux

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TokenKind classifies lexical tokens
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIllegal
	TokenWord
	TokenString
	TokenNumber
	TokenAnnotation
	TokenComment
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenLParen
	TokenRParen
	TokenComma
	TokenColon
	TokenAssign
	TokenArrow
	TokenPipe
	TokenQuestion
	TokenLT
	TokenGT
	TokenLE
	TokenGE
	TokenEQ
)

var tokenNames = map[TokenKind]string{
	TokenEOF:        "end of input",
	TokenIllegal:    "illegal character",
	TokenWord:       "identifier",
	TokenString:     "string",
	TokenNumber:     "number",
	TokenAnnotation: "annotation",
	TokenComment:    "comment",
	TokenLBrace:     `"{"`,
	TokenRBrace:     `"}"`,
	TokenLBracket:   `"["`,
	TokenRBracket:   `"]"`,
	TokenLParen:     `"("`,
	TokenRParen:     `")"`,
	TokenComma:      `","`,
	TokenColon:      `":"`,
	TokenAssign:     `"="`,
	TokenArrow:      `"->"`,
	TokenPipe:       `"|"`,
	TokenQuestion:   `"?"`,
	TokenLT:         `"<"`,
	TokenGT:         `">"`,
	TokenLE:         `"<="`,
	TokenGE:         `">="`,
	TokenEQ:         `"=="`,
}

// String returns a human readable token kind
func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Token is one lexical unit. Text holds the decoded value for strings and the
// trimmed body for annotations and comments; Raw is the source slice.
type Token struct {
	Kind TokenKind
	Text string
	Raw  string
	Pos  Position
}

// describe renders a token for "found" messages
func (t Token) describe() string {
	switch t.Kind {
	case TokenEOF:
		return "end of input"
	case TokenAnnotation:
		return "@" + t.Text
	default:
		return strconv.Quote(t.Raw)
	}
}

// Lexer splits specification text into tokens
type Lexer struct {
	src  string
	off  int
	line int
	col  int
}

// NewLexer creates a lexer over src
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Tokenize returns every token including comments, terminated by TokenEOF
func Tokenize(src string) []Token {
	lx := NewLexer(src)
	var tokens []Token
	for {
		tok := lx.Next()
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens
		}
	}
}

func (lx *Lexer) peekRune(offset int) rune {
	i := lx.off
	for n := 0; n < offset; n++ {
		if i >= len(lx.src) {
			return 0
		}
		_, size := utf8.DecodeRuneInString(lx.src[i:])
		i += size
	}
	if i >= len(lx.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(lx.src[i:])
	return r
}

func (lx *Lexer) advance() rune {
	if lx.off >= len(lx.src) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(lx.src[lx.off:])
	lx.off += size
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

func (lx *Lexer) skipSpaceAndBlockComments() {
	for lx.off < len(lx.src) {
		r := lx.peekRune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\uFEFF':
			lx.advance()
		case r == '/' && lx.peekRune(1) == '*':
			lx.advance()
			lx.advance()
			for lx.off < len(lx.src) && !(lx.peekRune(0) == '*' && lx.peekRune(1) == '/') {
				lx.advance()
			}
			lx.advance()
			lx.advance()
		default:
			return
		}
	}
}

// Next returns the next token
func (lx *Lexer) Next() Token {
	lx.skipSpaceAndBlockComments()
	pos := Position{Line: lx.line, Column: lx.col}
	start := lx.off
	if lx.off >= len(lx.src) {
		return Token{Kind: TokenEOF, Pos: pos}
	}

	r := lx.peekRune(0)
	emit := func(kind TokenKind) Token {
		raw := lx.src[start:lx.off]
		return Token{Kind: kind, Text: raw, Raw: raw, Pos: pos}
	}

	switch {
	case r == '@':
		lx.advance()
		lx.readLine()
		raw := lx.src[start:lx.off]
		return Token{Kind: TokenAnnotation, Text: strings.TrimSpace(raw[1:]), Raw: raw, Pos: pos}
	case r == '/' && lx.peekRune(1) == '/':
		lx.readLine()
		raw := lx.src[start:lx.off]
		return Token{Kind: TokenComment, Text: strings.TrimSpace(raw[2:]), Raw: raw, Pos: pos}
	case r == '"' || r == '\'':
		return lx.readString(r, pos)
	case isDigit(r) || (r == '-' && isDigit(lx.peekRune(1))):
		lx.advance()
		for isDigit(lx.peekRune(0)) {
			lx.advance()
		}
		if lx.peekRune(0) == '.' && isDigit(lx.peekRune(1)) {
			lx.advance()
			for isDigit(lx.peekRune(0)) {
				lx.advance()
			}
		}
		return emit(TokenNumber)
	case isWordStart(r):
		lx.advance()
		for {
			next := lx.peekRune(0)
			if isWordPart(next) || (next == '-' && lx.peekRune(1) != '>' && isWordPart(lx.peekRune(1))) {
				lx.advance()
				continue
			}
			break
		}
		return emit(TokenWord)
	}

	lx.advance()
	switch r {
	case '{':
		return emit(TokenLBrace)
	case '}':
		return emit(TokenRBrace)
	case '[':
		return emit(TokenLBracket)
	case ']':
		return emit(TokenRBracket)
	case '(':
		return emit(TokenLParen)
	case ')':
		return emit(TokenRParen)
	case ',':
		return emit(TokenComma)
	case ':':
		return emit(TokenColon)
	case '|':
		return emit(TokenPipe)
	case '?':
		return emit(TokenQuestion)
	case '-':
		if lx.peekRune(0) == '>' {
			lx.advance()
			return emit(TokenArrow)
		}
	case '=':
		if lx.peekRune(0) == '=' {
			lx.advance()
			return emit(TokenEQ)
		}
		return emit(TokenAssign)
	case '<':
		if lx.peekRune(0) == '=' {
			lx.advance()
			return emit(TokenLE)
		}
		return emit(TokenLT)
	case '>':
		if lx.peekRune(0) == '=' {
			lx.advance()
			return emit(TokenGE)
		}
		return emit(TokenGT)
	}
	return emit(TokenIllegal)
}

func (lx *Lexer) readLine() {
	for lx.off < len(lx.src) && lx.peekRune(0) != '\n' {
		lx.advance()
	}
}

func (lx *Lexer) readString(quote rune, pos Position) Token {
	start := lx.off
	lx.advance()
	var sb strings.Builder
	for {
		if lx.off >= len(lx.src) || lx.peekRune(0) == '\n' {
			raw := lx.src[start:lx.off]
			return Token{Kind: TokenIllegal, Text: "unterminated string", Raw: raw, Pos: pos}
		}
		r := lx.advance()
		if r == quote {
			break
		}
		if r == '\\' && lx.off < len(lx.src) {
			esc := lx.advance()
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(r)
	}
	return Token{Kind: TokenString, Text: sb.String(), Raw: lx.src[start:lx.off], Pos: pos}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isWordStart(r rune) bool {
	return r == '_' || r == '$' || r == '*' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isWordPart(r rune) bool {
	return isWordStart(r) || isDigit(r) || r == '.'
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
