package rux

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Block names tracked by the line scanner
const (
	blockModule      = "module"
	blockInterface   = "interface"
	blockState       = "state"
	blockImports     = "imports"
	blockConstraints = "constraints"
)

var (
	blockOpenRe = regexp.MustCompile(`\b(module|interface|state|imports|constraints)\b[^{}"']*$`)

	quotedAnnotationRe = regexp.MustCompile(`^(\s*@\s*)(["'])([^"']*)(["']?)(.*)$`)
	unquotedDeclRe     = regexp.MustCompile(`^(\s*(type|location|version)\s*:\s*)([^"'\s].*?)\s*$`)
	quotedTypeDeclRe   = regexp.MustCompile(`^\s*type\s*:\s*["']([^"']*)["']`)
	paramFunctionRe    = regexp.MustCompile(`\bfunction\s+[A-Za-z_$][\w$]*\s*(\(\s*[^)\s][^)]*\))`)
	genericRe          = regexp.MustCompile(`[A-Za-z_$][\w$.]*\s*(<)`)
	genericArgsRe      = regexp.MustCompile(`\s*<[^<>]*>`)
	initializerRe      = regexp.MustCompile(`^([^=]*?)\s*=\s*(.*?)\s*$`)
	literalRe          = regexp.MustCompile(`^("([^"\\]|\\.)*"|'([^'\\]|\\.)*'|-?\d+(\.\d+)?|true|false|null|undefined)$`)
	allowInConstraints = regexp.MustCompile(`^\s*(allow)\b`)
	quotedExternalRe   = regexp.MustCompile(`\bas\s+((["'])external["'])`)
	arrayRe            = regexp.MustCompile(`\[([^\[\]]*)\]`)
	quotedPatternRe    = regexp.MustCompile(`^(\s*(?:require|deny|warn)\s+)((["'])([^"']*)["'])`)
	untypedStateRe     = regexp.MustCompile(`^(\s*(?:(?:private|protected|public|static|readonly)\s+)*([A-Za-z_$][\w$]*))\s*(?:=\s*(.*?))?\s*$`)
	publicStateRe      = regexp.MustCompile(`^(\s*)(public)\s+`)
	whenRe             = regexp.MustCompile(`\bwhen\b`)
	allowPathRe        = regexp.MustCompile(`^(\s*allow\s+)([^"'\s]+)`)
)

// scanLine is one line of specification text as seen by the heuristics.
// code is the line with comments removed (block comments blanked so columns
// are preserved); comment is the trailing // comment, if any.
type scanLine struct {
	num     int
	code    string
	comment string
	block   string
}

type openBrace struct {
	name   string
	line   int
	column int
}

type strayBrace struct {
	line  int
	index int
}

type scan struct {
	lines    []scanLine
	unclosed []openBrace
	stray    []strayBrace
}

func (s *scan) innermost(stack []openBrace) string {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].name != "" {
			return stack[i].name
		}
	}
	return ""
}

func scanText(src string) *scan {
	src = strings.TrimPrefix(src, "\uFEFF")
	s := &scan{}
	var stack []openBrace
	inBlock := false
	for i, raw := range strings.Split(src, "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		var code, comment string
		code, comment, inBlock = splitComment(raw, inBlock)
		s.lines = append(s.lines, scanLine{num: i + 1, code: code, comment: comment, block: s.innermost(stack)})

		if isAnnotation(code) {
			continue
		}
		var quote byte
		for j := 0; j < len(code); j++ {
			c := code[j]
			if quote != 0 {
				if c == '\\' {
					j++
				} else if c == quote {
					quote = 0
				}
				continue
			}
			switch c {
			case '"', '\'':
				quote = c
			case '{':
				stack = append(stack, openBrace{name: blockName(code[:j]), line: i + 1, column: column(code, j)})
			case '}':
				if len(stack) == 0 {
					s.stray = append(s.stray, strayBrace{line: i + 1, index: j})
					continue
				}
				stack = stack[:len(stack)-1]
			}
		}
	}
	s.unclosed = stack
	return s
}

// blockName names the block opened by a brace from the keyword before it on
// the same line, so several blocks may open on one line.
func blockName(before string) string {
	if m := blockOpenRe.FindStringSubmatch(before); m != nil {
		return m[1]
	}
	return ""
}

// splitComment separates code from comments, honouring quoted strings and
// block comments spanning lines
func splitComment(raw string, inBlock bool) (string, string, bool) {
	if !inBlock && isAnnotation(raw) {
		return raw, "", false
	}
	b := []byte(raw)
	var quote byte
	for i := 0; i < len(b); i++ {
		if inBlock {
			if b[i] == '*' && i+1 < len(b) && b[i+1] == '/' {
				b[i], b[i+1] = ' ', ' '
				i++
				inBlock = false
				continue
			}
			b[i] = ' '
			continue
		}
		if quote != 0 {
			if b[i] == '\\' {
				i++
			} else if b[i] == quote {
				quote = 0
			}
			continue
		}
		switch {
		case b[i] == '"' || b[i] == '\'':
			quote = b[i]
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '/':
			return string(b[:i]), raw[i:], false
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			b[i], b[i+1] = ' ', ' '
			i++
			inBlock = true
		}
	}
	return string(b), "", inBlock
}

func isAnnotation(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "@")
}

func column(line string, index int) int {
	if index > len(line) {
		index = len(line)
	}
	return utf8.RuneCountInString(line[:index]) + 1
}

type finding struct {
	index    int
	found    string
	message  string
	expected []string
	category Category
}

// heuristic is one recovery check. repair may be nil when the problem has no
// mechanical fix; it returns the line unchanged when nothing applies.
type heuristic struct {
	blocks      []string
	annotations bool
	detect      func(code string) []finding
	repair      func(code string) string
}

func (h heuristic) applies(l scanLine) bool {
	if isAnnotation(l.code) != h.annotations {
		return false
	}
	if len(h.blocks) == 0 {
		return true
	}
	for _, b := range h.blocks {
		if b == l.block {
			return true
		}
	}
	return false
}

var heuristics = []heuristic{
	{
		annotations: true,
		detect: func(code string) []finding {
			m := quotedAnnotationRe.FindStringSubmatchIndex(code)
			if m == nil {
				return nil
			}
			out := []finding{{
				index:    m[4],
				found:    code[m[4]:],
				message:  "annotations must not be quoted",
				expected: []string{"unquoted text"},
				category: CategoryQuoting,
			}}
			if m[8] < m[9] && strings.TrimSpace(code[m[10]:m[11]]) != "" {
				rest := code[m[10]:m[11]]
				idx := m[10] + len(rest) - len(strings.TrimLeft(rest, " \t"))
				out = append(out, finding{
					index:    idx,
					found:    strings.TrimSpace(rest),
					message:  "unexpected content after annotation",
					expected: []string{"end of line"},
					category: CategoryStructural,
				})
			}
			return out
		},
		repair: func(code string) string {
			m := quotedAnnotationRe.FindStringSubmatch(code)
			if m == nil {
				return code
			}
			fixed := m[1] + m[3]
			if rest := strings.TrimSpace(m[5]); rest != "" {
				fixed += " " + rest
			}
			return fixed
		},
	},
	{
		blocks: []string{blockModule},
		detect: func(code string) []finding {
			if m := unquotedDeclRe.FindStringSubmatchIndex(code); m != nil {
				key := code[m[4]:m[5]]
				return []finding{{
					index:    m[6],
					found:    code[m[6]:m[7]],
					message:  fmt.Sprintf("%s value must be quoted", key),
					expected: []string{"string"},
					category: CategoryQuoting,
				}}
			}
			if m := quotedTypeDeclRe.FindStringSubmatchIndex(code); m != nil {
				if value := code[m[2]:m[3]]; !ModuleType(value).IsValid() {
					return []finding{{
						index:    m[2] - 1,
						found:    value,
						message:  fmt.Sprintf("invalid module type %q", value),
						expected: moduleTypeNames(),
						category: CategoryStructural,
					}}
				}
			}
			return nil
		},
		repair: func(code string) string {
			m := unquotedDeclRe.FindStringSubmatch(code)
			if m == nil {
				return code
			}
			return m[1] + `"` + strings.ReplaceAll(m[3], `"`, `\"`) + `"`
		},
	},
	{
		blocks: []string{blockInterface},
		detect: func(code string) []finding {
			m := paramFunctionRe.FindStringSubmatchIndex(code)
			if m == nil {
				return nil
			}
			return []finding{{
				index:    m[2],
				found:    code[m[2]:m[3]],
				message:  "interface functions cannot declare parameters",
				expected: []string{"()"},
				category: CategoryUnsupported,
			}}
		},
		repair: func(code string) string {
			m := paramFunctionRe.FindStringSubmatchIndex(code)
			if m == nil {
				return code
			}
			return code[:m[2]] + "()" + code[m[3]:]
		},
	},
	{
		blocks: []string{blockInterface, blockState},
		detect: func(code string) []finding {
			typePart, _ := splitInitializer(code)
			m := genericRe.FindStringSubmatchIndex(typePart)
			if m == nil {
				return nil
			}
			return []finding{{
				index:    m[2],
				found:    "<",
				message:  "generic types are not supported",
				category: CategoryUnsupported,
			}}
		},
		repair: func(code string) string {
			typePart, init := splitInitializer(code)
			for genericArgsRe.MatchString(typePart) {
				typePart = genericArgsRe.ReplaceAllString(typePart, "")
			}
			return typePart + init
		},
	},
	{
		blocks: []string{blockState},
		detect: func(code string) []finding {
			m := initializerRe.FindStringSubmatchIndex(code)
			if m == nil || literalRe.MatchString(code[m[4]:m[5]]) {
				return nil
			}
			return []finding{{
				index:    m[4],
				found:    code[m[4]:m[5]],
				message:  "state initializers must be literal values",
				expected: []string{"string", "number", "boolean", "null", "undefined"},
				category: CategoryUnsupported,
			}}
		},
		repair: func(code string) string {
			m := initializerRe.FindStringSubmatch(code)
			if m == nil || literalRe.MatchString(m[2]) {
				return code
			}
			return m[1]
		},
	},
	{
		blocks: []string{blockInterface, blockState},
		detect: func(code string) []finding {
			typePart, _ := splitInitializer(code)
			idx := strings.Index(typePart, "|")
			if idx < 0 {
				return nil
			}
			return []finding{{
				index:    idx,
				found:    "|",
				message:  "union types are not supported",
				category: CategoryUnsupported,
			}}
		},
		repair: func(code string) string {
			typePart, init := splitInitializer(code)
			idx := strings.Index(typePart, "|")
			if idx < 0 {
				return code
			}
			return strings.TrimRight(typePart[:idx], " \t") + init
		},
	},
	{
		blocks: []string{blockConstraints},
		detect: func(code string) []finding {
			m := allowInConstraints.FindStringSubmatchIndex(code)
			if m == nil {
				return nil
			}
			return []finding{{
				index:    m[2],
				found:    "allow",
				message:  "allow rules are not valid in a constraints block",
				expected: []string{"require", "deny", "warn"},
				category: CategoryUnsupported,
			}}
		},
	},
	{
		blocks: []string{blockImports},
		detect: func(code string) []finding {
			m := quotedExternalRe.FindStringSubmatchIndex(code)
			if m == nil {
				return nil
			}
			return []finding{{
				index:    m[2],
				found:    code[m[2]:m[3]],
				message:  "the external alias must not be quoted",
				expected: []string{"external"},
				category: CategoryQuoting,
			}}
		},
		repair: func(code string) string {
			m := quotedExternalRe.FindStringSubmatchIndex(code)
			if m == nil {
				return code
			}
			return code[:m[2]] + "external" + code[m[3]:]
		},
	},
	{
		blocks: []string{blockImports},
		detect: func(code string) []finding {
			m := allowPathRe.FindStringSubmatchIndex(code)
			if m == nil || dottedPathRe.MatchString(code[m[4]:m[5]]) {
				return nil
			}
			return []finding{{
				index:    m[4],
				found:    code[m[4]:m[5]],
				message:  "import path must be quoted",
				expected: []string{"string"},
				category: CategoryQuoting,
			}}
		},
		repair: func(code string) string {
			m := allowPathRe.FindStringSubmatchIndex(code)
			if m == nil || dottedPathRe.MatchString(code[m[4]:m[5]]) {
				return code
			}
			return code[:m[4]] + `"` + code[m[4]:m[5]] + `"` + code[m[5]:]
		},
	},
	{
		blocks: []string{blockImports, blockConstraints},
		detect: func(code string) []finding {
			var out []finding
			for _, m := range arrayRe.FindAllStringSubmatchIndex(code, -1) {
				offset := m[2]
				for _, item := range strings.Split(code[m[2]:m[3]], ",") {
					trimmed := strings.TrimSpace(item)
					if trimmed != "" && trimmed[0] != '"' && trimmed[0] != '\'' {
						out = append(out, finding{
							index:    offset + strings.Index(item, trimmed),
							found:    trimmed,
							message:  "array items must be quoted",
							expected: []string{"string"},
							category: CategoryQuoting,
						})
					}
					offset += len(item) + 1
				}
			}
			return out
		},
		repair: func(code string) string {
			return arrayRe.ReplaceAllStringFunc(code, func(arr string) string {
				items := strings.Split(arr[1:len(arr)-1], ",")
				for i, item := range items {
					trimmed := strings.TrimSpace(item)
					if trimmed != "" && trimmed[0] != '"' && trimmed[0] != '\'' {
						items[i] = strings.Replace(item, trimmed, `"`+trimmed+`"`, 1)
					}
				}
				return "[" + strings.Join(items, ",") + "]"
			})
		},
	},
	{
		blocks: []string{blockConstraints},
		detect: func(code string) []finding {
			m := quotedPatternRe.FindStringSubmatchIndex(code)
			if m == nil {
				return nil
			}
			return []finding{{
				index:    m[4],
				found:    code[m[4]:m[5]],
				message:  "constraint patterns must not be quoted",
				expected: []string{"pattern"},
				category: CategoryQuoting,
			}}
		},
		repair: func(code string) string {
			m := quotedPatternRe.FindStringSubmatch(code)
			if m == nil {
				return code
			}
			return m[1] + m[4] + code[len(m[0]):]
		},
	},
	{
		blocks: []string{blockState},
		detect: func(code string) []finding {
			m := publicStateRe.FindStringSubmatchIndex(code)
			if m == nil {
				return nil
			}
			return []finding{{
				index:    m[4],
				found:    "public",
				message:  "state properties cannot be public",
				expected: []string{"private", "protected"},
				category: CategoryUnsupported,
			}}
		},
		repair: func(code string) string {
			return publicStateRe.ReplaceAllString(code, "$1")
		},
	},
	{
		blocks: []string{blockState},
		detect: func(code string) []finding {
			if strings.Contains(code, ":") {
				return nil
			}
			m := untypedStateRe.FindStringSubmatchIndex(code)
			if m == nil {
				return nil
			}
			name := code[m[4]:m[5]]
			return []finding{{
				index:    m[5],
				found:    name,
				message:  fmt.Sprintf("state property %q is missing a type", name),
				expected: []string{":"},
				category: CategoryStructural,
			}}
		},
		repair: func(code string) string {
			if strings.Contains(code, ":") {
				return code
			}
			m := untypedStateRe.FindStringSubmatchIndex(code)
			if m == nil {
				return code
			}
			return code[:m[3]] + ": any" + code[m[3]:]
		},
	},
	{
		detect: func(code string) []finding {
			loc := whenRe.FindStringIndex(code)
			if loc == nil || inString(code, loc[0]) {
				return nil
			}
			return []finding{{
				index:    loc[0],
				found:    "when",
				message:  "conditional when clauses are not supported",
				category: CategoryUnsupported,
			}}
		},
		repair: func(code string) string {
			loc := whenRe.FindStringIndex(code)
			if loc == nil || inString(code, loc[0]) || strings.TrimSpace(code[:loc[0]]) == "" {
				return code
			}
			if strings.ContainsAny(code[loc[0]:], "{}") {
				return code
			}
			return strings.TrimRight(code[:loc[0]], " \t")
		},
	},
}

// splitInitializer splits a declaration at its first '=' outside quotes
func splitInitializer(code string) (string, string) {
	var quote byte
	for i := 0; i < len(code); i++ {
		c := code[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '=':
			return code[:i], code[i:]
		}
	}
	return code, ""
}

func inString(code string, index int) bool {
	var quote byte
	for i := 0; i < index && i < len(code); i++ {
		c := code[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
		}
	}
	return quote != 0
}

func moduleTypeNames() []string {
	names := make([]string, len(ModuleTypes))
	for i, t := range ModuleTypes {
		names[i] = string(t)
	}
	return names
}

// Recover scans specification text line by line and reports every problem
// the heuristic checks recognise, sorted by line then column. It never stops
// at the first match and does not depend on the strict parser.
func Recover(src string) []Diagnostic {
	s := scanText(src)
	var diags []Diagnostic
	for _, l := range s.lines {
		for _, h := range heuristics {
			if !h.applies(l) {
				continue
			}
			for _, f := range h.detect(l.code) {
				diags = append(diags, Diagnostic{
					Message:  f.message,
					Line:     l.num,
					Column:   column(l.code, f.index),
					Found:    f.found,
					Expected: f.expected,
					Category: f.category,
				})
			}
		}
	}
	for _, b := range s.stray {
		diags = append(diags, Diagnostic{
			Message:  "unexpected closing brace",
			Line:     b.line,
			Column:   column(s.lines[b.line-1].code, b.index),
			Found:    "}",
			Category: CategoryStructural,
		})
	}
	for _, open := range s.unclosed {
		what := "block"
		if open.name != "" {
			what = open.name + " block"
		}
		diags = append(diags, Diagnostic{
			Message:  "unclosed " + what,
			Line:     open.line,
			Column:   open.column,
			Found:    "end of input",
			Expected: []string{"}"},
			Category: CategoryStructural,
		})
	}
	sortDiagnostics(diags)
	return diags
}

// Repair applies the mechanical fix of every fixable heuristic and balances
// braces. It reports whether the text changed.
func Repair(src string) (string, bool) {
	s := scanText(src)
	stray := map[int][]int{}
	for _, b := range s.stray {
		stray[b.line] = append(stray[b.line], b.index)
	}

	changed := len(s.stray) > 0 || len(s.unclosed) > 0
	out := make([]string, len(s.lines))
	for i, l := range s.lines {
		code := l.code
		if idx, ok := stray[l.num]; ok {
			b := []byte(code)
			for _, j := range idx {
				b[j] = ' '
			}
			code = string(b)
		}
		for _, h := range heuristics {
			if h.repair == nil || !h.applies(l) {
				continue
			}
			code = h.repair(code)
		}
		if code != l.code {
			changed = true
		}
		out[i] = code + l.comment
	}
	for range s.unclosed {
		out = append(out, "}")
	}

	if !changed {
		return src, false
	}
	return strings.Join(out, "\n"), true
}
