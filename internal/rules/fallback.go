package rules

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	fbModuleRe     = regexp.MustCompile(`(?m)^\s*module\s+([A-Za-z_$][\w$]*)`)
	fbTypeRe       = identityField("type", `[A-Za-z]+`)
	fbLocationRe   = identityField("location", `[^"'\s{}]+`)
	fbVersionRe    = identityField("version", `[^"'\s{}]+`)
	fbBlockRe      = regexp.MustCompile(`\b(imports|constraints)\s*\{`)
	fbKeywordRe    = regexp.MustCompile(`(?:^|\s)(deny|warn|require|allow)\s`)
	fbAnnotationRe = regexp.MustCompile(`^@\s*(?:"[^"]*"|'[^']*')`)
	fbDenyListRe   = regexp.MustCompile(`^deny\s+(imports|exports)\s*\[([^\]]*)\]`)
	fbRuleRe       = regexp.MustCompile(`^(deny|warn|require)\s+["']?([^\s"'\[]+)["']?(?:\s*(>=|<=|==|>|<)\s*(-?\d+(?:\.\d+)?))?`)
	fbExceptRe     = regexp.MustCompile(`except\s*:\s*\[([^\]]*)\]`)
	fbTrailComment = regexp.MustCompile(`(?:^|\s)//\s*(.*)$`)
)

// identityField matches "name: value" with a quoted or bare value. The
// line-anchored form is tried first so a field inside a nested block does not
// shadow the module's own.
func identityField(name, bare string) [2]*regexp.Regexp {
	value := `\s*:\s*(?:"([^"]*)"|'([^']*)'|(` + bare + `))`
	return [2]*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*` + name + value),
		regexp.MustCompile(`\b` + name + value),
	}
}

func findField(res [2]*regexp.Regexp, text string) string {
	for _, re := range res {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1] + m[2] + m[3]
		}
	}
	return ""
}

// FallbackExtract recovers what it can from specification text that does not
// parse: identity fields and the deny/warn/require rules of the constraints
// block, plus deny-imports rules of the imports block. It never fails; the
// result may be empty.
func FallbackExtract(text string) *RuleSet {
	rs := &RuleSet{}
	if m := fbModuleRe.FindStringSubmatch(text); m != nil {
		rs.ModuleName = m[1]
	}
	rs.Type = findField(fbTypeRe, text)
	rs.Location = findField(fbLocationRe, text)
	rs.Version = findField(fbVersionRe, text)

	for pos := 0; pos < len(text); {
		loc := fbBlockRe.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		block := text[pos+loc[2] : pos+loc[3]]
		bodyStart := pos + loc[1]
		bodyEnd := matchBrace(text, bodyStart)
		extractBlock(rs, block, text, bodyStart, bodyEnd)
		pos = bodyEnd
	}
	return rs
}

// matchBrace returns the offset of the brace closing the block whose body
// starts at from, or len(text) when it is never closed. Quoted strings and
// line comments are skipped.
func matchBrace(text string, from int) int {
	depth := 1
	for i := from; i < len(text); i++ {
		switch c := text[i]; c {
		case '"', '\'':
			if j := strings.IndexByte(text[i+1:], c); j >= 0 {
				i += j + 1
			}
		case '/':
			if i+1 < len(text) && text[i+1] == '/' {
				if j := strings.IndexByte(text[i:], '\n'); j >= 0 {
					i += j
				} else {
					return len(text)
				}
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(text)
}

// extractBlock splits the body text[start:end] into rules. A line may carry
// several rules; a trailing comment belongs to the last of them.
func extractBlock(rs *RuleSet, block, text string, start, end int) {
	lineNo := strings.Count(text[:start], "\n") + 1
	for i, raw := range strings.Split(text[start:end], "\n") {
		line := strings.TrimSpace(raw)
		comment := ""
		if m := fbTrailComment.FindStringSubmatchIndex(line); m != nil {
			comment = strings.TrimSpace(line[m[2]:m[3]])
			line = strings.TrimSpace(line[:m[0]])
		}
		if strings.HasPrefix(line, "@") {
			// only a quoted annotation has a known end
			m := fbAnnotationRe.FindStringIndex(line)
			if m == nil {
				continue
			}
			line = strings.TrimSpace(line[m[1]:])
		}
		if line == "" || strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "*") {
			continue
		}
		rules := splitRules(line)
		for j, rule := range rules {
			c := ""
			if j == len(rules)-1 {
				c = comment
			}
			fallbackRule(rs, block, rule, c, lineNo+i)
		}
	}
}

// splitRules cuts a line at every rule keyword outside brackets and quotes
func splitRules(line string) []string {
	var cuts []int
	for _, m := range fbKeywordRe.FindAllStringSubmatchIndex(line, -1) {
		if topLevel(line[:m[2]]) {
			cuts = append(cuts, m[2])
		}
	}
	if len(cuts) == 0 || cuts[0] != 0 {
		cuts = append([]int{0}, cuts...)
	}
	rules := make([]string, 0, len(cuts))
	for i, c := range cuts {
		end := len(line)
		if i+1 < len(cuts) {
			end = cuts[i+1]
		}
		if r := strings.TrimSpace(line[c:end]); r != "" {
			rules = append(rules, r)
		}
	}
	return rules
}

func topLevel(prefix string) bool {
	depth := 0
	var quote rune
	for _, r := range prefix {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[':
			depth++
		case r == ']':
			depth--
		}
	}
	return depth <= 0 && quote == 0
}

func fallbackRule(rs *RuleSet, block, line, comment string, lineNo int) {
	var exceptions []string
	if m := fbExceptRe.FindStringSubmatch(line); m != nil {
		exceptions = splitItems(m[1])
	}

	if m := fbDenyListRe.FindStringSubmatch(line); m != nil {
		items := splitItems(m[2])
		switch {
		case m[1] == "imports":
			appendDeniedImports(rs, items, exceptions)
		case block == "constraints":
			addConstraint(&rs.Constraints, Constraint{
				Kind:       KindDeny,
				Pattern:    ExportsPattern,
				Patterns:   items,
				Comment:    comment,
				Exceptions: exceptions,
				Line:       lineNo,
			})
		}
		return
	}
	if block != "constraints" {
		return
	}

	m := fbRuleRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	c := Constraint{
		Kind:       m[1],
		Pattern:    m[2],
		Comment:    comment,
		Exceptions: exceptions,
		Line:       lineNo,
	}
	if m[3] != "" {
		if v, err := strconv.ParseFloat(m[4], 64); err == nil {
			c.Comparison = &Comparison{Operator: m[3], Value: v}
		}
	}
	addConstraint(&rs.Constraints, c)
	if c.Kind == KindDeny && IsOperation(c.Pattern) {
		rs.DeniedOperations = append(rs.DeniedOperations, c.Pattern)
	}
}

// splitItems splits an array body, accepting quoted and bare items
func splitItems(body string) []string {
	items := []string{}
	for _, item := range strings.Split(body, ",") {
		item = strings.Trim(strings.TrimSpace(item), `"'`)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
