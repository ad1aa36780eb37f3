package analyzer

import (
	"regexp"
	"strings"

	"github.com/ludo-technologies/rux/internal/parser"
)

// MutationsCandidate is the operation name of writes through a member expression
const MutationsCandidate = "pattern.mutations"

// AccessibilityPattern is the require rule checked against markup elements
const AccessibilityPattern = "pattern.accessibility"

// operation is one side-effecting construct found in the target. Candidates
// are the names matched against rule patterns; Subject is how the construct
// reads in source and is also offered to exception lists.
type operation struct {
	Candidates []string
	Subject    string
	Line       int
	Column     int
}

var (
	storageObjects = map[string]bool{"localStorage": true, "sessionStorage": true}
	domObjects     = map[string]bool{"document": true, "window": true}
	dialogs        = map[string]bool{"alert": true, "confirm": true, "prompt": true}
	constructors   = map[string]bool{"XMLHttpRequest": true, "WebSocket": true}
)

// memberCandidates maps an access path such as "window.localStorage.getItem"
// to operation names
func memberCandidates(path string) []string {
	segments := strings.Split(path, ".")
	if len(segments) < 2 {
		return nil
	}

	var candidates []string
	root, rest := segments[0], strings.Join(segments[1:], ".")
	switch {
	case root == "console":
		candidates = append(candidates, "io.console."+rest)
	case storageObjects[root]:
		candidates = append(candidates, "io.storage."+path)
	case root == "axios":
		candidates = append(candidates, "io.network.axios."+rest)
	case domObjects[root]:
		candidates = append(candidates, "io.dom."+path)
		// window.localStorage.x, window.fetch and friends are also their unqualified selves
		if root == "window" {
			candidates = append(candidates, memberCandidates(rest)...)
			candidates = append(candidates, callCandidates(segments[1])...)
		}
	}
	return candidates
}

// callCandidates maps a bare function name to operation names
func callCandidates(name string) []string {
	switch {
	case dialogs[name]:
		return []string{"io.dom." + name}
	case name == "fetch":
		return []string{"io.network.fetch"}
	}
	return nil
}

// constructorCandidates maps a constructed type to operation names
func constructorCandidates(path string) []string {
	name := strings.TrimPrefix(path, "window.")
	if constructors[name] {
		return []string{"io.network." + name}
	}
	return nil
}

// isMutationTarget reports whether a write goes through a member expression
func isMutationTarget(n *parser.Node) bool {
	return n != nil && n.Type == parser.NodeMemberExpression
}

// nodeOperation classifies a node of the target AST. ok is false for nodes
// that are not operations. descend tells the walker whether the node's
// children still need visiting.
func nodeOperation(n *parser.Node) (op operation, ok bool, descend bool) {
	line, col := n.Location.StartLine, n.Location.StartCol

	switch n.Type {
	case parser.NodeMemberExpression:
		path := n.QualifiedName()
		if path == "" {
			return operation{}, false, true
		}
		// a pure identifier chain has nothing further to visit
		candidates := memberCandidates(path)
		return operation{Candidates: candidates, Subject: path, Line: line, Column: col}, len(candidates) > 0, false

	case parser.NodeCallExpression:
		if n.Callee != nil && n.Callee.Type == parser.NodeIdentifier {
			if candidates := callCandidates(n.Callee.Name); candidates != nil {
				return operation{Candidates: candidates, Subject: n.Callee.Name, Line: line, Column: col}, true, true
			}
		}

	case parser.NodeNewExpression:
		path := n.Callee.QualifiedName()
		if candidates := constructorCandidates(path); candidates != nil {
			return operation{Candidates: candidates, Subject: path, Line: line, Column: col}, true, true
		}

	case parser.NodeAssignmentExpression:
		if isMutationTarget(n.Left) {
			return operation{Candidates: []string{MutationsCandidate}, Subject: n.Left.QualifiedName(), Line: line, Column: col}, true, true
		}

	case parser.NodeUpdateExpression:
		if isMutationTarget(n.Argument) {
			return operation{Candidates: []string{MutationsCandidate}, Subject: n.Argument.QualifiedName(), Line: line, Column: col}, true, true
		}
	}

	return operation{}, false, true
}

var (
	consoleCallRe  = regexp.MustCompile(`(?:^|[^\w$.])console\s*\??\.\s*([A-Za-z_$][\w$]*)`)
	storageRe      = regexp.MustCompile(`(?:^|[^\w$.])((?:window\.)?(?:localStorage|sessionStorage)(?:\.[A-Za-z_$][\w$]*)+)`)
	domAccessRe    = regexp.MustCompile(`(?:^|[^\w$.])((?:document|window)(?:\.[A-Za-z_$][\w$]*)+)`)
	dialogCallRe   = regexp.MustCompile(`(?:^|[^\w$.])(alert|confirm|prompt|fetch)\s*\(`)
	constructorRe  = regexp.MustCompile(`\bnew\s+((?:window\.)?(?:XMLHttpRequest|WebSocket))\b`)
	axiosCallRe    = regexp.MustCompile(`(?:^|[^\w$.])axios\.([A-Za-z_$][\w$]*)\s*\(`)
	memberWriteRe  = regexp.MustCompile(`(?:^|[^\w$.])((?:this|[A-Za-z_$][\w$]*)(?:\??\.[A-Za-z_$][\w$]*)+)\s*(?:\+\+|--|(?:[-+*/%&|^]|\*\*|<<|>>>?|&&|\|\||\?\?)?=(?:[^=>]|$))`)
	memberUpdateRe = regexp.MustCompile(`(?:\+\+|--)\s*((?:this|[A-Za-z_$][\w$]*)(?:\.[A-Za-z_$][\w$]*)+)`)
)

// lineOperations finds operations in one line of target text. It backs the
// evaluator when the target has no usable syntax tree.
func lineOperations(line string, lineNo int) []operation {
	code := stripLineComment(line)
	if strings.TrimSpace(code) == "" {
		return nil
	}

	var ops []operation
	add := func(subject string, column int, candidates []string) {
		if len(candidates) > 0 {
			ops = append(ops, operation{Candidates: candidates, Subject: subject, Line: lineNo, Column: column + 1})
		}
	}

	for _, m := range consoleCallRe.FindAllStringSubmatchIndex(code, -1) {
		method := code[m[2]:m[3]]
		add("console."+method, m[0], []string{"io.console." + method})
	}
	storageSpans := storageRe.FindAllStringSubmatchIndex(code, -1)
	for _, m := range storageSpans {
		path := code[m[2]:m[3]]
		add(path, m[2], memberCandidates(path))
	}
	for _, m := range domAccessRe.FindAllStringSubmatchIndex(code, -1) {
		if overlaps(storageSpans, m[2]) {
			continue
		}
		path := code[m[2]:m[3]]
		add(path, m[2], memberCandidates(path))
	}
	for _, m := range dialogCallRe.FindAllStringSubmatchIndex(code, -1) {
		name := code[m[2]:m[3]]
		add(name, m[2], callCandidates(name))
	}
	for _, m := range constructorRe.FindAllStringSubmatchIndex(code, -1) {
		path := code[m[2]:m[3]]
		add(path, m[0], constructorCandidates(path))
	}
	for _, m := range axiosCallRe.FindAllStringSubmatchIndex(code, -1) {
		method := code[m[2]:m[3]]
		add("axios."+method, m[0], []string{"io.network.axios." + method})
	}
	for _, m := range memberWriteRe.FindAllStringSubmatchIndex(code, -1) {
		add(code[m[2]:m[3]], m[2], []string{MutationsCandidate})
	}
	for _, m := range memberUpdateRe.FindAllStringSubmatchIndex(code, -1) {
		add(code[m[2]:m[3]], m[0], []string{MutationsCandidate})
	}
	return ops
}

func overlaps(spans [][]int, start int) bool {
	for _, s := range spans {
		if start >= s[2] && start < s[3] {
			return true
		}
	}
	return false
}

// stripLineComment drops a trailing // comment outside string literals
func stripLineComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i]
		}
	}
	if isCommentLine(line) {
		return ""
	}
	return line
}
