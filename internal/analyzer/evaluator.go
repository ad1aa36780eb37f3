package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/parser"
	"github.com/ludo-technologies/rux/internal/pattern"
	"github.com/ludo-technologies/rux/internal/rules"
)

// Options controls the optional checks of the evaluator
type Options struct {
	// StrictImports reports imports not covered by any allow rule
	StrictImports bool

	// CheckInterface reports public interface members the target does not export
	CheckInterface bool

	// FallbackOnParseError switches to text mode when the target has syntax
	// errors. When false the partial syntax tree is still walked.
	FallbackOnParseError bool

	// PatternCacheSize bounds the compiled pattern cache
	PatternCacheSize int

	// AliasPatterns are import prefixes classified as path aliases
	AliasPatterns []string
}

// DefaultOptions returns the default evaluator options
func DefaultOptions() Options {
	return Options{
		FallbackOnParseError: true,
		PatternCacheSize:     pattern.DefaultCacheSize,
		AliasPatterns:        DefaultSurfaceConfig().AliasPatterns,
	}
}

// Target is one file under validation
type Target struct {
	// File is the path reported in violations
	File string

	Source []byte

	// AST is nil when the file could not be parsed at all
	AST *parser.Node

	// ParseErr is set when the file has syntax errors
	ParseErr error

	Missing bool
}

// LoadTarget reads and parses the file at path. A file that does not exist
// yields a Missing target; any other read failure is returned.
func LoadTarget(ctx context.Context, path string) (Target, error) {
	target := Target{File: path}

	source, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			target.Missing = true
			return target, nil
		}
		return target, fmt.Errorf("failed to read target %s: %w", path, err)
	}
	target.Source = source

	p := parser.NewParserFor(parser.LanguageFor(path))
	defer p.Close()

	ast, err := p.ParseFileContext(ctx, path, source)
	var synErr *parser.SyntaxError
	switch {
	case err == nil:
		target.AST = ast
	case errors.As(err, &synErr):
		target.AST = ast
		target.ParseErr = err
	default:
		target.ParseErr = err
	}
	return target, nil
}

// handler checks one node kind; it returns whether the walk should descend
type handler func(c *evaluation, n *parser.Node) bool

// Evaluator checks targets against rule sets. It holds no per-run state and
// may be shared between goroutines.
type Evaluator struct {
	matcher  *pattern.Matcher
	surface  *SurfaceExtractor
	opts     Options
	logger   *slog.Logger
	handlers map[parser.NodeType]handler
}

// NewEvaluator creates an evaluator
func NewEvaluator(opts Options, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Evaluator{
		matcher: pattern.NewMatcher(opts.PatternCacheSize),
		surface: NewSurfaceExtractor(&SurfaceConfig{AliasPatterns: opts.AliasPatterns}),
		opts:    opts,
		logger:  logger,
	}
	e.handlers = map[parser.NodeType]handler{
		parser.NodeCallExpression:         handleCall,
		parser.NodeMemberExpression:       handleOperation,
		parser.NodeNewExpression:          handleOperation,
		parser.NodeAssignmentExpression:   handleOperation,
		parser.NodeUpdateExpression:       handleOperation,
		parser.NodeImportDeclaration:      handleImport,
		parser.NodeExportNamedDeclaration: handleImport,
		parser.NodeExportAllDeclaration:   handleImport,
		parser.NodeJSXOpeningElement:      handleElement,
		parser.NodeJSXSelfClosingElement:  handleElement,
	}
	return e
}

// evaluation is the state of one Evaluate call
type evaluation struct {
	e       *Evaluator
	rs      *rules.RuleSet
	report  *Report
	opRules []rules.Constraint
	a11y    []rules.Constraint
}

// Evaluate checks target against rs and returns the violations found
func (e *Evaluator) Evaluate(rs *rules.RuleSet, target Target) []domain.Violation {
	report := NewReport(rs.ModuleName, target.File)
	e.EvaluateInto(rs, target, report)
	return report.Violations()
}

// EvaluateInto checks target against rs, recording violations in report, and
// returns how the target was inspected
func (e *Evaluator) EvaluateInto(rs *rules.RuleSet, target Target, report *Report) domain.EvaluationMode {
	if rs == nil {
		rs = &rules.RuleSet{}
	}
	if target.Missing {
		report.Add(domain.Violation{
			Type:     domain.ViolationMissing,
			Severity: domain.SeverityError,
			Message:  fmt.Sprintf("target file %s does not exist", target.File),
			Rule:     rs.Location,
		})
		return domain.ModeSkipped
	}

	c := &evaluation{e: e, rs: rs, report: report}
	for _, group := range [][]rules.Constraint{rs.Constraints.Deny, rs.Constraints.Warn} {
		for _, rule := range group {
			if rule.Comparison == nil && !rule.IsExports() && !isMetric(rule.Pattern) {
				c.opRules = append(c.opRules, rule)
			}
		}
	}
	for _, rule := range rs.Constraints.Require {
		if rule.Pattern == AccessibilityPattern {
			c.a11y = append(c.a11y, rule)
		}
	}

	text := string(target.Source)
	mode := domain.ModeStructural
	var surface *domain.ModuleSurface
	if target.AST == nil || (target.ParseErr != nil && e.opts.FallbackOnParseError) {
		mode = domain.ModeText
		e.logger.Debug("evaluating target in text mode", "file", target.File, "error", target.ParseErr)
		surface = e.surface.Scan(text, target.File)
		c.scanText(text, surface)
	} else {
		surface = e.surface.Extract(target.AST, target.File)
		c.walk(target.AST)
	}

	// the text layer runs in both modes
	textSurface := surface
	if surface.Structural {
		textSurface = e.surface.Scan(text, target.File)
	}
	c.checkExports(textSurface)
	c.checkMetrics(text, textSurface, target.File)

	if e.opts.StrictImports {
		c.checkAllowedImports(surface)
	}
	if e.opts.CheckInterface {
		c.checkInterface(surface)
	}
	return mode
}

// walk dispatches every node of the tree to its handler
func (c *evaluation) walk(root *parser.Node) {
	root.Walk(func(n *parser.Node) bool {
		if h, ok := c.e.handlers[n.Type]; ok {
			return h(c, n)
		}
		return true
	})
}

func handleOperation(c *evaluation, n *parser.Node) bool {
	op, ok, descend := nodeOperation(n)
	if ok {
		c.checkOperation(op)
	}
	return descend
}

func handleCall(c *evaluation, n *parser.Node) bool {
	if source, ok := n.ImportSource(); ok {
		c.checkDeniedImport(source, n.Location.StartLine, n.Location.StartCol)
	}
	return handleOperation(c, n)
}

func handleImport(c *evaluation, n *parser.Node) bool {
	if source, ok := n.ImportSource(); ok {
		c.checkDeniedImport(source, n.Location.StartLine, n.Location.StartCol)
	}
	return true
}

func handleElement(c *evaluation, n *parser.Node) bool {
	if len(c.a11y) == 0 || n.Name == "div" || n.HasAttributePrefix("aria-") {
		return true
	}
	for _, rule := range c.a11y {
		if rule.Excepts(c.e.matcher, n.Name) {
			continue
		}
		c.report.add(domain.Violation{
			Type:     domain.ViolationConstraint,
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf("<%s> has no aria-* attribute (require %s)", n.Name, rule.Pattern),
			Line:     n.Location.StartLine,
			Rule:     rule.Pattern,
		}, n.Location.StartCol)
	}
	return true
}

// checkOperation tests one operation against every deny and warn rule. Each
// rule is checked on its own, with its own exceptions.
func (c *evaluation) checkOperation(op operation) {
	for _, rule := range c.opRules {
		if !c.matchesAny(rule.Pattern, op.Candidates) {
			continue
		}
		if c.excepted(rule, op) {
			continue
		}

		severity, verb := domain.SeverityError, "is not allowed"
		if rule.Kind == rules.KindWarn {
			severity, verb = domain.SeverityWarning, "is discouraged"
		}
		msg := fmt.Sprintf("%s %s (%s %s)", op.Subject, verb, rule.Kind, rule.Pattern)
		if rule.Comment != "" {
			msg += ": " + rule.Comment
		}
		c.report.add(domain.Violation{
			Type:     domain.ViolationOperation,
			Severity: severity,
			Message:  msg,
			Line:     op.Line,
			Rule:     rule.Pattern,
		}, op.Column)
	}
}

func (c *evaluation) matchesAny(p string, candidates []string) bool {
	for _, candidate := range candidates {
		if c.e.matcher.Match(p, candidate) {
			return true
		}
	}
	return false
}

func (c *evaluation) excepted(rule rules.Constraint, op operation) bool {
	if len(rule.Exceptions) == 0 {
		return false
	}
	if op.Subject != "" && rule.Excepts(c.e.matcher, op.Subject) {
		return true
	}
	for _, candidate := range op.Candidates {
		if rule.Excepts(c.e.matcher, candidate) {
			return true
		}
	}
	return false
}

// checkDeniedImport tests one import source against every denied pattern
func (c *evaluation) checkDeniedImport(source string, line, column int) {
	for _, denied := range c.rs.DeniedImports {
		if !c.e.matcher.Match(denied.Pattern, source) {
			continue
		}
		if _, ok := c.e.matcher.MatchAny(denied.Exceptions, source); ok {
			continue
		}
		c.report.add(domain.Violation{
			Type:     domain.ViolationImport,
			Severity: domain.SeverityError,
			Message:  fmt.Sprintf("import %q is denied by pattern %q", source, denied.Pattern),
			Line:     line,
			Rule:     denied.Pattern,
		}, column)
	}
}

// scanText is the regex counterpart of walk
func (c *evaluation) scanText(text string, surface *domain.ModuleSurface) {
	for i, line := range strings.Split(text, "\n") {
		for _, op := range lineOperations(line, i+1) {
			c.checkOperation(op)
		}
	}
	for _, imp := range surface.Imports {
		c.checkDeniedImport(imp.Source, imp.Line, 0)
	}
}

// checkExports matches exported names against deny exports rules
func (c *evaluation) checkExports(surface *domain.ModuleSurface) {
	for _, rule := range c.rs.Constraints.Deny {
		if !rule.IsExports() {
			continue
		}
		for _, exp := range surface.Exports {
			matched, ok := c.e.matcher.MatchAny(rule.Patterns, exp.Name)
			if !ok || rule.Excepts(c.e.matcher, exp.Name) {
				continue
			}
			msg := fmt.Sprintf("export %q matches denied export pattern %q", exp.Name, matched)
			if rule.Comment != "" {
				msg += ": " + rule.Comment
			}
			c.report.add(domain.Violation{
				Type:     domain.ViolationExport,
				Severity: domain.SeverityError,
				Message:  msg,
				Line:     exp.Line,
				Rule:     matched,
			}, 0)
		}
	}
}

// Metric patterns understood by comparison rules
const (
	MetricFileLines   = "file.lines"
	MetricFileImports = "file.imports"
	MetricFileExports = "file.exports"
)

func isMetric(p string) bool {
	return p == MetricFileLines || p == MetricFileImports || p == MetricFileExports
}

// CountLines returns the number of lines in text; a trailing newline does
// not start a new line
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// checkMetrics evaluates comparison rules on whole-file metrics. deny and
// warn fire when the comparison holds; require fires when it does not.
func (c *evaluation) checkMetrics(text string, surface *domain.ModuleSurface, file string) {
	metrics := map[string]int{
		MetricFileLines:   CountLines(text),
		MetricFileImports: len(surface.Imports),
		MetricFileExports: len(surface.Exports),
	}
	base := filepath.Base(file)

	check := func(rule rules.Constraint) {
		if rule.Comparison == nil {
			return
		}
		actual, ok := metrics[rule.Pattern]
		if !ok {
			return
		}
		holds := rule.Comparison.Holds(float64(actual))
		if holds == (rule.Kind == rules.KindRequire) {
			return
		}
		if rule.Excepts(c.e.matcher, file) || rule.Excepts(c.e.matcher, base) {
			return
		}

		severity := domain.SeverityWarning
		if rule.Kind == rules.KindDeny {
			severity = domain.SeverityError
		}
		unit := strings.TrimPrefix(rule.Pattern, "file.")
		msg := fmt.Sprintf("file has %d %s, violating %s", actual, unit, rule.Describe())
		if rule.Comment != "" {
			msg += ": " + rule.Comment
		}
		c.report.add(domain.Violation{
			Type:     domain.ViolationConstraint,
			Severity: severity,
			Message:  msg,
			Rule:     rule.Describe(),
		}, 0)
	}

	for _, group := range [][]rules.Constraint{c.rs.Constraints.Deny, c.rs.Constraints.Warn, c.rs.Constraints.Require} {
		for _, rule := range group {
			check(rule)
		}
	}
}

// checkAllowedImports reports imports no allow rule covers. It does nothing
// when the rule set declares no allow rules.
func (c *evaluation) checkAllowedImports(surface *domain.ModuleSurface) {
	if len(c.rs.AllowedImports) == 0 {
		return
	}
	for _, imp := range surface.Imports {
		if c.allowed(imp.Source) {
			continue
		}
		c.report.add(domain.Violation{
			Type:     domain.ViolationImport,
			Severity: domain.SeverityError,
			Message:  fmt.Sprintf("import %q is not covered by any allow rule", imp.Source),
			Line:     imp.Line,
			Rule:     imp.Source,
		}, 0)
	}
}

func (c *evaluation) allowed(source string) bool {
	for _, allow := range c.rs.AllowedImports {
		if !c.e.matcher.Match(allow.Path, source) && !c.e.matcher.Match(allow.Path+"/*", source) {
			continue
		}
		if _, excepted := c.e.matcher.MatchAny(allow.Exceptions, source); excepted {
			continue
		}
		return true
	}
	return false
}

// checkInterface reports public interface members the target does not export
func (c *evaluation) checkInterface(surface *domain.ModuleSurface) {
	exported := surface.ExportedNames()
	missing := func(kind, name, visibility string) {
		if visibility != "" && visibility != "public" {
			return
		}
		if exported[name] {
			return
		}
		c.report.add(domain.Violation{
			Type:     domain.ViolationExport,
			Severity: domain.SeverityError,
			Message:  fmt.Sprintf("interface %s %q is not exported by the target", kind, name),
			Rule:     "interface." + name,
		}, 0)
	}

	for _, m := range c.rs.Interface.Methods {
		missing("function", m.Name, m.Visibility)
	}
	for _, p := range c.rs.Interface.Properties {
		missing("property", p.Name, p.Visibility)
	}
	for _, t := range c.rs.Interface.Types {
		missing("type", t, "public")
	}
}
