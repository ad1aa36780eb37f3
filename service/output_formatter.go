package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/rux/domain"
)

// Text grouping modes
const (
	GroupByModule   = "module"
	GroupBySeverity = "severity"
	GroupByType     = "type"
)

// OutputOptions controls text rendering
type OutputOptions struct {
	NoColor         bool
	ShowDiagnostics bool
	GroupBy         string
	AllowWarnings   bool
}

// OutputFormatterImpl implements domain.OutputFormatter
type OutputFormatterImpl struct {
	opts    OutputOptions
	palette palette
}

// palette holds the color functions used by the text format
type palette struct {
	Red    func(a ...interface{}) string
	Yellow func(a ...interface{}) string
	Green  func(a ...interface{}) string
	Cyan   func(a ...interface{}) string
	Dim    func(a ...interface{}) string
	Bold   func(a ...interface{}) string
}

func newPalette(noColor bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if noColor {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		Red:    mk(color.FgRed, color.Bold),
		Yellow: mk(color.FgYellow),
		Green:  mk(color.FgGreen, color.Bold),
		Cyan:   mk(color.FgCyan),
		Dim:    mk(color.Faint),
		Bold:   mk(color.Bold),
	}
}

// OutputOptionsFor derives text options from a merged request
func OutputOptionsFor(req domain.ValidateRequest) OutputOptions {
	return OutputOptions{
		NoColor:         req.NoColor,
		ShowDiagnostics: req.ShowDiagnostics,
		GroupBy:         req.GroupBy,
		AllowWarnings:   req.AllowWarnings,
	}
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter(opts OutputOptions) *OutputFormatterImpl {
	if opts.GroupBy == "" {
		opts.GroupBy = GroupByModule
	}
	return &OutputFormatterImpl{opts: opts, palette: newPalette(opts.NoColor)}
}

// WriteJSON writes data as JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML to the writer
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// Format renders the response as a string
func (f *OutputFormatterImpl) Format(response *domain.ValidateResponse, format domain.OutputFormat) (string, error) {
	var buf bytes.Buffer
	if err := f.Write(response, format, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write writes the validation response in the specified format
func (f *OutputFormatterImpl) Write(response *domain.ValidateResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatText, "":
		return f.writeText(response, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func (f *OutputFormatterImpl) writeText(response *domain.ValidateResponse, w io.Writer) error {
	p := f.palette
	fmt.Fprintf(w, "%s %s\n\n", p.Bold("rux validate"), response.Root)

	switch f.opts.GroupBy {
	case GroupBySeverity:
		f.writeGrouped(w, response, func(v domain.Violation) string { return string(v.Severity) })
	case GroupByType:
		f.writeGrouped(w, response, func(v domain.Violation) string { return string(v.Type) })
	default:
		f.writeByModule(w, response)
	}

	if f.opts.ShowDiagnostics {
		f.writeDiagnostics(w, response)
	}
	f.writeSummary(w, response)
	return nil
}

func (f *OutputFormatterImpl) writeByModule(w io.Writer, response *domain.ValidateResponse) {
	p := f.palette
	for _, m := range response.Modules {
		if len(m.Violations) == 0 && m.Base {
			continue
		}

		header := m.Spec
		switch {
		case m.Base:
			header += p.Dim(" (base)")
		case m.Target != "":
			header += p.Dim(fmt.Sprintf(" (%s -> %s)", moduleName(m), m.Target))
		}
		if m.Mode == domain.ModeText {
			header += " " + p.Yellow("[text mode]")
		}
		if m.Source != domain.RuleSourceParsed && m.Source != "" {
			header += " " + p.Yellow("["+string(m.Source)+" rules]")
		}

		if len(m.Violations) == 0 {
			fmt.Fprintf(w, "%s %s\n", p.Green("ok"), header)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", p.Red("x "), header)
		for _, v := range m.Violations {
			fmt.Fprintf(w, "  %s\n", f.violationLine(v, false))
		}
	}
	fmt.Fprintln(w)
}

func (f *OutputFormatterImpl) writeGrouped(w io.Writer, response *domain.ValidateResponse, key func(domain.Violation) string) {
	groups := make(map[string][]domain.Violation)
	for _, m := range response.Modules {
		for _, v := range m.Violations {
			k := key(v)
			groups[k] = append(groups[k], v)
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "%s (%d)\n", f.palette.Bold(k), len(groups[k]))
		for _, v := range groups[k] {
			fmt.Fprintf(w, "  %s\n", f.violationLine(v, true))
		}
		fmt.Fprintln(w)
	}
}

func (f *OutputFormatterImpl) violationLine(v domain.Violation, withFile bool) string {
	p := f.palette
	severity := p.Red("error  ")
	if v.Severity == domain.SeverityWarning {
		severity = p.Yellow("warning")
	}

	where := ""
	if withFile {
		where = v.File
	}
	if v.Line > 0 {
		where += fmt.Sprintf(":%d", v.Line)
	}
	where = strings.TrimPrefix(where, ":")
	if where != "" {
		where = p.Cyan(where) + " "
	}
	return fmt.Sprintf("%s %s%s %s", severity, where, v.Message, p.Dim("["+string(v.Type)+"]"))
}

func (f *OutputFormatterImpl) writeDiagnostics(w io.Writer, response *domain.ValidateResponse) {
	p := f.palette
	written := false
	for _, m := range response.Modules {
		for _, d := range m.Diagnostics {
			if !written {
				fmt.Fprintf(w, "%s\n", p.Bold("Specification diagnostics"))
				written = true
			}
			pos := d.File
			if d.Line > 0 {
				pos += fmt.Sprintf(":%d:%d", d.Line, d.Column)
			}
			line := fmt.Sprintf("  %s %s %s", p.Cyan(pos), d.Message, p.Dim("["+d.Category+"]"))
			if len(d.Expected) > 0 {
				line += p.Dim(" expected " + strings.Join(d.Expected, ", "))
			}
			fmt.Fprintln(w, line)
		}
	}
	if written {
		fmt.Fprintln(w)
	}
}

func (f *OutputFormatterImpl) writeSummary(w io.Writer, response *domain.ValidateResponse) {
	p := f.palette
	s := response.Summary
	fmt.Fprintf(w, "%d specs (%d base), %d modules validated: %s, %s, %s\n",
		s.SpecsFound, s.BaseSpecs, s.ModulesValidated,
		plural(s.Errors, "error"), plural(s.Warnings, "warning"), plural(s.SyntaxErrors, "syntax error"))

	if response.Passed(f.opts.AllowWarnings) {
		fmt.Fprintln(w, p.Green("PASSED"))
	} else {
		fmt.Fprintln(w, p.Red("FAILED"))
	}
}

func moduleName(m domain.ModuleResult) string {
	if m.Module == "" {
		return "?"
	}
	return m.Module
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
