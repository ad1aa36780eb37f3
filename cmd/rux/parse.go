package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/rux/internal/constants"
	"github.com/ludo-technologies/rux/service"
	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file.rux>",
		Short: "Compile one specification and print its rules",
		Long: `Compile a single .rux specification and print the resulting rule set.

When the specification does not parse, every diagnostic is printed instead
and the command exits with 1. Use --rules to also print the rules that were
recovered from the broken text.

Examples:
  rux parse specs/button.rux
  rux parse -f yaml specs/button.rux
  rux parse --rules specs/broken.rux`,
		Args:          cobra.ExactArgs(1),
		RunE:          runParse,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("format", "f", constants.OutputFormatJSON,
		"Output format: json, yaml")
	cmd.Flags().Bool("rules", false,
		"Print recovered rules even when the specification has diagnostics")
	cmd.Flags().BoolP("verbose", "v", false,
		"Show debug logging")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	showRules, _ := cmd.Flags().GetBool("rules")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if format != constants.OutputFormatJSON && format != constants.OutputFormatYAML {
		return &ValidateExitError{Code: constants.ExitFatal, Message: fmt.Sprintf("unsupported format %q (want json or yaml)", format)}
	}

	path := args[0]
	spec := service.SpecFile{Path: path, Rel: filepath.ToSlash(path)}
	loader := service.NewSpecLoader(newLogger(cmd.ErrOrStderr(), verbose))
	compiled := loader.Load(context.Background(), spec)

	out := cmd.OutOrStdout()
	if len(compiled.Diagnostics) == 0 {
		return writeRules(out, format, compiled)
	}

	for _, d := range compiled.Diagnostics {
		line := fmt.Sprintf("%s:%d:%d: %s [%s]", d.File, d.Line, d.Column, d.Message, d.Category)
		if len(d.Expected) > 0 {
			line += " (expected " + strings.Join(d.Expected, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}
	if showRules {
		fmt.Fprintf(out, "\n%s rules:\n", compiled.Source)
		if err := writeRules(out, format, compiled); err != nil {
			return err
		}
	}
	return &ValidateExitError{Code: constants.ExitViolations}
}

func writeRules(w io.Writer, format string, compiled *service.CompiledSpec) error {
	var err error
	if format == constants.OutputFormatYAML {
		err = service.WriteYAML(w, compiled.RuleSet())
	} else {
		err = service.WriteJSON(w, compiled.RuleSet())
	}
	if err != nil {
		return &ValidateExitError{Code: constants.ExitFatal, Message: fmt.Sprintf("failed to write rules: %v", err)}
	}
	return nil
}
