package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ludo-technologies/rux/app"
	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/config"
	"github.com/ludo-technologies/rux/internal/constants"
	"github.com/ludo-technologies/rux/service"
	"github.com/spf13/cobra"
)

// ValidateExitError carries the exit code of the validate and parse commands
type ValidateExitError struct {
	Code    int
	Message string
}

func (e *ValidateExitError) Error() string {
	return e.Message
}

var (
	validateConfigPath    string
	validateFormat        string
	validateJSON          bool
	validateVerbose       bool
	validateBaseDirFlag   string
	validateStrictImports bool
	validateNoColor       bool
	validateWatch         bool
	validateAllowWarnings bool
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [root]",
		Short: "Validate modules against their .rux specifications",
		Long: `Discover .rux specifications below root (default: current directory) and
validate every module against the file named by its location.

Files named global.rux, base.rux, _global.rux or architecture.rux hold base
rules that apply to every module.

Exit codes:
  0 - No syntax errors and no violations
  1 - Violations or specification syntax errors found
  2 - Fatal error (unreadable root, invalid configuration, interrupted run)

Examples:
  # Validate the current project
  rux validate

  # Specs live in architecture/, modules in src/
  rux validate architecture --base-dir .

  # JSON report for CI
  rux validate --json

  # Re-run on every change
  rux validate --watch`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runValidate,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&validateConfigPath, "config", "c", "",
		"Path to config file")
	cmd.Flags().StringVarP(&validateFormat, "format", "f", "",
		"Output format: text, json, yaml (default from config: text)")
	cmd.Flags().BoolVar(&validateJSON, "json", false,
		"Output results as JSON")
	cmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false,
		"Show debug logging")
	cmd.Flags().StringVar(&validateBaseDirFlag, "base-dir", "",
		"Directory module locations are resolved against (default: the spec root)")
	cmd.Flags().BoolVar(&validateStrictImports, "strict-imports", false,
		"Report imports not covered by an allow rule")
	cmd.Flags().BoolVar(&validateNoColor, "no-color", false,
		"Disable colored output")
	cmd.Flags().BoolVarP(&validateWatch, "watch", "w", false,
		"Re-run validation when specifications or modules change")
	cmd.Flags().BoolVar(&validateAllowWarnings, "allow-warnings", false,
		"Do not fail on warnings")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	format := validateFormat
	if validateJSON {
		format = constants.OutputFormatJSON
	}

	logger := newLogger(cmd.ErrOrStderr(), validateVerbose)

	// progress only for interactive text runs; it never mixes with machine output
	pm := service.NewProgressManager(format == "" || format == constants.OutputFormatText)
	defer pm.Close()

	uc, err := newValidateUseCase(pm, logger)
	if err != nil {
		return &ValidateExitError{Code: constants.ExitFatal, Message: err.Error()}
	}

	override := domain.ValidateRequest{
		Root:          root,
		OutputFormat:  domain.OutputFormat(format),
		OutputWriter:  cmd.OutOrStdout(),
		NoColor:       validateNoColor,
		ConfigPath:    validateConfigPath,
		BaseDir:       validateBaseDirFlag,
		StrictImports: validateStrictImports,
		AllowWarnings: validateAllowWarnings,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := uc.Execute(ctx, override)
	if err != nil {
		return &ValidateExitError{Code: constants.ExitFatal, Message: err.Error()}
	}

	if validateWatch {
		return watchAndValidate(ctx, uc, override, result, cmd.ErrOrStderr(), logger)
	}

	if code := result.ExitCode(); code != constants.ExitOK {
		return &ValidateExitError{Code: code}
	}
	return nil
}

func newValidateUseCase(pm domain.ProgressManager, logger *slog.Logger) (*app.ValidateUseCase, error) {
	return app.NewValidateUseCaseBuilder().
		WithConfigLoader(service.NewConfigurationLoader()).
		WithServiceFactory(func(cfg *config.Config) domain.ValidationService {
			return service.NewValidationService(&cfg.Performance, pm, logger)
		}).
		WithFormatterFactory(func(req domain.ValidateRequest) domain.OutputFormatter {
			return service.NewOutputFormatter(service.OutputOptionsFor(req))
		}).
		Build()
}

// watchAndValidate re-runs validation after every batch of changes until the
// context is cancelled. Failed runs are reported and watching continues.
func watchAndValidate(ctx context.Context, uc *app.ValidateUseCase, override domain.ValidateRequest,
	first *app.ValidateResult, stderr io.Writer, logger *slog.Logger) error {
	roots := []string{first.Request.Root}
	if first.Request.BaseDir != "" {
		roots = append(roots, first.Request.BaseDir)
	}

	watcher, err := service.NewSpecWatcher(service.WatcherConfig{Roots: roots, Logger: logger})
	if err != nil {
		return &ValidateExitError{Code: constants.ExitFatal, Message: fmt.Sprintf("failed to start watcher: %v", err)}
	}

	fmt.Fprintf(stderr, "\nWatching %v for changes (Ctrl+C to stop)\n", roots)

	err = watcher.Run(ctx, func(ctx context.Context, changed []string) {
		fmt.Fprintf(stderr, "\n%d file(s) changed, validating again\n\n", len(changed))
		if _, err := uc.Execute(ctx, override); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	})
	if err != nil {
		return &ValidateExitError{Code: constants.ExitFatal, Message: err.Error()}
	}
	return nil
}
