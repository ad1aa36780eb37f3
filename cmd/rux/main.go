package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ludo-technologies/rux/internal/constants"
	"github.com/ludo-technologies/rux/internal/version"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = version.Version
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rux",
		Short: "rux - architecture constraints for JavaScript/TypeScript modules",
		Long: `rux validates JavaScript and TypeScript modules against .rux architecture
specifications: allowed and denied imports, forbidden operations, exports,
file metrics and the declared public interface.`,
		Version: Version,
	}

	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// exitCode reports err and returns the process exit code for it
func exitCode(err error, stderr io.Writer) int {
	var exitErr *ValidateExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintf(stderr, "Error: %s\n", exitErr.Message)
		}
		// output already printed
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return constants.ExitFatal
}

// newLogger returns the command logger: warnings on stderr, debug with --verbose
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", constants.ToolName, version.GetVersion())
			}
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
	return cmd
}
