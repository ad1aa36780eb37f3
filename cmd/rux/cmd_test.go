package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/rux/internal/constants"
	"github.com/ludo-technologies/rux/internal/testutil"
)

const panelSpec = `module Panel {
  type: "presentation"
  location: "src/Panel.js"
  constraints {
    deny io.console.*
  }
}
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func exitCodeOf(err error) int {
	if err == nil {
		return constants.ExitOK
	}
	var exitErr *ValidateExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

func TestValidateCmd_FlagsExist(t *testing.T) {
	cmd := validateCmd()

	expectedFlags := []string{"config", "format", "json", "verbose", "base-dir", "strict-imports", "no-color", "watch", "allow-warnings"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("Missing expected flag: --%s", flagName)
		}
	}

	shortFlags := map[string]string{"c": "config", "f": "format", "v": "verbose", "w": "watch"}
	for short, long := range shortFlags {
		if flag := cmd.Flags().ShorthandLookup(short); flag == nil || flag.Name != long {
			t.Errorf("Missing short flag -%s for --%s", short, long)
		}
	}
}

func TestValidateCmd_ExitCodes(t *testing.T) {
	clean := "export function Panel() {\n  return 1;\n}\n"
	noisy := "export function Panel() {\n  console.log(1);\n}\n"

	tests := []struct {
		name string
		file string
		args []string
		want int
	}{
		{"clean module", clean, nil, constants.ExitOK},
		{"violation", noisy, nil, constants.ExitViolations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := testutil.WriteTree(t, map[string]string{"panel.rux": panelSpec, "src/Panel.js": tt.file})
			args := append([]string{"validate", root, "--no-color"}, tt.args...)

			stdout, _, err := execute(t, args...)
			if got := exitCodeOf(err); got != tt.want {
				t.Errorf("exit code = %d, want %d (err %v)\n%s", got, tt.want, err, stdout)
			}
			if !strings.Contains(stdout, "panel.rux") {
				t.Errorf("expected the spec in the report:\n%s", stdout)
			}
		})
	}
}

func TestValidateCmd_SyntaxErrorFails(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"panel.rux":    "module Panel {\n  type: presentation\n}\n",
		"src/Panel.js": "export const x = 1;\n",
	})

	_, _, err := execute(t, "validate", root, "--no-color")
	if got := exitCodeOf(err); got != constants.ExitViolations {
		t.Errorf("exit code = %d, want %d", got, constants.ExitViolations)
	}
}

func TestValidateCmd_JSON(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"panel.rux":    panelSpec,
		"src/Panel.js": "console.log(1);\n",
	})

	stdout, _, err := execute(t, "validate", root, "--json")
	if got := exitCodeOf(err); got != constants.ExitViolations {
		t.Fatalf("exit code = %d, want %d", got, constants.ExitViolations)
	}

	var report struct {
		Summary struct {
			Errors int `json:"errors"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if report.Summary.Errors != 1 {
		t.Errorf("expected 1 error, got %d", report.Summary.Errors)
	}
}

func TestValidateCmd_FatalErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	_, _, err := execute(t, "validate", missing)
	if got := exitCodeOf(err); got != constants.ExitFatal {
		t.Errorf("missing root: exit code = %d, want %d", got, constants.ExitFatal)
	}

	root := testutil.WriteTree(t, map[string]string{"panel.rux": panelSpec})
	_, _, err = execute(t, "validate", root, "--format", "xml")
	if got := exitCodeOf(err); got != constants.ExitFatal {
		t.Errorf("bad format: exit code = %d, want %d", got, constants.ExitFatal)
	}
}

func TestParseCmd(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"panel.rux":  panelSpec,
		"broken.rux": "module Broken {\n  type: service\n}\n",
	})

	stdout, _, err := execute(t, "parse", filepath.Join(root, "panel.rux"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	var rs struct {
		ModuleName string `json:"module_name"`
		Location   string `json:"location"`
	}
	if err := json.Unmarshal([]byte(stdout), &rs); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if rs.ModuleName != "Panel" || rs.Location != "src/Panel.js" {
		t.Errorf("unexpected rule set %+v", rs)
	}

	stdout, _, err = execute(t, "parse", filepath.Join(root, "broken.rux"), "--rules", "-f", "yaml")
	if got := exitCodeOf(err); got != constants.ExitViolations {
		t.Errorf("exit code = %d, want %d", got, constants.ExitViolations)
	}
	if !strings.Contains(stdout, "broken.rux:2:") || !strings.Contains(stdout, "module_name: Broken") {
		t.Errorf("expected diagnostics and recovered rules:\n%s", stdout)
	}
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "rux version ") {
		t.Errorf("unexpected version output %q", stdout)
	}
}

func TestExitCode(t *testing.T) {
	var stderr bytes.Buffer

	if code := exitCode(&ValidateExitError{Code: constants.ExitViolations}, &stderr); code != constants.ExitViolations || stderr.Len() != 0 {
		t.Errorf("silent exit error: code %d, stderr %q", code, stderr.String())
	}
	if code := exitCode(&ValidateExitError{Code: constants.ExitFatal, Message: "boom"}, &stderr); code != constants.ExitFatal || !strings.Contains(stderr.String(), "boom") {
		t.Errorf("fatal exit error: code %d, stderr %q", code, stderr.String())
	}
	if code := exitCode(errors.New("unknown command"), &stderr); code != constants.ExitFatal {
		t.Errorf("plain error: code %d", code)
	}
}
