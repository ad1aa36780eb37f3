package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/config"
	"github.com/ludo-technologies/rux/internal/constants"
	"github.com/ludo-technologies/rux/internal/testutil"
	"github.com/ludo-technologies/rux/service"
)

const cardSpec = `module Card {
  type: "presentation"
  location: "src/Card.js"
  constraints {
    deny io.console.*
  }
}
`

func newTestUseCase(t *testing.T) *ValidateUseCase {
	t.Helper()
	uc, err := NewValidateUseCaseBuilder().
		WithConfigLoader(service.NewConfigurationLoader()).
		WithServiceFactory(func(cfg *config.Config) domain.ValidationService {
			return service.NewValidationService(&cfg.Performance, nil, nil)
		}).
		WithFormatterFactory(func(req domain.ValidateRequest) domain.OutputFormatter {
			return service.NewOutputFormatter(service.OutputOptionsFor(req))
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return uc
}

func TestFileHelperIsSpecFile(t *testing.T) {
	helper := NewFileHelper()

	tests := []struct {
		path     string
		expected bool
	}{
		{"button.rux", true},
		{"specs/GLOBAL.RUX", true},
		{"button.ts", false},
		{"rux", false},
		{"rux.yaml", false},
	}

	for _, tt := range tests {
		if result := helper.IsSpecFile(tt.path); result != tt.expected {
			t.Errorf("IsSpecFile(%s) = %v, expected %v", tt.path, result, tt.expected)
		}
	}
}

func TestFileHelperFileExists(t *testing.T) {
	helper := NewFileHelper()
	dir := t.TempDir()
	file := filepath.Join(dir, "a.rux")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if exists, err := helper.FileExists(file); err != nil || !exists {
		t.Errorf("expected %s to exist (err %v)", file, err)
	}
	if exists, _ := helper.FileExists(dir); exists {
		t.Error("a directory is not a file")
	}
	if exists, err := helper.FileExists(filepath.Join(dir, "missing.rux")); err != nil || exists {
		t.Error("expected missing file to report false without error")
	}
}

func TestFileHelperResolveRoot(t *testing.T) {
	helper := NewFileHelper()
	root := testutil.WriteTree(t, map[string]string{"card.rux": cardSpec, "notes.txt": ""})

	if got, err := helper.ResolveRoot(root + string(filepath.Separator)); err != nil || got != filepath.Clean(root) {
		t.Errorf("ResolveRoot(dir) = %q, %v", got, err)
	}
	if _, err := helper.ResolveRoot(filepath.Join(root, "card.rux")); err != nil {
		t.Errorf("a single spec file is a valid root: %v", err)
	}

	var discoveryErr *domain.DiscoveryError
	if _, err := helper.ResolveRoot(filepath.Join(root, "notes.txt")); !errors.As(err, &discoveryErr) {
		t.Errorf("expected DiscoveryError for a non-spec file, got %v", err)
	}
	if _, err := helper.ResolveRoot(filepath.Join(root, "missing")); !errors.As(err, &discoveryErr) {
		t.Errorf("expected DiscoveryError for a missing root, got %v", err)
	}
	if got, err := helper.ResolveRoot(""); err != nil || got != "." {
		t.Errorf("empty root should resolve to the current directory, got %q, %v", got, err)
	}
}

func TestValidateUseCaseBuilder_RequiresDependencies(t *testing.T) {
	if _, err := NewValidateUseCaseBuilder().Build(); err == nil {
		t.Error("expected error without a config loader")
	}
	if _, err := NewValidateUseCaseBuilder().WithConfigLoader(service.NewConfigurationLoader()).Build(); err == nil {
		t.Error("expected error without a service factory")
	}
}

func TestValidateUseCase_Execute(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"card.rux":    cardSpec,
		"src/Card.js": "export function Card() {\n  console.log(1);\n}\n",
	})

	var out bytes.Buffer
	result, err := newTestUseCase(t).Execute(context.Background(), domain.ValidateRequest{
		Root:         root,
		OutputFormat: domain.OutputFormatText,
		OutputWriter: &out,
		NoColor:      true,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Passed() || result.ExitCode() != constants.ExitViolations {
		t.Errorf("expected a failing run, got exit %d", result.ExitCode())
	}
	if result.Response.Summary.Errors != 1 {
		t.Errorf("expected 1 error, got %+v", result.Response.Summary)
	}
	if !strings.Contains(out.String(), "FAILED") || !strings.Contains(out.String(), "card.rux") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestValidateUseCase_ConfigFromRoot(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"card.rux":    cardSpec,
		"src/Card.js": "export function Card() {\n  return 1;\n}\n",
		"rux.yaml":    "output:\n  format: json\n",
	})

	var out bytes.Buffer
	result, err := newTestUseCase(t).Execute(context.Background(), domain.ValidateRequest{Root: root, OutputWriter: &out})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Request.OutputFormat != domain.OutputFormatJSON {
		t.Errorf("expected json from rux.yaml, got %s", result.Request.OutputFormat)
	}
	if !strings.HasPrefix(strings.TrimSpace(out.String()), "{") {
		t.Errorf("expected JSON output, got %s", out.String())
	}
	if !result.Passed() || result.ExitCode() != constants.ExitOK {
		t.Errorf("expected a clean run, got %+v", result.Response.Summary)
	}
}

func TestValidateUseCase_Errors(t *testing.T) {
	uc := newTestUseCase(t)

	var discoveryErr *domain.DiscoveryError
	if _, err := uc.Execute(context.Background(), domain.ValidateRequest{Root: filepath.Join(t.TempDir(), "missing")}); !errors.As(err, &discoveryErr) {
		t.Errorf("expected DiscoveryError, got %v", err)
	}

	root := testutil.WriteTree(t, map[string]string{"card.rux": cardSpec})
	var configErr *domain.ConfigError
	_, err := uc.Execute(context.Background(), domain.ValidateRequest{Root: root, ConfigPath: filepath.Join(root, "nope.yaml")})
	if !errors.As(err, &configErr) {
		t.Errorf("expected ConfigError, got %v", err)
	}

	_, err = uc.Execute(context.Background(), domain.ValidateRequest{Root: root, OutputFormat: "xml"})
	if err == nil || !strings.Contains(err.Error(), "invalid request") {
		t.Errorf("expected invalid request error, got %v", err)
	}
}
