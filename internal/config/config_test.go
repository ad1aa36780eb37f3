package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig should not return nil")
	}

	if len(config.Discovery.IncludePatterns) == 0 {
		t.Error("IncludePatterns should not be empty")
	}
	if len(config.Discovery.GlobalFiles) != 4 {
		t.Errorf("Expected 4 global files, got %v", config.Discovery.GlobalFiles)
	}
	if !config.Discovery.RespectGitignore {
		t.Error("RespectGitignore should be true by default")
	}
	if !config.Validation.FallbackOnParseError {
		t.Error("FallbackOnParseError should be true by default")
	}
	if config.Validation.StrictImports || config.Validation.CheckInterface {
		t.Error("Optional checks should be off by default")
	}
	if config.Output.Format != "text" {
		t.Errorf("Expected Format 'text', got '%s'", config.Output.Format)
	}
	if config.Performance.PatternCacheSize != DefaultPatternCacheSize {
		t.Errorf("Expected PatternCacheSize %d, got %d", DefaultPatternCacheSize, config.Performance.PatternCacheSize)
	}
}

func TestDefaultGlobalFilesAreCopied(t *testing.T) {
	a := DefaultConfig()
	a.Discovery.GlobalFiles[0] = "changed.rux"

	if DefaultConfig().Discovery.GlobalFiles[0] != "global.rux" {
		t.Error("Mutating one default config must not affect another")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"invalid format", func(c *Config) { c.Output.Format = "html" }, "Format"},
		{"invalid group by", func(c *Config) { c.Output.GroupBy = "file" }, "GroupBy"},
		{"empty include", func(c *Config) { c.Discovery.IncludePatterns = nil }, "IncludePatterns"},
		{"blank exclude", func(c *Config) { c.Discovery.ExcludePatterns = []string{""} }, "ExcludePatterns"},
		{"negative goroutines", func(c *Config) { c.Performance.MaxGoroutines = -1 }, "MaxGoroutines"},
		{"global file path", func(c *Config) { c.Discovery.GlobalFiles = []string{"specs/global.rux"} }, "basenames"},
		{"global file extension", func(c *Config) { c.Discovery.GlobalFiles = []string{"global.yaml"} }, ".rux"},
		{"upper case global file", func(c *Config) { c.Discovery.GlobalFiles = []string{"GLOBAL.RUX"} }, ""},
		{"yaml format", func(c *Config) { c.Output.Format = "yaml" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_Validate_BaseDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	config := DefaultConfig()
	config.Validation.BaseDir = file
	if err := config.Validate(); err == nil {
		t.Error("Expected error for a base_dir that is a file")
	}
}

func TestIsGlobalFile(t *testing.T) {
	d := DefaultConfig().Discovery

	tests := []struct {
		path string
		want bool
	}{
		{"global.rux", true},
		{"specs/Base.RUX", true},
		{"/abs/_global.rux", true},
		{"architecture.rux", true},
		{"button.rux", false},
		{"global.rux.bak", false},
	}
	for _, tt := range tests {
		if got := d.IsGlobalFile(tt.path); got != tt.want {
			t.Errorf("IsGlobalFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLoadConfig_Default(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("RUX_CONFIG", "")

	config, err := LoadConfigWithTarget("", dir)
	if err != nil {
		t.Fatalf("LoadConfigWithTarget failed: %v", err)
	}
	if !reflect.DeepEqual(config.Discovery, DefaultConfig().Discovery) {
		t.Errorf("Expected default discovery, got %+v", config.Discovery)
	}
}

func TestLoadConfig_NonExistent(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("Expected error for a missing explicit config file")
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rux.yaml")
	content := `
discovery:
  global_files: ["shared.rux"]
validation:
  strict_imports: true
output:
  format: json
performance:
  max_goroutines: 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !config.Validation.StrictImports {
		t.Error("Expected strict_imports from file")
	}
	if config.Output.Format != "json" {
		t.Errorf("Expected json format, got %s", config.Output.Format)
	}
	if config.Performance.MaxGoroutines != 2 {
		t.Errorf("Expected 2 goroutines, got %d", config.Performance.MaxGoroutines)
	}
	if len(config.Discovery.GlobalFiles) != 1 || config.Discovery.GlobalFiles[0] != "shared.rux" {
		t.Errorf("Expected [shared.rux], got %v", config.Discovery.GlobalFiles)
	}
	if !config.Validation.FallbackOnParseError {
		t.Error("Keys absent from the file should keep their defaults")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rux.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: html\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("Expected invalid configuration error, got %v", err)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rux.yaml")
	if err := os.WriteFile(path, []byte("validation:\n  check_interface: false\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RUX_VALIDATION_CHECK_INTERFACE", "true")
	t.Setenv("RUX_OUTPUT_FORMAT", "yaml")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !config.Validation.CheckInterface {
		t.Error("Expected RUX_VALIDATION_CHECK_INTERFACE to override the file")
	}
	if config.Output.Format != "yaml" {
		t.Errorf("Expected yaml from env, got %s", config.Output.Format)
	}
}

func TestFindConfig_WalksUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "packages", "ui", "src")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(root, ".rux.yml")
	if err := os.WriteFile(configPath, []byte("output:\n  color: false\n"), 0644); err != nil {
		t.Fatal(err)
	}

	found := FindConfig(nested)
	if found != configPath {
		t.Errorf("Expected %s, got %s", configPath, found)
	}

	config, err := LoadConfigWithTarget("", nested)
	if err != nil {
		t.Fatalf("LoadConfigWithTarget failed: %v", err)
	}
	if config.Output.Color {
		t.Error("Expected color disabled by discovered config")
	}
}

func TestSearchConfigInDirectory(t *testing.T) {
	dir := t.TempDir()
	if got := searchConfigInDirectory(dir, configCandidates); got != "" {
		t.Errorf("Expected no config, got %s", got)
	}

	// Directories named like a candidate are skipped
	if err := os.Mkdir(filepath.Join(dir, "rux.yaml"), 0755); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "rux.json")
	if err := os.WriteFile(jsonPath, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := searchConfigInDirectory(dir, configCandidates); got != jsonPath {
		t.Errorf("Expected %s, got %s", jsonPath, got)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	config := DefaultConfig()
	config.Validation.StrictImports = true
	config.Output.Format = "json"

	if err := SaveConfig(config, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !loaded.Validation.StrictImports || loaded.Output.Format != "json" {
		t.Errorf("Expected saved values, got %+v", loaded)
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	config, err := LoadDefaultConfig()
	if err != nil {
		t.Fatalf("LoadDefaultConfig failed: %v", err)
	}
	if !reflect.DeepEqual(config, DefaultConfig()) {
		t.Errorf("Embedded config drifted from DefaultConfig:\n%+v\n%+v", config, DefaultConfig())
	}
}

func TestFullConfigTemplate(t *testing.T) {
	tests := []struct {
		projectType ProjectType
		strictness  Strictness
		check       func(t *testing.T, c *Config)
	}{
		{ProjectTypeGeneric, StrictnessRelaxed, func(t *testing.T, c *Config) {
			if c.Validation.FailOnWarnings || c.Validation.StrictImports {
				t.Error("Relaxed preset should not fail on warnings")
			}
		}},
		{ProjectTypeFrontend, StrictnessStandard, func(t *testing.T, c *Config) {
			if !c.Validation.FailOnWarnings {
				t.Error("Standard preset should fail on warnings")
			}
			if c.Discovery.IncludePatterns[0] != "src/**/*.rux" {
				t.Errorf("Unexpected include %v", c.Discovery.IncludePatterns)
			}
		}},
		{ProjectTypeMonorepo, StrictnessStrict, func(t *testing.T, c *Config) {
			if !c.Validation.StrictImports || !c.Validation.CheckInterface {
				t.Error("Strict preset should enable optional checks")
			}
			if c.Validation.BaseDir != "." {
				t.Errorf("Expected base_dir '.', got %q", c.Validation.BaseDir)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.projectType)+"/"+string(tt.strictness), func(t *testing.T) {
			template := GetFullConfigTemplate(tt.projectType, tt.strictness)
			if !strings.Contains(template, "# rux configuration") {
				t.Error("Template should be documented")
			}

			config := DefaultConfig()
			if err := yaml.Unmarshal([]byte(template), config); err != nil {
				t.Fatalf("Template is not valid YAML: %v", err)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("Template produced invalid config: %v", err)
			}
			tt.check(t, config)
		})
	}
}

func TestMinimalTemplateIsShorter(t *testing.T) {
	minimal := GetMinimalConfigTemplate()
	full := GetFullConfigTemplate(ProjectTypeGeneric, StrictnessStandard)
	if len(minimal) >= len(full) {
		t.Error("Minimal template should be shorter than the full template")
	}
}

func TestRenderConfigTemplate_RoundTrip(t *testing.T) {
	want := NewPresetConfig(ProjectTypeBackend, StrictnessRelaxed)
	want.Discovery.GlobalFiles = []string{"shared.rux"}
	want.Output.Format = "yaml"
	want.Output.Color = false

	got := DefaultConfig()
	if err := yaml.Unmarshal([]byte(RenderConfigTemplate(want)), got); err != nil {
		t.Fatalf("Rendered template is not valid YAML: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rendered config drifted:\n%+v\n%+v", got, want)
	}
}

func TestParsePresetNames(t *testing.T) {
	if pt, err := ParseProjectType(" Monorepo "); err != nil || pt != ProjectTypeMonorepo {
		t.Errorf("ParseProjectType = %q, %v", pt, err)
	}
	if _, err := ParseProjectType("desktop"); err == nil {
		t.Error("Expected error for unknown layout")
	}
	if s, err := ParseStrictness("STRICT"); err != nil || s != StrictnessStrict {
		t.Errorf("ParseStrictness = %q, %v", s, err)
	}
	if _, err := ParseStrictness("loose"); err == nil {
		t.Error("Expected error for unknown strictness")
	}
}
