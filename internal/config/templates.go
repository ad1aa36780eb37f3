package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ProjectType describes how spec files are laid out in the repository
type ProjectType string

const (
	ProjectTypeGeneric  ProjectType = "generic"
	ProjectTypeFrontend ProjectType = "frontend"
	ProjectTypeBackend  ProjectType = "backend"
	ProjectTypeMonorepo ProjectType = "monorepo"
)

// Strictness represents how strictly specs are enforced
type Strictness string

const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// ProjectPreset holds discovery presets for different project types
type ProjectPreset struct {
	IncludePatterns []string
	ExcludePatterns []string
	BaseDir         string
}

// StrictnessPreset holds validation switches for different strictness levels
type StrictnessPreset struct {
	StrictImports  bool
	CheckInterface bool
	FailOnWarnings bool
}

// GetProjectPresets returns presets for different project types
func GetProjectPresets() map[ProjectType]ProjectPreset {
	return map[ProjectType]ProjectPreset{
		ProjectTypeGeneric: {
			IncludePatterns: []string{"**/*.rux"},
			ExcludePatterns: []string{
				"**/node_modules/**",
				"**/.git/**",
				"**/dist/**",
				"**/build/**",
			},
		},
		ProjectTypeFrontend: {
			IncludePatterns: []string{"src/**/*.rux", "*.rux"},
			ExcludePatterns: []string{
				"**/node_modules/**",
				"**/.next/**",
				"**/.nuxt/**",
				"**/dist/**",
				"**/coverage/**",
			},
		},
		ProjectTypeBackend: {
			IncludePatterns: []string{"**/*.rux"},
			ExcludePatterns: []string{
				"**/node_modules/**",
				"**/dist/**",
				"**/test/**",
				"**/__tests__/**",
			},
		},
		ProjectTypeMonorepo: {
			IncludePatterns: []string{"packages/**/*.rux", "apps/**/*.rux", "*.rux"},
			ExcludePatterns: []string{
				"**/node_modules/**",
				"**/dist/**",
				"**/build/**",
			},
			BaseDir: ".",
		},
	}
}

// GetStrictnessPresets returns presets for different strictness levels
func GetStrictnessPresets() map[Strictness]StrictnessPreset {
	return map[Strictness]StrictnessPreset{
		StrictnessRelaxed:  {},
		StrictnessStandard: {FailOnWarnings: true},
		StrictnessStrict: {
			StrictImports:  true,
			CheckInterface: true,
			FailOnWarnings: true,
		},
	}
}

// ParseProjectType resolves a layout name given on the command line
func ParseProjectType(name string) (ProjectType, error) {
	pt := ProjectType(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := GetProjectPresets()[pt]; !ok {
		return "", fmt.Errorf("unknown layout %q (expected generic, frontend, backend or monorepo)", name)
	}
	return pt, nil
}

// ParseStrictness resolves a strictness name given on the command line
func ParseStrictness(name string) (Strictness, error) {
	s := Strictness(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := GetStrictnessPresets()[s]; !ok {
		return "", fmt.Errorf("unknown strictness %q (expected relaxed, standard or strict)", name)
	}
	return s, nil
}

// NewPresetConfig returns the default configuration with the discovery and
// validation presets of a layout and strictness applied. Unknown values fall
// back to generic and standard.
func NewPresetConfig(projectType ProjectType, strictness Strictness) *Config {
	preset, ok := GetProjectPresets()[projectType]
	if !ok {
		preset = GetProjectPresets()[ProjectTypeGeneric]
	}
	strict, ok := GetStrictnessPresets()[strictness]
	if !ok {
		strict = GetStrictnessPresets()[StrictnessStandard]
	}

	c := DefaultConfig()
	c.Discovery.IncludePatterns = append([]string(nil), preset.IncludePatterns...)
	c.Discovery.ExcludePatterns = append([]string(nil), preset.ExcludePatterns...)
	c.Validation.BaseDir = preset.BaseDir
	c.Validation.StrictImports = strict.StrictImports
	c.Validation.CheckInterface = strict.CheckInterface
	c.Validation.FailOnWarnings = strict.FailOnWarnings
	return c
}

// GetFullConfigTemplate returns the documented config template as YAML
func GetFullConfigTemplate(projectType ProjectType, strictness Strictness) string {
	return RenderConfigTemplate(NewPresetConfig(projectType, strictness))
}

// RenderConfigTemplate renders c as a documented YAML config file
func RenderConfigTemplate(c *Config) string {
	return `# rux configuration
# Documentation: https://github.com/ludo-technologies/rux

# ============================================================================
# DISCOVERY
# ============================================================================
# Controls which .rux specifications are validated
discovery:
  # Spec files to include (doublestar globs relative to the root)
  include:
` + formatYAMLList(c.Discovery.IncludePatterns) + `
  # Spec files to skip
  exclude:
` + formatYAMLList(c.Discovery.ExcludePatterns) + `
  # Basenames of specs whose rules are merged into every component
  # (matched case-insensitively, merged in discovery order)
  global_files:
` + formatYAMLList(c.Discovery.GlobalFiles) + `
  # Skip specs ignored by the root .gitignore
  respect_gitignore: ` + strconv.FormatBool(c.Discovery.RespectGitignore) + `

# ============================================================================
# VALIDATION
# ============================================================================
validation:
  # Directory that module locations are resolved against ("" = spec root)
  base_dir: ` + strconv.Quote(c.Validation.BaseDir) + `

  # Report imports that no allow rule covers
  strict_imports: ` + strconv.FormatBool(c.Validation.StrictImports) + `

  # Require every public interface member to be exported by the target
  check_interface: ` + strconv.FormatBool(c.Validation.CheckInterface) + `

  # Evaluate line by line when the target does not parse
  fallback_on_parse_error: ` + strconv.FormatBool(c.Validation.FallbackOnParseError) + `

  # Treat warnings as failures (--allow-warnings overrides)
  fail_on_warnings: ` + strconv.FormatBool(c.Validation.FailOnWarnings) + `

# ============================================================================
# OUTPUT
# ============================================================================
output:
  # Output format: "text", "json", "yaml"
  format: ` + c.Output.Format + `

  # Use colors in terminal output (disable for CI logs)
  color: ` + strconv.FormatBool(c.Output.Color) + `

  # Grouping of text output: "module", "severity", "type"
  group_by: ` + c.Output.GroupBy + `

  # Print spec syntax diagnostics
  show_diagnostics: ` + strconv.FormatBool(c.Output.ShowDiagnostics) + `

# ============================================================================
# PERFORMANCE
# ============================================================================
performance:
  # Components validated concurrently (0 = number of CPUs)
  max_goroutines: ` + strconv.Itoa(c.Performance.MaxGoroutines) + `

  # Limit for a whole run in seconds (0 = no limit)
  timeout_seconds: ` + strconv.Itoa(c.Performance.TimeoutSeconds) + `

  # Compiled patterns cached per evaluator
  pattern_cache_size: ` + strconv.Itoa(c.Performance.PatternCacheSize) + `
`
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate() string {
	return DefaultConfigYAML
}

// formatYAMLList formats a string slice as an indented YAML sequence
func formatYAMLList(items []string) string {
	if len(items) == 0 {
		return "    []\n"
	}

	var b strings.Builder
	for _, item := range items {
		b.WriteString(`    - "` + item + `"` + "\n")
	}
	return b.String()
}
