package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/ludo-technologies/rux/internal/constants"
)

// Default values for configuration
const (
	// DefaultMaxGoroutines bounds concurrent component validations
	DefaultMaxGoroutines = 4

	// DefaultTimeoutSeconds limits a whole validation run
	DefaultTimeoutSeconds = 300

	// DefaultPatternCacheSize is the number of compiled patterns kept per evaluator
	DefaultPatternCacheSize = 512

	// DefaultGroupBy groups text output by module
	DefaultGroupBy = "module"
)

// Config represents the rux configuration
type Config struct {
	Discovery   DiscoveryConfig   `mapstructure:"discovery" yaml:"discovery" json:"discovery"`
	Validation  ValidationConfig  `mapstructure:"validation" yaml:"validation" json:"validation"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output" json:"output"`
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance" json:"performance"`
}

// DiscoveryConfig controls which spec files are found under the root
type DiscoveryConfig struct {
	// IncludePatterns are doublestar globs relative to the root
	IncludePatterns []string `mapstructure:"include" yaml:"include" json:"include" validate:"min=1,dive,required"`

	// ExcludePatterns are doublestar globs relative to the root
	ExcludePatterns []string `mapstructure:"exclude" yaml:"exclude" json:"exclude" validate:"dive,required"`

	// GlobalFiles are basenames (case-insensitive) of specs merged into every component
	GlobalFiles []string `mapstructure:"global_files" yaml:"global_files" json:"global_files" validate:"dive,required"`

	// RespectGitignore skips specs ignored by the root .gitignore
	RespectGitignore bool `mapstructure:"respect_gitignore" yaml:"respect_gitignore" json:"respect_gitignore"`
}

// ValidationConfig holds evaluation options
type ValidationConfig struct {
	// BaseDir resolves module locations; empty means the spec root
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir" json:"base_dir"`

	StrictImports        bool `mapstructure:"strict_imports" yaml:"strict_imports" json:"strict_imports"`
	CheckInterface       bool `mapstructure:"check_interface" yaml:"check_interface" json:"check_interface"`
	FallbackOnParseError bool `mapstructure:"fallback_on_parse_error" yaml:"fallback_on_parse_error" json:"fallback_on_parse_error"`

	// FailOnWarnings makes warnings fail the run
	FailOnWarnings bool `mapstructure:"fail_on_warnings" yaml:"fail_on_warnings" json:"fail_on_warnings"`
}

// OutputConfig holds output formatting configuration
type OutputConfig struct {
	Format          string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=text json yaml"`
	Color           bool   `mapstructure:"color" yaml:"color" json:"color"`
	GroupBy         string `mapstructure:"group_by" yaml:"group_by" json:"group_by" validate:"oneof=module severity type"`
	ShowDiagnostics bool   `mapstructure:"show_diagnostics" yaml:"show_diagnostics" json:"show_diagnostics"`
}

// PerformanceConfig holds concurrency limits
type PerformanceConfig struct {
	MaxGoroutines    int `mapstructure:"max_goroutines" yaml:"max_goroutines" json:"max_goroutines" validate:"gte=0"`
	TimeoutSeconds   int `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds" validate:"gte=0"`
	PatternCacheSize int `mapstructure:"pattern_cache_size" yaml:"pattern_cache_size" json:"pattern_cache_size" validate:"gte=0"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			IncludePatterns:  []string{"**/*.rux"},
			ExcludePatterns:  []string{"**/node_modules/**", "**/.git/**", "**/dist/**", "**/build/**"},
			GlobalFiles:      append([]string(nil), constants.DefaultGlobalFiles...),
			RespectGitignore: true,
		},
		Validation: ValidationConfig{
			FallbackOnParseError: true,
			FailOnWarnings:       true,
		},
		Output: OutputConfig{
			Format:          constants.OutputFormatText,
			Color:           true,
			GroupBy:         DefaultGroupBy,
			ShowDiagnostics: true,
		},
		Performance: PerformanceConfig{
			MaxGoroutines:    DefaultMaxGoroutines,
			TimeoutSeconds:   DefaultTimeoutSeconds,
			PatternCacheSize: DefaultPatternCacheSize,
		},
	}
}

// LoadConfig loads configuration from file or returns default config
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration with target path context.
// An explicit configPath wins; otherwise the config is discovered from the
// target upward. Environment variables prefixed RUX_ override file values.
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

func loadConfigFromFile(configPath string) (*Config, error) {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	config := DefaultConfig()

	v.SetEnvPrefix(constants.EnvVarPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, config)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindDefaults registers every scalar key so AutomaticEnv can override it
// even when the file does not mention the key.
func bindDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("discovery.include", c.Discovery.IncludePatterns)
	v.SetDefault("discovery.exclude", c.Discovery.ExcludePatterns)
	v.SetDefault("discovery.global_files", c.Discovery.GlobalFiles)
	v.SetDefault("discovery.respect_gitignore", c.Discovery.RespectGitignore)
	v.SetDefault("validation.base_dir", c.Validation.BaseDir)
	v.SetDefault("validation.strict_imports", c.Validation.StrictImports)
	v.SetDefault("validation.check_interface", c.Validation.CheckInterface)
	v.SetDefault("validation.fallback_on_parse_error", c.Validation.FallbackOnParseError)
	v.SetDefault("validation.fail_on_warnings", c.Validation.FailOnWarnings)
	v.SetDefault("output.format", c.Output.Format)
	v.SetDefault("output.color", c.Output.Color)
	v.SetDefault("output.group_by", c.Output.GroupBy)
	v.SetDefault("output.show_diagnostics", c.Output.ShowDiagnostics)
	v.SetDefault("performance.max_goroutines", c.Performance.MaxGoroutines)
	v.SetDefault("performance.timeout_seconds", c.Performance.TimeoutSeconds)
	v.SetDefault("performance.pattern_cache_size", c.Performance.PatternCacheSize)
}

// configCandidates are searched in order within each directory
var configCandidates = []string{
	"rux.yaml",
	"rux.yml",
	".rux.yaml",
	".rux.yml",
	"rux.json",
	".rux.json",
}

func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// FindConfig returns the config file that would be used for targetPath, or ""
func FindConfig(targetPath string) string {
	return findDefaultConfig(targetPath)
}

func findDefaultConfig(targetPath string) string {
	if targetPath != "" {
		absPath, err := filepath.Abs(targetPath)
		if err == nil {
			// If it's a file, start from its directory
			info, err := os.Stat(absPath)
			if err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}

			volume := filepath.VolumeName(absPath)
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, configCandidates); config != "" {
					return config
				}

				parent := filepath.Dir(dir)
				if parent == dir ||
					dir == volume ||
					(volume != "" && dir == volume+string(filepath.Separator)) {
					break
				}
			}
		}
	}

	// Fallback to current directory
	if config := searchConfigInDirectory(".", configCandidates); config != "" {
		return config
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, constants.ToolName), configCandidates); config != "" {
			return config
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		configDir := filepath.Join(home, ".config", constants.ToolName)
		if config := searchConfigInDirectory(configDir, configCandidates); config != "" {
			return config
		}
	}

	if envConfig := os.Getenv(constants.ConfigEnvVar); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}

	return ""
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%s failed %q check (value: %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	for _, name := range c.Discovery.GlobalFiles {
		if err := ValidateGlobalFile(name); err != nil {
			return fmt.Errorf("discovery.global_files: %w", err)
		}
	}

	if c.Validation.BaseDir != "" {
		if info, err := os.Stat(c.Validation.BaseDir); err == nil && !info.IsDir() {
			return fmt.Errorf("validation.base_dir %q is not a directory", c.Validation.BaseDir)
		}
	}

	return nil
}

// ValidateGlobalFile checks one global_files entry: a basename ending in .rux
func ValidateGlobalFile(name string) error {
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("entries must be basenames, got %q", name)
	}
	if !strings.EqualFold(filepath.Ext(name), constants.SpecExtension) {
		return fmt.Errorf("entry %q must end in %s", name, constants.SpecExtension)
	}
	return nil
}

// IsGlobalFile reports whether a spec path names a global/base spec
func (c *DiscoveryConfig) IsGlobalFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range c.GlobalFiles {
		if strings.EqualFold(base, name) {
			return true
		}
	}
	return false
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("discovery", config.Discovery)
	v.Set("validation", config.Validation)
	v.Set("output", config.Output)
	v.Set("performance", config.Performance)

	return v.WriteConfig()
}
