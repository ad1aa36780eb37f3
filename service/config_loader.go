package service

import (
	"fmt"

	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/config"
)

// ConfigurationLoaderImpl loads the tool configuration and turns it into
// validation requests
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads the configuration for a spec root. An explicit path must
// exist; otherwise the config is discovered from root upward and defaults
// apply when nothing is found.
func (c *ConfigurationLoaderImpl) LoadConfig(path, root string) (*config.Config, error) {
	used := path
	if used == "" {
		used = config.FindConfig(root)
	}

	cfg, err := config.LoadConfigWithTarget(used, root)
	if err != nil {
		return nil, &domain.ConfigError{Path: used, Err: err}
	}
	return cfg, nil
}

// LoadDefaultConfig returns the discovered configuration, or the built-in
// defaults when discovery or loading fails
func (c *ConfigurationLoaderImpl) LoadDefaultConfig(root string) *config.Config {
	cfg, err := c.LoadConfig("", root)
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// ToRequest converts a Config into a ValidateRequest for root
func (c *ConfigurationLoaderImpl) ToRequest(cfg *config.Config, root string) domain.ValidateRequest {
	return domain.ValidateRequest{
		Root:                 root,
		OutputFormat:         domain.OutputFormat(cfg.Output.Format),
		NoColor:              !cfg.Output.Color,
		ShowDiagnostics:      cfg.Output.ShowDiagnostics,
		GroupBy:              cfg.Output.GroupBy,
		IncludePatterns:      append([]string(nil), cfg.Discovery.IncludePatterns...),
		ExcludePatterns:      append([]string(nil), cfg.Discovery.ExcludePatterns...),
		GlobalFiles:          append([]string(nil), cfg.Discovery.GlobalFiles...),
		RespectGitignore:     cfg.Discovery.RespectGitignore,
		BaseDir:              cfg.Validation.BaseDir,
		StrictImports:        cfg.Validation.StrictImports,
		CheckInterface:       cfg.Validation.CheckInterface,
		FallbackOnParseError: cfg.Validation.FallbackOnParseError,
		AllowWarnings:        !cfg.Validation.FailOnWarnings,
	}
}

// MergeConfig overlays command line values on a request built from the
// config file. Switches only ever turn a check on; strings override when set.
func (c *ConfigurationLoaderImpl) MergeConfig(base domain.ValidateRequest, override domain.ValidateRequest) domain.ValidateRequest {
	merged := base

	if override.Root != "" {
		merged.Root = override.Root
	}
	if override.OutputFormat != "" {
		merged.OutputFormat = override.OutputFormat
	}
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}
	if override.GroupBy != "" {
		merged.GroupBy = override.GroupBy
	}
	if override.BaseDir != "" {
		merged.BaseDir = override.BaseDir
	}
	if len(override.IncludePatterns) > 0 {
		merged.IncludePatterns = override.IncludePatterns
	}
	if len(override.ExcludePatterns) > 0 {
		merged.ExcludePatterns = override.ExcludePatterns
	}

	merged.NoColor = merged.NoColor || override.NoColor
	merged.StrictImports = merged.StrictImports || override.StrictImports
	merged.CheckInterface = merged.CheckInterface || override.CheckInterface
	merged.AllowWarnings = merged.AllowWarnings || override.AllowWarnings

	return merged
}

// ValidateRequest checks a merged request before it is run
func (c *ConfigurationLoaderImpl) ValidateRequest(req domain.ValidateRequest) error {
	if req.Root == "" {
		return fmt.Errorf("no specification root specified")
	}

	switch req.OutputFormat {
	case domain.OutputFormatText, domain.OutputFormatJSON, domain.OutputFormatYAML:
	default:
		return fmt.Errorf("unsupported output format %q (want text, json or yaml)", req.OutputFormat)
	}

	if len(req.IncludePatterns) == 0 {
		return fmt.Errorf("at least one include pattern is required")
	}

	return nil
}
