package app

import (
	"context"
	"fmt"

	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/config"
	"github.com/ludo-technologies/rux/internal/constants"
)

// ConfigLoader turns a config file and command line values into a request
type ConfigLoader interface {
	LoadConfig(path, root string) (*config.Config, error)
	ToRequest(cfg *config.Config, root string) domain.ValidateRequest
	MergeConfig(base, override domain.ValidateRequest) domain.ValidateRequest
	ValidateRequest(req domain.ValidateRequest) error
}

// ServiceFactory builds the validation service once the config is known
type ServiceFactory func(cfg *config.Config) domain.ValidationService

// FormatterFactory builds the output formatter for a merged request
type FormatterFactory func(req domain.ValidateRequest) domain.OutputFormatter

// ValidateResult is the outcome of one validate run
type ValidateResult struct {
	Response *domain.ValidateResponse
	Request  domain.ValidateRequest
	Config   *config.Config
}

// Passed reports whether the run is clean under the request's warning policy
func (r *ValidateResult) Passed() bool {
	return r.Response != nil && r.Response.Passed(r.Request.AllowWarnings)
}

// ExitCode maps the result onto the process exit code
func (r *ValidateResult) ExitCode() int {
	if r.Passed() {
		return constants.ExitOK
	}
	return constants.ExitViolations
}

// ValidateUseCase orchestrates the validate workflow: config, request
// merging, validation and rendering
type ValidateUseCase struct {
	loader     ConfigLoader
	services   ServiceFactory
	formatters FormatterFactory
	fileHelper *FileHelper
}

// Execute runs one validation. override carries the command line values; its
// Root may be empty to validate the current directory. Errors are fatal:
// bad configuration, an unreadable root or an interrupted run.
func (uc *ValidateUseCase) Execute(ctx context.Context, override domain.ValidateRequest) (*ValidateResult, error) {
	root, err := uc.fileHelper.ResolveRoot(override.Root)
	if err != nil {
		return nil, err
	}
	override.Root = root

	cfg, err := uc.loader.LoadConfig(override.ConfigPath, root)
	if err != nil {
		return nil, err
	}

	req := uc.loader.MergeConfig(uc.loader.ToRequest(cfg, root), override)
	if err := uc.loader.ValidateRequest(req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	response, err := uc.services(cfg).Validate(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.OutputWriter != nil {
		if err := uc.formatters(req).Write(response, req.OutputFormat, req.OutputWriter); err != nil {
			return nil, fmt.Errorf("failed to write output: %w", err)
		}
	}

	return &ValidateResult{Response: response, Request: req, Config: cfg}, nil
}

// ValidateUseCaseBuilder provides a builder pattern for creating ValidateUseCase
type ValidateUseCaseBuilder struct {
	loader     ConfigLoader
	services   ServiceFactory
	formatters FormatterFactory
	fileHelper *FileHelper
}

// NewValidateUseCaseBuilder creates a new builder
func NewValidateUseCaseBuilder() *ValidateUseCaseBuilder {
	return &ValidateUseCaseBuilder{}
}

// WithConfigLoader sets the configuration loader
func (b *ValidateUseCaseBuilder) WithConfigLoader(loader ConfigLoader) *ValidateUseCaseBuilder {
	b.loader = loader
	return b
}

// WithServiceFactory sets the validation service factory
func (b *ValidateUseCaseBuilder) WithServiceFactory(factory ServiceFactory) *ValidateUseCaseBuilder {
	b.services = factory
	return b
}

// WithFormatterFactory sets the output formatter factory
func (b *ValidateUseCaseBuilder) WithFormatterFactory(factory FormatterFactory) *ValidateUseCaseBuilder {
	b.formatters = factory
	return b
}

// WithFileHelper sets the file helper
func (b *ValidateUseCaseBuilder) WithFileHelper(fileHelper *FileHelper) *ValidateUseCaseBuilder {
	b.fileHelper = fileHelper
	return b
}

// Build creates the ValidateUseCase with the configured dependencies
func (b *ValidateUseCaseBuilder) Build() (*ValidateUseCase, error) {
	if b.loader == nil {
		return nil, fmt.Errorf("configuration loader is required")
	}
	if b.services == nil {
		return nil, fmt.Errorf("validation service factory is required")
	}
	if b.formatters == nil {
		return nil, fmt.Errorf("output formatter factory is required")
	}

	uc := &ValidateUseCase{
		loader:     b.loader,
		services:   b.services,
		formatters: b.formatters,
		fileHelper: b.fileHelper,
	}

	if uc.fileHelper == nil {
		uc.fileHelper = NewFileHelper()
	}

	return uc, nil
}
