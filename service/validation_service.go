package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/analyzer"
	"github.com/ludo-technologies/rux/internal/config"
	"github.com/ludo-technologies/rux/internal/rules"
	"github.com/ludo-technologies/rux/internal/version"
)

// ValidationServiceImpl implements domain.ValidationService
type ValidationServiceImpl struct {
	discovery   *SpecDiscovery
	loader      *SpecLoader
	executor    domain.ParallelExecutor
	performance config.PerformanceConfig
	logger      *slog.Logger
	now         func() time.Time
}

// NewValidationService creates a validation service. perf bounds the
// parallel executor and the pattern cache; progress may be nil.
func NewValidationService(perf *config.PerformanceConfig, progress domain.ProgressManager, logger *slog.Logger) *ValidationServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	if perf == nil {
		perf = &config.DefaultConfig().Performance
	}
	if progress == nil {
		progress = &NoOpProgressManager{}
	}

	return &ValidationServiceImpl{
		discovery:   NewSpecDiscovery(logger),
		loader:      NewSpecLoader(logger),
		executor:    NewParallelExecutorWithProgress(perf, progress).WithLogger(logger),
		performance: *perf,
		logger:      logger,
		now:         time.Now,
	}
}

// Validate discovers every spec below req.Root, merges the base specs and
// validates each component against its target file. Only an unreadable
// root, a cancelled context or a timeout is returned as an error.
func (s *ValidationServiceImpl) Validate(ctx context.Context, req domain.ValidateRequest) (*domain.ValidateResponse, error) {
	start := s.now()

	specs, err := s.discovery.Discover(req)
	if err != nil {
		return nil, err
	}

	response := &domain.ValidateResponse{
		RunID:   uuid.NewString(),
		Root:    req.Root,
		Modules: make([]domain.ModuleResult, 0, specs.Len()),
		Version: version.GetVersion(),
	}

	base, baseResults := s.compileBase(ctx, specs.Globals)
	response.Modules = append(response.Modules, baseResults...)

	evaluator := analyzer.NewEvaluator(s.evaluatorOptions(req), s.logger)
	baseDir := req.BaseDir
	if baseDir == "" {
		baseDir = specRootDir(specs.Root)
	}

	results := make([]domain.ModuleResult, len(specs.Components))
	tasks := make([]domain.ExecutableTask, len(specs.Components))
	for i, spec := range specs.Components {
		tasks[i] = &moduleTask{
			spec:      spec,
			base:      base,
			baseDir:   baseDir,
			loader:    s.loader,
			evaluator: evaluator,
			result:    &results[i],
			logger:    s.logger,
		}
	}

	if err := s.executor.Execute(ctx, tasks); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("validation interrupted: %w", err)
		}
		// per-module failures are already recorded in their results
		s.logger.Warn("some modules could not be validated", "error", err)
	}

	response.Modules = append(response.Modules, results...)
	response.SortModules()
	response.Summarize()

	end := s.now()
	response.GeneratedAt = end.UTC().Format(time.RFC3339)
	response.DurationMs = end.Sub(start).Milliseconds()

	s.logger.Debug("validation finished",
		"run_id", response.RunID,
		"modules", response.Summary.ModulesValidated,
		"errors", response.Summary.Errors,
		"warnings", response.Summary.Warnings,
		"syntax_errors", response.Summary.SyntaxErrors)
	return response, nil
}

// compileBase compiles the base specs in discovery order and folds them
// into one rule set
func (s *ValidationServiceImpl) compileBase(ctx context.Context, globals []SpecFile) (*rules.RuleSet, []domain.ModuleResult) {
	sets := make([]*rules.RuleSet, 0, len(globals))
	results := make([]domain.ModuleResult, 0, len(globals))

	for _, spec := range globals {
		compiled := s.loader.Load(ctx, spec)
		rs := compiled.RuleSet()
		sets = append(sets, rs)
		results = append(results, domain.ModuleResult{
			Spec:        spec.Rel,
			Module:      rs.ModuleName,
			Base:        true,
			Source:      compiled.Source,
			RuleCount:   rs.RuleCount(),
			Diagnostics: compiled.Diagnostics,
		})
	}

	base := rules.MergeAll(sets...)
	if len(globals) > 0 {
		s.logger.Debug("merged base specifications", "files", len(globals), "rules", base.RuleCount())
	}
	return base, results
}

func (s *ValidationServiceImpl) evaluatorOptions(req domain.ValidateRequest) analyzer.Options {
	opts := analyzer.DefaultOptions()
	opts.StrictImports = req.StrictImports
	opts.CheckInterface = req.CheckInterface
	opts.FallbackOnParseError = req.FallbackOnParseError
	if s.performance.PatternCacheSize > 0 {
		opts.PatternCacheSize = s.performance.PatternCacheSize
	}
	return opts
}

// specRootDir returns the directory module locations resolve against when
// no base directory is configured
func specRootDir(root string) string {
	if isSpecFile(root) {
		return filepath.Dir(root)
	}
	return root
}

// moduleTask validates one component spec; it writes only to its own result
type moduleTask struct {
	spec      SpecFile
	base      *rules.RuleSet
	baseDir   string
	loader    *SpecLoader
	evaluator *analyzer.Evaluator
	result    *domain.ModuleResult
	logger    *slog.Logger
}

func (t *moduleTask) Name() string    { return t.spec.Rel }
func (t *moduleTask) IsEnabled() bool { return true }

func (t *moduleTask) Execute(ctx context.Context) (interface{}, error) {
	start := time.Now()
	compiled := t.loader.Load(ctx, t.spec)
	rs := rules.Merge(t.base, compiled.RuleSet())

	*t.result = domain.ModuleResult{
		Spec:        t.spec.Rel,
		Module:      rs.ModuleName,
		Source:      compiled.Source,
		RuleCount:   rs.RuleCount(),
		Diagnostics: compiled.Diagnostics,
		Mode:        domain.ModeSkipped,
	}
	defer func() { t.result.DurationMs = time.Since(start).Milliseconds() }()

	if rs.Location == "" {
		t.logger.Debug("module declares no location; nothing to evaluate", "spec", t.spec.Rel)
		return t.result, nil
	}

	path := rs.Location
	if !filepath.IsAbs(path) {
		path = filepath.Join(t.baseDir, filepath.FromSlash(rs.Location))
	}
	t.result.Target = path

	target, err := analyzer.LoadTarget(ctx, path)
	if err != nil {
		t.result.Violations = []domain.Violation{{
			Type:     domain.ViolationMissing,
			Severity: domain.SeverityError,
			Message:  err.Error(),
			Module:   rs.ModuleName,
			File:     path,
			Rule:     rs.Location,
		}}
		return t.result, err
	}

	report := analyzer.NewReport(rs.ModuleName, path)
	t.result.Mode = t.evaluator.EvaluateInto(rs, target, report)
	t.result.Violations = report.Violations()

	t.logger.Debug("module validated",
		"spec", t.spec.Rel, "module", rs.ModuleName, "mode", t.result.Mode,
		"violations", len(t.result.Violations), "duration", time.Since(start))
	return t.result, nil
}
