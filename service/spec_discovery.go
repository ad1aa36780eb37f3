package service

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/ludo-technologies/rux/domain"
	"github.com/ludo-technologies/rux/internal/constants"
)

// SpecFile is one discovered specification
type SpecFile struct {
	// Path is the file path as found on disk
	Path string

	// Rel is the slash-separated path relative to the root, used for output
	// ordering and glob matching
	Rel string

	// Global marks a base spec whose rules apply to every component
	Global bool
}

// DiscoveredSpecs splits discovered specs into base and component files, each
// in lexical discovery order
type DiscoveredSpecs struct {
	Root       string
	Globals    []SpecFile
	Components []SpecFile
}

// Len returns the number of discovered specs
func (d *DiscoveredSpecs) Len() int {
	return len(d.Globals) + len(d.Components)
}

// SpecDiscovery finds .rux files below a root
type SpecDiscovery struct {
	logger *slog.Logger
}

// NewSpecDiscovery creates a spec discovery service
func NewSpecDiscovery(logger *slog.Logger) *SpecDiscovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpecDiscovery{logger: logger}
}

// Discover walks req.Root and returns every spec accepted by the include,
// exclude and .gitignore filters. A root that cannot be read is a
// *domain.DiscoveryError. A root naming a single .rux file is accepted as is.
func (d *SpecDiscovery) Discover(req domain.ValidateRequest) (*DiscoveredSpecs, error) {
	root := req.Root
	info, err := os.Stat(root)
	if err != nil {
		return nil, &domain.DiscoveryError{Root: root, Err: err}
	}

	found := &DiscoveredSpecs{Root: root}
	if !info.IsDir() {
		if !isSpecFile(root) {
			return nil, &domain.DiscoveryError{Root: root, Err: errors.New("not a directory or .rux file")}
		}
		found.add(SpecFile{Path: root, Rel: filepath.ToSlash(filepath.Base(root))}, req.GlobalFiles)
		return found, nil
	}

	var gitignore *ignore.GitIgnore
	if req.RespectGitignore {
		gitignore = loadGitignore(root, d.logger)
	}

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			d.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if entry.Name() == ".git" || matchesAny(req.ExcludePatterns, rel) ||
				(gitignore != nil && gitignore.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isSpecFile(path) || !matchesAny(req.IncludePatterns, rel, specMatchPath(rel)) || matchesAny(req.ExcludePatterns, rel) {
			return nil
		}
		if gitignore != nil && gitignore.MatchesPath(rel) {
			d.logger.Debug("spec ignored by .gitignore", "spec", rel)
			return nil
		}

		found.add(SpecFile{Path: path, Rel: rel}, req.GlobalFiles)
		return nil
	})
	if err != nil {
		return nil, &domain.DiscoveryError{Root: root, Err: err}
	}

	d.logger.Debug("discovered specifications", "root", root, "base", len(found.Globals), "components", len(found.Components))
	return found, nil
}

func (d *DiscoveredSpecs) add(spec SpecFile, globalFiles []string) {
	if isGlobalSpec(spec.Path, globalFiles) {
		spec.Global = true
		d.Globals = append(d.Globals, spec)
		return
	}
	d.Components = append(d.Components, spec)
}

func isSpecFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), constants.SpecExtension)
}

func isGlobalSpec(path string, globalFiles []string) bool {
	base := filepath.Base(path)
	for _, name := range globalFiles {
		if strings.EqualFold(base, name) {
			return true
		}
	}
	return false
}

// specMatchPath lower-cases the extension so include globs agree with isSpecFile.
func specMatchPath(rel string) string {
	ext := filepath.Ext(rel)
	return strings.TrimSuffix(rel, ext) + strings.ToLower(ext)
}

// matchesAny reports whether any of rels matches one of the doublestar
// patterns. Malformed patterns never match.
func matchesAny(patterns []string, rels ...string) bool {
	for _, p := range patterns {
		for _, rel := range rels {
			if ok, err := doublestar.Match(p, rel); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func loadGitignore(root string, logger *slog.Logger) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		logger.Warn("ignoring unreadable .gitignore", "path", path, "error", err)
		return nil
	}
	return gi
}
