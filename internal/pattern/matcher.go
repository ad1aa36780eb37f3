// Package pattern compiles and matches the wildcard patterns used by import
// restrictions, constraint patterns and exception lists.
package pattern

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of compiled expressions kept per Matcher
const DefaultCacheSize = 512

// Mode selects how the '?' token is interpreted
type Mode int

const (
	// ModePath treats '?' as a literal character (import paths, patterns)
	ModePath Mode = iota
	// ModeType treats '?' as an optional-type suffix marker
	ModeType
)

type cacheKey struct {
	pattern string
	mode    Mode
}

// Matcher matches candidates against wildcard patterns.
// Compiled expressions are cached; the cache never affects results.
type Matcher struct {
	cache *lru.Cache[cacheKey, *regexp.Regexp]
}

// NewMatcher creates a matcher with a bounded compiled-pattern cache
func NewMatcher(cacheSize int) *Matcher {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *regexp.Regexp](cacheSize)
	if err != nil {
		// only possible for a non-positive size, which is excluded above
		return &Matcher{}
	}
	return &Matcher{cache: cache}
}

// Match reports whether candidate fully satisfies pattern in path mode
func (m *Matcher) Match(pattern, candidate string) bool {
	re := m.compile(pattern, ModePath)
	return re != nil && re.MatchString(candidate)
}

// MatchType reports whether candidate fully satisfies pattern in type mode
func (m *Matcher) MatchType(pattern, candidate string) bool {
	re := m.compile(pattern, ModeType)
	return re != nil && re.MatchString(candidate)
}

// MatchAny returns the first pattern matching candidate
func (m *Matcher) MatchAny(patterns []string, candidate string) (string, bool) {
	for _, p := range patterns {
		if m.Match(p, candidate) {
			return p, true
		}
	}
	return "", false
}

func (m *Matcher) compile(pattern string, mode Mode) *regexp.Regexp {
	key := cacheKey{pattern: pattern, mode: mode}
	if m.cache != nil {
		if re, ok := m.cache.Get(key); ok {
			return re
		}
	}
	re, err := Compile(pattern, mode)
	if err != nil {
		return nil
	}
	if m.cache != nil {
		m.cache.Add(key, re)
	}
	return re
}

// Compile converts a wildcard pattern into an anchored regular expression.
// Literal segments are quoted, '*' matches any run of characters including
// path separators.
func Compile(pattern string, mode Mode) (*regexp.Regexp, error) {
	return regexp.Compile(Expression(pattern, mode))
}

// Expression returns the anchored regular expression source for pattern
func Expression(pattern string, mode Mode) string {
	var sb strings.Builder
	sb.WriteString("^")
	literal := strings.Builder{}
	flush := func() {
		if literal.Len() > 0 {
			sb.WriteString(regexp.QuoteMeta(literal.String()))
			literal.Reset()
		}
	}
	for _, r := range pattern {
		switch {
		case r == '*':
			flush()
			sb.WriteString(".*")
		case r == '?' && mode == ModeType:
			flush()
			sb.WriteString(`\??`)
		default:
			literal.WriteRune(r)
		}
	}
	flush()
	sb.WriteString("$")
	return sb.String()
}

var defaultMatcher = NewMatcher(DefaultCacheSize)

// Match reports whether candidate fully satisfies pattern using a shared matcher
func Match(pattern, candidate string) bool {
	return defaultMatcher.Match(pattern, candidate)
}

// MatchType is the type-context variant of Match using a shared matcher
func MatchType(pattern, candidate string) bool {
	return defaultMatcher.MatchType(pattern, candidate)
}

// MatchAny returns the first pattern matching candidate using a shared matcher
func MatchAny(patterns []string, candidate string) (string, bool) {
	return defaultMatcher.MatchAny(patterns, candidate)
}
