package pattern

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"revhash/internal/mimetype"
)

// Set is a list of doublestar globs matched against slash-separated
// relative paths.
type Set struct {
	patterns []string
}

// Compile validates and normalises patterns. A dot-prefixed word is an
// extension: ".map" means "**/*.map". A bare word means the same only when
// it is a known extension, so "html" is "**/*.html" while "vendor" and
// "Makefile" stay literal names.
func Compile(patterns []string) (*Set, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = filepath.ToSlash(p)
		if isBareExtension(p) {
			p = "**/*." + strings.TrimPrefix(p, ".")
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
		out = append(out, p)
	}
	return &Set{patterns: out}, nil
}

func isBareExtension(p string) bool {
	word := strings.TrimPrefix(p, ".")
	if word == "" || strings.ContainsAny(word, "./*?[{") {
		return false
	}
	return word != p || mimetype.TypeByExtension(word) != ""
}

// Match reports whether rel matches any pattern in the set. Extensions
// compare case-insensitively, so "**/*.html" also matches "INDEX.HTML".
func (s *Set) Match(rel string) bool {
	if s == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	candidates := []string{rel}
	if ext := path.Ext(rel); ext != strings.ToLower(ext) {
		candidates = append(candidates, strings.TrimSuffix(rel, ext)+strings.ToLower(ext))
	}
	for _, pattern := range s.patterns {
		for _, c := range candidates {
			if ok, err := doublestar.Match(pattern, c); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func (s *Set) Patterns() []string {
	if s == nil {
		return nil
	}
	return s.patterns
}
