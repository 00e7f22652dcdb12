package filter

import (
	"path/filepath"
	"strings"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// NameFilter selects cases by name. A case matches when any pattern matches.
// Plain patterns are case-insensitive substrings of the full path or the leaf
// name; patterns containing glob metacharacters are matched as globs.
type NameFilter struct {
	patterns []string
}

func NewNameFilter(patterns ...string) *NameFilter {
	var kept []string
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &NameFilter{patterns: kept}
}

// Validate reports malformed glob patterns
func (f *NameFilter) Validate() error {
	if f == nil {
		return nil
	}
	ce := &types.ConfigError{}
	for _, p := range f.patterns {
		if isGlob(p) {
			if _, err := filepath.Match(p, ""); err != nil {
				ce.Addf("malformed name filter %q: %v", p, err)
			}
		}
	}
	return ce.Err()
}

func (f *NameFilter) Patterns() []string {
	if f == nil {
		return nil
	}
	return f.patterns
}

// Match reports whether a case with the given path is selected
func (f *NameFilter) Match(path []string) bool {
	if f == nil {
		return true
	}
	full := types.JoinPath(path)
	leaf := ""
	if len(path) > 0 {
		leaf = path[len(path)-1]
	}
	for _, p := range f.patterns {
		if matchPattern(p, full, leaf) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, full, leaf string) bool {
	if isGlob(pattern) {
		for _, candidate := range []string{full, leaf} {
			if ok, _ := filepath.Match(pattern, candidate); ok {
				return true
			}
		}
		return false
	}
	p := strings.ToLower(pattern)
	return strings.Contains(strings.ToLower(full), p) || strings.Contains(strings.ToLower(leaf), p)
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}
