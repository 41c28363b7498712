package gate

import (
	"fmt"
	"path"
	"strings"
)

// PathSet is an immutable set of protected path patterns.
//
// A pattern is either an exact path ("/feed") or a subtree ("/post/*"),
// which matches the path itself and every path below it.
type PathSet struct {
	exact    map[string]struct{}
	prefixes []string
	patterns []string
}

// NewPathSet builds a PathSet. Every pattern must be rooted.
func NewPathSet(patterns ...string) (PathSet, error) {
	set := PathSet{exact: make(map[string]struct{})}

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			return PathSet{}, fmt.Errorf("protected path must start with '/': %q", p)
		}

		if strings.HasSuffix(p, "/*") {
			base := cleanPath(strings.TrimSuffix(p, "/*"))
			set.prefixes = append(set.prefixes, base)
		} else {
			set.exact[cleanPath(p)] = struct{}{}
		}
		set.patterns = append(set.patterns, p)
	}

	return set, nil
}

// MustPathSet is NewPathSet for static patterns
func MustPathSet(patterns ...string) PathSet {
	set, err := NewPathSet(patterns...)
	if err != nil {
		panic(err)
	}
	return set
}

// Match reports whether p is protected. It is pure: the result depends on
// nothing but p and the set. Empty and relative paths never match.
func (s PathSet) Match(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") {
		return false
	}
	p = cleanPath(p)

	if _, ok := s.exact[p]; ok {
		return true
	}
	for _, base := range s.prefixes {
		if p == base || base == "/" || strings.HasPrefix(p, base+"/") {
			return true
		}
	}
	return false
}

// Patterns returns the configured patterns in order
func (s PathSet) Patterns() []string {
	out := make([]string, len(s.patterns))
	copy(out, s.patterns)
	return out
}

// cleanPath resolves dot segments and duplicate slashes, and drops a
// trailing slash so "/feed/" and "/feed" are the same route.
func cleanPath(p string) string {
	return path.Clean(p)
}
