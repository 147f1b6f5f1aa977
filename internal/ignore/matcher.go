package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher decides whether a path falls under any configured ignore entry.
//
// Plain entries are directory roots: the entry itself and every descendant
// match, compared on canonical absolute paths. Entries containing glob meta
// characters are matched with doublestar against the path and each of its
// ancestors, so a matched directory prunes its whole subtree. Relative
// entries of both kinds are anchored at the working directory.
type Matcher struct {
	roots    []string
	patterns []string
}

func New(entries []string) (*Matcher, error) {
	m := &Matcher{}

	for _, entry := range entries {
		if entry == "" {
			continue
		}

		abs, err := filepath.Abs(entry)
		if err != nil {
			return nil, fmt.Errorf("filepath.Abs: %w", err)
		}

		if isPattern(entry) {
			if !doublestar.ValidatePattern(abs) {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, entry)
			}
			m.patterns = append(m.patterns, abs)
			continue
		}

		m.roots = append(m.roots, abs)
	}

	return m, nil
}

// Match reports whether path equals or descends from an ignore entry.
func (m *Matcher) Match(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	for _, root := range m.roots {
		if abs == root || strings.HasPrefix(abs, root+string(os.PathSeparator)) {
			return true
		}
	}

	for _, pattern := range m.patterns {
		for p := abs; ; p = filepath.Dir(p) {
			if ok, _ := doublestar.Match(pattern, p); ok {
				return true
			}
			if p == filepath.Dir(p) {
				break
			}
		}
	}

	return false
}

func isPattern(entry string) bool {
	return strings.ContainsAny(entry, "*?[{")
}
