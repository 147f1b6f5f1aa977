package ignore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMatcher_Match(t *testing.T) {
	m, err := New([]string{"/watch/skip", "/var/cache", "/watch/**/node_modules"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "Ignore root itself", path: "/watch/skip", want: true},
		{name: "Direct child", path: "/watch/skip/a", want: true},
		{name: "Nested descendant", path: "/watch/skip/a/b/c", want: true},
		{name: "Outside", path: "/watch/keep/a", want: false},
		{name: "Sibling with ignored prefix", path: "/watch/skipped", want: false},
		{name: "Second root", path: "/var/cache/apt", want: true},
		{name: "Unnormalized descendant", path: "/watch/keep/../skip/a", want: true},
		{name: "Glob directory", path: "/watch/js/node_modules", want: true},
		{name: "Glob descendant", path: "/watch/js/node_modules/pkg/index.js", want: true},
		{name: "Glob non-match", path: "/watch/js/src/index.js", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestMatcher_MatchRelativeEntry(t *testing.T) {
	m, err := New([]string{"./testdir/ignoreme"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd() error = %v", err)
	}

	if !m.Match(filepath.Join(cwd, "testdir", "ignoreme", "file")) {
		t.Error("relative entry did not match its absolute descendant")
	}
	if !m.Match("./testdir/ignoreme/file") {
		t.Error("relative entry did not match a relative descendant")
	}
	if m.Match(filepath.Join(cwd, "testdir", "keep")) {
		t.Error("relative entry matched a path outside the ignore root")
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	if _, err := New([]string{"/watch/["}); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("New() error = %v, want ErrInvalidPattern", err)
	}
}
