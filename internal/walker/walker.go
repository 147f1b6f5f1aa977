package walker

import (
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/capcom6/perm-keeper/internal/ignore"
)

// WalkFunc is invoked for every non-ignored path. Returning an error aborts
// the walk.
type WalkFunc func(path string, info fs.FileInfo) error

// Walk traverses root and every descendant, files and directories both,
// pruning anything the matcher ignores before it is yielded or descended
// into. The traversal is iterative with an explicit stack of pending
// directories. Directory entries come from lstat, so symlinks are yielded as
// leaves and never followed. Unreadable directories are logged and skipped
// and the walk continues with their siblings. Every call walks fresh.
func Walk(fsys afero.Fs, root string, ign *ignore.Matcher, fn WalkFunc) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("filepath.Abs: %w", err)
	}

	if ign.Match(root) {
		return nil
	}

	info, err := lstat(fsys, root)
	if err != nil {
		return fmt.Errorf("lstat: %w", err)
	}

	if err := fn(root, info); err != nil {
		return err
	}

	if !info.IsDir() {
		return nil
	}

	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := afero.ReadDir(fsys, dir)
		if err != nil {
			log.Printf("[WARN] can't read directory %s: %s", dir, err)
			continue
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if ign.Match(path) {
				continue
			}

			if err := fn(path, entry); err != nil {
				return err
			}

			if entry.IsDir() {
				stack = append(stack, path)
			}
		}
	}

	return nil
}

func lstat(fsys afero.Fs, path string) (fs.FileInfo, error) {
	if lstater, ok := fsys.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}

	return fsys.Stat(path)
}
