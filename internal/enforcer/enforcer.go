package enforcer

import (
	"fmt"
	"io/fs"

	"github.com/spf13/afero"
)

// Outcome describes a single enforcement.
type Outcome struct {
	Path    string
	Changed bool
	From    fs.FileMode
	To      fs.FileMode
}

// Enforcer applies one desired permission mode to paths. Each call performs
// exactly one stat and, only when the observed mode differs, one chmod. It
// never retries; retry policy belongs to the caller.
type Enforcer struct {
	fsys afero.Fs
	mode fs.FileMode
}

func New(fsys afero.Fs, mode fs.FileMode) *Enforcer {
	return &Enforcer{
		fsys: fsys,
		mode: mode,
	}
}

// Enforce reconciles the permission bits of path with the desired mode.
// Errors wrap the underlying filesystem error, so callers classify them
// with errors.Is against fs.ErrNotExist and fs.ErrPermission.
func (e *Enforcer) Enforce(path string) (Outcome, error) {
	outcome := Outcome{Path: path, To: e.mode}

	info, err := e.fsys.Stat(path)
	if err != nil {
		return outcome, fmt.Errorf("fsys.Stat: %w", err)
	}

	outcome.From = info.Mode().Perm()
	if outcome.From == e.mode {
		return outcome, nil
	}

	if err := e.fsys.Chmod(path, e.mode); err != nil {
		return outcome, fmt.Errorf("fsys.Chmod: %w", err)
	}

	outcome.Changed = true

	return outcome, nil
}
