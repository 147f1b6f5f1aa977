package enforcer

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/spf13/afero"
)

type countingFs struct {
	afero.Fs
	chmods int
}

func (c *countingFs) Chmod(name string, mode os.FileMode) error {
	c.chmods++
	return c.Fs.Chmod(name, mode)
}

func TestEnforce_Drift(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/d/a", []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	outcome, err := New(fsys, 0o755).Enforce("/d/a")
	if err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
	if !outcome.Changed {
		t.Error("Enforce() reported no change for drifted mode")
	}
	if outcome.From != 0o644 || outcome.To != 0o755 {
		t.Errorf("Enforce() = %03o -> %03o, want 644 -> 755", outcome.From, outcome.To)
	}

	info, err := fsys.Stat("/d/a")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %03o, want 755", info.Mode().Perm())
	}
}

func TestEnforce_Directory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := fsys.Mkdir("/d", 0o700); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	outcome, err := New(fsys, 0o755).Enforce("/d")
	if err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
	if !outcome.Changed {
		t.Error("Enforce() reported no change for drifted directory")
	}

	info, err := fsys.Stat("/d")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %03o, want 755", info.Mode().Perm())
	}
}

func TestEnforce_Idempotent(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := afero.WriteFile(base, "/d/a", []byte("x"), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	fsys := &countingFs{Fs: base}

	outcome, err := New(fsys, 0o755).Enforce("/d/a")
	if err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
	if outcome.Changed {
		t.Error("Enforce() reported a change for matching mode")
	}
	if fsys.chmods != 0 {
		t.Errorf("Enforce() performed %d writes, want 0", fsys.chmods)
	}
}

type denyChmodFs struct {
	afero.Fs
	denied string
}

func (d *denyChmodFs) Chmod(name string, mode os.FileMode) error {
	if name == d.denied {
		return &os.PathError{Op: "chmod", Path: name, Err: fs.ErrPermission}
	}

	return d.Fs.Chmod(name, mode)
}

func TestEnforce_PermissionDenied(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := afero.WriteFile(base, "/d/locked", []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := New(&denyChmodFs{Fs: base, denied: "/d/locked"}, 0o755).Enforce("/d/locked")
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("Enforce() error = %v, want fs.ErrPermission", err)
	}
}

func TestEnforce_NotFound(t *testing.T) {
	_, err := New(afero.NewMemMapFs(), 0o755).Enforce("/gone")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Enforce() error = %v, want fs.ErrNotExist", err)
	}
}
