// Package testutil holds fixture helpers shared by tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CopyTree replaces dst with a copy of src. Files named dot-<name> are
// written as .<name>, so fixtures can carry a .gitignore without the
// repository honoring it.
func CopyTree(src, dst string) error {
	_ = os.RemoveAll(dst)
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		if name, ok := strings.CutPrefix(d.Name(), "dot-"); ok {
			out = filepath.Join(filepath.Dir(out), "."+name)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(out, b, 0o644)
	})
}
