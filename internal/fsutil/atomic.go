// Package fsutil holds the write discipline shared by every file the sync
// engine persists: content goes to a sibling temp path first and is then
// renamed over the target.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RenameFunc moves a fully written temp file over its target.
type RenameFunc func(oldpath, newpath string) error

// TempPath returns the sibling temp path for target: the extension is
// replaced with ".tmp", so index.md becomes index.tmp.
func TempPath(target string) string {
	ext := filepath.Ext(target)
	return strings.TrimSuffix(target, ext) + ".tmp"
}

// WriteFileAtomic writes data to TempPath(target) and renames it over target.
// A failed temp write removes the temp file. A failed rename leaves it in
// place for inspection; target is never touched in either case. A nil rename
// uses os.Rename.
func WriteFileAtomic(target string, data []byte, mode os.FileMode, rename RenameFunc) error {
	if rename == nil {
		rename = os.Rename
	}
	if mode == 0 {
		mode = 0o644
		if info, err := os.Stat(target); err == nil {
			mode = info.Mode().Perm()
		}
	}

	tmpPath := TempPath(target)
	if err := writeTemp(tmpPath, data, mode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := rename(tmpPath, target); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpPath, target, err)
	}
	return nil
}

func writeTemp(path string, data []byte, mode os.FileMode) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
