// Package fsutil holds the small filesystem helpers used when writing export
// output.
package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirPerm and FilePerm are the permissions used for created directories and files.
const (
	DirPerm  fs.FileMode = 0o755
	FilePerm fs.FileMode = 0o644
)

// MkdirAll creates dir and any missing parents.
func MkdirAll(dir string) error {
	return os.MkdirAll(dir, DirPerm)
}

// MkdirJustParents creates the directories needed for path to be created,
// but not path itself. Nothing is created when path has no parent.
func MkdirJustParents(path string) error {
	parent := filepath.Dir(path)
	if parent == "." || parent == path {
		return nil
	}
	return MkdirAll(parent)
}

// WriteFile writes data to path, creating parent directories first.
func WriteFile(path string, data []byte) error {
	if err := MkdirJustParents(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, FilePerm)
}

// Within reports whether path is dir itself or lies below it. Relative paths
// are resolved against the working directory.
func Within(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// CopyTree copies every regular file under src into dst, preserving the
// relative layout. It returns the number of files copied. When dst lies
// inside src it is skipped, so earlier copies are never copied again.
func CopyTree(src, dst string) (int, error) {
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return 0, fmt.Errorf("fsutil: resolve %s: %w", dst, err)
	}

	copied := 0
	err = filepath.WalkDir(src, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if abs, err := filepath.Abs(path); err == nil && abs == absDst {
				return filepath.SkipDir
			}
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return MkdirAll(target)
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("fsutil: copy %s to %s: %w", src, dst, err)
	}
	return copied, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := MkdirJustParents(dst); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, FilePerm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
