package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDestinationExists reports a relocation refused because a same-named
// file already sits at the target; the source is left untouched.
var ErrDestinationExists = errors.New("destination file already exists")

// Relocator moves files from a source tree to a destination root,
// optionally mirroring the relative subdirectory path. It never
// overwrites an existing file.
type Relocator struct {
	rename   func(oldpath, newpath string) error
	mkdirAll func(path string, perm os.FileMode) error
	stat     func(name string) (os.FileInfo, error)
}

// NewRelocator builds a relocator using real OS dependencies.
func NewRelocator() *Relocator {
	return &Relocator{
		rename:   os.Rename,
		mkdirAll: os.MkdirAll,
		stat:     os.Stat,
	}
}

// Move relocates sourceFile under destRoot. With mirror set and the
// source sitting below baseRoot, the source directory's path relative to
// baseRoot is recreated under destRoot; otherwise the file lands in
// destRoot directly. Returns ErrDestinationExists when a same-named file
// is already at the target.
func (r *Relocator) Move(sourceFile, destRoot, baseRoot string, mirror bool) (string, error) {
	targetDir := destRoot
	if mirror {
		sourceDir := filepath.Dir(sourceFile)
		if rel, err := filepath.Rel(baseRoot, sourceDir); err == nil && rel != "." && !isOutsideBase(rel) {
			targetDir = filepath.Join(destRoot, rel)
		}
	}

	if err := r.mkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination directory %s: %w", targetDir, err)
	}

	target := filepath.Join(targetDir, filepath.Base(sourceFile))
	if _, err := r.stat(target); err == nil {
		return "", fmt.Errorf("%w: %s", ErrDestinationExists, target)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("check destination %s: %w", target, err)
	}

	if err := r.rename(sourceFile, target); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", sourceFile, target, err)
	}
	return target, nil
}

// isOutsideBase reports whether a relative path escapes its base.
func isOutsideBase(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// NewRelocatorForTests builds a relocator with injectable dependencies.
func NewRelocatorForTests(
	rename func(oldpath, newpath string) error,
	mkdirAll func(path string, perm os.FileMode) error,
	stat func(name string) (os.FileInfo, error),
) *Relocator {
	return &Relocator{
		rename:   rename,
		mkdirAll: mkdirAll,
		stat:     stat,
	}
}
