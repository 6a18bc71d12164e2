package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileTask is one unit of work: an input path and, for compression, the
// derived output archive path. Immutable once created; consumed exactly
// once by a worker.
type FileTask struct {
	InputPath  string
	OutputPath string
}

// archiveExtensions are the file extensions verification considers.
var archiveExtensions = map[string]bool{
	".zip": true,
	".7z":  true,
	".rar": true,
}

// enumerateInputFiles lists regular files directly under root in
// directory order. Subdirectories are never descended for compression.
func enumerateInputFiles(readDir func(string) ([]os.DirEntry, error), root string) ([]string, error) {
	entries, err := readDir(root)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(root, entry.Name()))
	}
	return files, nil
}

// enumerateArchives walks root collecting archive files, recursively
// when includeSubfolders is set. The order is the deterministic lexical
// walk order for a fixed filesystem state.
func enumerateArchives(root string, includeSubfolders bool) ([]string, error) {
	root = filepath.Clean(root)

	archives := make([]string, 0, 64)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if !includeSubfolders && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if archiveExtensions[strings.ToLower(filepath.Ext(path))] {
			archives = append(archives, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return archives, nil
}
