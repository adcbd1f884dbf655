package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/hotel-reports/constants"
	"github.com/joseph-ayodele/hotel-reports/internal/entity"
)

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// CollectDirectory walks root and returns an UploadedFile for every file with an allowed
// extension, in lexical path order. Hidden entries are skipped when skipHidden is set.
// Files are opened lazily by the pipeline, so unreadable files surface there.
func CollectDirectory(root string, skipHidden bool) ([]entity.UploadedFile, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root path is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, stats, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, stats, fmt.Errorf("%s is not a directory", root)
	}

	var files []entity.UploadedFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if path == root {
			return walkErr
		}
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			stats.Skipped++
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !allowedExt(filepath.Ext(path)) {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		files = append(files, entity.FileFromPath(path))
		return nil
	})
	if err != nil {
		return files, stats, fmt.Errorf("walk: %w", err)
	}
	return files, stats, nil
}

// CollectPaths turns explicit paths into UploadedFiles, keeping argument order.
// Directories are expanded with CollectDirectory.
func CollectPaths(paths []string, skipHidden bool) ([]entity.UploadedFile, DirStats, error) {
	var (
		files []entity.UploadedFile
		stats DirStats
	)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err == nil && info.IsDir() {
			sub, st, err := CollectDirectory(p, skipHidden)
			if err != nil {
				return nil, stats, err
			}
			files = append(files, sub...)
			stats.Scanned += st.Scanned
			stats.Matched += st.Matched
			stats.Skipped += st.Skipped
			stats.Failed += st.Failed
			continue
		}
		// Missing files are kept so the batch reports them as read failures.
		stats.Scanned++
		stats.Matched++
		files = append(files, entity.FileFromPath(p))
	}
	return files, stats, nil
}

func allowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// hidden reports dot-files and dot-directories.
func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
