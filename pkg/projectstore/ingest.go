package projectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMaxIngestSize caps how large a single file may be before an
// import skips it.
const DefaultMaxIngestSize = 10 * 1024 * 1024

var defaultSkipDirs = []string{".git", "node_modules", "vendor", "dist", "target", "__pycache__"}

// IngestOptions tunes a directory import.
type IngestOptions struct {
	// MaxFileSize skips files larger than this many bytes.
	// Zero means DefaultMaxIngestSize.
	MaxFileSize int64

	// SkipDirs prunes directories by base name. Nil means the default
	// set (.git, node_modules and friends).
	SkipDirs []string
}

// IngestResult summarizes a completed import.
type IngestResult struct {
	Stored  int
	Skipped int
}

// Ingest walks the directory tree at root and stores every regular
// file into the project, keyed by its slash-separated relative path.
// Oversized and unreadable files count as skipped; pruned directories
// are not visited at all.
func Ingest(ctx context.Context, store Store, projectID, root string, opts IngestOptions) (*IngestResult, error) {
	maxSize := opts.MaxFileSize
	if maxSize == 0 {
		maxSize = DefaultMaxIngestSize
	}
	skipDirs := opts.SkipDirs
	if skipDirs == nil {
		skipDirs = defaultSkipDirs
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ingest root %s is not a directory", root)
	}

	result := &IngestResult{}
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.Skipped++
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if info.IsDir() {
			if path == root {
				return nil
			}
			name := filepath.Base(path)
			for _, skip := range skipDirs {
				if name == skip {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			result.Skipped++
			return nil
		}
		if info.Size() > maxSize {
			result.Skipped++
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			result.Skipped++
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			result.Skipped++
			return nil
		}
		if _, err := store.PutFile(ctx, projectID, filepath.ToSlash(rel), content); err != nil {
			return fmt.Errorf("store %s: %w", rel, err)
		}
		result.Stored++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
