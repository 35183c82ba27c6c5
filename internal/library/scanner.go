package library

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/indexer"
)

// ScannedFile represents an indexable file found under the library root.
type ScannedFile struct {
	RelPath string // relative to the library root, forward slashes (e.g. "claims/Claims_Guide.md")
	AbsPath string
}

// Scan walks root and returns every file the indexer can extract text from.
// Hidden files and directories are skipped.
func Scan(ctx context.Context, root string) ([]ScannedFile, error) {
	var files []ScannedFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !indexer.SupportedFile(path) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		files = append(files, ScannedFile{RelPath: filepath.ToSlash(rel), AbsPath: path})
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("failed to scan library %s: %w", root, err)
	}
	return files, nil
}
