// Package status compares a snapshot database against a live
// node_modules tree by re-hashing each recorded file.
package status

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nodesnap/nodesnap/internal/hashutil"
	"github.com/nodesnap/nodesnap/internal/store"
	"github.com/nodesnap/nodesnap/pkg/types"
)

// Options configures a status run.
type Options struct {
	DB       string
	Tree     string
	Progress types.ProgressFunc
}

// Result categorizes every file recorded in a snapshot relative to the
// current state of a tree on disk.
type Result struct {
	OnlyInDB  []string
	OnlyInFS  []string // reserved; always empty
	Modified  []string
	Unchanged int
}

// Clean reports whether the tree matches the snapshot exactly.
func (r Result) Clean() bool {
	return len(r.Modified) == 0 && len(r.OnlyInDB) == 0
}

// Diff compares opts.DB against opts.Tree.
func Diff(ctx context.Context, opts Options) (*Result, error) {
	dbPath, err := filepath.Abs(opts.DB)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, types.ErrDatabaseNotFound
	}

	treePath, err := filepath.Abs(opts.Tree)
	if err != nil {
		return nil, fmt.Errorf("resolve tree path: %w", err)
	}
	if _, err := os.Stat(treePath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: tree not found: %s\n", treePath)
		return &Result{}, nil
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
	}
	defer func() { _ = db.Close() }()

	files, err := db.GetAllFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
	}

	result := &Result{}
	total := len(files)
	for i, f := range files {
		relative := f.PackagePath + "/" + f.File.RelativePath
		fullPath := filepath.Join(treePath, f.PackagePath, f.File.RelativePath)

		if opts.Progress != nil {
			opts.Progress(i+1, total, f.File.RelativePath)
		}

		content, err := os.ReadFile(fullPath)
		switch {
		case os.IsNotExist(err):
			result.OnlyInDB = append(result.OnlyInDB, relative)
		case err != nil:
			result.Modified = append(result.Modified, relative)
		case hashutil.Sum(content) != f.File.BlobHash:
			result.Modified = append(result.Modified, relative)
		default:
			result.Unchanged++
		}
	}

	return result, nil
}
