// Package extractor materializes a snapshot database back onto the
// filesystem.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nodesnap/nodesnap/internal/gzipcodec"
	"github.com/nodesnap/nodesnap/internal/store"
	"github.com/nodesnap/nodesnap/pkg/types"
)

// smallBlobThreshold is the decompressed size below which a blob is kept
// in the cache; files this small tend to repeat across packages, and
// larger ones would dominate memory for little benefit.
const smallBlobThreshold = 100 * 1024

// cacheCapacity bounds the number of cached entries on top of the size
// threshold, so a tree with many small-but-distinct files can't grow
// the cache without limit.
const cacheCapacity = 4096

// Options configures an unpack run.
type Options struct {
	InputDB  string
	Output   string
	Force    bool
	Progress types.ProgressFunc
}

// Result summarizes a completed unpack run.
type Result struct {
	TotalFiles int
	TotalSize  int64
}

type preparedFile struct {
	fullPath string
	content  []byte
	mode     uint32
}

// Extract restores opts.InputDB into opts.Output.
func Extract(ctx context.Context, opts Options) (*Result, error) {
	inputDB, err := filepath.Abs(opts.InputDB)
	if err != nil {
		return nil, fmt.Errorf("resolve input path: %w", err)
	}
	if _, err := os.Stat(inputDB); err != nil {
		return nil, types.ErrDatabaseNotFound
	}

	output, err := filepath.Abs(opts.Output)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}
	if _, err := os.Stat(output); err == nil && !opts.Force {
		return nil, types.ErrOutputExists
	}

	db, err := store.Open(inputDB)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
	}
	defer func() { _ = db.Close() }()

	files, err := db.GetAllFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
	}
	total := len(files)

	if opts.Progress != nil {
		opts.Progress(0, total, "Reading blobs...")
	}

	prepared, err := readBlobs(ctx, db, output, files)
	if err != nil {
		return nil, err
	}

	if opts.Progress != nil {
		opts.Progress(total/2, total, "Writing files...")
	}

	totalSize, err := writeFiles(ctx, prepared)
	if err != nil {
		return nil, err
	}

	if opts.Progress != nil {
		opts.Progress(total, total, "Done")
	}

	return &Result{TotalFiles: total, TotalSize: totalSize}, nil
}

// readBlobs decompresses every referenced blob, reusing a bounded cache
// for small, frequently repeated content. A missing blob is a warning,
// not a failure; the file is dropped from the prepared set.
func readBlobs(ctx context.Context, db *store.SQLiteStore, output string, files []types.FileWithPackage) ([]preparedFile, error) {
	cache, err := lru.New[string, []byte](cacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("create blob cache: %w", err)
	}

	prepared := make([]preparedFile, 0, len(files))
	for _, f := range files {
		content, ok := cache.Get(f.File.BlobHash)
		if !ok {
			compressed, err := db.GetBlob(ctx, f.File.BlobHash)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: blob not found: %s\n", f.File.RelativePath)
				continue
			}
			decompressed, err := gzipcodec.Decompress(compressed)
			if err != nil {
				return nil, fmt.Errorf("decompress %s: %w", f.File.RelativePath, err)
			}
			if len(decompressed) < smallBlobThreshold {
				cache.Add(f.File.BlobHash, decompressed)
			}
			content = decompressed
		}

		fullPath := filepath.Join(output, f.PackagePath, f.File.RelativePath)
		prepared = append(prepared, preparedFile{
			fullPath: fullPath,
			content:  content,
			mode:     f.File.Mode,
		})
	}
	return prepared, nil
}

// writeFiles writes every prepared file and applies its permissions,
// bounded by GOMAXPROCS workers since writes are independent of one
// another once the content is already in memory.
func writeFiles(ctx context.Context, prepared []preparedFile) (int64, error) {
	var totalSize int64
	sizes := make([]int64, len(prepared))

	group, groupCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, max(1, runtime.GOMAXPROCS(0)))

	for i, pf := range prepared {
		i, pf := i, pf
		sem <- struct{}{}
		group.Go(func() error {
			defer func() { <-sem }()

			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			default:
			}

			if err := os.MkdirAll(filepath.Dir(pf.fullPath), 0o755); err != nil {
				return fmt.Errorf("%w: %v", types.ErrIO, err)
			}
			if err := os.WriteFile(pf.fullPath, pf.content, 0o644); err != nil {
				return fmt.Errorf("%w: %v", types.ErrIO, err)
			}
			if pf.mode != 0 {
				_ = os.Chmod(pf.fullPath, os.FileMode(pf.mode&0o777))
			}

			sizes[i] = int64(len(pf.content))
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return 0, err
	}
	for _, s := range sizes {
		totalSize += s
	}
	return totalSize, nil
}
