// Package packer orchestrates the scanner, hasher, compressor, and store
// into a single pack operation.
package packer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nodesnap/nodesnap/internal/gzipcodec"
	"github.com/nodesnap/nodesnap/internal/hashutil"
	"github.com/nodesnap/nodesnap/internal/scanner"
	"github.com/nodesnap/nodesnap/internal/store"
	"github.com/nodesnap/nodesnap/pkg/types"
)

// Options configures a pack run.
type Options struct {
	Source           string
	Output           string
	CompressionLevel int // 1-9, default 6
	IncludeLockfile  bool
	Progress         types.ProgressFunc
}

// Result summarizes a completed pack run.
type Result struct {
	PackagesCount    int
	FilesCount       int
	OriginalSize     int64
	DatabaseSize     int64
	Deduplicated     int
	CompressionRatio float64 // percentage, 0-100
}

// Summary renders Result as the short human-readable lines a CLI prints
// after a successful pack.
func (r Result) Summary() []string {
	return []string{
		fmt.Sprintf("Original: %s", humanize.Bytes(uint64(r.OriginalSize))),
		fmt.Sprintf("DB size: %s", humanize.Bytes(uint64(r.DatabaseSize))),
		fmt.Sprintf("Compression: %.1f%%", r.CompressionRatio),
		fmt.Sprintf("Deduplicated: %d", r.Deduplicated),
	}
}

type processedFile struct {
	packageIndex int
	relativePath string
	hash         string
	compressed   []byte
	originalSize int64
	mode         uint32
	mtime        int64
}

// Pack snapshots opts.Source into a fresh database at opts.Output.
func Pack(ctx context.Context, opts Options) (*Result, error) {
	level := opts.CompressionLevel
	if level == 0 {
		level = 6
	}

	source, err := filepath.Abs(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	if _, err := os.Stat(source); err != nil {
		return nil, types.ErrSourceNotFound
	}

	output, err := filepath.Abs(opts.Output)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}

	scanResult, err := scanner.Scan(source, opts.Progress)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", source, err)
	}

	if err := removeExisting(output); err != nil {
		return nil, fmt.Errorf("clear existing snapshot: %w", err)
	}

	tmpPath := output + ".tmp-" + uuid.NewString()
	db, err := store.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
	}
	defer func() {
		_ = db.Close()
		_ = removeExisting(tmpPath)
	}()

	if err := seedMetadata(ctx, db, source, opts.IncludeLockfile); err != nil {
		return nil, err
	}

	allFiles := flattenFiles(scanResult)
	processed, err := processFiles(ctx, allFiles, level, opts.Progress)
	if err != nil {
		return nil, err
	}

	deduplicated, err := writeProcessedFiles(ctx, db, scanResult, processed)
	if err != nil {
		return nil, err
	}

	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
	}

	if err := os.Rename(tmpPath, output); err != nil {
		return nil, fmt.Errorf("finalize snapshot: %w", err)
	}

	dbInfo, err := os.Stat(output)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	dbSize := dbInfo.Size()

	ratio := 0.0
	if scanResult.TotalSize > 0 {
		ratio = (1.0 - float64(dbSize)/float64(scanResult.TotalSize)) * 100.0
	}

	return &Result{
		PackagesCount:    len(scanResult.Packages),
		FilesCount:       scanResult.TotalFiles,
		OriginalSize:     scanResult.TotalSize,
		DatabaseSize:     dbSize,
		Deduplicated:     deduplicated,
		CompressionRatio: ratio,
	}, nil
}

func removeExisting(dbPath string) error {
	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func seedMetadata(ctx context.Context, db *store.SQLiteStore, source string, includeLockfile bool) error {
	if err := db.SetMetadata(ctx, "created_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
	}
	if err := db.SetMetadata(ctx, "node_version", runtime.Version()); err != nil {
		return fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
	}
	if err := db.SetMetadata(ctx, "source_path", source); err != nil {
		return fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
	}

	if includeLockfile {
		lockfilePath := filepath.Join(source, "..", "package-lock.json")
		content, err := os.ReadFile(lockfilePath)
		if err == nil {
			if err := db.SetMetadata(ctx, "lockfile_hash", hashutil.Sum(content)); err != nil {
				return fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
			}
		}
	}

	return nil
}

type pendingFile struct {
	packageIndex int
	file         scanner.ScannedFile
}

func flattenFiles(scanResult *scanner.Result) []pendingFile {
	var all []pendingFile
	for pi, pkg := range scanResult.Packages {
		for _, f := range pkg.Files {
			all = append(all, pendingFile{packageIndex: pi, file: f})
		}
	}
	return all
}

// processFiles reads, hashes, and compresses every file concurrently,
// bounded by GOMAXPROCS workers. Database writes are not performed here;
// they happen serially afterward inside one transaction.
func processFiles(ctx context.Context, files []pendingFile, level int, progress types.ProgressFunc) ([]processedFile, error) {
	results := make([]processedFile, len(files))
	sem := make(chan struct{}, max(1, runtime.GOMAXPROCS(0)))
	group, groupCtx := errgroup.WithContext(ctx)
	done := 0

	for i, pf := range files {
		i, pf := i, pf
		sem <- struct{}{}
		group.Go(func() error {
			defer func() { <-sem }()

			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			default:
			}

			content, err := os.ReadFile(pf.file.AbsolutePath)
			if err != nil {
				return fmt.Errorf("%w: %v", types.ErrIO, err)
			}

			hash := hashutil.Sum(content)
			compressed, err := gzipcodec.Compress(content, level)
			if err != nil {
				return err
			}

			results[i] = processedFile{
				packageIndex: pf.packageIndex,
				relativePath: pf.file.RelativePath,
				hash:         hash,
				compressed:   compressed,
				originalSize: int64(len(content)),
				mode:         pf.file.Mode,
				mtime:        pf.file.MTime,
			}

			done++
			if progress != nil {
				progress(done, len(files), pf.file.RelativePath)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// writeProcessedFiles inserts every package, blob, and file record inside
// one write transaction and returns the number of files whose content
// had already been seen earlier in this same pack run.
func writeProcessedFiles(ctx context.Context, db *store.SQLiteStore, scanResult *scanner.Result, processed []processedFile) (int, error) {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
	}
	defer func() { _ = tx.Rollback() }()

	packageIDs := make([]int64, len(scanResult.Packages))
	inserted := make([]bool, len(scanResult.Packages))
	seenHashes := make(map[string]bool)
	deduplicated := 0

	for _, pf := range processed {
		if !inserted[pf.packageIndex] {
			pkg := scanResult.Packages[pf.packageIndex].Info
			id, err := tx.InsertPackage(ctx, &pkg)
			if err != nil {
				return 0, fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
			}
			packageIDs[pf.packageIndex] = id
			inserted[pf.packageIndex] = true
		}

		if seenHashes[pf.hash] {
			deduplicated++
		} else {
			err := tx.InsertBlob(ctx, &types.Blob{
				Hash:           pf.hash,
				Content:        pf.compressed,
				OriginalSize:   pf.originalSize,
				CompressedSize: int64(len(pf.compressed)),
			})
			if err != nil {
				return 0, fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
			}
			seenHashes[pf.hash] = true
		}

		err := tx.InsertFile(ctx, &types.FileEntry{
			PackageID:    packageIDs[pf.packageIndex],
			RelativePath: pf.relativePath,
			BlobHash:     pf.hash,
			Mode:         pf.mode,
			MTime:        pf.mtime,
		})
		if err != nil {
			return 0, fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrDatabaseError, err)
	}
	return deduplicated, nil
}
