package types

// Package is a single installed package directory: a name, a resolved
// version, and the path relative to the node_modules root (e.g.
// "@scope/pkg" or ".pnpm/lodash@4.17.21/node_modules/lodash").
type Package struct {
	ID      int64
	Name    string
	Version string
	Path    string
}

// FileEntry is one file belonging to a Package, addressed by the hash of
// its original, uncompressed content.
type FileEntry struct {
	ID           int64
	PackageID    int64
	RelativePath string
	BlobHash     string
	Mode         uint32
	MTime        int64
}

// FileWithPackage joins a FileEntry with the path of the package that
// owns it, the shape the extractor and status need to reconstruct a
// full destination path without a second query per file.
type FileWithPackage struct {
	File        FileEntry
	PackagePath string
}

// Blob is a deduplicated, gzip-compressed file body plus its size
// bookkeeping. OriginalSize and CompressedSize are tracked separately so
// their totals can be read back (see BlobStats) without decompressing
// anything.
type Blob struct {
	Hash           string
	Content        []byte
	OriginalSize   int64
	CompressedSize int64
}

// BlobStats summarizes the blobs table: the number of blobs and their
// total original and compressed sizes.
type BlobStats struct {
	TotalBlobs          int
	TotalOriginalSize   int64
	TotalCompressedSize int64
}

// ProgressFunc reports the progress of a long-running scan, pack, or
// extract operation. The scanner, packer, and status report current as a
// 1-based count of units completed so far out of total (packages or
// files, depending on the caller); the extractor reports only phase
// boundaries (0, total/2, and total files). message is a short
// human-readable label for the unit or phase currently in flight.
// Callers may pass nil to disable reporting.
type ProgressFunc func(current, total int, message string)
