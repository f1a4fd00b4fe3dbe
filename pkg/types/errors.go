package types

import "errors"

// Domain errors surfaced by the scanner, store, packer, extractor, and
// status components.
var (
	// ErrSourceNotFound is returned when the node_modules directory given
	// to pack does not exist.
	ErrSourceNotFound = errors.New("source directory not found")
	// ErrDatabaseNotFound is returned when the snapshot file given to
	// unpack or status does not exist.
	ErrDatabaseNotFound = errors.New("database not found")
	// ErrOutputExists is returned when unpack's destination directory
	// already exists and Force was not set.
	ErrOutputExists = errors.New("output directory already exists")
	// ErrDecompressError is returned when a blob fails to decompress.
	ErrDecompressError = errors.New("failed to decompress blob")
	// ErrDatabaseError wraps a failure in the underlying SQLite store.
	ErrDatabaseError = errors.New("database error")
	// ErrIO wraps a filesystem failure outside the database.
	ErrIO = errors.New("io error")
	// ErrManifestParse is returned internally when a package.json fails
	// to parse; the scanner downgrades this to a silent skip.
	ErrManifestParse = errors.New("failed to parse package manifest")
	// ErrPermissionApply is returned when a restored file's mode cannot
	// be applied; it never aborts unpack.
	ErrPermissionApply = errors.New("failed to apply file permissions")
	// ErrBlobMissing is returned when a file references a blob hash that
	// is absent from the blobs table.
	ErrBlobMissing = errors.New("referenced blob is missing")
	// ErrNotFound is returned by Store lookups that find no row.
	ErrNotFound = errors.New("not found")
)
