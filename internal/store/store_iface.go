package store

import (
	"context"

	"github.com/nodesnap/nodesnap/pkg/types"
)

// Store defines the operations a snapshot database must support,
// independent of whether they run directly against the database or
// inside a transaction.
type Store interface {
	SetMetadata(ctx context.Context, key, value string) error
	GetMetadata(ctx context.Context, key string) (string, error)

	InsertPackage(ctx context.Context, pkg *types.Package) (int64, error)

	HasBlob(ctx context.Context, hash string) (bool, error)
	InsertBlob(ctx context.Context, blob *types.Blob) error
	GetBlob(ctx context.Context, hash string) ([]byte, error)
	GetBlobStats(ctx context.Context) (types.BlobStats, error)

	InsertFile(ctx context.Context, file *types.FileEntry) error
	GetAllFiles(ctx context.Context) ([]types.FileWithPackage, error)
	GetTotalFileCount(ctx context.Context) (int, error)

	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a Store bound to an in-flight transaction.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}
