package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodesnap/nodesnap/pkg/types"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMetadataRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetMetadata(ctx, "source_path", "/tmp/node_modules"))
	value, err := s.GetMetadata(ctx, "source_path")
	require.NoError(t, err)
	require.Equal(t, "/tmp/node_modules", value)

	_, err = s.GetMetadata(ctx, "missing_key")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestInsertPackageUpsertsOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pkg := &types.Package{Name: "lodash", Version: "4.17.21", Path: "lodash"}
	id1, err := s.InsertPackage(ctx, pkg)
	require.NoError(t, err)

	id2, err := s.InsertPackage(ctx, pkg)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM packages").Scan(&count))
	require.Equal(t, 1, count)
}

func TestInsertBlobIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	blob := &types.Blob{Hash: "deadbeef", Content: []byte("compressed"), OriginalSize: 5, CompressedSize: 10}
	require.NoError(t, s.InsertBlob(ctx, blob))
	require.NoError(t, s.InsertBlob(ctx, blob))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM blobs WHERE hash = ?", blob.Hash).Scan(&count))
	require.Equal(t, 1, count)

	has, err := s.HasBlob(ctx, blob.Hash)
	require.NoError(t, err)
	require.True(t, has)

	content, err := s.GetBlob(ctx, blob.Hash)
	require.NoError(t, err)
	require.Equal(t, blob.Content, content)
}

func TestGetBlobMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetBlob(context.Background(), "nonexistent")
	require.ErrorIs(t, err, types.ErrBlobMissing)
}

func TestInsertFileUpsertsByPackageAndPath(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pkgID, err := s.InsertPackage(ctx, &types.Package{Name: "lodash", Version: "4.17.21", Path: "lodash"})
	require.NoError(t, err)

	require.NoError(t, s.InsertBlob(ctx, &types.Blob{Hash: "h1", Content: []byte("x"), OriginalSize: 1, CompressedSize: 1}))
	require.NoError(t, s.InsertBlob(ctx, &types.Blob{Hash: "h2", Content: []byte("y"), OriginalSize: 1, CompressedSize: 1}))

	file := &types.FileEntry{PackageID: pkgID, RelativePath: "index.js", BlobHash: "h1", Mode: 0o644, MTime: 1000}
	require.NoError(t, s.InsertFile(ctx, file))

	file.BlobHash = "h2"
	file.Mode = 0o600
	require.NoError(t, s.InsertFile(ctx, file))

	files, err := s.GetAllFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "h2", files[0].File.BlobHash)
	require.Equal(t, uint32(0o600), files[0].File.Mode)
	require.Equal(t, "lodash", files[0].PackagePath)
}

func TestGetBlobStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertBlob(ctx, &types.Blob{Hash: "h1", Content: []byte("xx"), OriginalSize: 4, CompressedSize: 2}))
	require.NoError(t, s.InsertBlob(ctx, &types.Blob{Hash: "h2", Content: []byte("yy"), OriginalSize: 6, CompressedSize: 2}))

	stats, err := s.GetBlobStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalBlobs)
	require.EqualValues(t, 10, stats.TotalOriginalSize)
	require.EqualValues(t, 4, stats.TotalCompressedSize)
}

func TestTransactionCommitsAtomically(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)

	pkgID, err := tx.InsertPackage(ctx, &types.Package{Name: "a", Version: "1.0.0", Path: "a"})
	require.NoError(t, err)
	require.NoError(t, tx.InsertBlob(ctx, &types.Blob{Hash: "h", Content: []byte("z"), OriginalSize: 1, CompressedSize: 1}))
	require.NoError(t, tx.InsertFile(ctx, &types.FileEntry{PackageID: pkgID, RelativePath: "x.js", BlobHash: "h"}))
	require.NoError(t, tx.Commit())

	count, err := s.GetTotalFileCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestTransactionRollbackDiscardsWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.InsertPackage(ctx, &types.Package{Name: "a", Version: "1.0.0", Path: "a"})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM packages").Scan(&count))
	require.Equal(t, 0, count)
}
