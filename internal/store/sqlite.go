package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nodesnap/nodesnap/pkg/types"
)

// SQLiteStore implements Store using a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with the pragmas a single-writer
// snapshot file needs.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// Open opens or creates a snapshot database at dbPath and brings its
// schema up to date.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DatabaseSizeBytes reports the size of the snapshot via SQLite's page
// accounting (page_count * page_size).
func (s *SQLiteStore) DatabaseSizeBytes(ctx context.Context) (int64, error) {
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, err
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, err
	}
	return pageCount * pageSize, nil
}

func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting every method
// below run either standalone or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqliteTx struct {
	tx    *sql.Tx
	store *SQLiteStore
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }
func (t *sqliteTx) querier() querier { return t.tx }

func (s *SQLiteStore) querier() querier { return s.db }

func (t *sqliteTx) Close() error {
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

// Metadata

func setMetadataWithQuerier(ctx context.Context, q querier, key, value string) error {
	_, err := q.ExecContext(ctx, `INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}

func getMetadataWithQuerier(ctx context.Context, q querier, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", types.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLiteStore) SetMetadata(ctx context.Context, key, value string) error {
	return setMetadataWithQuerier(ctx, s.querier(), key, value)
}

func (s *SQLiteStore) GetMetadata(ctx context.Context, key string) (string, error) {
	return getMetadataWithQuerier(ctx, s.querier(), key)
}

func (t *sqliteTx) SetMetadata(ctx context.Context, key, value string) error {
	return setMetadataWithQuerier(ctx, t.querier(), key, value)
}

func (t *sqliteTx) GetMetadata(ctx context.Context, key string) (string, error) {
	return getMetadataWithQuerier(ctx, t.querier(), key)
}

// Packages

func insertPackageWithQuerier(ctx context.Context, q querier, pkg *types.Package) (int64, error) {
	const query = `
		INSERT INTO packages (name, version, path) VALUES (?, ?, ?)
		ON CONFLICT(name, version, path) DO UPDATE SET name = name
		RETURNING id
	`
	var id int64
	err := q.QueryRowContext(ctx, query, pkg.Name, pkg.Version, pkg.Path).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert package %s@%s: %w", pkg.Name, pkg.Version, err)
	}
	return id, nil
}

func (s *SQLiteStore) InsertPackage(ctx context.Context, pkg *types.Package) (int64, error) {
	return insertPackageWithQuerier(ctx, s.querier(), pkg)
}

func (t *sqliteTx) InsertPackage(ctx context.Context, pkg *types.Package) (int64, error) {
	return insertPackageWithQuerier(ctx, t.querier(), pkg)
}

// Blobs

func hasBlobWithQuerier(ctx context.Context, q querier, hash string) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM blobs WHERE hash = ?`, hash).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func insertBlobWithQuerier(ctx context.Context, q querier, blob *types.Blob) error {
	const query = `
		INSERT OR IGNORE INTO blobs (hash, content, original_size, compressed_size)
		VALUES (?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query, blob.Hash, blob.Content, blob.OriginalSize, blob.CompressedSize)
	if err != nil {
		return fmt.Errorf("insert blob %s: %w", blob.Hash, err)
	}
	return nil
}

func getBlobWithQuerier(ctx context.Context, q querier, hash string) ([]byte, error) {
	var content []byte
	err := q.QueryRowContext(ctx, `SELECT content FROM blobs WHERE hash = ?`, hash).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, types.ErrBlobMissing
	}
	if err != nil {
		return nil, err
	}
	return content, nil
}

func getBlobStatsWithQuerier(ctx context.Context, q querier) (types.BlobStats, error) {
	const query = `
		SELECT COUNT(*), COALESCE(SUM(original_size), 0), COALESCE(SUM(compressed_size), 0)
		FROM blobs
	`
	var stats types.BlobStats
	err := q.QueryRowContext(ctx, query).Scan(&stats.TotalBlobs, &stats.TotalOriginalSize, &stats.TotalCompressedSize)
	if err != nil {
		return types.BlobStats{}, err
	}
	return stats, nil
}

func (s *SQLiteStore) HasBlob(ctx context.Context, hash string) (bool, error) {
	return hasBlobWithQuerier(ctx, s.querier(), hash)
}

func (s *SQLiteStore) InsertBlob(ctx context.Context, blob *types.Blob) error {
	return insertBlobWithQuerier(ctx, s.querier(), blob)
}

func (s *SQLiteStore) GetBlob(ctx context.Context, hash string) ([]byte, error) {
	return getBlobWithQuerier(ctx, s.querier(), hash)
}

func (s *SQLiteStore) GetBlobStats(ctx context.Context) (types.BlobStats, error) {
	return getBlobStatsWithQuerier(ctx, s.querier())
}

func (t *sqliteTx) HasBlob(ctx context.Context, hash string) (bool, error) {
	return hasBlobWithQuerier(ctx, t.querier(), hash)
}

func (t *sqliteTx) InsertBlob(ctx context.Context, blob *types.Blob) error {
	return insertBlobWithQuerier(ctx, t.querier(), blob)
}

func (t *sqliteTx) GetBlob(ctx context.Context, hash string) ([]byte, error) {
	return getBlobWithQuerier(ctx, t.querier(), hash)
}

func (t *sqliteTx) GetBlobStats(ctx context.Context) (types.BlobStats, error) {
	return getBlobStatsWithQuerier(ctx, t.querier())
}

// Files

func insertFileWithQuerier(ctx context.Context, q querier, file *types.FileEntry) error {
	const query = `
		INSERT INTO files (package_id, relative_path, blob_hash, mode, mtime)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(package_id, relative_path) DO UPDATE SET
			blob_hash = excluded.blob_hash,
			mode = excluded.mode,
			mtime = excluded.mtime
	`
	_, err := q.ExecContext(ctx, query, file.PackageID, file.RelativePath, file.BlobHash, file.Mode, file.MTime)
	if err != nil {
		return fmt.Errorf("insert file %s: %w", file.RelativePath, err)
	}
	return nil
}

func getAllFilesWithQuerier(ctx context.Context, q querier) ([]types.FileWithPackage, error) {
	const query = `
		SELECT f.id, f.package_id, f.relative_path, f.blob_hash, f.mode, f.mtime, p.path
		FROM files f
		JOIN packages p ON f.package_id = p.id
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var files []types.FileWithPackage
	for rows.Next() {
		var fwp types.FileWithPackage
		if err := rows.Scan(
			&fwp.File.ID, &fwp.File.PackageID, &fwp.File.RelativePath,
			&fwp.File.BlobHash, &fwp.File.Mode, &fwp.File.MTime,
			&fwp.PackagePath,
		); err != nil {
			return nil, err
		}
		files = append(files, fwp)
	}
	return files, rows.Err()
}

func getTotalFileCountWithQuerier(ctx context.Context, q querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) InsertFile(ctx context.Context, file *types.FileEntry) error {
	return insertFileWithQuerier(ctx, s.querier(), file)
}

func (s *SQLiteStore) GetAllFiles(ctx context.Context) ([]types.FileWithPackage, error) {
	return getAllFilesWithQuerier(ctx, s.querier())
}

func (s *SQLiteStore) GetTotalFileCount(ctx context.Context) (int, error) {
	return getTotalFileCountWithQuerier(ctx, s.querier())
}

func (t *sqliteTx) InsertFile(ctx context.Context, file *types.FileEntry) error {
	return insertFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) GetAllFiles(ctx context.Context) ([]types.FileWithPackage, error) {
	return getAllFilesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetTotalFileCount(ctx context.Context) (int, error) {
	return getTotalFileCountWithQuerier(ctx, t.querier())
}
