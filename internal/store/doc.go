// Package store provides SQLite-backed content-addressed storage for a
// packaged node_modules snapshot: package records, deduplicated file
// blobs, and the per-file entries that tie them together.
//
// # Build tags
//
// The default build uses modernc.org/sqlite (pure Go, no C compiler). Add
// the nodesnap_cgo build tag to switch to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags nodesnap_cgo ./...
//
// # Usage
//
//	s, err := store.Open("node_modules.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	tx, err := s.BeginTx(ctx)
//	pkgID, err := tx.InsertPackage(ctx, &types.Package{Name: "lodash", Version: "4.17.21", Path: "lodash"})
//	err = tx.InsertFile(ctx, &types.FileEntry{PackageID: pkgID, RelativePath: "index.js", BlobHash: digest})
//	err = tx.Commit()
package store
