// Package types provides the domain entities and sentinel errors shared
// across the scanner, packer, extractor, and status components.
//
// A snapshot is built from three entities: Package, a directory under
// node_modules carrying a name and version; File, a single file inside a
// package's directory, pointing at its content by hash; and Blob, the
// compressed bytes a hash addresses. A snapshot also carries free-form
// Metadata describing how and when it was produced.
//
//	pkg := &types.Package{Name: "lodash", Version: "4.17.21", Path: "lodash"}
//	file := &types.FileEntry{RelativePath: "index.js", BlobHash: digest, Mode: 0o644}
//
// Progress reporting across all long-running operations uses a single
// callback shape:
//
//	func(current, total int, message string)
package types
