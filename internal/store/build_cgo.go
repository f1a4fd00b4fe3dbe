//go:build nodesnap_cgo
// +build nodesnap_cgo

package store

// This file is compiled when building with CGO and the nodesnap_cgo tag.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "nodesnap_cgo" ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
