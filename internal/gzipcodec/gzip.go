// Package gzipcodec compresses and decompresses blob content using the
// standard gzip member format, backed by klauspost/compress for speed.
package gzipcodec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/nodesnap/nodesnap/pkg/types"
)

// Compress gzips data at the given level (1-9, matching compress/gzip's
// BestSpeed..BestCompression range).
func Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write gzip stream: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close gzip stream: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. Malformed input surfaces as
// types.ErrDecompressError.
func Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDecompressError, err)
	}
	defer func() { _ = r.Close() }()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDecompressError, err)
	}
	return out, nil
}
