// Package hashutil computes the content digests that address blobs in
// the snapshot store.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the lowercase hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SumText returns the lowercase hex-encoded SHA-256 digest of the UTF-8
// bytes of text.
func SumText(text string) string {
	return Sum([]byte(text))
}
