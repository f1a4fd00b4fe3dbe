// See extractor.go for the two-phase extraction: a sequential,
// cache-aware decompression pass followed by a bounded parallel write
// pass.
package extractor
