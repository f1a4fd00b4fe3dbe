// See packer.go for the pack procedure: scan, parallel hash and
// compress, then a single write transaction.
package packer
