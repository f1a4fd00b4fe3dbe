// See status.go for the classification rules: a file re-hashes as
// unchanged, modified, or missing (onlyInDB). onlyInFS is reserved and
// always empty.
package status
