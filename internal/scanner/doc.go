// See scanner.go for the flat-layout and symlink-farm-layout
// enumeration rules.
package scanner
