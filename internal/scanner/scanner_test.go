package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanFlatLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lodash", "package.json"), `{"name":"lodash","version":"4.17.21"}`)
	writeFile(t, filepath.Join(root, "lodash", "index.js"), "module.exports = {}")
	writeFile(t, filepath.Join(root, "@scope", "pkg", "package.json"), `{"name":"@scope/pkg","version":"1.0.0"}`)
	writeFile(t, filepath.Join(root, "@scope", "pkg", "index.js"), "export default {}")
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".bin"), 0o755))

	result, err := Scan(root, nil)
	require.NoError(t, err)
	require.Len(t, result.Packages, 2)
	require.Equal(t, 4, result.TotalFiles)

	paths := map[string]bool{}
	for _, pkg := range result.Packages {
		paths[pkg.Info.Path] = true
	}
	require.True(t, paths["lodash"])
	require.True(t, paths["@scope/pkg"])
}

func TestScanSkipsUnreadableManifest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken"), 0o755))
	writeFile(t, filepath.Join(root, "broken", "index.js"), "x")

	result, err := Scan(root, nil)
	require.NoError(t, err)
	require.Empty(t, result.Packages)
}

func TestScanPnpmLayout(t *testing.T) {
	root := t.TempDir()
	pkgDir := filepath.Join(root, ".pnpm", "foo@1.0.0", "node_modules", "foo")
	writeFile(t, filepath.Join(pkgDir, "package.json"), `{"name":"foo","version":"1.0.0"}`)
	writeFile(t, filepath.Join(pkgDir, "index.js"), "module.exports = {}")

	result, err := Scan(root, nil)
	require.NoError(t, err)
	require.Len(t, result.Packages, 1)
	require.Equal(t, ".pnpm/foo@1.0.0/node_modules/foo", result.Packages[0].Info.Path)
}

func TestScanReportsProgressPerPackage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "package.json"), `{"name":"a","version":"1.0.0"}`)
	writeFile(t, filepath.Join(root, "b", "package.json"), `{"name":"b","version":"1.0.0"}`)

	var calls int
	_, err := Scan(root, func(current, total int, message string) {
		calls++
		require.Equal(t, 2, total)
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestCountFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "index.js"), "x")
	writeFile(t, filepath.Join(root, "a", "lib.js"), "y")

	count, err := CountFiles(root)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
