package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodesnap/nodesnap/internal/packer"
	"github.com/nodesnap/nodesnap/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func packFixture(t *testing.T, root string) (source, db string) {
	t.Helper()
	source = filepath.Join(root, "node_modules")
	writeFile(t, filepath.Join(source, "lodash", "package.json"), `{"name":"lodash","version":"4.17.21"}`)
	writeFile(t, filepath.Join(source, "lodash", "index.js"), "module.exports = {}")
	writeFile(t, filepath.Join(source, "left-pad", "package.json"), `{"name":"left-pad","version":"1.3.0"}`)
	writeFile(t, filepath.Join(source, "left-pad", "index.js"), "module.exports = {}")

	db = filepath.Join(root, "snapshot.db")
	_, err := packer.Pack(context.Background(), packer.Options{Source: source, Output: db})
	require.NoError(t, err)
	return source, db
}

func TestDiffUnchangedTree(t *testing.T) {
	root := t.TempDir()
	source, db := packFixture(t, root)

	result, err := Diff(context.Background(), Options{DB: db, Tree: source})
	require.NoError(t, err)
	require.Equal(t, 2, result.Unchanged)
	require.Empty(t, result.Modified)
	require.Empty(t, result.OnlyInDB)
	require.True(t, result.Clean())
}

func TestDiffDetectsModifiedFile(t *testing.T) {
	root := t.TempDir()
	source, db := packFixture(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(source, "lodash", "index.js"), []byte("changed"), 0o644))

	result, err := Diff(context.Background(), Options{DB: db, Tree: source})
	require.NoError(t, err)
	require.Equal(t, 3, result.Unchanged)
	require.Equal(t, []string{"lodash/index.js"}, result.Modified)
	require.False(t, result.Clean())
}

func TestDiffDetectsDeletedFile(t *testing.T) {
	root := t.TempDir()
	source, db := packFixture(t, root)

	require.NoError(t, os.Remove(filepath.Join(source, "left-pad", "index.js")))

	result, err := Diff(context.Background(), Options{DB: db, Tree: source})
	require.NoError(t, err)
	require.Equal(t, []string{"left-pad/index.js"}, result.OnlyInDB)
}

func TestDiffWarnsWhenTreeMissing(t *testing.T) {
	root := t.TempDir()
	_, db := packFixture(t, root)

	result, err := Diff(context.Background(), Options{DB: db, Tree: filepath.Join(root, "gone")})
	require.NoError(t, err)
	require.Equal(t, &Result{}, result)
}

func TestDiffFailsWhenDatabaseMissing(t *testing.T) {
	root := t.TempDir()
	_, err := Diff(context.Background(), Options{
		DB:   filepath.Join(root, "missing.db"),
		Tree: root,
	})
	require.ErrorIs(t, err, types.ErrDatabaseNotFound)
}
