// Package scanner walks an on-disk node_modules tree and produces the
// package and file records the packer feeds into the store.
package scanner

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/nodesnap/nodesnap/pkg/types"
)

// ScannedFile is one regular file discovered under a package directory,
// relative to that directory.
type ScannedFile struct {
	RelativePath string
	AbsolutePath string
	Mode         uint32
	Size         int64
	MTime        int64 // milliseconds since Unix epoch
}

// PackageWithFiles pairs a package's manifest-derived identity with the
// files found under its directory.
type PackageWithFiles struct {
	Info  types.Package
	Files []ScannedFile
}

// Result is the output of a full scan.
type Result struct {
	Packages   []PackageWithFiles
	TotalFiles int
	TotalSize  int64
}

type packageDir struct {
	path         string
	relativePath string
}

// Scan walks root (expected to be a node_modules directory) and returns
// every package it can resolve a manifest for, along with their files.
// progress is invoked once per package considered, whether or not the
// package was ultimately skipped for lacking a readable manifest.
func Scan(root string, progress types.ProgressFunc) (*Result, error) {
	dirs, err := findPackageDirs(root)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	total := len(dirs)
	for i, dir := range dirs {
		pkg, ok := scanPackageDir(dir)
		if progress != nil {
			progress(i+1, total, dir.relativePath)
		}
		if !ok {
			continue
		}
		result.Packages = append(result.Packages, *pkg)
		result.TotalFiles += len(pkg.Files)
		for _, f := range pkg.Files {
			result.TotalSize += f.Size
		}
	}

	return result, nil
}

// CountFiles walks root counting regular files without parsing any
// manifest. It is a cheap pre-pass a caller can use to size a progress
// bar before the full scan runs.
func CountFiles(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func isPnpmLayout(root string) bool {
	info, err := os.Stat(filepath.Join(root, ".pnpm"))
	return err == nil && info.IsDir()
}

func findPackageDirs(root string) ([]packageDir, error) {
	if isPnpmLayout(root) {
		return findPnpmPackageDirs(root)
	}
	return findFlatPackageDirs(root)
}

func findFlatPackageDirs(root string) ([]packageDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var dirs []packageDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == ".bin" || name == ".cache" || name == ".pnpm" {
			continue
		}

		fullPath := filepath.Join(root, name)

		if name[0] == '@' {
			scoped, err := os.ReadDir(fullPath)
			if err != nil {
				continue
			}
			for _, s := range scoped {
				if !s.IsDir() {
					continue
				}
				dirs = append(dirs, packageDir{
					path:         filepath.Join(fullPath, s.Name()),
					relativePath: name + "/" + s.Name(),
				})
			}
			continue
		}

		dirs = append(dirs, packageDir{path: fullPath, relativePath: name})
	}
	return dirs, nil
}

func findPnpmPackageDirs(root string) ([]packageDir, error) {
	pnpmPath := filepath.Join(root, ".pnpm")
	entries, err := os.ReadDir(pnpmPath)
	if err != nil {
		return nil, err
	}

	var dirs []packageDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == "node_modules" || name[0] == '.' {
			continue
		}

		innerNodeModules := filepath.Join(pnpmPath, name, "node_modules")
		innerEntries, err := os.ReadDir(innerNodeModules)
		if err != nil {
			continue
		}

		for _, inner := range innerEntries {
			if !inner.IsDir() {
				continue
			}
			innerName := inner.Name()
			if innerName == ".bin" {
				continue
			}

			pkgPath := filepath.Join(innerNodeModules, innerName)

			if innerName[0] == '@' {
				scoped, err := os.ReadDir(pkgPath)
				if err != nil {
					continue
				}
				for _, s := range scoped {
					if !s.IsDir() {
						continue
					}
					dirs = append(dirs, packageDir{
						path: filepath.Join(pkgPath, s.Name()),
						relativePath: ".pnpm/" + name + "/node_modules/" + innerName + "/" + s.Name(),
					})
				}
				continue
			}

			dirs = append(dirs, packageDir{
				path:         pkgPath,
				relativePath: ".pnpm/" + name + "/node_modules/" + innerName,
			})
		}
	}
	return dirs, nil
}

type manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func parseManifest(pkgPath string) (name, version string, ok bool) {
	data, err := os.ReadFile(filepath.Join(pkgPath, "package.json"))
	if err != nil {
		return "", "", false
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", "", false
	}
	if m.Name == "" {
		m.Name = "unknown"
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
	return m.Name, m.Version, true
}

func scanPackageDir(dir packageDir) (*PackageWithFiles, bool) {
	name, version, ok := parseManifest(dir.path)
	if !ok {
		return nil, false
	}

	var files []ScannedFile
	err := filepath.WalkDir(dir.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dir.path, path)
		if err != nil {
			return nil
		}
		files = append(files, ScannedFile{
			RelativePath: rel,
			AbsolutePath: path,
			Mode:         uint32(info.Mode().Perm()),
			Size:         info.Size(),
			MTime:        info.ModTime().UnixNano() / int64(time.Millisecond),
		})
		return nil
	})
	if err != nil {
		return nil, false
	}

	return &PackageWithFiles{
		Info: types.Package{Name: name, Version: version, Path: dir.relativePath},
		Files: files,
	}, true
}
