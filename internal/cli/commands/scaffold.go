package commands

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed all:scaffold
var scaffoldFS embed.FS

// copyScaffold copies an embedded scaffold directory to the target path.
// It handles special file renames (e.g., "hello.go.tmpl" -> "hello.go").
func copyScaffold(name, targetDir string, force bool) error {
	root := path.Join("scaffold", name)

	return fs.WalkDir(scaffoldFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Calculate relative path from scaffold root
		relPath := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")

		// Skip root directory
		if relPath == "" {
			return nil
		}

		targetPath := filepath.Join(targetDir, filepath.FromSlash(renameSpecialFiles(relPath)))

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0750)
		}

		// Check if file exists
		if !force {
			if _, err := os.Stat(targetPath); err == nil {
				return nil // Skip existing files
			}
		}

		content, err := scaffoldFS.ReadFile(p)
		if err != nil {
			return err
		}

		return os.WriteFile(targetPath, content, 0600)
	})
}

// renameSpecialFiles handles files stored under another name so that the
// Go toolchain ignores them inside this package.
func renameSpecialFiles(p string) string {
	return strings.TrimSuffix(p, ".tmpl")
}

// listScaffoldFiles returns all files in a scaffold for display purposes.
func listScaffoldFiles(name string) ([]string, error) {
	var files []string
	root := path.Join("scaffold", name)

	err := fs.WalkDir(scaffoldFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			relPath := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
			files = append(files, renameSpecialFiles(relPath))
		}
		return nil
	})

	return files, err
}
