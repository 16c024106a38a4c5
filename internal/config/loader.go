package config

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/knadh/koanf/providers/file"
	"github.com/leapstack-labs/tmplc/internal/diag"
)

// ReadConfigFile reads the project's configuration document. An explicit
// path is resolved against root and must exist. Without one, the default
// document names are tried; if none exists the empty Document is returned.
func ReadConfigFile(root, explicit string) (Document, error) {
	if explicit != "" {
		path := resolvePathRelativeTo(explicit, root)
		if !exists(path) {
			return Document{}, diag.New(&diag.ConfigMissingError{Path: explicit, Root: root})
		}
		return readDocument(path)
	}

	if path := findConfigFile(root); path != "" {
		return readDocument(path)
	}
	return Document{}, nil
}

func readDocument(path string) (Document, error) {
	b, err := file.Provider(path).ReadBytes()
	if err != nil {
		return Document{}, diag.New(&diag.SourceReadError{Path: path, Err: err})
	}
	return Document{Path: path, Text: string(b)}, nil
}

// findConfigFile finds the config document in the given directory.
// Returns empty string if not found.
func findConfigFile(dir string) string {
	for _, name := range configFileNames {
		p := filepath.Join(dir, name)
		if exists(p) {
			return p
		}
	}
	return ""
}

// IsConfigDocument reports whether path has one of the default document
// names.
func IsConfigDocument(path string) bool {
	return slices.Contains(configFileNames, filepath.Base(path))
}

// FindProjectRoot walks up from the given directory to find a directory
// containing a config document or a go.mod file.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if findConfigFile(dir) != "" || exists(filepath.Join(dir, "go.mod")) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
