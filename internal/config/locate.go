package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/tmplc/internal/diag"
)

// FindTemplate resolves a template name to a file path. When caller is set,
// a file named name next to caller wins over every search directory; the
// search directories are then tried in order.
func (c *Config) FindTemplate(name, caller string) (string, error) {
	if filepath.IsAbs(name) {
		if exists(name) {
			return name, nil
		}
	} else {
		if caller != "" {
			relative := filepath.Join(filepath.Dir(caller), name)
			if exists(relative) {
				return relative, nil
			}
		}

		for _, dir := range c.Dirs {
			rooted := filepath.Join(dir, name)
			if exists(rooted) {
				return rooted, nil
			}
		}
	}

	return "", diag.New(&diag.TemplateNotFoundError{
		Name: name,
		Dirs: append([]string(nil), c.Dirs...),
	})
}

// ReadTemplateSource reads a template file. A single trailing newline is
// dropped so that files ending in a newline render without one.
func ReadTemplateSource(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", diag.New(&diag.SourceReadError{Path: path, Err: err})
	}
	return strings.TrimSuffix(string(b), "\n"), nil
}
