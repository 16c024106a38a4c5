package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// excerptChars bounds the excerpt shown after a located failure.
const excerptChars = 40

// FileInfo names the file a failure belongs to. Source is the full file text
// and NodeSource the offending fragment inside it; both are optional.
type FileInfo struct {
	Path       string
	Source     string
	NodeSource string
}

// Location is a resolved failure position. Row and Column are zero-based and
// only meaningful when Positioned is set.
type Location struct {
	Path       string
	Row        int
	Column     int
	Excerpt    string
	Positioned bool
}

// Locate resolves fi. The fragment is matched at its first occurrence in the
// source, so a fragment repeated earlier in the file is reported at the
// earlier position. Without both texts only the path is kept.
func Locate(fi FileInfo) *Location {
	loc := &Location{Path: fi.Path}
	if fi.Source == "" || fi.NodeSource == "" {
		return loc
	}
	offset := strings.Index(fi.Source, fi.NodeSource)
	if offset < 0 {
		return loc
	}

	before := fi.Source[:offset]
	loc.Row = strings.Count(before, "\n")
	loc.Column = utf8.RuneCountInString(before[strings.LastIndexByte(before, '\n')+1:])
	loc.Excerpt = excerpt(fi.Source[offset:])
	loc.Positioned = true
	return loc
}

// excerpt quotes at most excerptChars characters of s.
func excerpt(s string) string {
	n := 0
	for i := range s {
		if n == excerptChars {
			return strconv.Quote(s[:i]) + "..."
		}
		n++
	}
	return strconv.Quote(s)
}

// String renders the location with 1-based row and column.
func (l *Location) String() string {
	path := DisplayPath(l.Path)
	if l.Positioned {
		return fmt.Sprintf("\n  --> %s:%d:%d\n%s", path, l.Row+1, l.Column+1, l.Excerpt)
	}
	return fmt.Sprintf("\n --> %s", path)
}

// DisplayPath returns path relative to the working directory when it lies
// below it, and path unchanged otherwise.
func DisplayPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return relativeTo(cwd, path)
}

func relativeTo(base, path string) string {
	if path == "" {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}
