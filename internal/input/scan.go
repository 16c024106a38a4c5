package input

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/tmplc/internal/diag"
)

// ScanDir returns the templated declarations of the Go files in dir, in file
// name order. Test files and generated files are skipped. A file that fails
// does not stop the scan: the declarations found elsewhere are returned
// together with the joined failures.
func ScanDir(dir string) ([]*TemplateArgs, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}

	var (
		decls []*TemplateArgs
		errs  []error
	)
	for _, file := range files {
		if !IsSourceFile(file) {
			continue
		}
		found, err := ScanFile(file)
		decls = append(decls, found...)
		errs = append(errs, SplitErrors(err)...)
	}
	return decls, errors.Join(errs...)
}

// SplitErrors returns the individual failures joined into err by ScanDir or
// ScanSource.
func SplitErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// IsSourceFile reports whether path is a Go file that may declare templates.
func IsSourceFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".go") &&
		!strings.HasSuffix(base, "_test.go") &&
		!strings.HasSuffix(base, GeneratedSuffix)
}

// ScanFile returns the templated declarations of one Go file.
func ScanFile(path string) ([]*TemplateArgs, error) {
	src, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the scanned package directory
	if err != nil {
		return nil, diag.New(&diag.SourceReadError{Path: path, Err: err})
	}
	return ScanSource(path, src)
}

// ScanSource returns the templated declarations of Go source src read from
// path. A declaration whose directive is invalid is still returned, with Err
// set, so that it can be given a skeleton. Types that cannot carry methods
// at all are reported in the joined error.
func ScanSource(path string, src []byte) ([]*TemplateArgs, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, diag.NewAt(&diag.DeclarationError{Msg: err.Error()}, diag.FileInfo{Path: path})
	}

	var (
		decls []*TemplateArgs
		errs  []error
	)
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && !gd.Lparen.IsValid() {
				doc = gd.Doc
			}

			args, err := scanType(path, string(src), f.Name.Name, ts, doc)
			if err != nil {
				errs = append(errs, err)
			}
			if args != nil {
				decls = append(decls, args)
			}
		}
	}
	return decls, errors.Join(errs...)
}

func scanType(path, src, pkg string, ts *ast.TypeSpec, doc *ast.CommentGroup) (*TemplateArgs, error) {
	if doc == nil {
		return nil, nil
	}

	var directive, extra string
	for _, c := range doc.List {
		if !isDirective(c.Text) {
			continue
		}
		if directive == "" {
			directive = c.Text
		} else if extra == "" {
			extra = c.Text
		}
	}
	if directive == "" {
		return nil, nil
	}

	fi := diag.FileInfo{Path: path, Source: src, NodeSource: directive}
	if ts.TypeParams != nil && len(ts.TypeParams.List) > 0 {
		// Methods of a generic type need its type parameters, so not even
		// a skeleton can be generated.
		return nil, diag.NewAt(&diag.DeclarationError{
			Msg: fmt.Sprintf("generic type %s cannot be templated", ts.Name.Name),
		}, fi)
	}

	args, err := ParseDirective(directive)
	switch {
	case extra != "":
		args = &TemplateArgs{Err: diag.NewAt(&diag.DeclarationError{
			Msg: fmt.Sprintf("type %s has more than one %s directive", ts.Name.Name, Directive),
		}, diag.FileInfo{Path: path, Source: src, NodeSource: extra})}
	case err != nil:
		args = &TemplateArgs{Err: diag.From(err).At(fi)}
	}
	args.TypeName = ts.Name.Name
	args.Package = pkg
	args.File = path
	args.FileSource = src
	args.Directive = directive
	return args, nil
}

func isDirective(text string) bool {
	rest, ok := strings.CutPrefix(text, Directive)
	return ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t')
}
