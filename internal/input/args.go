// Package input turns templated Go type declarations into compilation
// inputs. A declaration is a type carrying a directive comment:
//
//	//tmplc:template path="hello.html" whitespace="suppress"
//	type Hello struct { Name string }
//
// Directive values are Go string literals.
package input

import (
	"fmt"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"
	"unicode"

	"github.com/leapstack-labs/tmplc/internal/diag"
)

// Directive is the comment prefix marking a templated declaration.
const Directive = "//tmplc:template"

// GeneratedSuffix ends the name of every generated file.
const GeneratedSuffix = "_tmplc.go"

// Print selects the diagnostics written while compiling a declaration.
type Print int

// Print modes.
const (
	PrintNone Print = iota
	PrintAst
	PrintCode
	PrintAll
)

func (p Print) String() string {
	switch p {
	case PrintAst:
		return "ast"
	case PrintCode:
		return "code"
	case PrintAll:
		return "all"
	default:
		return "none"
	}
}

// ParsePrint parses a print mode name.
func ParsePrint(s string) (Print, error) {
	switch s {
	case "", "none":
		return PrintNone, nil
	case "ast":
		return PrintAst, nil
	case "code":
		return PrintCode, nil
	case "all":
		return PrintAll, nil
	default:
		return PrintNone, fmt.Errorf("invalid value for print option: %s", s)
	}
}

// Prints reports whether p includes mode.
func (p Print) Prints(mode Print) bool {
	return p == mode || p == PrintAll
}

// TemplateArgs are the arguments of one templated declaration.
type TemplateArgs struct {
	TypeName string
	Package  string
	// File is the Go file declaring the type and FileSource its text.
	File       string
	FileSource string
	// Directive is the raw directive comment.
	Directive string

	Path      string
	Source    string
	HasSource bool
	Ext       string

	Print      Print
	Escape     string
	Syntax     string
	Config     string
	Whitespace string
	Block      string

	// Err is set when the directive could not be read. Such a declaration
	// only gets a skeleton.
	Err error
}

// Fallback returns the placeholder arguments used to generate a skeleton
// for the same type: an empty inline template with the txt extension.
func (a *TemplateArgs) Fallback() *TemplateArgs {
	return &TemplateArgs{
		TypeName:  a.TypeName,
		Package:   a.Package,
		File:      a.File,
		HasSource: true,
		Ext:       "txt",
	}
}

// FileInfo locates the directive inside the declaring Go file.
func (a *TemplateArgs) FileInfo() diag.FileInfo {
	return diag.FileInfo{Path: a.File, Source: a.FileSource, NodeSource: a.Directive}
}

// Key identifies the declaration across a build.
func (a *TemplateArgs) Key() string {
	return a.File + "#" + a.TypeName
}

// OutputName is the base name of the file generated for the declaration.
func (a *TemplateArgs) OutputName() string {
	return snakeCase(a.TypeName) + GeneratedSuffix
}

// ParseDirective parses the key="value" pairs following Directive.
func ParseDirective(text string) (*TemplateArgs, error) {
	body, ok := strings.CutPrefix(text, Directive)
	if !ok {
		return nil, declErrorf("not a %s directive", Directive)
	}

	var scanErr error
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(body))
	var s scanner.Scanner
	s.Init(file, []byte(body), func(_ token.Position, msg string) {
		if scanErr == nil {
			scanErr = declErrorf("malformed directive: %s", msg)
		}
	}, 0)

	args := &TemplateArgs{}
	seen := make(map[string]bool)
	for {
		_, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.COMMA || (tok == token.SEMICOLON && lit == "\n") {
			continue
		}
		if tok != token.IDENT {
			return nil, declErrorf("expected option name, found %s", describe(tok, lit))
		}
		key := lit

		if _, tok, lit = s.Scan(); tok != token.ASSIGN {
			return nil, declErrorf("expected '=' after %s, found %s", key, describe(tok, lit))
		}
		_, tok, lit = s.Scan()
		if scanErr != nil {
			return nil, scanErr
		}
		if tok != token.STRING {
			return nil, declErrorf("expected string value for %s, found %s", key, describe(tok, lit))
		}
		value, err := strconv.Unquote(lit)
		if err != nil {
			return nil, declErrorf("invalid string value for %s: %s", key, lit)
		}

		if seen[key] {
			return nil, declErrorf("duplicated '%s' option", key)
		}
		seen[key] = true
		if err := args.set(key, value); err != nil {
			return nil, err
		}
	}
	if scanErr != nil {
		return nil, scanErr
	}

	switch {
	case seen["path"] && seen["source"]:
		return nil, declErrorf("must specify 'source' or 'path', not both")
	case !seen["path"] && !seen["source"]:
		return nil, declErrorf("must specify 'source' or 'path'")
	case seen["source"] && !seen["ext"]:
		return nil, declErrorf("must specify 'ext' when using 'source'")
	case seen["path"] && seen["ext"]:
		return nil, declErrorf("'ext' can only be used with 'source'")
	}
	return args, nil
}

func (a *TemplateArgs) set(key, value string) error {
	switch key {
	case "path":
		a.Path = value
	case "source":
		a.Source = value
		a.HasSource = true
	case "ext":
		a.Ext = value
	case "print":
		p, err := ParsePrint(value)
		if err != nil {
			return declErrorf("%v", err)
		}
		a.Print = p
	case "escape":
		a.Escape = value
	case "syntax":
		a.Syntax = value
	case "config":
		a.Config = value
	case "whitespace":
		a.Whitespace = value
	case "block":
		a.Block = value
	default:
		return declErrorf("unsupported option '%s'", key)
	}
	return nil
}

func describe(tok token.Token, lit string) string {
	switch {
	case tok == token.EOF || (tok == token.SEMICOLON && lit == "\n"):
		return "end of directive"
	case lit != "":
		return strconv.Quote(lit)
	default:
		return strconv.Quote(tok.String())
	}
}

func declErrorf(format string, args ...any) *diag.Error {
	return diag.New(&diag.DeclarationError{Msg: fmt.Sprintf(format, args...)})
}

// snakeCase converts a Go identifier to snake case: HTMLPage -> html_page.
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1]) && runes[i-1] != '_'
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
