package input

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/tmplc/internal/config"
	"github.com/leapstack-labs/tmplc/internal/diag"
)

// jinjaExtensions are stripped when deriving a template's extension, so
// that page.html.j2 is treated as html.
var jinjaExtensions = []string{"j2", "jinja", "jinja2"}

// TemplateInput is a declaration resolved against a configuration.
type TemplateInput struct {
	Args   *TemplateArgs
	Config *config.Config

	SyntaxName string
	Syntax     config.Syntax

	// Path is the root template file. For inline sources it is the
	// declaring file's directory joined with <Type>.<ext>.
	Path string
	// Source is the inline template text when Args.HasSource is set.
	Source string

	// Extension keys the escaper lookup and is reported by the generated
	// TemplateExtension method.
	Extension string
	Escaper   string

	Print Print
	Block string
}

// New resolves args against cfg: it locates the root template and selects
// the syntax and escaper.
func New(args *TemplateArgs, cfg *config.Config) (*TemplateInput, error) {
	in := &TemplateInput{
		Args:   args,
		Config: cfg,
		Print:  args.Print,
		Block:  args.Block,
	}

	if args.HasSource {
		in.Path = filepath.Join(filepath.Dir(args.File), args.TypeName+"."+args.Ext)
		in.Source = args.Source
	} else {
		path, err := cfg.FindTemplate(args.Path, "")
		if err != nil {
			return nil, err
		}
		in.Path = path
	}

	in.SyntaxName = args.Syntax
	if in.SyntaxName == "" {
		in.SyntaxName = cfg.DefaultSyntax
	}
	syntax, ok := cfg.Syntax(in.SyntaxName)
	if !ok {
		return nil, diag.New(&diag.DeclarationError{
			Msg: fmt.Sprintf("syntax %q does not exist", in.SyntaxName),
		})
	}
	in.Syntax = syntax

	in.Extension = Extension(in.Path)
	key := in.Extension
	if args.Escape != "" {
		key = args.Escape
	}
	escaper, ok := cfg.EscaperFor(key)
	if !ok {
		return nil, diag.New(&diag.NoEscaperError{Extension: key})
	}
	in.Escaper = escaper

	return in, nil
}

// Extension returns the extension of a template file without the leading
// dot. A trailing Jinja extension is skipped when another one precedes it.
func Extension(path string) string {
	base := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	for _, j := range jinjaExtensions {
		if ext != j {
			continue
		}
		if inner := strings.TrimPrefix(filepath.Ext(strings.TrimSuffix(base, "."+ext)), "."); inner != "" {
			return inner
		}
	}
	return ext
}
