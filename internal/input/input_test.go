package input

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tmplc/internal/config"
	"github.com/leapstack-labs/tmplc/internal/diag"
	"github.com/leapstack-labs/tmplc/internal/testutil"
)

const angleConfig = `
[[syntax]]
name = "angle"
block_start = "<%"
block_end = "%>"
expr_start = "<="
expr_end = "=>"
comment_start = "<#"
comment_end = "#>"

[[escaper]]
path = "example.com/esc.JS"
extensions = ["js"]
`

func setupProject(t *testing.T, files map[string]string) (string, *config.Config) {
	t.Helper()
	root := testutil.SetupProject(t, files)
	cfg, err := config.New(root, config.Document{Text: angleConfig}, "")
	require.NoError(t, err)
	return root, cfg
}

func TestNew_Path(t *testing.T) {
	root, cfg := setupProject(t, map[string]string{
		"templates/hello.html":    "Hello",
		"templates/page.html.j2":  "Page",
		"templates/script.js":     "js",
		"templates/README":        "readme",
		"templates/notes.unknown": "?",
	})

	tests := []struct {
		path      string
		escape    string
		extension string
		escaper   string
	}{
		{"hello.html", "", "html", config.EscaperHTML},
		{"page.html.j2", "", "html", config.EscaperHTML},
		{"script.js", "", "js", "example.com/esc.JS"},
		{"README", "", "", config.EscaperText},
		{"hello.html", "txt", "html", config.EscaperText},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.escape, func(t *testing.T) {
			args := &TemplateArgs{TypeName: "T", File: filepath.Join(root, "t.go"), Path: tt.path, Escape: tt.escape}
			in, err := New(args, cfg)
			require.NoError(t, err)

			assert.Equal(t, filepath.Join(root, "templates", tt.path), in.Path)
			assert.Equal(t, tt.extension, in.Extension)
			assert.Equal(t, tt.escaper, in.Escaper)
			assert.Equal(t, config.DefaultSyntaxName, in.SyntaxName)
			assert.Equal(t, config.DefaultSyntax(), in.Syntax)
		})
	}
}

func TestNew_Source(t *testing.T) {
	root, cfg := setupProject(t, nil)
	args := &TemplateArgs{
		TypeName:  "Inline",
		File:      filepath.Join(root, "views", "inline.go"),
		Source:    "<= Name =>",
		HasSource: true,
		Ext:       "txt",
		Syntax:    "angle",
		Print:     PrintAst,
		Block:     "b",
	}

	in, err := New(args, cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "views", "Inline.txt"), in.Path)
	assert.Equal(t, "<= Name =>", in.Source)
	assert.Equal(t, "angle", in.SyntaxName)
	assert.Equal(t, "<%", in.Syntax.BlockStart)
	assert.Equal(t, config.EscaperText, in.Escaper)
	assert.Equal(t, PrintAst, in.Print)
	assert.Equal(t, "b", in.Block)
}

func TestNew_Errors(t *testing.T) {
	root, cfg := setupProject(t, map[string]string{
		"templates/notes.unknown": "?",
	})
	file := filepath.Join(root, "t.go")

	tests := []struct {
		name string
		args *TemplateArgs
		kind diag.Kind
	}{
		{"missing template", &TemplateArgs{TypeName: "T", File: file, Path: "missing.html"}, diag.KindTemplateNotFound},
		{"unknown syntax", &TemplateArgs{TypeName: "T", File: file, HasSource: true, Ext: "txt", Syntax: "curly"}, diag.KindDeclaration},
		{"no escaper", &TemplateArgs{TypeName: "T", File: file, Path: "notes.unknown"}, diag.KindNoEscaper},
		{"no escaper for override", &TemplateArgs{TypeName: "T", File: file, HasSource: true, Ext: "txt", Escape: "pdf"}, diag.KindNoEscaper},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.args, cfg)
			require.Error(t, err)
			assert.True(t, diag.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"a.html":       "html",
		"a.html.j2":    "html",
		"a.txt.jinja2": "txt",
		"a.jinja":      "jinja",
		"dir.d/a":      "",
		"a.tar.gz":     "gz",
	}
	for path, want := range tests {
		assert.Equal(t, want, Extension(path), path)
	}
}
