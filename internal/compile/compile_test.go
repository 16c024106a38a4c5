package compile

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tmplc/internal/diag"
	"github.com/leapstack-labs/tmplc/internal/generator"
	"github.com/leapstack-labs/tmplc/internal/heritage"
	"github.com/leapstack-labs/tmplc/internal/input"
	"github.com/leapstack-labs/tmplc/internal/testutil"
)

// declare writes a Go file declaring Hello with the given directive and
// returns the parsed declaration.
func declare(t *testing.T, root, directive string) *input.TemplateArgs {
	t.Helper()
	path := testutil.WriteFile(t, root, "views/hello.go",
		"package views\n\n"+directive+"\ntype Hello struct {\n\tName string\n}\n")
	args, err := input.ScanFile(path)
	require.NoError(t, err)
	require.Len(t, args, 1)
	return args[0]
}

func newCompiler(t *testing.T, root string) *Compiler {
	t.Helper()
	return &Compiler{Root: root, Logger: testutil.NewTestLogger(t)}
}

type generatorFunc func(in *input.TemplateInput, contexts map[string]*heritage.Context, h *heritage.Heritage) (string, error)

func (f generatorFunc) Generate(in *input.TemplateInput, contexts map[string]*heritage.Context, h *heritage.Heritage) (string, error) {
	return f(in, contexts, h)
}

func TestBuild(t *testing.T) {
	root := testutil.SetupProject(t, map[string]string{
		"templates/base.html":  "<h1>{% block title %}{% endblock %}</h1>",
		"templates/hello.html": `{% extends "base.html" %}{% block title %}Hi {{ Name }}{% endblock %}`,
	})
	args := declare(t, root, `//tmplc:template path="hello.html"`)

	code, templates, err := newCompiler(t, root).Build(args)
	require.NoError(t, err)

	assert.Contains(t, code, "func (self Hello) RenderTo(w io.Writer) error {")
	assert.Contains(t, code, `io.WriteString(w, "<h1>Hi ")`)
	assert.Equal(t, []string{
		filepath.Join(root, "templates", "base.html"),
		filepath.Join(root, "templates", "hello.html"),
	}, templates)
}

func TestBuild_WhitespacePrecedence(t *testing.T) {
	files := map[string]string{
		"tmplc.toml":           "[general]\nwhitespace = \"suppress\"\n",
		"templates/hello.html": "a  {{ Name }}  b",
	}

	tests := []struct {
		name      string
		directive string
		cli       string
		want      string
	}{
		{"document", `//tmplc:template path="hello.html"`, "", `"a"`},
		{"command line over document", `//tmplc:template path="hello.html"`, "preserve", `"a  "`},
		{"directive over command line", `//tmplc:template path="hello.html" whitespace="minimize"`, "preserve", `"a "`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := testutil.SetupProject(t, files)
			c := newCompiler(t, root)
			c.Whitespace = tt.cli

			code, _, err := c.Build(declare(t, root, tt.directive))
			require.NoError(t, err)
			assert.Contains(t, code, "io.WriteString(w, "+tt.want+")")
		})
	}
}

func TestBuild_ConfigPath(t *testing.T) {
	root := testutil.SetupProject(t, map[string]string{
		"angle.toml": `
[general]
default_syntax = "angle"

[[syntax]]
name = "angle"
expr_start = "<<"
expr_end = ">>"
block_start = "<%"
block_end = "%>"
comment_start = "<#"
comment_end = "#>"
`,
		"templates/hello.html": "<< Name >>",
	})

	c := newCompiler(t, root)
	c.ConfigPath = "missing.toml"

	_, _, err := c.Build(declare(t, root, `//tmplc:template path="hello.html" config="angle.toml"`))
	require.NoError(t, err, "directive config overrides the command line")

	_, _, err = c.Build(declare(t, root, `//tmplc:template path="hello.html"`))
	require.Error(t, err)
	assert.True(t, diag.IsKind(err, diag.KindConfigMissing))
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name      string
		files     map[string]string
		directive string
		kind      diag.Kind
		fragment  string
	}{
		{
			name:      "template not found",
			directive: `//tmplc:template path="missing.html"`,
			kind:      diag.KindTemplateNotFound,
			fragment:  "hello.go:3:1",
		},
		{
			name:      "explicit config missing",
			files:     map[string]string{"templates/hello.html": "x"},
			directive: `//tmplc:template path="hello.html" config="nope.toml"`,
			kind:      diag.KindConfigMissing,
			fragment:  "hello.go:3:1",
		},
		{
			name:      "malformed document",
			files:     map[string]string{"tmplc.toml": "[general\n", "templates/hello.html": "x"},
			directive: `//tmplc:template path="hello.html"`,
			kind:      diag.KindConfigMalformed,
			fragment:  "tmplc.toml",
		},
		{
			name:      "unknown syntax",
			files:     map[string]string{"templates/hello.html": "x"},
			directive: `//tmplc:template path="hello.html" syntax="angle"`,
			kind:      diag.KindDeclaration,
			fragment:  `syntax "angle" does not exist`,
		},
		{
			name:      "no escaper",
			files:     map[string]string{"templates/hello.css": "x"},
			directive: `//tmplc:template path="hello.css"`,
			kind:      diag.KindNoEscaper,
			fragment:  "hello.go:3:1",
		},
		{
			name:      "parse error keeps its own location",
			files:     map[string]string{"templates/hello.html": "ok\n{% if x %}"},
			directive: `//tmplc:template path="hello.html"`,
			kind:      diag.KindDiscovery,
			fragment:  "hello.html:2:1",
		},
		{
			name:      "block without heritage",
			files:     map[string]string{"templates/hello.html": "x"},
			directive: `//tmplc:template path="hello.html" block="body"`,
			kind:      diag.KindUnresolvedBlock,
			fragment:  "cannot find block `body`",
		},
		{
			name: "block missing from heritage",
			files: map[string]string{
				"templates/base.html":  "{% block title %}{% endblock %}",
				"templates/hello.html": `{% extends "base.html" %}`,
			},
			directive: `//tmplc:template path="hello.html" block="body"`,
			kind:      diag.KindUnresolvedBlock,
			fragment:  "hello.go:3:1",
		},
		{
			name:      "generation",
			files:     map[string]string{"templates/hello.html": "{{ a + b }}"},
			directive: `//tmplc:template path="hello.html"`,
			kind:      diag.KindGeneration,
			fragment:  "hello.html:1:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := testutil.SetupProject(t, tt.files)
			_, _, err := newCompiler(t, root).Build(declare(t, root, tt.directive))
			require.Error(t, err)

			var e *diag.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.kind, e.Kind(), "got %v", err)
			assert.NotNil(t, e.Location)
			assert.Contains(t, err.Error(), tt.fragment)
		})
	}
}

func TestBuild_Print(t *testing.T) {
	root := testutil.SetupProject(t, map[string]string{
		"templates/hello.html": "Hi {{ Name }}",
	})

	tests := []struct {
		print string
		ast   bool
		code  bool
	}{
		{print: "none"},
		{print: "ast", ast: true},
		{print: "code", code: true},
		{print: "all", ast: true, code: true},
	}

	for _, tt := range tests {
		t.Run(tt.print, func(t *testing.T) {
			var out bytes.Buffer
			c := newCompiler(t, root)
			c.Diagnostics = &out

			_, _, err := c.Build(declare(t, root, `//tmplc:template path="hello.html" print="`+tt.print+`"`))
			require.NoError(t, err)

			assert.Equal(t, tt.ast, strings.Contains(out.String(), `Expr "Name"`))
			assert.Equal(t, tt.code, strings.Contains(out.String(), "func (self Hello) Render()"))
		})
	}
}

// writeRecorder keeps every Write call separately.
type writeRecorder struct {
	writes []string
}

func (w *writeRecorder) Write(p []byte) (int, error) {
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

func TestBuild_PrintWritesEachDumpOnce(t *testing.T) {
	root := testutil.SetupProject(t, map[string]string{
		"templates/base.html":  "<h1>{% block title %}{% endblock %}</h1>",
		"templates/hello.html": `{% extends "base.html" %}{% block title %}Hi {{ Name }}{% endblock %}`,
	})
	var out writeRecorder
	c := newCompiler(t, root)
	c.Diagnostics = &out

	_, _, err := c.Build(declare(t, root, `//tmplc:template path="hello.html" print="all"`))
	require.NoError(t, err)

	require.Len(t, out.writes, 2, "one write for the ast of every template, one for the code")
	assert.Contains(t, out.writes[0], "// ast of ")
	assert.Contains(t, out.writes[0], `Block title`)
	assert.Contains(t, out.writes[0], `Extends "base.html"`)
	assert.Contains(t, out.writes[1], "func (self Hello) Render()")
}

func TestBuildSkeleton(t *testing.T) {
	root := testutil.SetupProject(t, map[string]string{
		"tmplc.toml": "this is not toml",
	})
	args := declare(t, root, `//tmplc:template path="missing.html" syntax="nope"`)

	code, err := newCompiler(t, root).BuildSkeleton(args)
	require.NoError(t, err)
	assert.Contains(t, code, "package views")
	assert.Contains(t, code, "func (self Hello) RenderTo(w io.Writer) error {\n\treturn nil\n}")
	assert.Contains(t, code, `return "txt"`)
}

func TestDerive(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		root := testutil.SetupProject(t, map[string]string{"templates/hello.html": "Hi"})
		res := newCompiler(t, root).Derive(declare(t, root, `//tmplc:template path="hello.html"`))

		require.NoError(t, res.Err)
		assert.Contains(t, res.Code, `io.WriteString(w, "Hi")`)
		assert.Len(t, res.Templates, 1)
	})

	t.Run("failure falls back to skeleton", func(t *testing.T) {
		root := testutil.SetupProject(t, nil)
		res := newCompiler(t, root).Derive(declare(t, root, `//tmplc:template path="missing.html"`))

		require.Error(t, res.Err)
		assert.True(t, diag.IsKind(res.Err, diag.KindTemplateNotFound))
		assert.Contains(t, res.Code, "func (self Hello) Render() (string, error) {")
		assert.Empty(t, res.Templates)
	})

	t.Run("invalid directive falls back to skeleton", func(t *testing.T) {
		root := testutil.SetupProject(t, map[string]string{"templates/hello.html": "Hi"})
		args := declare(t, root, `//tmplc:template path="hello.html" colour="red"`)
		require.Error(t, args.Err)

		res := newCompiler(t, root).Derive(args)
		require.Error(t, res.Err)
		assert.True(t, diag.IsKind(res.Err, diag.KindDeclaration))
		assert.Contains(t, res.Err.Error(), "unsupported option 'colour'")
		assert.Contains(t, res.Err.Error(), "hello.go:3:1")
		assert.Contains(t, res.Code, "func (self Hello) RenderTo(w io.Writer) error {\n\treturn nil\n}")
		assert.Empty(t, res.Templates, "no template is read for an invalid directive")
	})

	t.Run("generator failure keeps discovered templates", func(t *testing.T) {
		root := testutil.SetupProject(t, map[string]string{"templates/hello.html": "Hi"})
		c := newCompiler(t, root)
		c.Generator = generatorFunc(func(in *input.TemplateInput, contexts map[string]*heritage.Context, h *heritage.Heritage) (string, error) {
			if !in.Args.HasSource {
				return "", errors.New("backend exploded")
			}
			return generator.Generator{}.Generate(in, contexts, h)
		})

		res := c.Derive(declare(t, root, `//tmplc:template path="hello.html"`))
		require.Error(t, res.Err)
		assert.True(t, diag.IsKind(res.Err, diag.KindGeneration))
		assert.Contains(t, res.Err.Error(), "backend exploded")
		assert.Contains(t, res.Err.Error(), "hello.go:3:1")
		assert.Contains(t, res.Code, `return "txt"`)
		assert.Equal(t, []string{filepath.Join(root, "templates", "hello.html")}, res.Templates)
	})

	t.Run("fallback failures are swallowed", func(t *testing.T) {
		root := testutil.SetupProject(t, map[string]string{"templates/hello.html": "Hi"})
		c := newCompiler(t, root)
		c.Generator = generatorFunc(func(in *input.TemplateInput, _ map[string]*heritage.Context, _ *heritage.Heritage) (string, error) {
			if in.Args.HasSource {
				panic("fallback exploded")
			}
			return "", errors.New("primary failed")
		})

		var res Result
		require.NotPanics(t, func() {
			res = c.Derive(declare(t, root, `//tmplc:template path="hello.html"`))
		})
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "primary failed")
		assert.Empty(t, res.Code)

		c.Generator = generatorFunc(func(*input.TemplateInput, map[string]*heritage.Context, *heritage.Heritage) (string, error) {
			return "", errors.New("always fails")
		})
		res = c.Derive(declare(t, root, `//tmplc:template path="hello.html"`))
		assert.Contains(t, res.Err.Error(), "always fails")
		assert.Empty(t, res.Code)
	})
}

func TestDerive_Concurrent(t *testing.T) {
	root := testutil.SetupProject(t, map[string]string{
		"templates/base.html":  "{% block body %}{% endblock %}",
		"templates/hello.html": `{% extends "base.html" %}{% block body %}{{ Name }}{% endblock %}`,
	})
	args := declare(t, root, `//tmplc:template path="hello.html"`)
	c := newCompiler(t, root)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Derive(args)
		}()
	}
	wg.Wait()

	for _, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, results[0].Code, res.Code)
	}
}
