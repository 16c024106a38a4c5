package heritage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tmplc/internal/config"
	"github.com/leapstack-labs/tmplc/internal/diag"
	"github.com/leapstack-labs/tmplc/internal/template"
	"github.com/leapstack-labs/tmplc/internal/testutil"
)

var project = map[string]string{
	"templates/base.html":   `<title>{% block title %}Site{% endblock %}</title>{% block body %}{% endblock %}`,
	"templates/layout.html": `{% extends "base.html" %}{% block body %}<main>{% block content %}{% endblock %}</main>{% endblock %}`,
	"templates/page.html":   `{% extends "layout.html" %}{% import "macros.html" as m %}{% block title %}Page{% endblock %}{% block content %}hi{% endblock %}`,
	"templates/macros.html": `macros`,
	"templates/plain.html":  `no inheritance`,
}

func setup(t *testing.T) (string, *config.Config, map[string]*template.Template) {
	t.Helper()
	root := testutil.SetupProject(t, project)
	cfg, err := config.New(root, config.Document{}, "")
	require.NoError(t, err)

	templates := make(map[string]*template.Template)
	for name, src := range project {
		path := filepath.Join(root, filepath.FromSlash(name))
		tmpl, err := template.ParseString(src, path, config.DefaultSyntax())
		require.NoError(t, err, name)
		templates[path] = tmpl
	}
	return root, cfg, templates
}

func TestNewContext(t *testing.T) {
	root, cfg, templates := setup(t)
	path := filepath.Join(root, "templates", "page.html")

	ctx, err := NewContext(cfg, path, templates[path])
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "templates", "layout.html"), ctx.Extends)
	assert.Len(t, ctx.Blocks, 2)
	assert.Contains(t, ctx.Blocks, "title")
	assert.Contains(t, ctx.Blocks, "content")
	assert.Equal(t, map[string]string{"m": filepath.Join(root, "templates", "macros.html")}, ctx.Imports)
	assert.True(t, ctx.HasInheritance())

	plain := filepath.Join(root, "templates", "plain.html")
	ctx, err = NewContext(cfg, plain, templates[plain])
	require.NoError(t, err)
	assert.False(t, ctx.HasInheritance())
}

func TestNewContext_Errors(t *testing.T) {
	_, cfg, _ := setup(t)

	tests := []struct {
		name     string
		src      string
		kind     diag.Kind
		fragment string
	}{
		{
			name:     "duplicate block",
			src:      "{% block a %}{% endblock %}\n{%- block a %}x{% endblock %}",
			kind:     diag.KindDiscovery,
			fragment: "2:1",
		},
		{
			name:     "missing parent",
			src:      "text\n{% extends \"missing.html\" %}",
			kind:     diag.KindTemplateNotFound,
			fragment: "2:1",
		},
		{
			name:     "duplicate import scope",
			src:      `{% import "macros.html" as m %}{% import "plain.html" as m %}`,
			kind:     diag.KindDiscovery,
			fragment: "1:32",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "t.html")
			tmpl, err := template.ParseString(tt.src, path, config.DefaultSyntax())
			require.NoError(t, err)

			_, err = NewContext(cfg, path, tmpl)
			require.Error(t, err)
			assert.True(t, diag.IsKind(err, tt.kind), "got %v", err)
			assert.Contains(t, err.Error(), tt.fragment)
		})
	}
}

func TestHeritage(t *testing.T) {
	root, cfg, templates := setup(t)
	contexts, err := Builder{}.Contexts(cfg, templates)
	require.NoError(t, err)
	require.Len(t, contexts, len(project))

	page := contexts[filepath.Join(root, "templates", "page.html")]
	h := Builder{}.Heritage(page, contexts)

	assert.Equal(t, filepath.Join(root, "templates", "base.html"), h.Root.Path)

	titles := h.Blocks["title"]
	require.Len(t, titles, 2)
	assert.Equal(t, page, titles[0].Context, "most derived definition comes first")
	assert.Equal(t, h.Root, titles[1].Context)

	def, ok := h.Resolve("body")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "templates", "layout.html"), def.Context.Path)

	assert.True(t, h.Has("content"))
	assert.False(t, h.Has("footer"))
	_, ok = h.Resolve("footer")
	assert.False(t, ok)
}

func TestHeritage_NoParent(t *testing.T) {
	root, cfg, templates := setup(t)
	contexts, err := Builder{}.Contexts(cfg, templates)
	require.NoError(t, err)

	base := contexts[filepath.Join(root, "templates", "base.html")]
	h := New(base, contexts)
	assert.Equal(t, base, h.Root)
	assert.Len(t, h.Blocks, 2)
}

func TestEmpty(t *testing.T) {
	ctx := Empty("/x/Hello.txt")
	assert.Equal(t, "/x/Hello.txt", ctx.Path)
	assert.Empty(t, ctx.Template.Nodes)
	assert.False(t, ctx.HasInheritance())
}
