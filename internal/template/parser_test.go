package template

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tmplc/internal/config"
)

func parse(input string) (*Template, error) {
	return ParseString(input, "test.html", config.DefaultSyntax())
}

func TestParser_ValidInput(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNodes int
		checkFunc func(t *testing.T, tmpl *Template)
	}{
		{
			name:      "plain text",
			input:     "<p>hello</p>",
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				text, ok := tmpl.Nodes[0].(*TextNode)
				require.True(t, ok, "expected TextNode, got %T", tmpl.Nodes[0])
				assert.Equal(t, "<p>hello</p>", text.Text)
			},
		},
		{
			name:      "simple expression",
			input:     "Hello, {{ user.name }}!",
			wantNodes: 3,
			checkFunc: func(t *testing.T, tmpl *Template) {
				text1, ok := tmpl.Nodes[0].(*TextNode)
				require.True(t, ok, "node[0]: expected TextNode, got %T", tmpl.Nodes[0])
				assert.Equal(t, "Hello, ", text1.Text)

				expr, ok := tmpl.Nodes[1].(*ExprNode)
				require.True(t, ok, "node[1]: expected ExprNode, got %T", tmpl.Nodes[1])
				assert.Equal(t, "user.name", expr.Expr)
				assert.Equal(t, "{{ user.name }}", expr.Src())

				text2, ok := tmpl.Nodes[2].(*TextNode)
				require.True(t, ok, "node[2]: expected TextNode, got %T", tmpl.Nodes[2])
				assert.Equal(t, "!", text2.Text)
			},
		},
		{
			name: "for loop",
			input: `{% for item in items %}
{{ item }}
{%- endfor %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				forBlock, ok := tmpl.Nodes[0].(*ForBlock)
				require.True(t, ok, "expected ForBlock, got %T", tmpl.Nodes[0])
				assert.Equal(t, "item", forBlock.VarName)
				assert.Equal(t, "items", forBlock.IterExpr)
				assert.Equal(t, Ws{Left: MarkerSuppress}, forBlock.EndWs)
				require.Len(t, forBlock.Body, 3)
				expr, ok := forBlock.Body[1].(*ExprNode)
				require.True(t, ok, "body[1]: expected ExprNode, got %T", forBlock.Body[1])
				assert.Equal(t, "item", expr.Expr)
			},
		},
		{
			name: "if-else",
			input: `{% if condition %}
yes
{% else %}
no
{% endif %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				ifBlock, ok := tmpl.Nodes[0].(*IfBlock)
				require.True(t, ok, "expected IfBlock, got %T", tmpl.Nodes[0])
				assert.Equal(t, "condition", ifBlock.Condition)
				assert.Len(t, ifBlock.Body, 1)
				require.NotNil(t, ifBlock.Else)
				assert.Len(t, ifBlock.Else.Body, 1)
			},
		},
		{
			name: "if-elif",
			input: `{% if a %}
A
{% elif b %}
B
{% elif not c %}
C
{% endif %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				ifBlock, ok := tmpl.Nodes[0].(*IfBlock)
				require.True(t, ok, "expected IfBlock, got %T", tmpl.Nodes[0])
				assert.Equal(t, "a", ifBlock.Condition)
				require.Len(t, ifBlock.ElseIfs, 2)
				assert.Equal(t, "b", ifBlock.ElseIfs[0].Condition)
				assert.Equal(t, "not c", ifBlock.ElseIfs[1].Condition)
				assert.Nil(t, ifBlock.Else)
			},
		},
		{
			name:      "empty else keeps its markers",
			input:     `{% if a %}A{%- else -%}{% endif %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				ifBlock := tmpl.Nodes[0].(*IfBlock)
				require.NotNil(t, ifBlock.Else)
				assert.Empty(t, ifBlock.Else.Body)
				assert.Equal(t, Ws{Left: MarkerSuppress, Right: MarkerSuppress}, ifBlock.Else.Ws)
			},
		},
		{
			name: "nested blocks",
			input: `{% for x in items %}
{% if x.visible %}
{{ x.name }}
{% endif %}
{% endfor %}`,
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				forBlock, ok := tmpl.Nodes[0].(*ForBlock)
				require.True(t, ok, "expected ForBlock, got %T", tmpl.Nodes[0])

				var foundIf bool
				for _, node := range forBlock.Body {
					if _, ok := node.(*IfBlock); ok {
						foundIf = true
						break
					}
				}
				assert.True(t, foundIf, "expected nested IfBlock in ForBlock body")
			},
		},
		{
			name:      "extends and blocks",
			input:     `{% extends "base.html" %}{% block title %}Home{% endblock title %}{% block body %}{% block inner %}x{% endblock %}{% endblock %}`,
			wantNodes: 3,
			checkFunc: func(t *testing.T, tmpl *Template) {
				ext := tmpl.Extends()
				require.NotNil(t, ext)
				assert.Equal(t, "base.html", ext.Path)

				var names []string
				for _, b := range tmpl.Blocks() {
					names = append(names, b.Name)
				}
				assert.Equal(t, []string{"title", "body", "inner"}, names)
			},
		},
		{
			name:      "include and import",
			input:     `{% import "macros.html" as m %}{% if a %}{% include "part.html" %}{% endif %}`,
			wantNodes: 2,
			checkFunc: func(t *testing.T, tmpl *Template) {
				imp, ok := tmpl.Nodes[0].(*ImportNode)
				require.True(t, ok, "expected ImportNode, got %T", tmpl.Nodes[0])
				assert.Equal(t, "macros.html", imp.Path)
				assert.Equal(t, "m", imp.Scope)

				var paths []string
				for _, ref := range tmpl.References() {
					p, ok := ReferencePath(ref)
					require.True(t, ok)
					paths = append(paths, p)
				}
				assert.Equal(t, []string{"macros.html", "part.html"}, paths)
				assert.Nil(t, tmpl.Extends())
			},
		},
		{
			name:      "comment",
			input:     `a{#- note -#}b`,
			wantNodes: 3,
			checkFunc: func(t *testing.T, tmpl *Template) {
				c, ok := tmpl.Nodes[1].(*CommentNode)
				require.True(t, ok, "expected CommentNode, got %T", tmpl.Nodes[1])
				assert.Equal(t, Ws{Left: MarkerSuppress, Right: MarkerSuppress}, c.Ws)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := parse(tt.input)
			require.NoError(t, err)
			require.Len(t, tmpl.Nodes, tt.wantNodes)
			assert.Equal(t, tt.input, tmpl.Source)
			if tt.checkFunc != nil {
				tt.checkFunc(t, tmpl)
			}
		})
	}
}

func TestParser_TrailingColon(t *testing.T) {
	// Both with and without colon should work
	inputs := []string{
		`{% for x in items: %}{{ x }}{% endfor %}`,
		`{% for x in items %}{{ x }}{% endfor %}`,
	}

	for _, input := range inputs {
		t.Run(input[:20]+"...", func(t *testing.T) {
			tmpl, err := parse(input)
			require.NoError(t, err, "input %q", input)

			forBlock, ok := tmpl.Nodes[0].(*ForBlock)
			require.True(t, ok, "input %q: expected ForBlock, got %T", input, tmpl.Nodes[0])
			assert.Equal(t, "x", forBlock.VarName)
			assert.Equal(t, "items", forBlock.IterExpr)
		})
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		errType string // optional: specific error type expected
	}{
		{
			name: "unmatched for",
			input: `{% for x in items %}
{{ x }}`,
			errType: "UnmatchedBlockError",
		},
		{
			name: "unmatched endfor",
			input: `{{ x }}
{% endfor %}`,
			errType: "UnmatchedBlockError",
		},
		{
			name: "unmatched if",
			input: `{% if condition %}
yes`,
			errType: "UnmatchedBlockError",
		},
		{
			name: "unmatched else",
			input: `yes
{% else %}
no`,
			errType: "UnmatchedBlockError",
		},
		{
			name:    "endif closes for",
			input:   `{% for x in xs %}{% endif %}`,
			errType: "UnmatchedBlockError",
		},
		{
			name:    "unclosed block",
			input:   `{% block body %}text`,
			errType: "UnmatchedBlockError",
		},
		{
			name:  "mismatched endblock",
			input: `{% block body %}{% endblock title %}`,
		},
		{
			name:  "nested extends",
			input: `{% if a %}{% extends "base.html" %}{% endif %}`,
		},
		{
			name:  "multiple extends",
			input: `{% extends "a.html" %}{% extends "b.html" %}`,
		},
		{
			name:  "unquoted include",
			input: `{% include part.html %}`,
		},
		{
			name:  "import without scope",
			input: `{% import "macros.html" %}`,
		},
		{
			name:  "for without in",
			input: `{% for x %}{% endfor %}`,
		},
		{
			name:  "elif after else",
			input: `{% if a %}{% else %}{% elif b %}{% endif %}`,
		},
		{
			name:  "invalid statement",
			input: `{% while true %}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(tt.input)
			require.Error(t, err)

			var tmplErr Error
			assert.ErrorAs(t, err, &tmplErr)

			if tt.errType == "UnmatchedBlockError" {
				_, ok := err.(*UnmatchedBlockError)
				assert.True(t, ok, "expected UnmatchedBlockError, got %T: %v", err, err)
			}
		})
	}
}

func TestParser_ErrorPosition(t *testing.T) {
	_, err := parse("line1\n{% block a %}{% endblock b %}")
	require.Error(t, err)

	parseErr, ok := err.(*ParseError)
	require.True(t, ok, "expected ParseError, got %T", err)
	assert.Equal(t, 2, parseErr.Position().Line)
	assert.Equal(t, 19, parseErr.Position().Offset)
	assert.Equal(t, `test.html:2:14: endblock "b" does not match block "a"`, parseErr.Error())
}

func TestDump(t *testing.T) {
	tmpl, err := parse(`{% block body -%}
{% for x in xs %}{{ x }}{% endfor %}{% if a %}A{% else %}B{% endif %}
{%- endblock %}`)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, tmpl.Nodes))

	want := `Block body [|-]
  Text "\n"
  For x in "xs"
    Expr "x"
  If "a"
    Text "A"
  Else
    Text "B"
  Text "\n"
`
	assert.Equal(t, want, buf.String())
}
