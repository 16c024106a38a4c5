// Package generator emits the Go source implementing a templated
// declaration. The generated file gives the declared type three methods:
//
//	func (self T) RenderTo(w io.Writer) error
//	func (self T) Render() (string, error)
//	func (self T) TemplateExtension() string
//
// Template expressions are dotted field paths evaluated against the
// receiver, or against a loop variable when the first segment names one.
package generator

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/leapstack-labs/tmplc/internal/config"
	"github.com/leapstack-labs/tmplc/internal/diag"
	"github.com/leapstack-labs/tmplc/internal/heritage"
	"github.com/leapstack-labs/tmplc/internal/input"
	"github.com/leapstack-labs/tmplc/internal/template"
)

const (
	receiver = "self"
	writer   = "w"
	// escaperAlias names the package of an imported escaper function.
	escaperAlias = "tmplcescape"
)

var (
	segmentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\(\))?$`)
	identRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reserved  = []string{receiver, writer, "err", "_"}
)

// Generator is the default code generator.
type Generator struct{}

// Generate emits the source for in. contexts must hold a context for in.Path
// and for every template it references; h is nil when the root template
// neither extends another template nor declares blocks.
func (Generator) Generate(in *input.TemplateInput, contexts map[string]*heritage.Context, h *heritage.Heritage) (string, error) {
	root, ok := contexts[in.Path]
	if !ok {
		return "", diag.New(&diag.GenerationError{
			Msg: fmt.Sprintf("no parse context for %s", diag.DisplayPath(in.Path)),
		})
	}

	g := &gen{
		in:         in,
		contexts:   contexts,
		heritage:   h,
		whitespace: in.Config.Whitespace,
		skipWs:     config.WhitespacePreserve,
		imports:    map[string]string{"io": "", "strings": ""},
	}
	return g.build(root)
}

type local struct {
	name string
	used bool
}

type gen struct {
	in       *input.TemplateInput
	contexts map[string]*heritage.Context
	heritage *heritage.Heritage

	buf bytes.Buffer    // RenderTo body
	lit strings.Builder // literal text not yet written out

	// nextWs holds whitespace trailing the last literal; whether it is
	// written depends on the tag that follows.
	nextWs    string
	hasNextWs bool
	// skipWs is how leading whitespace of the next literal is handled.
	skipWs     config.Whitespace
	whitespace config.Whitespace

	locals  []local
	imports map[string]string // import path -> alias
}

func (g *gen) build(root *heritage.Context) (string, error) {
	var err error
	switch {
	case g.in.Block != "":
		err = g.writeBlock(root, g.in.Block, template.Ws{}, nil)
	case g.heritage != nil:
		err = g.handle(g.heritage.Root, g.heritage.Root.Template.Nodes)
	default:
		err = g.handle(root, root.Template.Nodes)
	}
	if err != nil {
		return "", err
	}
	g.flushWs(template.Ws{})
	g.flushLit()

	return g.file()
}

func (g *gen) file() (string, error) {
	typ := g.in.Args.TypeName

	var src bytes.Buffer
	fmt.Fprintf(&src, "// Code generated by tmplc. DO NOT EDIT.\n\n")
	fmt.Fprintf(&src, "package %s\n\n", g.in.Args.Package)

	src.WriteString("import (\n")
	paths := make([]string, 0, len(g.imports))
	for path := range g.imports {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	for _, path := range paths {
		if alias := g.imports[path]; alias != "" {
			fmt.Fprintf(&src, "%s %q\n", alias, path)
		} else {
			fmt.Fprintf(&src, "%q\n", path)
		}
	}
	src.WriteString(")\n\n")

	fmt.Fprintf(&src, "// TemplateExtension returns the extension of the template rendered by %s.\n", typ)
	fmt.Fprintf(&src, "func (%s %s) TemplateExtension() string {\nreturn %q\n}\n\n", receiver, typ, g.in.Extension)

	fmt.Fprintf(&src, "// Render renders %s to a string.\n", typ)
	fmt.Fprintf(&src, "func (%s %s) Render() (string, error) {\n", receiver, typ)
	fmt.Fprintf(&src, "var b strings.Builder\nif err := %s.RenderTo(&b); err != nil {\nreturn \"\", err\n}\nreturn b.String(), nil\n}\n\n", receiver)

	fmt.Fprintf(&src, "// RenderTo renders %s to %s.\n", typ, writer)
	fmt.Fprintf(&src, "func (%s %s) RenderTo(%s io.Writer) error {\n", receiver, typ, writer)
	src.Write(g.buf.Bytes())
	src.WriteString("return nil\n}\n")

	out, err := imports.Process(g.in.Args.OutputName(), src.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return "", diag.New(&diag.GenerationError{
			Msg: fmt.Sprintf("failed to format generated code for %s: %v", typ, err),
		})
	}
	return string(out), nil
}

func (g *gen) handle(ctx *heritage.Context, nodes []template.Node) error {
	for _, n := range nodes {
		var err error
		switch n := n.(type) {
		case *template.TextNode:
			g.writeLit(n.Text)
		case *template.CommentNode:
			g.handleWs(n.Ws)
		case *template.ExprNode:
			g.handleWs(n.Ws)
			err = g.writeExpr(ctx, n)
		case *template.ExtendsNode:
			// Rendering starts from the root ancestor.
		case *template.ImportNode:
			g.handleWs(n.Ws)
		case *template.IncludeNode:
			err = g.writeInclude(ctx, n)
		case *template.BlockNode:
			err = g.writeBlock(ctx, n.Name, template.Ws{Left: n.Ws.Left, Right: n.EndWs.Right}, n)
		case *template.ForBlock:
			err = g.writeLoop(ctx, n)
		case *template.IfBlock:
			err = g.writeCond(ctx, n)
		default:
			err = diag.Generationf(fileInfo(ctx, n), "unsupported node %T", n)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// writeBlock renders the most derived definition of the named block. outer
// carries the markers of the tags surrounding the block at the call site.
func (g *gen) writeBlock(ctx *heritage.Context, name string, outer template.Ws, at template.Node) error {
	g.flushWs(outer)

	def, ok := heritage.BlockDef{}, false
	if g.heritage != nil {
		def, ok = g.heritage.Resolve(name)
	}
	if !ok {
		if block := ctx.Blocks[name]; block != nil {
			def, ok = heritage.BlockDef{Context: ctx, Block: block}, true
		}
	}
	if !ok {
		err := diag.New(&diag.UnresolvedBlockError{Name: name})
		if at != nil {
			return err.At(fileInfo(ctx, at))
		}
		return err
	}

	g.prepareWs(def.Block.Ws)
	if err := g.handle(def.Context, def.Block.Body); err != nil {
		return err
	}
	g.flushWs(def.Block.EndWs)
	g.prepareWs(outer)
	return nil
}

func (g *gen) writeInclude(ctx *heritage.Context, n *template.IncludeNode) error {
	g.flushWs(n.Ws)

	path, err := g.in.Config.FindTemplate(n.Path, ctx.Path)
	if err != nil {
		return diag.From(err).At(fileInfo(ctx, n))
	}
	inc, ok := g.contexts[path]
	if !ok {
		return diag.Generationf(fileInfo(ctx, n), "template %s was not discovered", diag.DisplayPath(path))
	}
	if inc.Extends != "" {
		return diag.Generationf(fileInfo(ctx, n), "included template %s cannot extend another template", diag.DisplayPath(path))
	}

	// Blocks inside an included template render their own body.
	saved := g.heritage
	g.heritage = nil
	err = g.handle(inc, inc.Template.Nodes)
	g.heritage = saved
	if err != nil {
		return err
	}

	g.prepareWs(n.Ws)
	return nil
}

func (g *gen) writeLoop(ctx *heritage.Context, n *template.ForBlock) error {
	if slices.Contains(reserved, n.VarName) {
		return diag.Generationf(fileInfo(ctx, n), "loop variable %q is reserved", n.VarName)
	}
	iter, err := g.path(ctx, n, n.IterExpr)
	if err != nil {
		return err
	}

	g.handleWs(n.Ws)
	g.flushLit()

	mark := g.buf.Len()
	g.locals = append(g.locals, local{name: n.VarName})
	if err := g.handle(ctx, n.Body); err != nil {
		return err
	}
	g.handleWs(n.EndWs)
	g.flushLit()
	used := g.locals[len(g.locals)-1].used
	g.locals = g.locals[:len(g.locals)-1]

	body := bytes.Clone(g.buf.Bytes()[mark:])
	g.buf.Truncate(mark)
	if used {
		g.writef("for _, %s := range %s {\n", n.VarName, iter)
	} else {
		g.writef("for range %s {\n", iter)
	}
	g.buf.Write(body)
	g.writef("}\n")
	return nil
}

func (g *gen) writeCond(ctx *heritage.Context, n *template.IfBlock) error {
	cond, err := g.cond(ctx, n, n.Condition)
	if err != nil {
		return err
	}
	g.handleWs(n.Ws)
	g.flushLit()
	g.writef("if %s {\n", cond)
	if err := g.handle(ctx, n.Body); err != nil {
		return err
	}

	for _, b := range n.ElseIfs {
		cond, err := g.cond(ctx, b, b.Condition)
		if err != nil {
			return err
		}
		g.handleWs(b.Ws)
		g.flushLit()
		g.writef("} else if %s {\n", cond)
		if err := g.handle(ctx, b.Body); err != nil {
			return err
		}
	}

	if n.Else != nil {
		g.handleWs(n.Else.Ws)
		g.flushLit()
		g.writef("} else {\n")
		if err := g.handle(ctx, n.Else.Body); err != nil {
			return err
		}
	}

	g.handleWs(n.EndWs)
	g.flushLit()
	g.writef("}\n")
	return nil
}

func (g *gen) writeExpr(ctx *heritage.Context, n *template.ExprNode) error {
	expr, safe := strings.TrimSpace(n.Expr), false
	if base, filter, ok := strings.Cut(expr, "|"); ok {
		if strings.TrimSpace(filter) != "safe" {
			return diag.Generationf(fileInfo(ctx, n), "unsupported filter %q", strings.TrimSpace(filter))
		}
		expr, safe = strings.TrimSpace(base), true
	}
	value, err := g.path(ctx, n, expr)
	if err != nil {
		return err
	}

	g.flushLit()
	if safe || g.in.Escaper == config.EscaperText {
		g.imports["fmt"] = ""
		g.writeErrCheck(fmt.Sprintf("fmt.Fprint(%s, %s)", writer, value))
		return nil
	}

	call, err := g.escape(ctx, n, fmt.Sprintf("fmt.Sprint(%s)", value))
	if err != nil {
		return err
	}
	g.imports["fmt"] = ""
	g.writeErrCheck(fmt.Sprintf("io.WriteString(%s, %s)", writer, call))
	return nil
}

// escape wraps arg in a call to the configured escaper: Html, a package
// local function name, or an import path followed by a function name.
func (g *gen) escape(ctx *heritage.Context, n template.Node, arg string) (string, error) {
	escaper := g.in.Escaper
	switch {
	case escaper == config.EscaperHTML:
		g.imports["html"] = ""
		return fmt.Sprintf("html.EscapeString(%s)", arg), nil
	case identRe.MatchString(escaper):
		return fmt.Sprintf("%s(%s)", escaper, arg), nil
	}

	i := strings.LastIndex(escaper, ".")
	if i <= 0 || !identRe.MatchString(escaper[i+1:]) {
		return "", diag.Generationf(fileInfo(ctx, n), "invalid escaper %q", escaper)
	}
	g.imports[escaper[:i]] = escaperAlias
	return fmt.Sprintf("%s.%s(%s)", escaperAlias, escaper[i+1:], arg), nil
}

// path translates a dotted template path to a Go selector expression.
func (g *gen) path(ctx *heritage.Context, n template.Node, expr string) (string, error) {
	segments := strings.Split(expr, ".")
	for _, s := range segments {
		if !segmentRe.MatchString(s) {
			return "", diag.Generationf(fileInfo(ctx, n), "unsupported expression %q", expr)
		}
	}
	for i := len(g.locals) - 1; i >= 0; i-- {
		if g.locals[i].name == segments[0] {
			g.locals[i].used = true
			return expr, nil
		}
	}
	return receiver + "." + expr, nil
}

// cond translates a condition: a boolean path, optionally negated with not.
func (g *gen) cond(ctx *heritage.Context, n template.Node, expr string) (string, error) {
	if rest, ok := strings.CutPrefix(expr, "not "); ok {
		p, err := g.path(ctx, n, strings.TrimSpace(rest))
		if err != nil {
			return "", err
		}
		return "!" + p, nil
	}
	return g.path(ctx, n, expr)
}

// Whitespace handling. Text nodes are split into leading whitespace, content
// and trailing whitespace. Leading whitespace is written according to the
// marker on the right of the preceding tag; trailing whitespace is held in
// nextWs until the marker on the left of the following tag is known.

func (g *gen) writeLit(text string) {
	trimmed := strings.TrimLeft(text, wsChars)
	lws := text[:len(text)-len(trimmed)]
	val := strings.TrimRight(trimmed, wsChars)
	rws := trimmed[len(val):]

	if lws != "" {
		switch {
		case g.skipWs == config.WhitespaceSuppress:
		case val == "":
			g.nextWs, g.hasNextWs = lws, true
		case g.skipWs == config.WhitespaceMinimize:
			g.lit.WriteString(minimize(lws))
		default:
			g.lit.WriteString(lws)
		}
	}
	if val != "" {
		g.skipWs = config.WhitespacePreserve
		g.lit.WriteString(val)
	}
	if rws != "" {
		g.nextWs, g.hasNextWs = rws, true
	}
}

const wsChars = " \t\r\n"

func minimize(ws string) string {
	if strings.Contains(ws, "\n") {
		return "\n"
	}
	return " "
}

func (g *gen) trim(m template.Marker) config.Whitespace {
	switch m {
	case template.MarkerSuppress:
		return config.WhitespaceSuppress
	case template.MarkerPreserve:
		return config.WhitespacePreserve
	case template.MarkerMinimize:
		return config.WhitespaceMinimize
	default:
		return g.whitespace
	}
}

func (g *gen) flushWs(ws template.Ws) {
	if !g.hasNextWs {
		return
	}
	switch g.trim(ws.Left) {
	case config.WhitespacePreserve:
		g.lit.WriteString(g.nextWs)
	case config.WhitespaceMinimize:
		g.lit.WriteString(minimize(g.nextWs))
	}
	g.nextWs, g.hasNextWs = "", false
}

func (g *gen) prepareWs(ws template.Ws) {
	g.skipWs = g.trim(ws.Right)
}

func (g *gen) handleWs(ws template.Ws) {
	g.flushWs(ws)
	g.prepareWs(ws)
}

func (g *gen) flushLit() {
	if g.lit.Len() == 0 {
		return
	}
	g.writeErrCheck(fmt.Sprintf("io.WriteString(%s, %s)", writer, strconv.Quote(g.lit.String())))
	g.lit.Reset()
}

func (g *gen) writeErrCheck(call string) {
	g.writef("if _, err := %s; err != nil {\nreturn err\n}\n", call)
}

func (g *gen) writef(format string, args ...any) {
	fmt.Fprintf(&g.buf, format, args...)
}

func fileInfo(ctx *heritage.Context, n template.Node) diag.FileInfo {
	return diag.FileInfo{Path: ctx.Path, Source: ctx.Template.Source, NodeSource: n.Src()}
}
