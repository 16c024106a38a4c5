package template

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented outline of nodes to w, one node per line.
func Dump(w io.Writer, nodes []Node) error {
	d := &dumper{w: w}
	d.nodes(nodes, 0)
	return d.err
}

type dumper struct {
	w   io.Writer
	err error
}

func (d *dumper) printf(depth int, format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, "%s"+format+"\n", append([]any{strings.Repeat("  ", depth)}, args...)...)
}

func (d *dumper) nodes(nodes []Node, depth int) {
	for _, n := range nodes {
		d.node(n, depth)
	}
}

func (d *dumper) node(n Node, depth int) {
	switch n := n.(type) {
	case *TextNode:
		d.printf(depth, "Text %q", n.Text)
	case *CommentNode:
		d.printf(depth, "Comment%s", wsSuffix(n.Ws))
	case *ExprNode:
		d.printf(depth, "Expr %q%s", n.Expr, wsSuffix(n.Ws))
	case *ExtendsNode:
		d.printf(depth, "Extends %q", n.Path)
	case *IncludeNode:
		d.printf(depth, "Include %q%s", n.Path, wsSuffix(n.Ws))
	case *ImportNode:
		d.printf(depth, "Import %q as %s%s", n.Path, n.Scope, wsSuffix(n.Ws))
	case *BlockNode:
		d.printf(depth, "Block %s%s", n.Name, wsSuffix(n.Ws))
		d.nodes(n.Body, depth+1)
	case *ForBlock:
		d.printf(depth, "For %s in %q%s", n.VarName, n.IterExpr, wsSuffix(n.Ws))
		d.nodes(n.Body, depth+1)
	case *IfBlock:
		d.printf(depth, "If %q%s", n.Condition, wsSuffix(n.Ws))
		d.nodes(n.Body, depth+1)
		for _, b := range n.ElseIfs {
			d.printf(depth, "Elif %q%s", b.Condition, wsSuffix(b.Ws))
			d.nodes(b.Body, depth+1)
		}
		if n.Else != nil {
			d.printf(depth, "Else%s", wsSuffix(n.Else.Ws))
			d.nodes(n.Else.Body, depth+1)
		}
	default:
		d.printf(depth, "%T", n)
	}
}

func wsSuffix(ws Ws) string {
	if ws == (Ws{}) {
		return ""
	}
	return fmt.Sprintf(" [%s|%s]", ws.Left, ws.Right)
}
