// Package template parses template files written in a configurable delimiter
// syntax. It supports expressions, control flow, comments and the
// inheritance statements (extends, block, include, import) used to discover
// the files a template depends on.
package template

// Position tracks source location for error reporting. Offset is the byte
// offset into the template source.
type Position struct {
	File   string
	Line   int
	Column int
	Offset int
}

// Marker is a whitespace-control character written right inside a delimiter.
type Marker int

// Marker constants.
const (
	MarkerNone     Marker = iota
	MarkerPreserve        // +
	MarkerSuppress        // -
	MarkerMinimize        // ~
)

func (m Marker) String() string {
	switch m {
	case MarkerPreserve:
		return "+"
	case MarkerSuppress:
		return "-"
	case MarkerMinimize:
		return "~"
	default:
		return ""
	}
}

func markerFor(b byte) (Marker, bool) {
	switch b {
	case '+':
		return MarkerPreserve, true
	case '-':
		return MarkerSuppress, true
	case '~':
		return MarkerMinimize, true
	default:
		return MarkerNone, false
	}
}

// Ws holds the markers of a tag: Left after the opening delimiter, Right
// before the closing one.
type Ws struct {
	Left  Marker
	Right Marker
}

// Node is the interface for all template AST nodes.
type Node interface {
	Pos() Position
	// Src is the raw source text of the node, delimiters included.
	Src() string
	node() // marker method to restrict implementation
}

// nodeBase provides common Position handling for all nodes.
type nodeBase struct {
	pos Position
	src string
}

func (n *nodeBase) Pos() Position { return n.pos }
func (n *nodeBase) Src() string   { return n.src }
func (n *nodeBase) node()         {}

// TextNode represents literal text (passed through unchanged).
type TextNode struct {
	nodeBase
	Text string
}

// CommentNode renders nothing, but its markers still trim whitespace.
type CommentNode struct {
	nodeBase
	Ws Ws
}

// ExprNode represents an expression tag.
// The Expr field contains the expression source (without delimiters).
type ExprNode struct {
	nodeBase
	Ws   Ws
	Expr string
}

// StmtKind identifies the type of statement.
type StmtKind int

// StmtKind constants for statement types.
const (
	StmtUnknown  StmtKind = iota // Unknown/invalid statement
	StmtExtends                  // extends "base.html"
	StmtInclude                  // include "part.html"
	StmtImport                   // import "macros.html" as m
	StmtBlock                    // block name
	StmtEndBlock                 // endblock [name]
	StmtFor                      // for x in items
	StmtEndFor                   // endfor
	StmtIf                       // if cond
	StmtElif                     // elif cond
	StmtElse                     // else
	StmtEndIf                    // endif
)

func (k StmtKind) String() string {
	switch k {
	case StmtExtends:
		return "extends"
	case StmtInclude:
		return "include"
	case StmtImport:
		return "import"
	case StmtBlock:
		return "block"
	case StmtEndBlock:
		return "endblock"
	case StmtFor:
		return "for"
	case StmtEndFor:
		return "endfor"
	case StmtIf:
		return "if"
	case StmtElif:
		return "elif"
	case StmtElse:
		return "else"
	case StmtEndIf:
		return "endif"
	default:
		return "unknown"
	}
}

// StmtNode represents a statement tag (raw from lexer, before parsing into blocks).
type StmtNode struct {
	nodeBase
	Ws      Ws
	Kind    StmtKind
	Expr    string // Condition, iterator, template path or block name
	VarName string // Loop variable (for) or scope name (import)
}

// ExtendsNode names the parent template. Only valid at the top level.
type ExtendsNode struct {
	nodeBase
	Path string
}

// IncludeNode renders another template in place.
type IncludeNode struct {
	nodeBase
	Ws   Ws
	Path string
}

// ImportNode brings another template into the dependency set under a scope
// name. It renders nothing.
type ImportNode struct {
	nodeBase
	Ws    Ws
	Path  string
	Scope string
}

// BlockNode is a named, overridable region.
type BlockNode struct {
	nodeBase
	Ws    Ws
	Name  string
	Body  []Node
	EndWs Ws
}

// ForBlock represents a complete for loop with its body.
// Created by the parser from StmtNode pairs.
type ForBlock struct {
	nodeBase
	Ws       Ws
	VarName  string // Loop variable name
	IterExpr string // Iterator expression
	Body     []Node // Nodes inside the loop
	EndWs    Ws
}

// IfBlock represents a complete if/elif/else conditional.
// Created by the parser from StmtNode sequences.
type IfBlock struct {
	nodeBase
	Ws        Ws
	Condition string    // if condition expression
	Body      []Node    // Nodes for the if branch
	ElseIfs   []*Branch // elif branches (may be empty)
	Else      *Branch   // else branch (may be nil)
	EndWs     Ws
}

// Branch represents an elif or else branch. Condition is empty for else.
type Branch struct {
	nodeBase
	Ws        Ws
	Condition string
	Body      []Node
}

// Template represents a complete parsed template.
type Template struct {
	Nodes  []Node
	File   string // Source file path
	Source string // Source text
}

// Inspect traverses nodes depth-first, calling fn for each node. When fn
// returns false the children of that node are skipped.
func Inspect(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		switch n := n.(type) {
		case *BlockNode:
			Inspect(n.Body, fn)
		case *ForBlock:
			Inspect(n.Body, fn)
		case *IfBlock:
			Inspect(n.Body, fn)
			for _, b := range n.ElseIfs {
				Inspect(b.Body, fn)
			}
			if n.Else != nil {
				Inspect(n.Else.Body, fn)
			}
		}
	}
}

// Extends returns the template's extends statement, or nil.
func (t *Template) Extends() *ExtendsNode {
	for _, n := range t.Nodes {
		if e, ok := n.(*ExtendsNode); ok {
			return e
		}
	}
	return nil
}

// Blocks returns every block in document order, nested ones included.
func (t *Template) Blocks() []*BlockNode {
	var blocks []*BlockNode
	Inspect(t.Nodes, func(n Node) bool {
		if b, ok := n.(*BlockNode); ok {
			blocks = append(blocks, b)
		}
		return true
	})
	return blocks
}

// References returns the extends, include and import nodes in document order.
func (t *Template) References() []Node {
	var refs []Node
	Inspect(t.Nodes, func(n Node) bool {
		switch n.(type) {
		case *ExtendsNode, *IncludeNode, *ImportNode:
			refs = append(refs, n)
		}
		return true
	})
	return refs
}

// ReferencePath returns the template path a reference node names.
func ReferencePath(n Node) (string, bool) {
	switch n := n.(type) {
	case *ExtendsNode:
		return n.Path, true
	case *IncludeNode:
		return n.Path, true
	case *ImportNode:
		return n.Path, true
	default:
		return "", false
	}
}
