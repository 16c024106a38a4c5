// Package heritage builds per-file parse contexts and the block inheritance
// graph that links a template to the ancestors it extends.
package heritage

import (
	"fmt"
	"maps"
	"slices"

	"github.com/leapstack-labs/tmplc/internal/config"
	"github.com/leapstack-labs/tmplc/internal/diag"
	"github.com/leapstack-labs/tmplc/internal/template"
)

// Context is the parse context of one template file.
type Context struct {
	Path     string
	Template *template.Template
	// Extends is the resolved path of the parent template, if any.
	Extends string
	Blocks  map[string]*template.BlockNode
	// Imports maps scope names to resolved template paths.
	Imports map[string]string
}

// NewContext builds the context of the template parsed from path. References
// are resolved relative to path.
func NewContext(cfg *config.Config, path string, tmpl *template.Template) (*Context, error) {
	ctx := &Context{
		Path:     path,
		Template: tmpl,
		Blocks:   make(map[string]*template.BlockNode),
		Imports:  make(map[string]string),
	}
	fi := func(n template.Node) diag.FileInfo {
		return diag.FileInfo{Path: path, Source: tmpl.Source, NodeSource: n.Src()}
	}

	if ext := tmpl.Extends(); ext != nil {
		parent, err := cfg.FindTemplate(ext.Path, path)
		if err != nil {
			return nil, diag.From(err).At(fi(ext))
		}
		ctx.Extends = parent
	}

	for _, block := range tmpl.Blocks() {
		if _, dup := ctx.Blocks[block.Name]; dup {
			return nil, diag.NewAt(&diag.DiscoveryError{
				Msg: fmt.Sprintf("block `%s` is defined more than once", block.Name),
			}, fi(block))
		}
		ctx.Blocks[block.Name] = block
	}

	for _, ref := range tmpl.References() {
		imp, ok := ref.(*template.ImportNode)
		if !ok {
			continue
		}
		if _, dup := ctx.Imports[imp.Scope]; dup {
			return nil, diag.NewAt(&diag.DiscoveryError{
				Msg: fmt.Sprintf("import scope `%s` is defined more than once", imp.Scope),
			}, fi(imp))
		}
		resolved, err := cfg.FindTemplate(imp.Path, path)
		if err != nil {
			return nil, diag.From(err).At(fi(imp))
		}
		ctx.Imports[imp.Scope] = resolved
	}

	return ctx, nil
}

// Empty returns a context with no nodes, used to render placeholder output.
func Empty(path string) *Context {
	return &Context{
		Path:     path,
		Template: &template.Template{File: path},
		Blocks:   map[string]*template.BlockNode{},
		Imports:  map[string]string{},
	}
}

// HasInheritance reports whether the context declares blocks or extends
// another template.
func (c *Context) HasInheritance() bool {
	return len(c.Blocks) > 0 || c.Extends != ""
}

// BlockDef is one definition of a block together with the file defining it.
type BlockDef struct {
	Context *Context
	Block   *template.BlockNode
}

// Heritage is the merged block graph of a template and its ancestors.
type Heritage struct {
	// Root is the top-most ancestor; rendering starts from its nodes.
	Root *Context
	// Blocks lists the definitions of each block, most derived first.
	Blocks map[string][]BlockDef
}

// New walks the extends chain from ctx through contexts. Every context on
// the chain must be present in contexts.
func New(ctx *Context, contexts map[string]*Context) *Heritage {
	h := &Heritage{Blocks: make(map[string][]BlockDef)}
	for {
		for name, block := range ctx.Blocks {
			h.Blocks[name] = append(h.Blocks[name], BlockDef{Context: ctx, Block: block})
		}
		parent, ok := contexts[ctx.Extends]
		if ctx.Extends == "" || !ok {
			break
		}
		ctx = parent
	}
	h.Root = ctx
	return h
}

// Has reports whether a block with the given name exists anywhere in the
// chain.
func (h *Heritage) Has(name string) bool {
	return len(h.Blocks[name]) > 0
}

// Resolve returns the most derived definition of the named block.
func (h *Heritage) Resolve(name string) (BlockDef, bool) {
	defs := h.Blocks[name]
	if len(defs) == 0 {
		return BlockDef{}, false
	}
	return defs[0], true
}

// Builder is the default context and heritage builder.
type Builder struct{}

// Contexts builds a context for every parsed template, keyed by path.
func (Builder) Contexts(cfg *config.Config, templates map[string]*template.Template) (map[string]*Context, error) {
	contexts := make(map[string]*Context, len(templates))
	for _, path := range slices.Sorted(maps.Keys(templates)) {
		ctx, err := NewContext(cfg, path, templates[path])
		if err != nil {
			return nil, err
		}
		contexts[path] = ctx
	}
	return contexts, nil
}

// Heritage builds the inheritance graph rooted at root.
func (Builder) Heritage(root *Context, contexts map[string]*Context) *Heritage {
	return New(root, contexts)
}
