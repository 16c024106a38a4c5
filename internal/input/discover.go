package input

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tmplc/internal/config"
	"github.com/leapstack-labs/tmplc/internal/dag"
	"github.com/leapstack-labs/tmplc/internal/diag"
	"github.com/leapstack-labs/tmplc/internal/template"
)

// Templates holds every template reachable from a root template.
type Templates struct {
	Root   string
	ByPath map[string]*template.Template
	// Graph has an edge from each template to every template referencing it.
	Graph *dag.Graph
}

// Paths returns the template paths with every template listed after the
// templates it references.
func (t *Templates) Paths() []string {
	nodes, err := t.Graph.Sorted()
	if err != nil {
		return nil
	}
	paths := make([]string, 0, len(nodes))
	for _, n := range nodes {
		paths = append(paths, n.ID)
	}
	return paths
}

// Dependencies returns the templates the root references directly or
// transitively.
func (t *Templates) Dependencies() []string {
	return t.Graph.Upstream(t.Root)
}

// Discoverer is the default template parser: it parses the root template
// and everything it references.
type Discoverer struct{}

// Discover implements the parser stage of a compilation.
func (Discoverer) Discover(in *TemplateInput) (*Templates, error) {
	return in.FindUsedTemplates()
}

type pending struct {
	path   string
	source string
	inline bool
}

// FindUsedTemplates parses the root template and, breadth first, every
// template it extends, includes or imports. References are resolved
// relative to the referencing file.
func (in *TemplateInput) FindUsedTemplates() (*Templates, error) {
	found := &Templates{
		Root:   in.Path,
		ByPath: make(map[string]*template.Template),
		Graph:  dag.New(),
	}
	found.Graph.Set(in.Path, nil)

	queue := []pending{{path: in.Path, source: in.Source, inline: in.Args.HasSource}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		source := item.source
		if !item.inline {
			var err error
			if source, err = config.ReadTemplateSource(item.path); err != nil {
				return found, err
			}
		}

		tmpl, err := template.ParseString(source, item.path, in.Syntax)
		if err != nil {
			return found, templateError(item.path, source, err)
		}
		found.ByPath[item.path] = tmpl
		found.Graph.Set(item.path, tmpl)

		for _, ref := range tmpl.References() {
			name, _ := template.ReferencePath(ref)
			fi := diag.FileInfo{Path: item.path, Source: source, NodeSource: ref.Src()}

			dep, err := in.Config.FindTemplate(name, item.path)
			if err != nil {
				return found, diag.From(err).At(fi)
			}
			if dep == item.path {
				return found, diag.NewAt(&diag.DiscoveryError{
					Msg: fmt.Sprintf("template %s references itself", diag.DisplayPath(dep)),
				}, fi)
			}

			if _, seen := found.Graph.Node(dep); !seen {
				found.Graph.Set(dep, nil)
				queue = append(queue, pending{path: dep})
			}
			if err := found.Graph.Link(dep, item.path); err != nil {
				return found, diag.NewAt(&diag.DiscoveryError{Msg: err.Error()}, fi)
			}
		}
	}

	if cycle := found.Graph.Cycle(); cycle != nil {
		display := make([]string, len(cycle))
		for i, p := range cycle {
			display[i] = diag.DisplayPath(p)
		}
		return found, diag.NewAt(&diag.DiscoveryError{
			Msg: fmt.Sprintf("cyclic dependency in graph [%s]", strings.Join(display, " -> ")),
		}, diag.FileInfo{Path: in.Path})
	}
	return found, nil
}

// templateError converts a lex or parse error into a failure located at the
// error's offset.
func templateError(path, source string, err error) error {
	var tmplErr template.Error
	if !errors.As(err, &tmplErr) {
		return diag.From(err)
	}
	fi := diag.FileInfo{Path: path, Source: source}
	if off := tmplErr.Position().Offset; off >= 0 && off < len(source) {
		fi.NodeSource = source[off:]
	}
	return diag.NewAt(&diag.DiscoveryError{Msg: tmplErr.Message()}, fi)
}
