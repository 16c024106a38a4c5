package commands

import (
	"maps"
	"path/filepath"
	"slices"

	"github.com/leapstack-labs/tmplc/internal/compile"
	intconfig "github.com/leapstack-labs/tmplc/internal/config"
	"github.com/leapstack-labs/tmplc/internal/dag"
	"github.com/leapstack-labs/tmplc/internal/input"
)

// workspace tracks the declarations of a build and the templates each one
// read, so that a changed file maps back to the declarations to rebuild.
type workspace struct {
	decls   map[string]*input.TemplateArgs
	results map[string]compile.Result
	// graph has an edge from every template to each declaration that read it.
	graph *dag.Graph
}

func newWorkspace() *workspace {
	return &workspace{
		decls:   make(map[string]*input.TemplateArgs),
		results: make(map[string]compile.Result),
		graph:   dag.New(),
	}
}

// record stores the outcome of building args.
func (ws *workspace) record(args *input.TemplateArgs, res compile.Result) {
	key := args.Key()
	ws.decls[key] = args
	ws.results[key] = res
}

// forgetFile drops the declarations of a Go file and returns their keys.
func (ws *workspace) forgetFile(file string) []string {
	var keys []string
	for key, args := range ws.decls {
		if args.File == file {
			keys = append(keys, key)
			delete(ws.decls, key)
			delete(ws.results, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// reindex rebuilds the template graph from the recorded results.
func (ws *workspace) reindex() {
	g := dag.New()
	for _, key := range slices.Sorted(maps.Keys(ws.decls)) {
		g.Set(key, ws.decls[key])
		for _, tmpl := range ws.results[key].Templates {
			if _, ok := g.Node(tmpl); !ok {
				g.Set(tmpl, nil)
			}
			// Template paths and declaration keys never coincide, so the
			// edge cannot be a self-loop.
			_ = g.Link(tmpl, key)
		}
	}
	ws.graph = g
}

// failed returns the keys of declarations whose last build failed.
func (ws *workspace) failed() []string {
	var keys []string
	for key, res := range ws.results {
		if res.Err != nil {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// affected returns the declarations to rebuild after the given non-Go
// files changed. Failed declarations are always included because the
// templates they would read are unknown.
func (ws *workspace) affected(changed []string) []*input.TemplateArgs {
	keys := make(map[string]bool)
	for _, path := range changed {
		if intconfig.IsConfigDocument(path) {
			for key := range ws.decls {
				keys[key] = true
			}
		}
	}
	for _, id := range ws.graph.Downstream(changed) {
		if _, ok := ws.decls[id]; ok {
			keys[id] = true
		}
	}
	if len(changed) > 0 {
		for _, key := range ws.failed() {
			keys[key] = true
		}
	}

	out := make([]*input.TemplateArgs, 0, len(keys))
	for _, key := range slices.Sorted(maps.Keys(keys)) {
		out = append(out, ws.decls[key])
	}
	return out
}

// templateDirs returns the directories of every template read by any
// declaration.
func (ws *workspace) templateDirs() []string {
	dirs := make(map[string]bool)
	for _, n := range ws.graph.Nodes() {
		if _, ok := ws.decls[n.ID]; ok {
			continue
		}
		dirs[filepath.Dir(n.ID)] = true
	}
	return slices.Sorted(maps.Keys(dirs))
}
