// Package dag tracks which files depend on which templates. An edge runs
// from a dependency to its dependent, so everything downstream of a node
// must be rebuilt when that node changes.
package dag

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Node is a template path or declaration key with optional payload.
type Node struct {
	ID   string
	Data any
}

// Graph is a directed graph of dependencies. It does not reject cycles on
// insertion; Cycle and Sorted report them.
type Graph struct {
	nodes        map[string]*Node
	dependents   map[string][]string
	dependencies map[string][]string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:        make(map[string]*Node),
		dependents:   make(map[string][]string),
		dependencies: make(map[string][]string),
	}
}

// Set adds a node, or replaces the data of an existing one. Edges are kept.
func (g *Graph) Set(id string, data any) {
	if n, ok := g.nodes[id]; ok {
		n.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
}

// Link records that dependent reads dependency. Both nodes must exist.
func (g *Graph) Link(dependency, dependent string) error {
	for _, id := range []string{dependency, dependent} {
		if _, ok := g.nodes[id]; !ok {
			return fmt.Errorf("unknown node %q", id)
		}
	}
	if dependency == dependent {
		return fmt.Errorf("%s cannot depend on itself", dependency)
	}
	if !slices.Contains(g.dependents[dependency], dependent) {
		g.dependents[dependency] = append(g.dependents[dependency], dependent)
		g.dependencies[dependent] = append(g.dependencies[dependent], dependency)
	}
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node ordered by id.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, id := range g.ids() {
		out = append(out, g.nodes[id])
	}
	return out
}

// Cycle returns a cycle as a path that starts and ends on the same node, or
// nil when the graph is acyclic. Nodes are visited in id order so the
// reported cycle is stable.
func (g *Graph) Cycle() []string {
	const (
		unseen = iota
		open
		done
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = open
		stack = append(stack, id)
		for _, next := range g.dependents[id] {
			switch state[next] {
			case open:
				start := slices.Index(stack, next)
				return append(slices.Clone(stack[start:]), next)
			case unseen:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range g.ids() {
		if state[id] == unseen {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Sorted returns the nodes with every node after all of its dependencies.
// Among nodes that are ready at the same time, lower ids come first.
func (g *Graph) Sorted() ([]*Node, error) {
	if cycle := g.Cycle(); cycle != nil {
		return nil, fmt.Errorf("cycle detected: %s", strings.Join(cycle, " -> "))
	}

	pending := make(map[string]int, len(g.nodes))
	var ready []string
	for _, id := range g.ids() {
		pending[id] = len(g.dependencies[id])
		if pending[id] == 0 {
			ready = append(ready, id)
		}
	}

	out := make([]*Node, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		out = append(out, g.nodes[id])

		var unlocked []string
		for _, next := range g.dependents[id] {
			if pending[next]--; pending[next] == 0 {
				unlocked = append(unlocked, next)
			}
		}
		slices.Sort(unlocked)
		ready = append(ready, unlocked...)
	}
	return out, nil
}

// Downstream returns the given nodes and everything that depends on them,
// sorted. Unknown ids are ignored.
func (g *Graph) Downstream(ids []string) []string {
	return g.closure(ids, true, g.dependents)
}

// Upstream returns everything id depends on, directly or transitively,
// sorted. The node itself is not included.
func (g *Graph) Upstream(id string) []string {
	return g.closure([]string{id}, false, g.dependencies)
}

func (g *Graph) closure(from []string, inclusive bool, next map[string][]string) []string {
	seen := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		for _, n := range next[id] {
			if !seen[n] {
				seen[n] = true
				walk(n)
			}
		}
	}
	for _, id := range from {
		if _, ok := g.nodes[id]; !ok {
			continue
		}
		if inclusive {
			seen[id] = true
		}
		walk(id)
	}
	return slices.Sorted(maps.Keys(seen))
}

func (g *Graph) ids() []string {
	return slices.Sorted(maps.Keys(g.nodes))
}
