package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Node is one service in the startup graph.
type Node struct {
	Name      string
	DependsOn []string
}

// Graph holds the declared services and their dependency edges.
// Declaration order is preserved and used to break ties inside a wave.
type Graph struct {
	nodes []Node
	index map[string]int
}

func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Add registers a node. Duplicate names are rejected; dependency names are
// validated later in Waves, once the full set is known.
func (g *Graph) Add(n Node) error {
	if n.Name == "" {
		return fmt.Errorf("graph: node with empty name")
	}
	if _, ok := g.index[n.Name]; ok {
		return fmt.Errorf("graph: duplicate node %q", n.Name)
	}
	g.index[n.Name] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return nil
}

// CycleError reports that no complete startup plan exists. Remaining lists
// the nodes that could not be scheduled, in declaration order.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle involving: %s", strings.Join(e.Remaining, ", "))
}

// Waves computes the startup plan: an ordered sequence of name sets such
// that every node's dependencies appear in a strictly earlier wave. Wave 0
// holds the nodes with no dependencies. Returns *CycleError when any node
// cannot be scheduled; no partial plan is ever returned.
func (g *Graph) Waves() ([][]string, error) {
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if _, ok := g.index[dep]; !ok {
				return nil, fmt.Errorf("graph: node %q depends on unknown service %q", n.Name, dep)
			}
			if dep == n.Name {
				return nil, &CycleError{Remaining: []string{n.Name}}
			}
		}
	}

	placed := make(map[string]bool, len(g.nodes))
	var waves [][]string
	remaining := len(g.nodes)
	for remaining > 0 {
		var wave []string
		for _, n := range g.nodes {
			if placed[n.Name] {
				continue
			}
			ready := true
			for _, dep := range n.DependsOn {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, n.Name)
			}
		}
		if len(wave) == 0 {
			var stuck []string
			for _, n := range g.nodes {
				if !placed[n.Name] {
					stuck = append(stuck, n.Name)
				}
			}
			return nil, &CycleError{Remaining: stuck}
		}
		for _, name := range wave {
			placed[name] = true
		}
		remaining -= len(wave)
		waves = append(waves, wave)
	}
	return waves, nil
}

// Dependents returns the names of nodes that directly depend on name,
// sorted for stable output.
func (g *Graph) Dependents(name string) []string {
	var out []string
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if dep == name {
				out = append(out, n.Name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
