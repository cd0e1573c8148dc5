package graph

import "sort"

// DirectDependencies returns the direct dependency URIs of uri, sorted.
// An unknown URI returns an empty (nil) list; this is not an error.
func (g *Graph) DirectDependencies(uri string) []string {
	return g.forward[uri]
}

// DirectDependents returns the direct dependent URIs of uri, sorted.
func (g *Graph) DirectDependents(uri string) []string {
	return g.reverse[uri]
}

// TransitiveDependencies performs a cycle-safe depth-first traversal of
// the forward graph starting at uri, returning every reachable URI
// except uri itself. Traversal order is deterministic: adjacency lists
// are pre-sorted, and the walk is depth-first with a visited guard.
func (g *Graph) TransitiveDependencies(uri string) []string {
	return g.transitive(uri, g.forward)
}

// TransitiveDependents performs the symmetric traversal over the
// reverse graph.
func (g *Graph) TransitiveDependents(uri string) []string {
	return g.transitive(uri, g.reverse)
}

func (g *Graph) transitive(root string, adjacency map[string][]string) []string {
	visited := map[string]bool{root: true}
	var order []string

	var visit func(string)
	visit = func(uri string) {
		for _, next := range adjacency[uri] {
			if visited[next] {
				continue
			}
			visited[next] = true
			order = append(order, next)
			visit(next)
		}
	}
	visit(root)
	return order
}

// Verify checks the forward/reverse transpose invariant: for every edge
// (u -> v) in forward, (v -> u) must appear in reverse, and vice versa.
// It is used by tests.
func (g *Graph) Verify() bool {
	for u, targets := range g.forward {
		for _, v := range targets {
			if !contains(g.reverse[v], u) {
				return false
			}
		}
	}
	for v, sources := range g.reverse {
		for _, u := range sources {
			if !contains(g.forward[u], v) {
				return false
			}
		}
	}
	return true
}

func contains(list []string, want string) bool {
	i := sort.SearchStrings(list, want)
	return i < len(list) && list[i] == want
}
