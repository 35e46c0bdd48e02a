package graph

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidPath is returned by [Graph.AddNode] when the node path is empty.
	ErrInvalidPath = errors.New("node path must not be empty")

	// ErrUnknownSource is returned by [Graph.AddEdge] when From is not a node.
	ErrUnknownSource = errors.New("unknown source node")

	// ErrUnknownTarget is returned by [Graph.AddEdge] when To is not a node.
	ErrUnknownTarget = errors.New("unknown target node")
)

// Kind classifies how a node was handled during traversal.
type Kind string

const (
	KindUnit       Kind = "unit"
	KindExternal   Kind = "external"
	KindMissing    Kind = "missing"
	KindUnreadable Kind = "unreadable"
	KindTruncated  Kind = "truncated"
)

// Terminal reports whether nodes of this kind are never expanded.
func (k Kind) Terminal() bool { return k != KindUnit }

// Node is one unit in the graph.
type Node struct {
	Path  string // Canonical absolute path
	Kind  Kind
	Depth int // Distance from the root, in edges

	// Cached is set when the dependency set came from the resolver memo.
	Cached bool

	// References maps each raw reference that resolved to its target path.
	// Unresolved references are not recorded.
	References map[string]string

	// Error holds the read error for KindUnreadable nodes.
	Error string
}

// Exists reports whether the node's file was found on disk.
func (n *Node) Exists() bool { return n.Kind != KindMissing }

// Edge is a directed reference from one unit to another.
type Edge struct {
	From string
	To   string
	Back bool // To was on the traversal stack
}

// Graph is an arena of nodes keyed by path plus an edge list.
//
// The zero value is not usable; use New.
type Graph struct {
	root     string
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]Edge
}

// New creates an empty graph rooted at root.
func New(root string) *Graph {
	return &Graph{
		root:     root,
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]Edge),
	}
}

// Root returns the root path.
func (g *Graph) Root() string { return g.root }

// RootNode returns the root node, or nil when it has not been added.
func (g *Graph) RootNode() *Node { return g.nodes[g.root] }

// AddNode stores n and returns the stored pointer. If a node with the same
// path exists, the existing node is returned unchanged.
func (g *Graph) AddNode(n Node) (*Node, error) {
	if n.Path == "" {
		return nil, ErrInvalidPath
	}
	if existing, ok := g.nodes[n.Path]; ok {
		return existing, nil
	}
	node := &n
	g.nodes[n.Path] = node
	return node, nil
}

// AddEdge adds a directed edge between two existing nodes. Duplicate edges
// are ignored.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSource
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownTarget
	}
	for _, existing := range g.outgoing[e.From] {
		if existing.To == e.To {
			return nil
		}
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e)
	return nil
}

// Node returns the node at path.
func (g *Graph) Node(path string) (*Node, bool) {
	n, ok := g.nodes[path]
	return n, ok
}

// Nodes returns all nodes sorted by path.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b *Node) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge { return g.edges }

// Children returns the targets of path's outgoing edges in insertion order.
func (g *Graph) Children(path string) []string {
	out := make([]string, len(g.outgoing[path]))
	for i, e := range g.outgoing[path] {
		out[i] = e.To
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// MaxDepth returns the largest Depth across all nodes.
func (g *Graph) MaxDepth() int {
	max := 0
	for _, n := range g.nodes {
		if n.Depth > max {
			max = n.Depth
		}
	}
	return max
}

// BackEdges returns the edges flagged as closing a cycle.
func (g *Graph) BackEdges() []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Back {
			out = append(out, e)
		}
	}
	return out
}

// Walk visits every node reachable from the root once, in depth-first order,
// following non-back edges. Terminal nodes are visited but not descended into.
// The walk stops early when fn returns false.
func (g *Graph) Walk(fn func(*Node) bool) {
	if g.RootNode() == nil {
		return
	}
	visited := make(map[string]bool)
	g.walk(g.root, visited, fn)
}

func (g *Graph) walk(path string, visited map[string]bool, fn func(*Node) bool) bool {
	if visited[path] {
		return true
	}
	visited[path] = true
	n := g.nodes[path]
	if !fn(n) {
		return false
	}
	if n.Kind.Terminal() {
		return true
	}
	for _, e := range g.outgoing[path] {
		if e.Back {
			continue
		}
		if !g.walk(e.To, visited, fn) {
			return false
		}
	}
	return true
}
