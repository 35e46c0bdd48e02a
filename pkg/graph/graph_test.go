package graph

import (
	"errors"
	"testing"
)

func buildDiamond(t *testing.T) *Graph {
	t.Helper()
	g := New("/a.js")
	for _, n := range []Node{
		{Path: "/a.js", Kind: KindUnit},
		{Path: "/b.js", Kind: KindUnit, Depth: 1},
		{Path: "/c.js", Kind: KindUnit, Depth: 1},
		{Path: "/d.js", Kind: KindUnit, Depth: 2},
	} {
		if _, err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []Edge{
		{From: "/a.js", To: "/b.js"},
		{From: "/a.js", To: "/c.js"},
		{From: "/b.js", To: "/d.js"},
		{From: "/c.js", To: "/d.js"},
	} {
		if err := g.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestAddNode(t *testing.T) {
	g := New("/a.js")
	if _, err := g.AddNode(Node{}); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("empty path: got %v, want ErrInvalidPath", err)
	}

	first, err := g.AddNode(Node{Path: "/a.js", Depth: 0})
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.AddNode(Node{Path: "/a.js", Depth: 3})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("AddNode should return the existing node for a known path")
	}
	if second.Depth != 0 {
		t.Errorf("existing node mutated: depth %d", second.Depth)
	}
}

func TestAddEdge(t *testing.T) {
	g := New("/a.js")
	_, _ = g.AddNode(Node{Path: "/a.js"})

	tests := []struct {
		name string
		edge Edge
		want error
	}{
		{"unknown source", Edge{From: "/x.js", To: "/a.js"}, ErrUnknownSource},
		{"unknown target", Edge{From: "/a.js", To: "/x.js"}, ErrUnknownTarget},
		{"self", Edge{From: "/a.js", To: "/a.js"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.AddEdge(tt.edge); !errors.Is(err, tt.want) {
				t.Errorf("AddEdge() = %v, want %v", err, tt.want)
			}
		})
	}

	_ = g.AddEdge(Edge{From: "/a.js", To: "/a.js"})
	if g.EdgeCount() != 1 {
		t.Errorf("duplicate edge stored: %d edges", g.EdgeCount())
	}
}

func TestNodesSorted(t *testing.T) {
	g := buildDiamond(t)
	nodes := g.Nodes()
	want := []string{"/a.js", "/b.js", "/c.js", "/d.js"}
	for i, n := range nodes {
		if n.Path != want[i] {
			t.Errorf("Nodes()[%d] = %s, want %s", i, n.Path, want[i])
		}
	}
}

func TestMaxDepth(t *testing.T) {
	g := buildDiamond(t)
	if got := g.MaxDepth(); got != 2 {
		t.Errorf("MaxDepth() = %d, want 2", got)
	}
}

func TestWalkVisitsOnce(t *testing.T) {
	g := buildDiamond(t)
	seen := map[string]int{}
	g.Walk(func(n *Node) bool {
		seen[n.Path]++
		return true
	})
	if len(seen) != 4 {
		t.Fatalf("visited %d nodes, want 4", len(seen))
	}
	for p, c := range seen {
		if c != 1 {
			t.Errorf("%s visited %d times", p, c)
		}
	}
}

func TestWalkStopsAtTerminal(t *testing.T) {
	g := New("/a.js")
	_, _ = g.AddNode(Node{Path: "/a.js", Kind: KindUnit})
	_, _ = g.AddNode(Node{Path: "/ext/lib.js", Kind: KindExternal, Depth: 1})
	_, _ = g.AddNode(Node{Path: "/ext/inner.js", Kind: KindUnit, Depth: 2})
	_ = g.AddEdge(Edge{From: "/a.js", To: "/ext/lib.js"})
	_ = g.AddEdge(Edge{From: "/ext/lib.js", To: "/ext/inner.js"})

	var visited []string
	g.Walk(func(n *Node) bool {
		visited = append(visited, n.Path)
		return true
	})
	if len(visited) != 2 {
		t.Errorf("Walk descended into external node: %v", visited)
	}
}

func TestWalkSkipsBackEdges(t *testing.T) {
	g := New("/a.js")
	_, _ = g.AddNode(Node{Path: "/a.js", Kind: KindUnit})
	_, _ = g.AddNode(Node{Path: "/b.js", Kind: KindUnit, Depth: 1})
	_ = g.AddEdge(Edge{From: "/a.js", To: "/b.js"})
	_ = g.AddEdge(Edge{From: "/b.js", To: "/a.js", Back: true})

	count := 0
	g.Walk(func(*Node) bool { count++; return true })
	if count != 2 {
		t.Errorf("visited %d nodes, want 2", count)
	}
	if back := g.BackEdges(); len(back) != 1 || back[0].From != "/b.js" {
		t.Errorf("BackEdges() = %v", back)
	}
}

func TestKindTerminal(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindUnit, false},
		{KindExternal, true},
		{KindMissing, true},
		{KindUnreadable, true},
		{KindTruncated, true},
	}
	for _, tt := range tests {
		if got := tt.kind.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
