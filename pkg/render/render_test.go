package render

import (
	"strings"
	"testing"

	"github.com/matzehuels/uimigrate/pkg/graph"
)

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New("/proj/src/a.js")
	for _, n := range []graph.Node{
		{Path: "/proj/src/a.js", Kind: graph.KindUnit, References: map[string]string{"./b": "/proj/src/b.js"}},
		{Path: "/proj/src/b.js", Kind: graph.KindUnit, Depth: 1},
		{Path: "/proj/src/ext/lib.js", Kind: graph.KindExternal, Depth: 1},
		{Path: "/proj/src/gone.js", Kind: graph.KindMissing, Depth: 2},
	} {
		if _, err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []graph.Edge{
		{From: "/proj/src/a.js", To: "/proj/src/b.js"},
		{From: "/proj/src/a.js", To: "/proj/src/ext/lib.js"},
		{From: "/proj/src/b.js", To: "/proj/src/gone.js"},
		{From: "/proj/src/b.js", To: "/proj/src/a.js", Back: true},
	} {
		if err := g.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleGraph(t), Options{})

	wants := []string{
		"digraph G {",
		`label="a.js"`,
		`label="ext/lib.js", style="rounded,filled,dashed"`,
		`color=red`,
		`"/proj/src/a.js" -> "/proj/src/b.js";`,
		`"/proj/src/b.js" -> "/proj/src/a.js" [color=red, style=dashed, constraint=false];`,
		"penwidth=2",
	}
	for _, w := range wants {
		if !strings.Contains(dot, w) {
			t.Errorf("DOT missing %q\n%s", w, dot)
		}
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(sampleGraph(t), Options{Detailed: true, AbsolutePaths: true})
	for _, w := range []string{`/proj/src/a.js\ndepth: 0\nkind: unit\nref: ./b`, `kind: missing`} {
		if !strings.Contains(dot, w) {
			t.Errorf("DOT missing %q\n%s", w, dot)
		}
	}
}

func TestToDOTDeterministic(t *testing.T) {
	if ToDOT(sampleGraph(t), Options{}) != ToDOT(sampleGraph(t), Options{}) {
		t.Error("ToDOT output differs between identical graphs")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="44pt" viewBox="0.00 0.00 62.00 44.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 62.00 44.00" width="62" height="44"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}

	plain := []byte(`<svg><g/></svg>`)
	if string(normalizeViewBox(plain)) != string(plain) {
		t.Error("SVG without viewBox should be returned unchanged")
	}
}
