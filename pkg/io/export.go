package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/uimigrate/pkg/graph"
)

type document struct {
	Root  string `json:"root"`
	Nodes []node `json:"nodes"`
	Edges []edge `json:"edges"`
}

type node struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	Depth      int               `json:"depth"`
	Cached     bool              `json:"cached,omitempty"`
	References map[string]string `json:"references,omitempty"`
	Error      string            `json:"error,omitempty"`
}

type edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Back bool   `json:"back,omitempty"`
}

// Marshal encodes g as indented JSON.
func Marshal(g *graph.Graph) ([]byte, error) {
	return json.MarshalIndent(toDocument(g), "", "  ")
}

// WriteJSON encodes g as JSON and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(g *graph.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toDocument(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to a JSON file at path.
func ExportJSON(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}

func toDocument(g *graph.Graph) document {
	nodes := g.Nodes()
	out := document{
		Root:  g.Root(),
		Nodes: make([]node, len(nodes)),
		Edges: make([]edge, len(g.Edges())),
	}
	for i, n := range nodes {
		out.Nodes[i] = node{
			ID:         n.Path,
			Kind:       string(n.Kind),
			Depth:      n.Depth,
			Cached:     n.Cached,
			References: n.References,
			Error:      n.Error,
		}
	}
	for i, e := range g.Edges() {
		out.Edges[i] = edge{From: e.From, To: e.To, Back: e.Back}
	}
	return out
}
