package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/uimigrate/pkg/graph"
)

// ReadJSON decodes a JSON graph from r.
//
// ReadJSON returns an error if the JSON is malformed, a node has an empty id
// or unknown kind, or an edge references an unknown node. Errors are wrapped
// with the offending node or edge. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*graph.Graph, error) {
	var data document
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	g := graph.New(data.Root)
	for _, n := range data.Nodes {
		kind, err := parseKind(n.Kind)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		_, err = g.AddNode(graph.Node{
			Path:       n.ID,
			Kind:       kind,
			Depth:      n.Depth,
			Cached:     n.Cached,
			References: n.References,
			Error:      n.Error,
		})
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for _, e := range data.Edges {
		if err := g.AddEdge(graph.Edge{From: e.From, To: e.To, Back: e.Back}); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// ImportJSON reads a JSON file at path and returns the decoded graph.
func ImportJSON(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

func parseKind(s string) (graph.Kind, error) {
	switch k := graph.Kind(s); k {
	case graph.KindUnit, graph.KindExternal, graph.KindMissing, graph.KindUnreadable, graph.KindTruncated:
		return k, nil
	case "":
		return graph.KindUnit, nil
	default:
		return "", fmt.Errorf("unknown kind %q", s)
	}
}
