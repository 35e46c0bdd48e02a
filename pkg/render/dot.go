package render

import (
	"bytes"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/uimigrate/pkg/graph"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds depth, kind and reference names to node labels.
	Detailed bool

	// AbsolutePaths labels nodes with their full path.
	AbsolutePaths bool
}

// ToDOT converts a dependency graph to Graphviz DOT format.
// Nodes are emitted sorted by path and edges in discovery order, so the
// output is deterministic for a given graph.
func ToDOT(g *graph.Graph, opts Options) string {
	base := filepath.Dir(g.Root())

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=12];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		label := fmtLabel(n, base, opts)
		attrs := fmtAttrs(n, label, n.Path == g.Root())
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Path, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if e.Back {
			fmt.Fprintf(&buf, "  %q -> %q [color=red, style=dashed, constraint=false];\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *graph.Node, base string, opts Options) string {
	name := n.Path
	if !opts.AbsolutePaths {
		if rel, err := filepath.Rel(base, n.Path); err == nil {
			name = filepath.ToSlash(rel)
		}
	}
	if !opts.Detailed {
		return name
	}

	parts := []string{fmt.Sprintf("depth: %d", n.Depth), fmt.Sprintf("kind: %s", n.Kind)}
	if n.Cached {
		parts = append(parts, "cached")
	}
	for _, ref := range slices.Sorted(maps.Keys(n.References)) {
		parts = append(parts, "ref: "+ref)
	}
	return name + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *graph.Node, label string, root bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch n.Kind {
	case graph.KindExternal:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	case graph.KindMissing:
		attrs = append(attrs, "fillcolor=\"#f8d7da\"", "color=red")
	case graph.KindUnreadable:
		attrs = append(attrs, "fillcolor=\"#ffe5b4\"", "color=orange")
	case graph.KindTruncated:
		attrs = append(attrs, "style=\"rounded,filled,dotted\"")
	}
	if root {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}
