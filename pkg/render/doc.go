// Package render draws unit dependency graphs as node-link diagrams.
//
// # Usage
//
// Convert a graph to DOT format, then render to SVG:
//
//	dot := render.ToDOT(g, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// The DOT source can also be saved and processed with external Graphviz tools.
//
// # Styling
//
// Node paths are shown relative to the root unit's directory unless
// [Options.AbsolutePaths] is set. Terminal nodes are styled by kind:
// external units are grey and dashed, missing units red, unreadable units
// orange, and depth-truncated units dotted. Back edges are drawn in red and
// do not influence ranking.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package render
