// Package graph provides the arena representation of a unit dependency graph.
//
// Nodes are indexed by canonical absolute path and edges are kept in a flat
// list, so cyclic reference structures never need self-referential ownership.
// A [Graph] is produced by pkg/deps and consumed by pkg/io (JSON), pkg/render
// (DOT/SVG) and the statistics helpers in pkg/deps.
//
// # Node Kinds
//
//	KindUnit        read, references extracted and resolved
//	KindExternal    matched the ignore policy; terminal, never read
//	KindMissing     path does not exist on disk
//	KindUnreadable  exists but could not be read
//	KindTruncated   reached the maximum traversal depth; not expanded
//
// A node with Cached set reused a memoized dependency set instead of reading
// its file.
//
// # Edges
//
// An [Edge] with Back set points at a node that was on the active traversal
// stack when the edge was discovered. Back edges close a cycle and are never
// followed.
//
// # Concurrency
//
// Graph is not safe for concurrent writes. Once built it can be read from
// multiple goroutines.
package graph
