// Package io provides JSON import and export for unit dependency graphs.
//
// # JSON Format
//
// The format is a root path plus node and edge arrays:
//
//	{
//	  "root": "/src/app/Grid.js",
//	  "nodes": [
//	    {"id": "/src/app/Grid.js", "kind": "unit", "depth": 0,
//	     "references": {"./Store": "/src/app/Store.js"}},
//	    {"id": "/src/app/Store.js", "kind": "unit", "depth": 1}
//	  ],
//	  "edges": [
//	    {"from": "/src/app/Grid.js", "to": "/src/app/Store.js"}
//	  ]
//	}
//
// Node ids are canonical absolute paths. Kinds are the [graph.Kind] values;
// "cached" and "error" appear only when set. Edges carry "back": true when
// they close a cycle.
//
// Nodes are written sorted by id so exports are deterministic. Reading an
// export produces an equivalent graph.
package io
