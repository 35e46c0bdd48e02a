// Package deps discovers cross-file references in legacy UI source units
// and resolves them into a cycle-aware dependency graph.
//
// # Overview
//
// Resolution happens in three layers:
//
//  1. [Extract] scans source text for references: ES module imports,
//     CommonJS require calls, class requires lists and named component
//     fields (xtype, controller, viewModel, store, model, bound stores).
//  2. [PathResolver] maps each reference to an existing file using, in
//     order: namespace-to-path mapping, the referencing unit's directory,
//     absolute paths, and the base directory.
//  3. [Resolver] composes both into a memoized, depth-bounded traversal
//     producing a [graph.Graph], a flattened dependency list, a cycle report
//     and summary [Stats].
//
// # External Units
//
// A [Policy] marks framework internals, vendored packages and minified
// bundles as external. External nodes are terminal: they are never read and
// never expanded, and they are excluded from [Resolver.Flatten].
//
// # Memoization
//
// A Resolver remembers the resolved dependency set of every unit it has read.
// Later builds reuse those sets instead of re-reading files; call
// [Resolver.Reset] after the source tree changes. Cycle detection runs over
// the memo, so [Resolver.Cycles] builds the graph first.
//
// # Concurrency
//
// A Resolver is safe for concurrent use. Builds for different roots may run
// in parallel and share the memo.
package deps
