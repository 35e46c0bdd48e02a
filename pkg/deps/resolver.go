package deps

import (
	"context"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/matzehuels/uimigrate/pkg/errors"
	"github.com/matzehuels/uimigrate/pkg/graph"
)

// Resolver builds dependency graphs and owns the memo of resolved
// dependency sets. The zero value is not usable; use New.
type Resolver struct {
	opts   Options
	policy *Policy
	paths  *PathResolver

	mu   sync.RWMutex
	memo map[string][]string // canonical path -> sorted resolved deps, self excluded
}

// New creates a Resolver. It fails only when BaseDir cannot be made absolute
// or an ignore pattern does not compile.
func New(opts Options) (*Resolver, error) {
	opts = opts.WithDefaults()
	base, err := Canonical(opts.BaseDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve base directory")
	}
	opts.BaseDir = base

	policy, err := NewPolicy(base, opts.Ignore...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "compile ignore policy")
	}
	return &Resolver{
		opts:   opts,
		policy: policy,
		paths:  NewPathResolver(base, opts.Extension, opts.SearchParents),
		memo:   make(map[string][]string),
	}, nil
}

// BaseDir returns the absolute base directory.
func (r *Resolver) BaseDir() string { return r.opts.BaseDir }

// Policy returns the external-unit policy.
func (r *Resolver) Policy() *Policy { return r.policy }

// IsExternal reports whether the unit at path matches the ignore policy.
func (r *Resolver) IsExternal(path string) bool { return r.policy.MatchPath(path) }

// Reset clears the memo.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo = make(map[string][]string)
}

// MemoSize returns the number of memoized units.
func (r *Resolver) MemoSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.memo)
}

func (r *Resolver) memoized(path string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	deps, ok := r.memo[path]
	return deps, ok
}

func (r *Resolver) remember(path string, deps []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo[path] = deps
}

// Build traverses the dependency graph of unit up to MaxDepth.
//
// Each node is classified in order: external (policy match, never read),
// missing, depth-truncated, memoized (dependency set reused without reading
// the file), and finally read, extracted and resolved. Missing and
// unreadable files become terminal nodes; traversal continues elsewhere.
// Build only fails for an invalid unit path or a cancelled context.
func (r *Resolver) Build(ctx context.Context, unit string) (*graph.Graph, error) {
	if err := errors.ValidatePath(unit); err != nil {
		return nil, err
	}
	root, err := Canonical(unit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "canonicalize unit")
	}

	b := &builder{
		ctx:      ctx,
		r:        r,
		g:        graph.New(root),
		onStack:  make(map[string]bool),
		external: make(map[string]bool),
	}
	if err := b.visit(root, 0); err != nil {
		return nil, err
	}
	r.opts.Logger.Debug("dependency graph built", "unit", root, "nodes", b.g.NodeCount(), "edges", b.g.EdgeCount())
	return b.g, nil
}

type builder struct {
	ctx      context.Context
	r        *Resolver
	g        *graph.Graph
	onStack  map[string]bool
	external map[string]bool // targets of references that name external symbols
}

func (b *builder) visit(path string, depth int) error {
	if err := b.ctx.Err(); err != nil {
		return err
	}

	node := graph.Node{Path: path, Depth: depth}
	r := b.r

	if b.external[path] || r.policy.MatchPath(path) {
		node.Kind = graph.KindExternal
		return b.put(node)
	}

	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		node.Kind = graph.KindMissing
		return b.put(node)
	}

	if depth >= r.opts.MaxDepth {
		node.Kind = graph.KindTruncated
		return b.put(node)
	}

	node.Kind = graph.KindUnit
	deps, cached := r.memoized(path)
	if cached {
		node.Cached = true
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			node.Kind = graph.KindUnreadable
			node.Error = err.Error()
			return b.put(node)
		}
		refs := Extract(string(data))
		resolved := r.paths.Resolve(refs, path)
		node.References = resolved
		for ref, target := range resolved {
			if r.policy.MatchReference(ref) {
				b.external[target] = true
			}
		}
		deps = dependencySet(resolved, path)
		r.remember(path, deps)
	}

	if err := b.put(node); err != nil {
		return err
	}

	b.onStack[path] = true
	defer delete(b.onStack, path)

	for _, dep := range deps {
		if b.onStack[dep] {
			if err := b.g.AddEdge(graph.Edge{From: path, To: dep, Back: true}); err != nil {
				return err
			}
			continue
		}
		// A node first reached through a longer path is visited again from
		// the shorter one; it may have been truncated there.
		if n, seen := b.g.Node(dep); !seen || n.Depth > depth+1 {
			if err := b.visit(dep, depth+1); err != nil {
				return err
			}
		}
		if err := b.g.AddEdge(graph.Edge{From: path, To: dep}); err != nil {
			return err
		}
	}
	return nil
}

// put stores n. A node already in the graph is replaced when n reaches it at
// a smaller depth; references read earlier in the build are kept.
func (b *builder) put(n graph.Node) error {
	stored, err := b.g.AddNode(n)
	if err != nil {
		return err
	}
	if stored.Depth > n.Depth {
		prev := *stored
		*stored = n
		if n.References == nil {
			stored.References = prev.References
			stored.Cached = prev.Cached
		}
	}
	return nil
}

// dependencySet returns the sorted unique targets of resolved, minus self.
func dependencySet(resolved map[string]string, self string) []string {
	set := make(map[string]struct{}, len(resolved))
	for _, p := range resolved {
		if p != self {
			set[p] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Flatten returns every dependency reachable from unit, excluding unit itself
// and external units, sorted and deduplicated. External nodes are never
// descended into.
func (r *Resolver) Flatten(ctx context.Context, unit string) ([]string, error) {
	g, err := r.Build(ctx, unit)
	if err != nil {
		return nil, err
	}
	return FlattenGraph(g), nil
}

// FlattenGraph is Flatten over an already built graph.
func FlattenGraph(g *graph.Graph) []string {
	out := []string{}
	g.Walk(func(n *graph.Node) bool {
		if n.Path != g.Root() && n.Kind != graph.KindExternal {
			out = append(out, n.Path)
		}
		return true
	})
	slices.Sort(out)
	return slices.Compact(out)
}

// Cycles builds the graph of unit and reports every back edge found by a
// depth-first search over the memoized dependency relation. A node reachable
// through two independent paths is not a cycle.
func (r *Resolver) Cycles(ctx context.Context, unit string) ([]Cycle, error) {
	g, err := r.Build(ctx, unit)
	if err != nil {
		return nil, err
	}
	return r.cycles(g.Root()), nil
}

const (
	white = iota
	gray
	black
)

func (r *Resolver) cycles(root string) []Cycle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	color := make(map[string]int)
	var out []Cycle
	var dfs func(string)
	dfs = func(path string) {
		color[path] = gray
		for _, dep := range r.memo[path] {
			switch color[dep] {
			case white:
				dfs(dep)
			case gray:
				out = append(out, Cycle{From: path, To: dep})
			}
		}
		color[path] = black
	}
	dfs(root)
	return out
}

// Stats combines Build, Flatten and Cycles into a summary for unit.
func (r *Resolver) Stats(ctx context.Context, unit string) (*Stats, error) {
	g, err := r.Build(ctx, unit)
	if err != nil {
		return nil, err
	}
	all := FlattenGraph(g)
	cycles := r.cycles(g.Root())
	return &Stats{
		Unit:                  g.Root(),
		DirectDependencyCount: len(g.Children(g.Root())),
		TotalDependencyCount:  len(all),
		MaxDepth:              g.MaxDepth(),
		Cycles:                cycles,
		HasCycles:             len(cycles) > 0,
		AllDependencies:       all,
	}, nil
}
