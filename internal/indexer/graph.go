package indexer

import (
	"context"
	"log/slog"
	"slices"
)

// Priority classes of the ordering; lower sorts first.
const (
	PriorityPackage  = 0
	PriorityOrdinary = 1
	PriorityTop      = 2
)

// Node is one input file in the dependency graph.
type Node struct {
	Path            string   `json:"path"`
	Index           int      `json:"index"`
	Dialect         string   `json:"dialect"`
	Provided        *Symbol  `json:"provided,omitempty"`
	Defines         []string `json:"defines,omitempty"`
	Requires        []string `json:"requires,omitempty"`
	Instantiates    []string `json:"instantiates,omitempty"`
	ForbiddenMacros []string `json:"forbidden_macros,omitempty"`
	Package         bool     `json:"package"`
	Top             bool     `json:"top"`
	Readable        bool     `json:"readable"`
}

// Priority returns the node's priority class.
func (n *Node) Priority() int {
	switch {
	case n.Package:
		return PriorityPackage
	case n.Top:
		return PriorityTop
	default:
		return PriorityOrdinary
	}
}

// EdgeKind says why one file must precede another.
type EdgeKind string

const (
	// EdgeSymbol: the dependent references a symbol the provider declares.
	EdgeSymbol EdgeKind = "symbol"
	// EdgeMacro: the provider refuses to compile when the dependent's
	// macro is already defined.
	EdgeMacro EdgeKind = "macro"
)

// Edge is a provider -> dependent ordering constraint.
type Edge struct {
	From int
	To   int
	Kind EdgeKind
}

// Graph is the file dependency graph. Nodes are in input order.
type Graph struct {
	Nodes []*Node

	out      [][]int
	indegree []int
	kinds    map[[2]int]EdgeKind
	byPath   map[string]int
}

// Build extracts symbols from every source and connects providers to their
// dependents. Self references are dropped and repeated references collapse
// into one edge.
func Build(ctx context.Context, sources []Source, dialects []Dialect) *Graph {
	g := &Graph{
		Nodes:    make([]*Node, len(sources)),
		out:      make([][]int, len(sources)),
		indegree: make([]int, len(sources)),
		kinds:    make(map[[2]int]EdgeKind),
		byPath:   make(map[string]int, len(sources)),
	}
	used := make([]Dialect, len(sources))
	cat := newCatalog()

	// pass 1: provided symbols and macro definitions
	for i, src := range sources {
		d := pickDialect(src.Path, dialects)
		used[i] = d
		n := &Node{Path: src.Path, Index: i, Dialect: d.Name(), Readable: src.Err == nil}
		g.Nodes[i] = n
		if _, dup := g.byPath[src.Path]; !dup {
			g.byPath[src.Path] = i
		}
		if src.Err != nil {
			continue
		}
		n.Provided = d.Provided(src.Text)
		n.Defines = d.Defines(src.Text)
		if n.Provided != nil {
			cat.add(*n.Provided, i)
			slog.DebugContext(ctx, "found symbol", "file", src.Path, "kind", n.Provided.Kind, "name", n.Provided.Name)
		}
		for _, name := range n.Defines {
			cat.addDefine(name, i)
		}
	}

	// pass 2: references
	instantiated := make(map[string]bool)
	for i, src := range sources {
		if src.Err != nil {
			continue
		}
		n := g.Nodes[i]
		req := used[i].Required(src.Text, cat)
		n.Requires = dropOwn(req.Symbols, n.Provided)
		n.Instantiates = dropOwn(req.Instantiates, n.Provided)
		n.ForbiddenMacros = req.ForbiddenMacros

		for _, name := range n.Instantiates {
			instantiated[name] = true
		}
		for _, name := range n.Requires {
			if p, ok := cat.Provider(name); ok {
				g.addEdge(p, i, EdgeSymbol)
			}
		}
		for _, macro := range n.ForbiddenMacros {
			if definer, ok := cat.Definer(macro); ok {
				g.addEdge(i, definer, EdgeMacro)
			}
		}
	}

	for i, n := range g.Nodes {
		if n.Provided != nil && n.Provided.IsDesignUnit() && !instantiated[n.Provided.Name] {
			n.Top = true
		}
		n.Package = (n.Provided != nil && n.Provided.Kind == KindPackage) || used[i].IsPackagePath(n.Path)
	}

	for i := range g.out {
		slices.Sort(g.out[i])
	}
	return g
}

func dropOwn(names []string, own *Symbol) []string {
	if own == nil {
		return names
	}
	return slices.DeleteFunc(names, func(n string) bool { return n == own.Name })
}

func (g *Graph) addEdge(from, to int, kind EdgeKind) {
	if from == to {
		return
	}
	key := [2]int{from, to}
	if _, ok := g.kinds[key]; ok {
		return
	}
	g.kinds[key] = kind
	g.out[from] = append(g.out[from], to)
	g.indegree[to]++
}

// Edges returns every edge ordered by provider then dependent index.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for from, tos := range g.out {
		for _, to := range tos {
			edges = append(edges, Edge{From: from, To: to, Kind: g.kinds[[2]int{from, to}]})
		}
	}
	return edges
}

// Dependents returns the paths that must follow path, in input order.
func (g *Graph) Dependents(path string) []string {
	i, ok := g.byPath[path]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.out[i]))
	for _, to := range g.out[i] {
		out = append(out, g.Nodes[to].Path)
	}
	return out
}

// Node returns the node for path.
func (g *Graph) Node(path string) (*Node, bool) {
	i, ok := g.byPath[path]
	if !ok {
		return nil, false
	}
	return g.Nodes[i], true
}
