package indexer

import (
	"container/heap"
	"context"
	"log/slog"
	"time"

	"github.com/robert-at-pretension-io/corewrap/internal/config"
)

// Options control one ordering run.
type Options struct {
	// Root is joined to relative file paths when reading.
	Root string
	// MaxParallel bounds concurrent reads (0 = CPU count).
	MaxParallel int
	// PackagePatterns and VHDLPackagePatterns mark package files by path.
	PackagePatterns     []string
	VHDLPackagePatterns []string
}

// OptionsFromConfig returns the ordering options of a configuration.
func OptionsFromConfig(root string, cfg config.OrderConfig) Options {
	return Options{
		Root:                root,
		MaxParallel:         cfg.MaxParallel,
		PackagePatterns:     cfg.PackagePatterns,
		VHDLPackagePatterns: cfg.VHDLPackagePatterns,
	}
}

// Dialects returns the dialects used for these options, VHDL first so the
// SystemVerilog fallback sees every other extension.
func (o Options) Dialects() []Dialect {
	def := config.DefaultConfig().Order
	sv, vhdl := o.PackagePatterns, o.VHDLPackagePatterns
	if sv == nil {
		sv = def.PackagePatterns
	}
	if vhdl == nil {
		vhdl = def.VHDLPackagePatterns
	}
	return []Dialect{VHDL{PackagePatterns: vhdl}, SystemVerilog{PackagePatterns: sv}}
}

// CycleWarning lists the files that never became ready because they sit on
// or behind a dependency cycle. They are appended in input order.
type CycleWarning struct {
	Files []string `json:"files"`
}

func (w *CycleWarning) String() string {
	if w == nil {
		return ""
	}
	return "dependency cycle among files: " + joinPaths(w.Files)
}

// Result is the compile order of a file set.
type Result struct {
	// Files always holds every input file exactly once.
	Files []string
	Cycle *CycleWarning
	Graph *Graph
	// Phases is filled by Order: every file read, then load, build, sort, total.
	Phases []Phase
}

// Order reads files and returns them in dependency order.
func Order(ctx context.Context, files []string, opts Options) (*Result, error) {
	sw := &stopwatch{start: time.Now()}

	sources, err := loadSources(ctx, opts.Root, files, opts.MaxParallel)
	if err != nil {
		return nil, err
	}
	sw.reads(sources)
	sw.mark("load", "ok", sw.start)

	phase := time.Now()
	g := Build(ctx, sources, opts.Dialects())
	sw.mark("build", "ok", phase)

	phase = time.Now()
	res := g.Sort(ctx)
	status := "ok"
	if res.Cycle != nil {
		status = "cycle"
	}
	sw.mark("sort", status, phase)
	sw.mark("total", status, sw.start)
	res.Phases = sw.phases
	return res, nil
}

// Sort runs Kahn's algorithm. Ready files are taken by (priority, input
// index) and a file's dependents are released in input order, so the
// result depends only on the graph.
func (g *Graph) Sort(ctx context.Context) *Result {
	indegree := append([]int(nil), g.indegree...)
	ready := &readyQueue{nodes: g.Nodes}
	for i, d := range indegree {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	placed := make([]bool, len(g.Nodes))
	order := make([]string, 0, len(g.Nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		placed[n] = true
		order = append(order, g.Nodes[n].Path)
		for _, m := range g.out[n] {
			indegree[m]--
			if indegree[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}

	res := &Result{Graph: g}
	if len(order) != len(g.Nodes) {
		var rest []string
		for i, n := range g.Nodes {
			if !placed[i] {
				rest = append(rest, n.Path)
			}
		}
		order = append(order, rest...)
		res.Cycle = &CycleWarning{Files: rest}
		slog.WarnContext(ctx, "topological sort incomplete, files have circular dependencies",
			"count", len(rest), "files", rest)
	}
	res.Files = order
	slog.DebugContext(ctx, "file ordering complete", "files", len(order))
	return res
}

// readyQueue is a min-heap of node indices keyed by (priority, index).
type readyQueue struct {
	nodes []*Node
	items []int
}

func (q *readyQueue) Len() int { return len(q.items) }

func (q *readyQueue) Less(i, j int) bool {
	a, b := q.nodes[q.items[i]], q.nodes[q.items[j]]
	if pa, pb := a.Priority(), b.Priority(); pa != pb {
		return pa < pb
	}
	return a.Index < b.Index
}

func (q *readyQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *readyQueue) Push(x any) { q.items = append(q.items, x.(int)) }

func (q *readyQueue) Pop() any {
	old := q.items
	n := old[len(old)-1]
	q.items = old[:len(old)-1]
	return n
}
