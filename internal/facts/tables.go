// Package facts flattens ordering graphs and wrapper artifacts into
// relational tables for policy evaluation, diffing and export.
package facts

import (
	"strconv"

	"github.com/robert-at-pretension-io/corewrap/internal/indexer"
	"github.com/robert-at-pretension-io/corewrap/internal/wrapper"
)

// Tables is the relational fact model. Each slice is a relation with flat
// rows.
type Tables struct {
	Files           []FileRow        `json:"files"`
	Symbols         []SymbolRow      `json:"symbols"`
	Requires        []RequireRow     `json:"requires"`
	Instances       []InstanceRow    `json:"instances"`
	Edges           []EdgeRow        `json:"edges"`
	Defines         []MacroRow       `json:"defines"`
	ForbiddenMacros []MacroRow       `json:"forbidden_macros"`
	Bindings        []BindingRow     `json:"bindings"`
	Assignments     []AssignmentRow  `json:"assignments"`
	Declarations    []DeclarationRow `json:"declarations"`
}

type FileRow struct {
	Path     string `json:"path"`
	Dialect  string `json:"dialect"`
	Position int    `json:"position"`
	Priority int    `json:"priority"`
	Package  bool   `json:"package"`
	Top      bool   `json:"top"`
	Readable bool   `json:"readable"`
	InCycle  bool   `json:"in_cycle"`
}

type SymbolRow struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file"`
}

type RequireRow struct {
	File   string `json:"file"`
	Symbol string `json:"symbol"`
}

type InstanceRow struct {
	File   string `json:"file"`
	Target string `json:"target"`
}

type EdgeRow struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
	// File is the dependent, so edges filter with the file they constrain.
	File string `json:"file"`
}

type MacroRow struct {
	File  string `json:"file"`
	Macro string `json:"macro"`
}

type BindingRow struct {
	Module     string `json:"module"`
	File       string `json:"file"`
	Port       string `json:"port"`
	Direction  string `json:"direction"`
	Width      int    `json:"width"`
	Connection string `json:"connection"`
	Rule       string `json:"rule"`
}

type AssignmentRow struct {
	Module string `json:"module"`
	File   string `json:"file"`
	Target string `json:"target"`
	Expr   string `json:"expr"`
}

type DeclarationRow struct {
	Module string `json:"module"`
	File   string `json:"file"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
}

// BuildTables converts an ordering result into tables. File rows follow
// the compile order.
func BuildTables(res *indexer.Result) Tables {
	tables := emptyTables()
	if res == nil || res.Graph == nil {
		return tables
	}
	g := res.Graph

	inCycle := make(map[string]bool)
	if res.Cycle != nil {
		for _, f := range res.Cycle.Files {
			inCycle[f] = true
		}
	}

	for pos, path := range res.Files {
		n, ok := g.Node(path)
		if !ok {
			continue
		}
		tables.Files = append(tables.Files, FileRow{
			Path:     n.Path,
			Dialect:  n.Dialect,
			Position: pos,
			Priority: n.Priority(),
			Package:  n.Package,
			Top:      n.Top,
			Readable: n.Readable,
			InCycle:  inCycle[n.Path],
		})
	}

	for _, n := range g.Nodes {
		if n.Provided != nil {
			tables.Symbols = append(tables.Symbols, SymbolRow{
				Name: n.Provided.Name,
				Kind: string(n.Provided.Kind),
				File: n.Path,
			})
		}
		for _, s := range n.Requires {
			tables.Requires = append(tables.Requires, RequireRow{File: n.Path, Symbol: s})
		}
		for _, s := range n.Instantiates {
			tables.Instances = append(tables.Instances, InstanceRow{File: n.Path, Target: s})
		}
		for _, m := range n.Defines {
			tables.Defines = append(tables.Defines, MacroRow{File: n.Path, Macro: m})
		}
		for _, m := range n.ForbiddenMacros {
			tables.ForbiddenMacros = append(tables.ForbiddenMacros, MacroRow{File: n.Path, Macro: m})
		}
	}

	for _, e := range g.Edges() {
		to := g.Nodes[e.To].Path
		tables.Edges = append(tables.Edges, EdgeRow{
			From: g.Nodes[e.From].Path,
			To:   to,
			Kind: string(e.Kind),
			File: to,
		})
	}

	return tables
}

// ArtifactTables converts a synthesized wrapper into tables. file is the
// header the module was read from and may be empty.
func ArtifactTables(file string, a *wrapper.Artifact) Tables {
	tables := emptyTables()
	if a == nil {
		return tables
	}
	for _, b := range a.Bindings {
		tables.Bindings = append(tables.Bindings, BindingRow{
			Module:     a.Module,
			File:       file,
			Port:       b.Port,
			Direction:  string(b.Direction),
			Width:      b.Width,
			Connection: b.Connection,
			Rule:       b.Rule,
		})
	}
	for _, as := range a.Assignments {
		tables.Assignments = append(tables.Assignments, AssignmentRow{
			Module: a.Module,
			File:   file,
			Target: as.Target,
			Expr:   as.Expr,
		})
	}
	for _, d := range a.Declarations {
		tables.Declarations = append(tables.Declarations, DeclarationRow{
			Module: a.Module,
			File:   file,
			Name:   d.Name,
			Width:  d.Width,
		})
	}
	return tables
}

// Merge appends the rows of other to t.
func (t *Tables) Merge(other Tables) {
	t.Files = append(t.Files, other.Files...)
	t.Symbols = append(t.Symbols, other.Symbols...)
	t.Requires = append(t.Requires, other.Requires...)
	t.Instances = append(t.Instances, other.Instances...)
	t.Edges = append(t.Edges, other.Edges...)
	t.Defines = append(t.Defines, other.Defines...)
	t.ForbiddenMacros = append(t.ForbiddenMacros, other.ForbiddenMacros...)
	t.Bindings = append(t.Bindings, other.Bindings...)
	t.Assignments = append(t.Assignments, other.Assignments...)
	t.Declarations = append(t.Declarations, other.Declarations...)
}

func emptyTables() Tables {
	return Tables{
		Files:           []FileRow{},
		Symbols:         []SymbolRow{},
		Requires:        []RequireRow{},
		Instances:       []InstanceRow{},
		Edges:           []EdgeRow{},
		Defines:         []MacroRow{},
		ForbiddenMacros: []MacroRow{},
		Bindings:        []BindingRow{},
		Assignments:     []AssignmentRow{},
		Declarations:    []DeclarationRow{},
	}
}

func boolKey(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func intKey(v int) string {
	return strconv.Itoa(v)
}
