package facts

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// Empty reports whether the snapshots were identical.
func (d Delta) Empty() bool {
	return d.Added.Len() == 0 && d.Removed.Len() == 0
}

// Len counts the rows of every relation.
func (t Tables) Len() int {
	return len(t.Files) + len(t.Symbols) + len(t.Requires) + len(t.Instances) +
		len(t.Edges) + len(t.Defines) + len(t.ForbiddenMacros) +
		len(t.Bindings) + len(t.Assignments) + len(t.Declarations)
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Files = diffRows(from.Files, to.Files, func(r FileRow) string {
		return r.Path + "|" + r.Dialect + "|" + intKey(r.Position) + "|" + intKey(r.Priority) + "|" +
			boolKey(r.Package) + "|" + boolKey(r.Top) + "|" + boolKey(r.Readable) + "|" + boolKey(r.InCycle)
	})
	out.Symbols = diffRows(from.Symbols, to.Symbols, func(r SymbolRow) string {
		return r.Name + "|" + r.Kind + "|" + r.File
	})
	out.Requires = diffRows(from.Requires, to.Requires, func(r RequireRow) string {
		return r.File + "|" + r.Symbol
	})
	out.Instances = diffRows(from.Instances, to.Instances, func(r InstanceRow) string {
		return r.File + "|" + r.Target
	})
	out.Edges = diffRows(from.Edges, to.Edges, func(r EdgeRow) string {
		return r.From + "|" + r.To + "|" + r.Kind
	})
	out.Defines = diffRows(from.Defines, to.Defines, macroKey)
	out.ForbiddenMacros = diffRows(from.ForbiddenMacros, to.ForbiddenMacros, macroKey)
	out.Bindings = diffRows(from.Bindings, to.Bindings, func(r BindingRow) string {
		return r.Module + "|" + r.File + "|" + r.Port + "|" + r.Direction + "|" + intKey(r.Width) + "|" + r.Connection + "|" + r.Rule
	})
	out.Assignments = diffRows(from.Assignments, to.Assignments, func(r AssignmentRow) string {
		return r.Module + "|" + r.File + "|" + r.Target + "|" + r.Expr
	})
	out.Declarations = diffRows(from.Declarations, to.Declarations, func(r DeclarationRow) string {
		return r.Module + "|" + r.File + "|" + r.Name + "|" + intKey(r.Width)
	})

	return out
}

func macroKey(r MacroRow) string {
	return r.File + "|" + r.Macro
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	diff := []T{}
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	return diff
}
