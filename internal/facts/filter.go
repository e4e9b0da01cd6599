package facts

// FilterTablesByFiles returns the rows whose file is in files.
func FilterTablesByFiles(tables Tables, files map[string]bool) Tables {
	out := emptyTables()
	if len(files) == 0 {
		return out
	}

	out.Files = keep(tables.Files, files, func(r FileRow) string { return r.Path })
	out.Symbols = keep(tables.Symbols, files, func(r SymbolRow) string { return r.File })
	out.Requires = keep(tables.Requires, files, func(r RequireRow) string { return r.File })
	out.Instances = keep(tables.Instances, files, func(r InstanceRow) string { return r.File })
	out.Edges = keep(tables.Edges, files, func(r EdgeRow) string { return r.File })
	out.Defines = keep(tables.Defines, files, func(r MacroRow) string { return r.File })
	out.ForbiddenMacros = keep(tables.ForbiddenMacros, files, func(r MacroRow) string { return r.File })
	out.Bindings = keep(tables.Bindings, files, func(r BindingRow) string { return r.File })
	out.Assignments = keep(tables.Assignments, files, func(r AssignmentRow) string { return r.File })
	out.Declarations = keep(tables.Declarations, files, func(r DeclarationRow) string { return r.File })

	return out
}

// FilterDeltaByFiles returns a new Delta containing only rows for the specified files.
func FilterDeltaByFiles(delta Delta, files map[string]bool) Delta {
	return Delta{
		Added:   FilterTablesByFiles(delta.Added, files),
		Removed: FilterTablesByFiles(delta.Removed, files),
	}
}

func keep[T any](rows []T, files map[string]bool, file func(T) string) []T {
	out := []T{}
	for _, r := range rows {
		if files[file(r)] {
			out = append(out, r)
		}
	}
	return out
}
