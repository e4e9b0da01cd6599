package facts

import "testing"

func TestFilterTablesByFiles(t *testing.T) {
	tables := Tables{
		Files: []FileRow{
			{Path: "a.sv"},
			{Path: "b.sv"},
		},
		Symbols: []SymbolRow{
			{Name: "a", File: "a.sv"},
			{Name: "b", File: "b.sv"},
		},
		Edges: []EdgeRow{
			{From: "b.sv", To: "a.sv", File: "a.sv"},
			{From: "a.sv", To: "b.sv", File: "b.sv"},
		},
		Bindings: []BindingRow{
			{Module: "a", Port: "clk", File: "a.sv"},
			{Module: "b", Port: "rst", File: "b.sv"},
		},
	}

	files := map[string]bool{"a.sv": true}
	filtered := FilterTablesByFiles(tables, files)

	if len(filtered.Files) != 1 || filtered.Files[0].Path != "a.sv" {
		t.Fatalf("expected only a.sv file row, got %#v", filtered.Files)
	}
	if len(filtered.Symbols) != 1 || filtered.Symbols[0].File != "a.sv" {
		t.Fatalf("expected only a.sv symbol rows, got %#v", filtered.Symbols)
	}
	if len(filtered.Edges) != 1 || filtered.Edges[0].From != "b.sv" {
		t.Fatalf("expected the edge into a.sv, got %#v", filtered.Edges)
	}
	if len(filtered.Bindings) != 1 || filtered.Bindings[0].Port != "clk" {
		t.Fatalf("expected only a.sv binding rows, got %#v", filtered.Bindings)
	}
}

func TestFilterDeltaByFilesEmpty(t *testing.T) {
	delta := Delta{
		Added: Tables{
			Files: []FileRow{{Path: "a.sv"}},
		},
		Removed: Tables{
			Files: []FileRow{{Path: "b.sv"}},
		},
	}

	filtered := FilterDeltaByFiles(delta, map[string]bool{})
	if len(filtered.Added.Files) != 0 || len(filtered.Removed.Files) != 0 {
		t.Fatalf("expected empty delta, got %#v", filtered)
	}
}
