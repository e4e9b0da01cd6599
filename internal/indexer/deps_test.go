package indexer

import (
	"strings"
	"testing"
)

func TestImpactExpansion(t *testing.T) {
	root := t.TempDir()
	pkg := writeHDL(t, root, "a_pkg.sv", "package a_pkg;\nendpackage\n")
	b := writeHDL(t, root, "b.sv", "import a_pkg::*;\nmodule b;\nendmodule\n")
	c := writeHDL(t, root, "c.sv", "module c;\n  localparam int N = a_pkg::N;\nendmodule\n")
	d := writeHDL(t, root, "d.sv", "module d;\n  b u_b ();\n  c u_c ();\nendmodule\n")

	res := orderFiles(t, root, d, c, b, pkg)
	report := res.Graph.Impact(pkg)

	if len(report.Levels) != 2 {
		t.Fatalf("expected 2 levels, got %d: %v", len(report.Levels), report.Levels)
	}
	level := report.Levels[0]
	if len(level) != 2 || level[0] != b || level[1] != c {
		t.Fatalf("unexpected first level: %v", level)
	}
	if len(report.Levels[1]) != 1 || report.Levels[1][0] != d {
		t.Fatalf("unexpected second level: %v", report.Levels[1])
	}
	if got := report.Files(); len(got) != 3 {
		t.Fatalf("expected 3 impacted files, got %v", got)
	}
	if !strings.Contains(report.String(), "level 2 (1): d.sv") {
		t.Fatalf("unexpected report:\n%s", report.String())
	}
}

func TestImpactLeafAndUnknown(t *testing.T) {
	root := t.TempDir()
	a := writeHDL(t, root, "a.sv", "module a;\nendmodule\n")

	res := orderFiles(t, root, a)
	if got := res.Graph.Impact(a); len(got.Levels) != 0 {
		t.Fatalf("expected no dependents, got %v", got.Levels)
	}
	if got := res.Graph.Impact("nope.sv"); len(got.Levels) != 0 {
		t.Fatalf("expected no dependents for unknown file, got %v", got.Levels)
	}
}
