package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveSourcesDefaultPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rtl", "core.sv"), "module core; endmodule")
	writeFile(t, filepath.Join(root, "rtl", "pkg", "types.svh"), "")
	writeFile(t, filepath.Join(root, "rtl", "alu.vhd"), "")
	writeFile(t, filepath.Join(root, "doc", "README.md"), "")
	writeFile(t, filepath.Join(root, "top.v"), "")

	cfg := DefaultConfig()
	got, err := cfg.ResolveSources(root, nil)
	if err != nil {
		t.Fatalf("ResolveSources: %v", err)
	}

	want := []string{"rtl/alu.vhd", "rtl/core.sv", "rtl/pkg/types.svh", "top.v"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveSourcesExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rtl", "core.sv"), "")
	writeFile(t, filepath.Join(root, "sim", "tb_core.sv"), "")

	cfg := DefaultConfig()
	cfg.Order.Exclude = []string{"tb_*"}

	got, err := cfg.ResolveSources(root, []string{"**/*.sv"})
	if err != nil {
		t.Fatalf("ResolveSources: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"rtl/core.sv"}) {
		t.Fatalf("expected only rtl/core.sv, got %v", got)
	}
}

func TestIncludeDirFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "inc", "defs.vh"), "")
	writeFile(t, filepath.Join(root, "inc", "notes.txt"), "")
	writeFile(t, filepath.Join(root, "inc", "nested", "deep.vh"), "")
	writeFile(t, filepath.Join(root, "pkg", "a_pkg.sv"), "")

	got := IncludeDirFiles(root, []string{"inc", "pkg", "missing", "inc"})
	want := []string{"inc/defs.vh", "pkg/a_pkg.sv"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
