package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/corewrap/internal/config"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the CLI with an explicit default config so the host's
// configuration search path does not leak into tests.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "corewrap.json")
	require.NoError(t, config.DefaultConfig().Save(cfgPath))

	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"corewrap", "--no-color", "--config", cfgPath}, args...))
	return stdout.String(), stderr.String(), err
}

func TestInstanceCommand(t *testing.T) {
	dir := t.TempDir()
	header := writeFile(t, filepath.Join(dir, "cpu.sv"),
		"module cpu (input clk, input rst_n, output [31:0] addr, input [31:0] rdata, input ack);\nendmodule\n")
	m := writeFile(t, filepath.Join(dir, "map.json"),
		`{"core_addr": "addr", "core_data_in": "rdata", "core_ack": "ack"}`)

	out, _, err := run(t, "instance", "--header", header, "--mapping", m)
	require.NoError(t, err)
	assert.Contains(t, out, "assign core_cyc = 1;")
	assert.Contains(t, out, "cpu u_core (")
	assert.Contains(t, out, ".rst_n (~rst_core)")
	assert.True(t, strings.HasSuffix(out, ");\n"))

	again, _, err := run(t, "instance", "--header", header, "--mapping", m)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestInstanceCommandResponseAndLint(t *testing.T) {
	dir := t.TempDir()
	header := writeFile(t, filepath.Join(dir, "cpu.v"),
		"module cpu (input clk, input irq, output halt, output [31:0] haddr);\nendmodule\n")
	resp := writeFile(t, filepath.Join(dir, "resp.txt"), "Here you go.\n**Connections:**\n```json\n{\n  \"haddr\": \"haddr\", // address\n  \"irq\": null,\n  \"halt\": \"1'b0\",\n}\n```\n")
	iface := writeFile(t, filepath.Join(dir, "iface.txt"), "{bus_type: 'AHB', memory_interface: 'Single', confidence: 'high'}")

	out, stderr, err := run(t, "instance", "--header", header, "--response", resp, "--interface", iface, "--json", "--lint")
	require.Error(t, err, "output driven by a constant is a policy error")
	assert.Contains(t, stderr, "[output-driven-constant]")
	assert.Contains(t, stderr, "[input-left-open]")

	var art map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &art))
	assert.Equal(t, "cpu", art["module"])
	assert.Empty(t, art["assignments"], "AHB cores get no default assignments")
	assert.NotNil(t, art["lint"])
}

func TestInstanceCommandErrors(t *testing.T) {
	dir := t.TempDir()
	header := writeFile(t, filepath.Join(dir, "cpu.sv"), "module cpu (input clk);")
	m := writeFile(t, filepath.Join(dir, "map.json"), `{}`)

	_, _, err := run(t, "instance", "--header", header)
	require.Error(t, err)

	_, _, err = run(t, "instance", "--header", header, "--mapping", m, "--bus", "pci")
	require.Error(t, err)

	bad := writeFile(t, filepath.Join(dir, "bad.sv"), "// no module here\n")
	_, _, err = run(t, "instance", "--header", bad, "--mapping", m)
	require.Error(t, err)
}

func TestOrderCommandWritesRecord(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rtl", "core.sv"), "module core;\n  alu u_alu ();\nendmodule\n")
	writeFile(t, filepath.Join(root, "rtl", "alu.sv"), "import core_pkg::*;\nmodule alu;\nendmodule\n")
	writeFile(t, filepath.Join(root, "inc", "core_pkg.sv"), "package core_pkg;\nendpackage\n")

	records := filepath.Join(root, "records")
	writeFile(t, filepath.Join(records, "tiny.json"),
		`{"name": "tiny", "files": ["rtl/core.sv", "rtl/alu.sv"], "include_dirs": ["inc"], "march": "rv32i"}`)

	factsPath := filepath.Join(root, "facts.json")
	out, _, err := run(t, "order", "--root", root, "--processor", "tiny", "--records-dir", records,
		"--write", "--facts", factsPath)
	require.NoError(t, err)

	want := []string{"inc/core_pkg.sv", "rtl/alu.sv", "rtl/core.sv"}
	assert.Equal(t, strings.Join(want, "\n")+"\n", out)

	rec, err := config.LoadRecord(filepath.Join(records, "tiny.json"))
	require.NoError(t, err)
	assert.Equal(t, want, rec.Files)
	_, ok := rec.Extra("march")
	assert.True(t, ok)

	_, _, err = run(t, "check", "--kind", "facts", factsPath)
	require.NoError(t, err)

	// unchanged sources give an empty delta
	deltaOut := filepath.Join(root, "delta.json")
	_, _, err = run(t, "order", "--root", root, "--delta-from", factsPath, "--delta-out", deltaOut, "rtl/core.sv", "rtl/alu.sv", "inc/core_pkg.sv")
	require.NoError(t, err)
	raw, err := os.ReadFile(deltaOut)
	require.NoError(t, err)
	var delta struct {
		Added   map[string][]any `json:"added"`
		Removed map[string][]any `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(raw, &delta))
	for rel, rows := range delta.Added {
		assert.Empty(t, rows, rel)
	}

	// with the delta on stdout the impact report goes to stderr
	timingPath := filepath.Join(root, "timing.jsonl")
	out, stderr, err := run(t, "order", "--root", root, "--delta-from", factsPath, "--impact", "rtl/alu.sv",
		"--timing", timingPath, "rtl/core.sv", "rtl/alu.sv", "inc/core_pkg.sv")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &delta), "stdout holds only the delta")
	assert.Contains(t, stderr, "rtl/core.sv")
	timings, err := os.ReadFile(timingPath)
	require.NoError(t, err)
	assert.Contains(t, string(timings), `"phase":"total"`)
}

func TestOrderCommandImpactAndCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x.sv"), "module x;\n  y u_y ();\nendmodule\n")
	writeFile(t, filepath.Join(root, "y.sv"), "module y;\n  x u_x ();\nendmodule\n")

	out, stderr, err := run(t, "order", "--root", root, "--json", "x.sv", "y.sv")
	require.NoError(t, err)
	assert.Contains(t, stderr, "dependency cycle")

	var got orderOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"x.sv", "y.sv"}, got.Files)
	require.NotNil(t, got.Cycle)

	out, _, err = run(t, "order", "--root", root, "--impact", "x.sv", "x.sv", "y.sv")
	require.NoError(t, err)
	assert.Contains(t, out, "level 1 (1): y.sv")
}

func TestInitAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corewrap.yaml")
	_, _, err := run(t, "init", path)
	require.NoError(t, err)

	_, _, err = run(t, "init", path)
	require.Error(t, err, "refuses to overwrite")

	_, _, err = run(t, "init", "--force", path)
	require.NoError(t, err)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultWrapperConfig(), cfg.Wrapper)

	bad := writeFile(t, filepath.Join(t.TempDir(), "rec.json"), `{"files": "a.sv"}`)
	_, stderr, err := run(t, "check", bad)
	require.Error(t, err)
	assert.Contains(t, stderr, bad+": ")
	assert.Contains(t, stderr, "files", "each problem names the offending field")
}
