package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileJSONAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corewrap.json")
	writeFile(t, path, `{"wrapper": {"clock": "clk_i"}, "lint": {"rules": {"input-left-open": "off"}}}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "clk_i", cfg.Wrapper.Clock)
	assert.Equal(t, "rst_core", cfg.Wrapper.Reset)
	assert.Equal(t, DefaultWrapperConfig().Defaults, cfg.Wrapper.Defaults)
	assert.NotEmpty(t, cfg.Order.Sources)
	assert.False(t, cfg.IsRuleEnabled("input-left-open"))
	assert.True(t, cfg.IsRuleEnabled("multiple-drivers"))
	assert.Equal(t, "warning", cfg.GetRuleSeverity("wide-constant", "warning"))
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corewrap.yaml")
	writeFile(t, path, `
wrapper:
  instanceName: u_cpu
  defaults:
    - name: core_we
      value: "0"
order:
  maxParallel: 2
recordsDir: /eda/processor_ci/config
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "u_cpu", cfg.Wrapper.InstanceName)
	assert.Equal(t, []SignalDefault{{Name: "core_we", Value: "0"}}, cfg.Wrapper.Defaults)
	assert.Equal(t, 2, cfg.Order.MaxParallel)
	assert.Equal(t, "/eda/processor_ci/config", cfg.RecordsDir)
	assert.Equal(t, "clk_core", cfg.Wrapper.Clock)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "corewrap.json")
	writeFile(t, path, `{"wrapper": [}`)
	_, err = LoadFile(path)
	require.Error(t, err)
}

func TestLoadSearchesRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".corewrap.json"), `{"recordsDir": "records"}`)

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "records", cfg.RecordsDir)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"corewrap.json", "corewrap.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, DefaultConfig().Save(path))

		cfg, err := LoadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, DefaultConfig().Wrapper, cfg.Wrapper, name)
	}
}

func TestRecordPreservesUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := RecordPath(dir, "picorv32")
	writeFile(t, path, `{
  "name": "picorv32",
  "files": ["b.v", "a.v"],
  "include_dirs": ["inc"],
  "repository": "https://example.invalid/picorv32",
  "sim_files": []
}`)

	rec, err := LoadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.v", "a.v"}, rec.Files)
	assert.Equal(t, []string{"inc"}, rec.IncludeDirs)
	assert.Empty(t, rec.TopModule)

	rec.Files = []string{"a.v", "b.v"}
	require.NoError(t, rec.Save(path))

	again, err := LoadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.v", "b.v"}, again.Files)
	v, ok := again.Extra("repository")
	require.True(t, ok)
	assert.JSONEq(t, `"https://example.invalid/picorv32"`, string(v))
	_, ok = again.Extra("sim_files")
	assert.True(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}
