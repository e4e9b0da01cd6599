package validator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/robert-at-pretension-io/corewrap/internal/config"
	"github.com/robert-at-pretension-io/corewrap/internal/facts"
	"github.com/robert-at-pretension-io/corewrap/internal/mapping"
	"github.com/robert-at-pretension-io/corewrap/internal/wrapper"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New()
	require.NoError(t, err)
	return v
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestRecordContract(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{"minimal", `{"files": []}`, false},
		{"full", `{"files": ["a.sv"], "include_dirs": ["inc"], "top_module": "core", "repository": "x"}`, false},
		{"missing_files", `{"top_module": "core"}`, true},
		{"empty_path", `{"files": [""]}`, true},
		{"bad_top", `{"files": [], "top_module": "1core"}`, true},
		{"files_not_list", `{"files": "a.sv"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateJSON(Record, []byte(tt.json))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSchema))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestArtifactContract(t *testing.T) {
	v := newValidator(t)
	header := "module cpu #(parameter W = 32) (input clk, input rst, output [W-1:0] addr, input [W-1:0] data_i);"
	m := mapping.New(
		mapping.Entry{Key: "core_addr", Value: mapping.Text("addr")},
		mapping.Entry{Key: "core_data_in", Value: mapping.Text("data_i")},
		mapping.Entry{Key: "bad key", Value: mapping.Text("x")},
	)
	art, err := wrapper.FromHeader(context.Background(), header, m, wrapper.Options{})
	require.NoError(t, err)
	require.NoError(t, v.Validate(Artifact, art))

	art.Bindings[0].Direction = "sideways"
	require.Error(t, v.Validate(Artifact, art))
	assert.NotEmpty(t, v.ValidationErrors(Artifact, mustJSON(t, art)))
}

func TestConfigContract(t *testing.T) {
	v := newValidator(t)
	require.NoError(t, v.Validate(Config, config.DefaultConfig()))

	cfg := config.DefaultConfig()
	cfg.Lint.Rules["input-left-open"] = "loud"
	require.Error(t, v.Validate(Config, cfg))
}

func TestFactTablesContract(t *testing.T) {
	v := newValidator(t)

	tables := facts.Tables{
		Files:    []facts.FileRow{{Path: "a.sv", Dialect: "systemverilog", Priority: 2, Top: true, Readable: true}},
		Symbols:  []facts.SymbolRow{{Name: "a", Kind: "module", File: "a.sv"}},
		Requires: []facts.RequireRow{}, Instances: []facts.InstanceRow{}, Edges: []facts.EdgeRow{},
		Defines: []facts.MacroRow{}, ForbiddenMacros: []facts.MacroRow{},
		Bindings: []facts.BindingRow{}, Assignments: []facts.AssignmentRow{}, Declarations: []facts.DeclarationRow{},
	}
	require.NoError(t, v.Validate(FactTables, tables))
	require.NoError(t, v.Validate(FactDelta, facts.ComputeDelta(tables, tables)))

	tables.Symbols[0].Kind = "class"
	errs := v.ValidationErrors(FactTables, mustJSON(t, tables))
	require.NotEmpty(t, errs)

	assert.Nil(t, v.ValidationErrors(FactTables, mustJSON(t, facts.BuildTables(nil))))
}

func TestUnknownDefinition(t *testing.T) {
	v := newValidator(t)
	require.Error(t, v.ValidateJSON("#Nope", []byte(`{}`)))
	require.Error(t, v.ValidateJSON(Record, []byte(`{not json`)))
}
