package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

const coreHeader = `
// third-party core, flattened
module picorv_core #(
    parameter integer XLEN = 32,
    parameter [31:0] RESET_ADDR = 32'h0000_0000,
    parameter MASK = {4{1'b1}},
    parameter BAD = ((((1))))
) (
    input  wire             i_clk,   // clock, rising edge
    input  wire             rst_n,
    input  wire [XLEN-1:0]  imem_rdata,
    output reg  [31:0]      imem_addr, imem_pc,
    output wire             imem_req,
    inout                   dbg_pad,
    input                   irq
);
  assign imem_req = 1'b1;
endmodule
`

func TestParseHeader(t *testing.T) {
	sig, err := ParseHeader(context.Background(), coreHeader)
	require.NoError(t, err)

	assert.Equal(t, "picorv_core", sig.Name)
	assert.Equal(t, []Parameter{
		{Name: "XLEN", Default: "32"},
		{Name: "RESET_ADDR", Default: "32'h0000_0000"},
		{Name: "MASK", Default: "{4{1'b1}}"},
		{Name: "BAD", Default: "0"},
	}, sig.Parameters)

	assert.Equal(t, []Port{
		{Name: "i_clk", Direction: Input, Width: 1},
		{Name: "rst_n", Direction: Input, Width: 1},
		{Name: "imem_rdata", Direction: Input, Width: 32},
		{Name: "imem_addr", Direction: Output, Width: 32},
		{Name: "imem_pc", Direction: Output, Width: 32},
		{Name: "imem_req", Direction: Output, Width: 1},
		{Name: "dbg_pad", Direction: Inout, Width: 1},
		{Name: "irq", Direction: Input, Width: 1},
	}, sig.Ports)
}

func TestParseHeaderWidths(t *testing.T) {
	tests := []struct {
		name  string
		decl  string
		width int
	}{
		{"byte range", "input wire [7:0] foo", 8},
		{"no range", "input foo", 1},
		{"ascending range", "input logic [0:15] foo", 16},
		{"offset range", "input [15:8] foo", 8},
		{"unresolved parameter", "input [WIDTH-1:0] foo", 1},
		{"signed", "input wire signed [3:0] foo", 4},
		{"unpacked dimension ignored", "input [7:0] foo [0:3]", 8},
		{"user type", "input req_t foo", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := ParseHeader(context.Background(), "module m ("+tt.decl+");")
			require.NoError(t, err)
			require.Len(t, sig.Ports, 1)
			assert.Equal(t, "foo", sig.Ports[0].Name)
			assert.Equal(t, tt.width, sig.Ports[0].Width)
		})
	}
}

func TestParseHeaderDirectionCarriesForward(t *testing.T) {
	sig, err := ParseHeader(context.Background(), `module m (input a, b, output [3:0] c, d, input e);`)
	require.NoError(t, err)

	want := []Port{
		{Name: "a", Direction: Input, Width: 1},
		{Name: "b", Direction: Input, Width: 1},
		{Name: "c", Direction: Output, Width: 4},
		{Name: "d", Direction: Output, Width: 4},
		{Name: "e", Direction: Input, Width: 1},
	}
	assert.Equal(t, want, sig.Ports)
}

func TestParseHeaderSkipsIncompleteOccurrences(t *testing.T) {
	text := `
module stub;
endmodule

module real_top import cfg_pkg::*; #(parameter W = 4) (input [W-1:0] x);
endmodule
`
	sig, err := ParseHeader(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, "real_top", sig.Name)
	require.Len(t, sig.Ports, 1)
	assert.Equal(t, 4, sig.Ports[0].Width)
}

func TestParseHeaderIgnoresPortsBeforeDirection(t *testing.T) {
	sig, err := ParseHeader(context.Background(), `module legacy (a, b); input a; output b; endmodule`)
	require.NoError(t, err)
	assert.Equal(t, "legacy", sig.Name)
	assert.Empty(t, sig.Ports)
}

func TestParseHeaderEscapedPortNames(t *testing.T) {
	sig, err := ParseHeader(context.Background(),
		`module m (input \bus,x , input [3:0] \data[0] , output y);`)
	require.NoError(t, err)
	assert.Equal(t, []Port{
		{Name: `\bus,x`, Direction: Input, Width: 1},
		{Name: `\data[0]`, Direction: Input, Width: 4},
		{Name: "y", Direction: Output, Width: 1},
	}, sig.Ports)
}

func TestParseHeaderLocalparamSkipped(t *testing.T) {
	sig, err := ParseHeader(context.Background(),
		`module m #(parameter A = 1, B = 2, localparam C = A + B) (input x);`)
	require.NoError(t, err)
	assert.Equal(t, []Parameter{{Name: "A", Default: "1"}, {Name: "B", Default: "2"}}, sig.Parameters)
}

func TestParseHeaderStructuralError(t *testing.T) {
	for _, text := range []string{
		"",
		"entity foo is end;",
		"module broken (input a, output b",
		"module no_semicolon (input a) endmodule",
	} {
		_, err := ParseHeader(context.Background(), text)
		require.Error(t, err, text)
		assert.True(t, errors.Is(err, ErrStructuralParse), text)
	}
}

func TestParseHeaderCommentWithComma(t *testing.T) {
	sig, err := ParseHeader(context.Background(), `module m (
    input a, /* not, a port */
    output b // trailing, comment
);`)
	require.NoError(t, err)
	require.Len(t, sig.Ports, 2)
	assert.Equal(t, "a", sig.Ports[0].Name)
	assert.Equal(t, "b", sig.Ports[1].Name)
}
