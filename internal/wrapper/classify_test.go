package wrapper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robert-at-pretension-io/corewrap/internal/extractor"
	"github.com/robert-at-pretension-io/corewrap/internal/mapping"
)

func in(name string) extractor.Port  { return extractor.Port{Name: name, Direction: extractor.Input, Width: 1} }
func out(name string) extractor.Port { return extractor.Port{Name: name, Direction: extractor.Output, Width: 1} }

func TestClassify(t *testing.T) {
	m := mapping.New(
		mapping.Entry{Key: "sys_clk", Value: mapping.Text("ACLK")},
		mapping.Entry{Key: "core_ack", Value: mapping.Text("ack_i")},
		mapping.Entry{Key: "core_cyc", Value: mapping.Text("cyc_in")},
		mapping.Entry{Key: "core_addr", Value: mapping.Text("addr_o")},
		mapping.Entry{Key: "boot_addr", Value: mapping.Text("32'h8000_0000")},
		mapping.Entry{Key: "test_mode", Value: mapping.NullValue()},
		mapping.Entry{Key: "trace_o", Value: mapping.NullValue()},
	)
	view := View{Mapping: m, Tables: DefaultTables(), Glue: map[string]bool{"wdata": true}}

	tests := []struct {
		port extractor.Port
		conn string
		rule string
	}{
		{in("i_clk"), "clk_core", "clock"},
		{in("ACLK"), "clk_core", "clock"},
		{in("ClockIn"), "clk_core", "clock"},
		{in("rst_n"), "~rst_core", "reset-active-low"},
		{in("RESETn"), "~rst_core", "reset-active-low"},
		{in("nrst_i"), "~rst_core", "reset-active-low"},
		{in("rst_z"), "~rst_core", "reset-active-low"},
		{in("rst"), "rst_core", "reset"},
		{in("sys_reset"), "rst_core", "reset"},
		{in("ack_i"), "core_ack", "mapped"},
		{in("cyc_in"), "0", "mapped"},
		{out("addr_o"), "core_addr", "mapped"},
		{in("boot_addr"), "32'h8000_0000", "constant"},
		{in("wdata"), "wdata", "expression-operand"},
		{in("test_mode"), "", "explicit-open"},
		{out("trace_o"), "", "explicit-open"},
		{in("dbg_halt_req"), "0", "debug-input"},
		{in("jtag_tck_i"), "0", "debug-input"},
		{in("fetch_en"), "1", "enable-input"},
		{in("instr_valid"), "1", "enable-input"},
		{in("poweron_i"), "1", "enable-input"},
		{in("irq"), "0", "default-input"},
		{out("pc_o"), "", "open"},
		{extractor.Port{Name: "pad", Direction: extractor.Inout, Width: 1}, "", "open"},
		// outputs never take the input heuristics
		{out("clk_out"), "", "open"},
		{out("rst_n_o"), "", "open"},
	}
	for _, tt := range tests {
		t.Run(tt.port.Name, func(t *testing.T) {
			b := Classify(tt.port, view)
			assert.Equal(t, tt.rule, b.Rule)
			assert.Equal(t, tt.conn, b.Connection)
			assert.Equal(t, tt.conn == "", b.Open())
		})
	}
}

func TestRulesAreNamedAndUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Rules {
		assert.NotEmpty(t, r.Name)
		assert.NotNil(t, r.Match, r.Name)
		assert.False(t, seen[r.Name], r.Name)
		seen[r.Name] = true
	}
	assert.Equal(t, "open", Rules[len(Rules)-1].Name)
}

func TestClassifyCustomTables(t *testing.T) {
	tables := DefaultTables()
	tables.Clock = "clk_sys"
	tables.Reset = "rst_sys"
	view := View{Mapping: mapping.New(), Tables: tables}

	assert.Equal(t, "clk_sys", Classify(in("clk"), view).Connection)
	assert.Equal(t, "~rst_sys", Classify(in("resetn"), view).Connection)
}
