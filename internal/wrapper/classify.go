package wrapper

import (
	"strings"

	"github.com/robert-at-pretension-io/corewrap/internal/extractor"
	"github.com/robert-at-pretension-io/corewrap/internal/mapping"
)

// Binding is the connection chosen for one port. An empty Connection
// leaves the port open.
type Binding struct {
	Port       string              `json:"port"`
	Direction  extractor.Direction `json:"direction"`
	Width      int                 `json:"width"`
	Connection string              `json:"connection"`
	Rule       string              `json:"rule"`
}

// Open reports whether the port is left unconnected.
func (b Binding) Open() bool {
	return b.Connection == ""
}

// View is what the classifier sees besides the port itself.
type View struct {
	Mapping *mapping.Mapping
	Tables  *Tables
	// Glue holds signals declared for expression operands.
	Glue map[string]bool
}

// Rule is one step of the connection policy. Match returns the connection
// and whether the rule applies; an empty connection means open.
type Rule struct {
	Name  string
	Match func(p extractor.Port, v View) (string, bool)
}

// activeLowResets are name fragments marking an active-low reset.
var activeLowResets = []string{
	"rst_n", "reset_n", "rstn", "resetn", "nrst", "nreset",
	"rstb", "resetb", "brst", "breset", "rst_b", "reset_b",
	"rst_z", "reset_z", "rstz", "resetz",
}

// Rules is the connection policy, evaluated in order; the first match wins.
var Rules = []Rule{
	{Name: "clock", Match: matchClock},
	{Name: "reset-active-low", Match: matchActiveLowReset},
	{Name: "reset", Match: matchReset},
	{Name: "mapped", Match: matchMapped},
	{Name: "constant", Match: matchConstant},
	{Name: "expression-operand", Match: matchGlue},
	{Name: "explicit-open", Match: matchExplicitOpen},
	{Name: "debug-input", Match: matchDebugInput},
	{Name: "enable-input", Match: matchEnableInput},
	{Name: "default-input", Match: matchDefaultInput},
	{Name: "open", Match: matchOpen},
}

// Classify returns the binding of p under the first matching rule.
func Classify(p extractor.Port, v View) Binding {
	b := Binding{Port: p.Name, Direction: p.Direction, Width: p.Width}
	for _, r := range Rules {
		if conn, ok := r.Match(p, v); ok {
			b.Connection = conn
			b.Rule = r.Name
			return b
		}
	}
	return b
}

func containsAny(s string, parts ...string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func matchClock(p extractor.Port, v View) (string, bool) {
	if p.Direction != extractor.Input {
		return "", false
	}
	return v.Tables.Clock, containsAny(strings.ToLower(p.Name), "clk", "clock")
}

func matchActiveLowReset(p extractor.Port, v View) (string, bool) {
	if p.Direction != extractor.Input {
		return "", false
	}
	return "~" + v.Tables.Reset, containsAny(strings.ToLower(p.Name), activeLowResets...)
}

func matchReset(p extractor.Port, v View) (string, bool) {
	if p.Direction != extractor.Input {
		return "", false
	}
	return v.Tables.Reset, containsAny(strings.ToLower(p.Name), "rst", "reset")
}

func matchMapped(p extractor.Port, v View) (string, bool) {
	key, ok := v.Mapping.Source(p.Name)
	if !ok {
		return "", false
	}
	if p.Direction == extractor.Input && extractor.IsIdentifier(key) &&
		v.Tables.Reserved[key] && !v.Tables.AllowedInputs[key] {
		// the wrapper already drives this signal
		return "0", true
	}
	return key, true
}

func matchConstant(p extractor.Port, v View) (string, bool) {
	val, ok := v.Mapping.Get(p.Name)
	if !ok || !val.IsExpression() {
		return "", false
	}
	return val.Text, true
}

func matchGlue(p extractor.Port, v View) (string, bool) {
	return p.Name, v.Glue[p.Name]
}

func matchExplicitOpen(p extractor.Port, v View) (string, bool) {
	val, ok := v.Mapping.Get(p.Name)
	return "", ok && val.Null
}

func matchDebugInput(p extractor.Port, _ View) (string, bool) {
	if p.Direction != extractor.Input {
		return "", false
	}
	return "0", containsAny(strings.ToLower(p.Name), "dbg_", "trace_", "trc_", "jtag")
}

func matchEnableInput(p extractor.Port, _ View) (string, bool) {
	if p.Direction != extractor.Input {
		return "", false
	}
	name := strings.ToLower(p.Name)
	return "1", strings.HasSuffix(name, "_en") || strings.HasSuffix(name, "_valid") ||
		containsAny(name, "poweron", "start_")
}

func matchDefaultInput(p extractor.Port, _ View) (string, bool) {
	return "0", p.Direction == extractor.Input
}

func matchOpen(extractor.Port, View) (string, bool) {
	return "", true
}
