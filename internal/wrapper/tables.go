package wrapper

import (
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/robert-at-pretension-io/corewrap/internal/config"
)

// Tables are the harness-side signal tables the synthesizer works from.
type Tables struct {
	Clock string
	Reset string

	Defaults     []config.SignalDefault
	DualDefaults []config.SignalDefault
	CycStb       []config.SignalPair
	DualCycStb   []config.SignalPair

	Reserved      map[string]bool
	AllowedInputs map[string]bool
	Outputs       map[string]bool
	Known         map[string]bool
}

// NewTables builds lookup tables from configuration.
func NewTables(w config.WrapperConfig) *Tables {
	return &Tables{
		Clock:         w.Clock,
		Reset:         w.Reset,
		Defaults:      w.Defaults,
		DualDefaults:  w.DualDefaults,
		CycStb:        w.CycStb,
		DualCycStb:    w.DualCycStb,
		Reserved:      set(w.Reserved),
		AllowedInputs: set(w.AllowedInputs),
		Outputs:       set(w.Outputs),
		Known:         set(w.Known),
	}
}

// DefaultTables returns the tables of the standard Wishbone harness.
func DefaultTables() *Tables {
	return NewTables(config.DefaultWrapperConfig())
}

func set(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// defaults returns the default-driven signals for the memory layout.
func (t *Tables) defaults(dual bool) []config.SignalDefault {
	if !dual {
		return t.Defaults
	}
	return append(append([]config.SignalDefault{}, t.Defaults...), t.DualDefaults...)
}

func (t *Tables) cycStb(dual bool) []config.SignalPair {
	if !dual {
		return t.CycStb
	}
	return append(append([]config.SignalPair{}, t.CycStb...), t.DualCycStb...)
}

// ErrUnknownBus is returned for a bus name that is not supported.
var ErrUnknownBus = errors.Base("unknown bus type")

// Bus is the bus protocol a core exposes.
type Bus string

const (
	Wishbone Bus = "Wishbone"
	AHB      Bus = "AHB"
	AXI      Bus = "AXI"
	AXILite  Bus = "AXI-Lite"
	Avalon   Bus = "Avalon"
)

// ParseBusType accepts the common spellings of the supported buses.
func ParseBusType(s string) (Bus, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "wishbone", "wb":
		return Wishbone, nil
	case "ahb", "ahblite":
		return AHB, nil
	case "axi", "axi4":
		return AXI, nil
	case "axilite", "axi4lite":
		return AXILite, nil
	case "avalon", "avalonmm":
		return Avalon, nil
	}
	return "", errors.Errorf("%w: %q", ErrUnknownBus, s)
}

// UsesExternalAdapter reports whether the harness inserts a bus adapter
// that drives the wrapper control signals itself.
func (b Bus) UsesExternalAdapter() bool {
	return b != Wishbone
}
