package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for corewrap
type Config struct {
	// Wrapper holds the signal tables the instance synthesizer works from
	Wrapper WrapperConfig `json:"wrapper" yaml:"wrapper"`

	// Order contains source ordering options
	Order OrderConfig `json:"order" yaml:"order"`

	// Lint contains wrapper policy configuration
	Lint LintConfig `json:"lint,omitempty" yaml:"lint,omitempty"`

	// RecordsDir is the directory holding processor records (<name>.json)
	RecordsDir string `json:"recordsDir,omitempty" yaml:"recordsDir,omitempty"`
}

// SignalDefault is a wrapper signal driven to a constant when the mapping
// leaves it unconnected.
type SignalDefault struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// SignalPair names a bus cycle signal and its strobe.
type SignalPair struct {
	Cyc string `json:"cyc" yaml:"cyc"`
	Stb string `json:"stb" yaml:"stb"`
}

// WrapperConfig describes the harness side of the generated instance.
type WrapperConfig struct {
	// InstanceName is the default instance label
	InstanceName string `json:"instanceName,omitempty" yaml:"instanceName,omitempty"`

	// Clock and Reset are the harness clock and active-high reset
	Clock string `json:"clock,omitempty" yaml:"clock,omitempty"`
	Reset string `json:"reset,omitempty" yaml:"reset,omitempty"`

	// Defaults are driven when absent from the mapping; DualDefaults are
	// added for cores with a separate data memory bus
	Defaults     []SignalDefault `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	DualDefaults []SignalDefault `json:"dualDefaults,omitempty" yaml:"dualDefaults,omitempty"`

	// CycStb pairs are merged when both map to the same core signal
	CycStb     []SignalPair `json:"cycStb,omitempty" yaml:"cycStb,omitempty"`
	DualCycStb []SignalPair `json:"dualCycStb,omitempty" yaml:"dualCycStb,omitempty"`

	// Reserved are bus control signals the wrapper drives itself; an input
	// port mapped from one of them is tied to 0 unless it is in AllowedInputs
	Reserved      []string `json:"reserved,omitempty" yaml:"reserved,omitempty"`
	AllowedInputs []string `json:"allowedInputs,omitempty" yaml:"allowedInputs,omitempty"`

	// Outputs are wrapper signals driven by the core
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`

	// Known lists every wrapper-side signal a mapping key may name
	Known []string `json:"known,omitempty" yaml:"known,omitempty"`
}

// OrderConfig contains source ordering options
type OrderConfig struct {
	// Sources is a list of glob patterns used when no files are given
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`

	// Exclude is a list of glob patterns removed from the source set
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	// MaxParallel limits concurrent file reads (0 = auto)
	MaxParallel int `json:"maxParallel,omitempty" yaml:"maxParallel,omitempty"`

	// PackagePatterns mark Verilog/SystemVerilog files as package files by path
	PackagePatterns []string `json:"packagePatterns,omitempty" yaml:"packagePatterns,omitempty"`

	// VHDLPackagePatterns mark VHDL files as package files by path
	VHDLPackagePatterns []string `json:"vhdlPackagePatterns,omitempty" yaml:"vhdlPackagePatterns,omitempty"`
}

// LintConfig contains wrapper policy configuration
type LintConfig struct {
	// Rules maps rule names to severity: "off", "warning", "error"
	Rules map[string]string `json:"rules,omitempty" yaml:"rules,omitempty"`

	// PolicyDir holds extra .rego files loaded next to the built-in policy
	PolicyDir string `json:"policyDir,omitempty" yaml:"policyDir,omitempty"`
}

var (
	wishboneSignals = []string{
		"core_cyc", "core_stb", "core_we", "core_addr", "core_sel",
		"core_data_out", "core_data_in", "core_ack",
	}
	dataMemSignals = []string{
		"data_mem_cyc", "data_mem_stb", "data_mem_we", "data_mem_addr", "data_mem_sel",
		"data_mem_data_out", "data_mem_data_in", "data_mem_ack",
	}
	ahbSignals = []string{
		"haddr", "hwrite", "hsize", "hburst", "hmastlock", "hprot", "htrans",
		"hwdata", "hrdata", "hready", "hresp",
		"data_haddr", "data_hwrite", "data_hsize", "data_hburst", "data_hmastlock",
		"data_hprot", "data_htrans", "data_hwdata", "data_hrdata", "data_hready", "data_hresp",
	}
)

// DefaultWrapperConfig returns the tables of the standard Wishbone harness
func DefaultWrapperConfig() WrapperConfig {
	known := []string{"sys_clk", "rst_n"}
	known = append(known, wishboneSignals...)
	known = append(known, dataMemSignals...)
	known = append(known, ahbSignals...)

	reserved := append([]string{}, wishboneSignals...)
	reserved = append(reserved, dataMemSignals...)

	return WrapperConfig{
		InstanceName: "u_core",
		Clock:        "clk_core",
		Reset:        "rst_core",
		Defaults: []SignalDefault{
			{Name: "core_data_out", Value: "0"},
			{Name: "core_stb", Value: "1"},
			{Name: "core_cyc", Value: "1"},
			{Name: "core_we", Value: "0"},
		},
		DualDefaults: []SignalDefault{
			{Name: "data_mem_data_out", Value: "0"},
			{Name: "data_mem_stb", Value: "0"},
			{Name: "data_mem_cyc", Value: "0"},
			{Name: "data_mem_we", Value: "0"},
		},
		CycStb:        []SignalPair{{Cyc: "core_cyc", Stb: "core_stb"}},
		DualCycStb:    []SignalPair{{Cyc: "data_mem_cyc", Stb: "data_mem_stb"}},
		Reserved:      reserved,
		AllowedInputs: []string{"core_ack", "core_data_in", "data_mem_ack", "data_mem_data_in"},
		Outputs:       []string{"core_ack", "core_data_in", "data_mem_ack", "data_mem_data_in"},
		Known:         known,
	}
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Wrapper: DefaultWrapperConfig(),
		Order: OrderConfig{
			Sources: []string{
				"**/*.v", "**/*.sv", "**/*.svh", "**/*.vh", "**/*.vhd", "**/*.vhdl",
			},
			Exclude:     []string{},
			MaxParallel: 0, // auto
			PackagePatterns: []string{
				"_pkg", "_types", "types", "_config", "config_and_types", "/pkg/",
			},
			VHDLPackagePatterns: []string{
				"_pkg", "_pack", "_package", "package", "_types", "types",
			},
		},
		Lint: LintConfig{
			Rules: map[string]string{},
		},
	}
}

// Load finds and loads the configuration file
// Search order:
//  1. ./corewrap.json, ./.corewrap.json, ./corewrap.yaml (current working directory)
//  2. the same names under <rootPath> (if different from cwd)
//  3. ~/.config/corewrap/config.json
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := configNames(cwd)

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths, configNames(rootPath)...)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "corewrap", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

func configNames(dir string) []string {
	return []string{
		filepath.Join(dir, "corewrap.json"),
		filepath.Join(dir, ".corewrap.json"),
		filepath.Join(dir, "corewrap.yaml"),
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFile loads configuration from a specific file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, errors.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	w := &c.Wrapper

	if w.InstanceName == "" {
		w.InstanceName = def.Wrapper.InstanceName
	}
	if w.Clock == "" {
		w.Clock = def.Wrapper.Clock
	}
	if w.Reset == "" {
		w.Reset = def.Wrapper.Reset
	}
	if w.Defaults == nil {
		w.Defaults = def.Wrapper.Defaults
	}
	if w.DualDefaults == nil {
		w.DualDefaults = def.Wrapper.DualDefaults
	}
	if w.CycStb == nil {
		w.CycStb = def.Wrapper.CycStb
	}
	if w.DualCycStb == nil {
		w.DualCycStb = def.Wrapper.DualCycStb
	}
	if w.Reserved == nil {
		w.Reserved = def.Wrapper.Reserved
	}
	if w.AllowedInputs == nil {
		w.AllowedInputs = def.Wrapper.AllowedInputs
	}
	if w.Outputs == nil {
		w.Outputs = def.Wrapper.Outputs
	}
	if w.Known == nil {
		w.Known = def.Wrapper.Known
	}

	if len(c.Order.Sources) == 0 {
		c.Order.Sources = def.Order.Sources
	}
	if c.Order.PackagePatterns == nil {
		c.Order.PackagePatterns = def.Order.PackagePatterns
	}
	if c.Order.VHDLPackagePatterns == nil {
		c.Order.VHDLPackagePatterns = def.Order.VHDLPackagePatterns
	}

	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}
}

// Save writes the configuration to a file, as YAML when the extension says so
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Errorf("writing config file: %w", err)
	}

	return nil
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}

// ShouldIgnoreFile checks if a file is excluded from ordering
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	for _, pattern := range c.Order.Exclude {
		if matched, _ := filepath.Match(pattern, filePath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(filePath)); matched {
			return true
		}
	}
	return false
}
