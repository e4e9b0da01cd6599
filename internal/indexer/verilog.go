package indexer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/robert-at-pretension-io/corewrap/internal/extractor"
)

var (
	// Pattern: package [automatic|static] <name>;
	svPackagePattern = regexp.MustCompile(`(?mi)^\s*package\s+(?:(?:automatic|static)\s+)?([A-Za-z_]\w*)\s*;`)

	// Pattern: module [automatic|static] <name>
	svModulePattern = regexp.MustCompile(`(?mi)^\s*module\s+(?:(?:automatic|static)\s+)?([A-Za-z_]\w*)`)

	// Pattern: import <item>, <item>;
	svImportPattern = regexp.MustCompile(`(?mi)^\s*import\s+([^;]+);`)

	// Pattern: <pkg>::<name>
	svScopePattern = regexp.MustCompile(`\b([A-Za-z_]\w*)::[A-Za-z_]\w*`)

	// Pattern: <module> #( ... or <module> <instance> (
	svInstancePattern = regexp.MustCompile(`(?m)^\s*([A-Za-z_]\w*)\s+(?:#|[A-Za-z_]\w*\s*\()`)

	// Pattern: `define <name>
	svDefinePattern = regexp.MustCompile("(?mi)^\\s*`define\\s+(\\w+)")

	// Pattern: `ifdef <name> immediately followed by `error
	svForbiddenPattern = regexp.MustCompile("(?mi)^\\s*`ifdef\\s+(\\w+)\\s*\\n\\s*`error")
)

// SystemVerilog handles Verilog and SystemVerilog sources: packages,
// imports, scope references, module instances and macros.
type SystemVerilog struct {
	PackagePatterns []string
}

func (SystemVerilog) Name() string { return "systemverilog" }

// Handles accepts every file; it is the fallback dialect.
func (SystemVerilog) Handles(string) bool { return true }

func (d SystemVerilog) IsPackagePath(path string) bool {
	return matchesPackagePath(path, d.PackagePatterns)
}

func (SystemVerilog) Provided(text string) *Symbol {
	text = extractor.StripComments(text)
	var best *Symbol
	bestPos := -1
	if m := svPackagePattern.FindStringSubmatchIndex(text); m != nil {
		best = &Symbol{Name: text[m[2]:m[3]], Kind: KindPackage}
		bestPos = m[0]
	}
	if m := svModulePattern.FindStringSubmatchIndex(text); m != nil && (bestPos < 0 || m[0] < bestPos) {
		best = &Symbol{Name: text[m[2]:m[3]], Kind: KindModule}
	}
	return best
}

func (SystemVerilog) Defines(text string) []string {
	text = extractor.StripComments(text)
	var out []string
	seen := make(map[string]bool)
	for _, m := range svDefinePattern.FindAllStringSubmatch(text, -1) {
		out = uniqueAppend(out, seen, m[1])
	}
	return out
}

func (SystemVerilog) Required(text string, cat *Catalog) Requirements {
	text = extractor.StripComments(text)
	var req Requirements
	seen := make(map[string]bool)

	for _, m := range svImportPattern.FindAllStringSubmatch(text, -1) {
		for _, item := range strings.Split(m[1], ",") {
			pkg, _, found := strings.Cut(item, "::")
			pkg = strings.TrimSpace(pkg)
			if found && cat.IsPackage(pkg) {
				req.Symbols = uniqueAppend(req.Symbols, seen, pkg)
			}
		}
	}

	for _, m := range svScopePattern.FindAllStringSubmatch(text, -1) {
		if cat.IsPackage(m[1]) {
			req.Symbols = uniqueAppend(req.Symbols, seen, m[1])
		}
	}

	instSeen := make(map[string]bool)
	for _, m := range svInstancePattern.FindAllStringSubmatch(text, -1) {
		if cat.IsDesignUnit(m[1]) {
			req.Symbols = uniqueAppend(req.Symbols, seen, m[1])
			req.Instantiates = uniqueAppend(req.Instantiates, instSeen, m[1])
		}
	}

	macroSeen := make(map[string]bool)
	for _, m := range svForbiddenPattern.FindAllStringSubmatch(text, -1) {
		req.ForbiddenMacros = uniqueAppend(req.ForbiddenMacros, macroSeen, m[1])
	}
	return req
}

// isVHDLPath reports whether path has a VHDL extension.
func isVHDLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".vhd" || ext == ".vhdl"
}
