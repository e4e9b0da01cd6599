package indexer

import (
	"regexp"
	"strings"
)

var (
	// Pattern: package <name> is
	vhdlPackagePattern = regexp.MustCompile(`(?mi)^\s*package\s+(\w+)\s+is\b`)

	// Pattern: entity <name> is
	vhdlEntityPattern = regexp.MustCompile(`(?mi)^\s*entity\s+(\w+)\s+is\b`)

	// Pattern: architecture <name> of <entity> is
	vhdlArchPattern = regexp.MustCompile(`(?mi)^\s*architecture\s+\w+\s+of\s+(\w+)\s+is\b`)

	// Pattern: use <library>.<package>.
	vhdlUsePattern = regexp.MustCompile(`(?mi)^\s*use\s+(\w+)\.(\w+)\.`)

	// Pattern: <label> : entity <library>.<entity>
	vhdlEntityInstPattern = regexp.MustCompile(`(?mi)^\s*\w+\s*:\s*entity\s+(\w+)\.(\w+)`)

	// Pattern: <label> : [component] <name> port|generic map
	vhdlCompInstPattern = regexp.MustCompile(`(?mi)^\s*\w+\s*:\s*(?:component\s+)?(\w+)\s+(?:port|generic)\s+map`)
)

// standardLibraries are never part of the file set.
var standardLibraries = map[string]bool{"ieee": true, "std": true}

// VHDL handles VHDL sources. Names are case-insensitive and lower-cased.
type VHDL struct {
	PackagePatterns []string
}

func (VHDL) Name() string { return "vhdl" }

func (VHDL) Handles(path string) bool { return isVHDLPath(path) }

func (d VHDL) IsPackagePath(path string) bool {
	return matchesPackagePath(path, d.PackagePatterns)
}

func (VHDL) Provided(text string) *Symbol {
	text = stripVHDLComments(text)
	var best *Symbol
	bestPos := -1
	if m := vhdlPackagePattern.FindStringSubmatchIndex(text); m != nil {
		best = &Symbol{Name: strings.ToLower(text[m[2]:m[3]]), Kind: KindPackage}
		bestPos = m[0]
	}
	if m := vhdlEntityPattern.FindStringSubmatchIndex(text); m != nil && (bestPos < 0 || m[0] < bestPos) {
		best = &Symbol{Name: strings.ToLower(text[m[2]:m[3]]), Kind: KindEntity}
	}
	return best
}

// Defines is empty: VHDL has no preprocessor.
func (VHDL) Defines(string) []string { return nil }

func (VHDL) Required(text string, cat *Catalog) Requirements {
	text = stripVHDLComments(text)
	var req Requirements
	seen := make(map[string]bool)
	instSeen := make(map[string]bool)

	for _, m := range vhdlUsePattern.FindAllStringSubmatch(text, -1) {
		lib, pkg := strings.ToLower(m[1]), strings.ToLower(m[2])
		if standardLibraries[lib] {
			continue
		}
		if cat.IsPackage(pkg) {
			req.Symbols = uniqueAppend(req.Symbols, seen, pkg)
		}
	}

	for _, m := range vhdlArchPattern.FindAllStringSubmatch(text, -1) {
		if ent := strings.ToLower(m[1]); cat.IsDesignUnit(ent) {
			req.Symbols = uniqueAppend(req.Symbols, seen, ent)
		}
	}

	instance := func(name string) {
		if cat.IsDesignUnit(name) {
			req.Symbols = uniqueAppend(req.Symbols, seen, name)
			req.Instantiates = uniqueAppend(req.Instantiates, instSeen, name)
		}
	}
	for _, m := range vhdlEntityInstPattern.FindAllStringSubmatch(text, -1) {
		if !standardLibraries[strings.ToLower(m[1])] {
			instance(strings.ToLower(m[2]))
		}
	}
	for _, m := range vhdlCompInstPattern.FindAllStringSubmatch(text, -1) {
		instance(strings.ToLower(m[1]))
	}
	return req
}

// stripVHDLComments blanks "--" comments outside string literals, keeping
// line structure.
func stripVHDLComments(text string) string {
	if !strings.Contains(text, "--") {
		return text
	}
	b := []byte(text)
	inString, inComment := false, false
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '\n':
			inComment, inString = false, false
		case inComment:
			b[i] = ' '
		case b[i] == '"':
			inString = !inString
		case !inString && b[i] == '-' && i+1 < len(b) && b[i+1] == '-':
			inComment = true
			b[i] = ' '
		}
	}
	return string(b)
}
