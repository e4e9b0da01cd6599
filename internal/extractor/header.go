package extractor

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"gitlab.com/tozd/go/errors"
)

// ErrStructuralParse is returned when no module header can be located.
var ErrStructuralParse = errors.Base("structural parse error")

// Direction of a module port.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
	Inout  Direction = "inout"
)

// Port is a named signal at the module boundary.
type Port struct {
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
	Width     int       `json:"width"`
}

// Parameter is a compile-time configurable value of the module.
type Parameter struct {
	Name    string `json:"name"`
	Default string `json:"default"`
}

// Signature is the boundary of a module as declared in its header.
// Parameters and ports keep declaration order.
type Signature struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
	Ports      []Port      `json:"ports"`
}

// Port returns the port called name.
func (s *Signature) Port(name string) (Port, bool) {
	for _, p := range s.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// typeWords are stripped from declarations and never taken as names.
var typeWords = map[string]bool{
	"reg":      true,
	"wire":     true,
	"logic":    true,
	"signed":   true,
	"unsigned": true,
	"integer":  true,
	"bit":      true,
	"byte":     true,
	"int":      true,
	"shortint": true,
	"longint":  true,
	"var":      true,
	"tri":      true,
	"type":     true,
}

// safeDefault replaces parameter defaults whose grouping cannot be trusted.
const safeDefault = "0"

// maxGroupingDepth is the deepest nesting of (), [] or {} accepted in a
// parameter default.
const maxGroupingDepth = 2

var modulePattern = regexp.MustCompile(`\bmodule\s+(?:(?:automatic|static)\s+)?([A-Za-z_][A-Za-z0-9_$]*)`)

// ParseHeader locates the first complete module header in text and returns
// its signature. The header must have the shape
//
//	module NAME [#( parameters )] ( ports );
//
// Occurrences of the keyword that do not complete this shape are skipped.
func ParseHeader(ctx context.Context, text string) (*Signature, error) {
	clean := StripComments(text)

	for _, loc := range modulePattern.FindAllStringSubmatchIndex(clean, -1) {
		name := clean[loc[2]:loc[3]]
		params, ports, ok := headerBlocks(clean, loc[1])
		if !ok {
			slog.DebugContext(ctx, "skipping incomplete module header", "module", name)
			continue
		}

		sig := &Signature{Name: name}
		sig.Parameters = parseParameters(ctx, name, params)
		sig.Ports = parsePorts(ctx, name, ports, integerParameters(sig.Parameters))
		return sig, nil
	}

	return nil, errors.Errorf("%w: no module header of the form `module NAME #(...) (...);` found", ErrStructuralParse)
}

// headerBlocks returns the parameter and port block contents that follow a
// module name ending at pos.
func headerBlocks(text string, pos int) (params, ports string, ok bool) {
	i := skipSpace(text, pos)

	// package imports in the header: module m import p::*; #(...) (...);
	for strings.HasPrefix(text[i:], "import") {
		end := strings.IndexByte(text[i:], ';')
		if end < 0 {
			return "", "", false
		}
		i = skipSpace(text, i+end+1)
	}

	if i < len(text) && text[i] == '#' {
		i = skipSpace(text, i+1)
		if i >= len(text) || text[i] != '(' {
			return "", "", false
		}
		end := matchingClose(text, i)
		if end < 0 {
			return "", "", false
		}
		params = text[i+1 : end]
		i = skipSpace(text, end+1)
	}

	if i >= len(text) || text[i] != '(' {
		return "", "", false
	}
	end := matchingClose(text, i)
	if end < 0 {
		return "", "", false
	}
	ports = text[i+1 : end]
	i = skipSpace(text, end+1)
	if i >= len(text) || text[i] != ';' {
		return "", "", false
	}
	return params, ports, true
}

func skipSpace(text string, i int) int {
	for i < len(text) && unicode.IsSpace(rune(text[i])) {
		i++
	}
	return i
}

func parseParameters(ctx context.Context, module, block string) []Parameter {
	var (
		params  []Parameter
		inLocal bool
	)
	for _, chunk := range SplitTopLevel(block) {
		word, rest := firstWord(chunk)
		switch strings.ToLower(word) {
		case "parameter":
			inLocal = false
			chunk = rest
		case "localparam":
			inLocal = true
			continue
		default:
			if inLocal {
				continue
			}
		}

		lhs, rhs, hasDefault := cutTopLevel(chunk, '=')
		name := declaredName(lhs)
		if name == "" {
			continue
		}
		def := strings.TrimSpace(rhs)
		if !hasDefault || def == "" {
			def = safeDefault
		} else if !groupingBalanced(def) {
			slog.WarnContext(ctx, "parameter default has unbalanced grouping, using safe default",
				"module", module, "parameter", name, "default", def)
			def = safeDefault
		}
		params = append(params, Parameter{Name: name, Default: def})
	}
	return params
}

// groupingBalanced reports whether every (, [ and { in expr is closed and
// nesting stays within maxGroupingDepth.
func groupingBalanced(expr string) bool {
	var (
		st       scanState
		depth    int
		maxDepth int
	)
	for _, ch := range expr {
		if !st.step(ch) {
			continue
		}
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && maxDepth <= maxGroupingDepth && !st.inString
}

func parsePorts(ctx context.Context, module, block string, params map[string]int) []Port {
	var (
		ports    []Port
		curDir   Direction
		curWidth = 1
	)
	for _, chunk := range SplitTopLevel(block) {
		// A default value is not part of the declaration.
		decl, _, _ := cutTopLevel(chunk, '=')

		word, rest := firstWord(decl)
		explicit := true
		switch d := Direction(strings.ToLower(word)); d {
		case Input, Output, Inout:
			curDir = d
			decl = rest
		default:
			if curDir == "" {
				continue
			}
			explicit = false
		}

		name, rng := splitDeclaration(decl)
		if name == "" {
			slog.DebugContext(ctx, "skipping port declaration without a name", "module", module, "declaration", decl)
			continue
		}

		width := 1
		switch {
		case rng != "":
			if w, ok := RangeWidth(rng, params); ok {
				width = w
			} else {
				slog.DebugContext(ctx, "cannot infer port width, defaulting to 1",
					"module", module, "port", name, "range", rng)
			}
		case !explicit:
			// grouped shorthand: input [7:0] a, b
			width = curWidth
		}
		curWidth = width

		ports = append(ports, Port{Name: name, Direction: curDir, Width: width})
	}
	return ports
}

// splitDeclaration walks a declaration without its direction keyword and
// returns the declared name together with the first range seen before it.
// Type words and ranges are dropped; when several identifiers remain the
// last one is the name (the others are user-defined type names).
func splitDeclaration(decl string) (name, rng string) {
	i := 0
	for i < len(decl) {
		ch := decl[i]
		switch {
		case unicode.IsSpace(rune(ch)):
			i++
		case ch == '[':
			end := matchingClose(decl, i)
			if end < 0 {
				return name, rng
			}
			if rng == "" && name == "" {
				rng = decl[i+1 : end]
			}
			i = end + 1
		default:
			j := i
			// an escaped identifier runs to the next space, brackets included
			for j < len(decl) && !unicode.IsSpace(rune(decl[j])) && (ch == '\\' || decl[j] != '[') {
				j++
			}
			tok := decl[i:j]
			i = j
			if typeWords[strings.ToLower(tok)] || !(IsIdentifier(tok) || IsEscapedIdentifier(tok)) {
				continue
			}
			if name != "" {
				// the previous identifier was a type name; its range belonged to the type
				rng = ""
			}
			name = tok
		}
	}
	return name, rng
}

// declaredName returns the last identifier of a parameter's left-hand side.
func declaredName(lhs string) string {
	name, _ := splitDeclaration(lhs)
	return name
}

func firstWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '[' })
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// integerParameters resolves parameter defaults that evaluate to integers,
// in declaration order so later defaults may refer to earlier ones.
func integerParameters(params []Parameter) map[string]int {
	values := make(map[string]int, len(params))
	for _, p := range params {
		if v, ok := EvalInt(p.Default, values); ok {
			values[p.Name] = v
		}
	}
	return values
}
