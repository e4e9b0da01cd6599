package extractor

import (
	"strings"
	"unicode"
)

// scanState tracks the lexical context of a character-level scan.
// Only double quotes open a string: a single quote in Verilog belongs to a
// sized literal (4'b1010) and must not toggle anything.
type scanState struct {
	inString   bool
	escape     bool
	escIdent   bool // inside a \escaped_identifier, closed by whitespace
	parenDepth int
	brackDepth int
	braceDepth int
}

// step advances the state over ch. It reports whether ch is structural,
// i.e. outside of any string, escape or escaped identifier.
func (s *scanState) step(ch rune) bool {
	switch {
	case s.escape:
		s.escape = false
		return false
	case s.inString:
		switch ch {
		case '\\':
			s.escape = true
		case '"':
			s.inString = false
		}
		return false
	case s.escIdent:
		if unicode.IsSpace(ch) {
			s.escIdent = false
			return true
		}
		return false
	}

	switch ch {
	case '"':
		s.inString = true
		return false
	case '\\':
		s.escIdent = true
		return false
	case '(':
		s.parenDepth++
	case ')':
		if s.parenDepth > 0 {
			s.parenDepth--
		}
	case '[':
		s.brackDepth++
	case ']':
		if s.brackDepth > 0 {
			s.brackDepth--
		}
	case '{':
		s.braceDepth++
	case '}':
		if s.braceDepth > 0 {
			s.braceDepth--
		}
	}
	return true
}

func (s *scanState) topLevel() bool {
	return s.parenDepth == 0 && s.brackDepth == 0 && s.braceDepth == 0
}

// SplitTopLevel splits s on commas that sit outside brackets, parentheses,
// braces and string literals. Empty parts are dropped and parts are trimmed.
func SplitTopLevel(s string) []string {
	return splitTopLevel(s, ',')
}

func splitTopLevel(s string, sep rune) []string {
	var (
		parts []string
		cur   strings.Builder
		st    scanState
	)
	flush := func() {
		if part := strings.TrimSpace(cur.String()); part != "" {
			parts = append(parts, part)
		}
		cur.Reset()
	}
	for _, ch := range s {
		// The separator is tested before step so depth reflects the
		// enclosing context, not the separator itself.
		if ch == sep && !st.inString && !st.escape && !st.escIdent && st.topLevel() {
			flush()
			continue
		}
		st.step(ch)
		cur.WriteRune(ch)
	}
	flush()
	return parts
}

// cutTopLevel splits s at the first top-level occurrence of sep.
func cutTopLevel(s string, sep rune) (before, after string, found bool) {
	var st scanState
	for i, ch := range s {
		if ch == sep && !st.inString && !st.escape && !st.escIdent && st.topLevel() {
			return s[:i], s[i+len(string(sep)):], true
		}
		st.step(ch)
	}
	return s, "", false
}

// StripComments blanks // and /* */ comments, keeping newlines so that
// line-oriented matching on the result still lines up with the source.
func StripComments(text string) string {
	var (
		b            strings.Builder
		inString     bool
		escape       bool
		lineComment  bool
		blockComment bool
	)
	b.Grow(len(text))
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case lineComment:
			if ch == '\n' {
				lineComment = false
				b.WriteRune(ch)
			} else {
				b.WriteRune(' ')
			}
		case blockComment:
			if ch == '*' && next == '/' {
				blockComment = false
				b.WriteString("  ")
				i++
			} else if ch == '\n' {
				b.WriteRune(ch)
			} else {
				b.WriteRune(' ')
			}
		case inString:
			b.WriteRune(ch)
			if escape {
				escape = false
			} else if ch == '\\' {
				escape = true
			} else if ch == '"' || ch == '\n' {
				inString = false
			}
		case ch == '"':
			inString = true
			b.WriteRune(ch)
		case ch == '/' && next == '/':
			lineComment = true
			b.WriteString("  ")
			i++
		case ch == '/' && next == '*':
			blockComment = true
			b.WriteString("  ")
			i++
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// matchingClose returns the byte index of the bracket closing the one at
// open, or -1 when the text ends first.
func matchingClose(text string, open int) int {
	var st scanState
	want := 0
	for i, ch := range text[open:] {
		if !st.step(ch) {
			continue
		}
		switch ch {
		case '(', '[', '{':
			want++
		case ')', ']', '}':
			want--
			if want == 0 {
				return open + i
			}
		}
	}
	return -1
}

// operators is the expression vocabulary, longest first so that the scan
// is greedy.
var operators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||", "<<", ">>",
	"+", "-", "*", "/", "%", "&", "|", "^", "~", "!", "<", ">", "=", ",", "?", ":",
}

// Tokenize splits an HDL expression into its operand tokens: identifiers,
// numbers, sized literals and string literals. Operators and grouping
// characters separate operands and are not returned.
func Tokenize(expr string) []string {
	var (
		tokens []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case unicode.IsSpace(ch):
			flush()
		case ch == '"':
			flush()
			j := i + 1
			escape := false
			for ; j < len(runes); j++ {
				if escape {
					escape = false
					continue
				}
				if runes[j] == '\\' {
					escape = true
					continue
				}
				if runes[j] == '"' {
					break
				}
			}
			end := j + 1
			if end > len(runes) {
				end = len(runes)
			}
			tokens = append(tokens, string(runes[i:end]))
			i = end - 1
		case strings.ContainsRune("()[]{};", ch):
			flush()
		default:
			if n := operatorAt(runes, i); n > 0 {
				flush()
				i += n - 1
				continue
			}
			cur.WriteRune(ch)
		}
	}
	flush()
	return tokens
}

func operatorAt(runes []rune, i int) int {
	for _, op := range operators {
		n := len(op)
		if i+n <= len(runes) && string(runes[i:i+n]) == op {
			return n
		}
	}
	return 0
}

// IsIdentifier reports whether tok is a plain (non-escaped) HDL identifier.
func IsIdentifier(tok string) bool {
	if tok == "" {
		return false
	}
	for i, ch := range tok {
		switch {
		case ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z'):
		case i > 0 && ((ch >= '0' && ch <= '9') || ch == '$'):
		default:
			return false
		}
	}
	return true
}

// IsEscapedIdentifier reports whether tok is an escaped identifier such as
// \bus[0]: a backslash followed by printable non-space characters.
func IsEscapedIdentifier(tok string) bool {
	if len(tok) < 2 || tok[0] != '\\' {
		return false
	}
	for _, ch := range tok[1:] {
		if unicode.IsSpace(ch) || !unicode.IsPrint(ch) {
			return false
		}
	}
	return true
}
