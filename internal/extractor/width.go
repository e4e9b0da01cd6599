package extractor

import (
	"strconv"
	"strings"
	"unicode"
)

// RangeWidth returns |msb-lsb|+1 for a packed range "msb:lsb". Bounds may
// be integer expressions over the given parameter values. ok is false when
// either bound cannot be evaluated.
func RangeWidth(rng string, params map[string]int) (int, bool) {
	msbText, lsbText, found := cutTopLevel(rng, ':')
	if !found {
		return 0, false
	}
	msb, ok := EvalInt(msbText, params)
	if !ok {
		return 0, false
	}
	lsb, ok := EvalInt(lsbText, params)
	if !ok {
		return 0, false
	}
	d := msb - lsb
	if d < 0 {
		d = -d
	}
	return d + 1, true
}

// EvalInt evaluates a constant integer expression made of decimal
// literals, known parameter names, + - * / and parentheses.
func EvalInt(expr string, params map[string]int) (int, bool) {
	p := &intParser{src: strings.TrimSpace(expr), params: params}
	if p.src == "" {
		return 0, false
	}
	v, ok := p.expr()
	if !ok {
		return 0, false
	}
	p.skip()
	if p.pos != len(p.src) {
		return 0, false
	}
	return v, true
}

type intParser struct {
	src    string
	pos    int
	params map[string]int
}

func (p *intParser) skip() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *intParser) peek() byte {
	p.skip()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *intParser) expr() (int, bool) {
	v, ok := p.term()
	if !ok {
		return 0, false
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			r, ok := p.term()
			if !ok {
				return 0, false
			}
			v += r
		case '-':
			p.pos++
			r, ok := p.term()
			if !ok {
				return 0, false
			}
			v -= r
		default:
			return v, true
		}
	}
}

func (p *intParser) term() (int, bool) {
	v, ok := p.factor()
	if !ok {
		return 0, false
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			r, ok := p.factor()
			if !ok {
				return 0, false
			}
			v *= r
		case '/':
			p.pos++
			r, ok := p.factor()
			if !ok || r == 0 {
				return 0, false
			}
			v /= r
		default:
			return v, true
		}
	}
}

func (p *intParser) factor() (int, bool) {
	switch c := p.peek(); {
	case c == '-':
		p.pos++
		v, ok := p.factor()
		return -v, ok
	case c == '(':
		p.pos++
		v, ok := p.expr()
		if !ok || p.peek() != ')' {
			return 0, false
		}
		p.pos++
		return v, true
	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '_') {
			p.pos++
		}
		v, err := strconv.Atoi(strings.ReplaceAll(p.src[start:p.pos], "_", ""))
		if err != nil {
			return 0, false
		}
		return v, true
	case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		start := p.pos
		for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '_' || p.src[p.pos] == '$' ||
			(p.src[p.pos] >= 'a' && p.src[p.pos] <= 'z') || (p.src[p.pos] >= 'A' && p.src[p.pos] <= 'Z')) {
			p.pos++
		}
		v, ok := p.params[p.src[start:p.pos]]
		return v, ok
	default:
		return 0, false
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
