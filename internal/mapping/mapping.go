// Package mapping holds the signal mapping produced by the interface
// resolution step: wrapper signal or port name -> connection, constant
// expression, or explicit null.
package mapping

import (
	"bytes"
	"encoding/json"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/robert-at-pretension-io/corewrap/internal/extractor"
)

// ErrMalformed is returned when a document is not a JSON object at all.
// Malformed entries inside a valid object are dropped instead.
var ErrMalformed = errors.Base("malformed mapping document")

// Value is the right-hand side of a mapping entry.
type Value struct {
	Text string
	Null bool
}

// NullValue is an explicit "leave unconnected".
func NullValue() Value { return Value{Null: true} }

// Text returns a connection or expression value. The spellings a model
// commonly uses for "nothing" are folded into NullValue.
func Text(s string) Value {
	s = strings.TrimSpace(s)
	switch s {
	case "", "null", "None", "none", "NULL":
		return NullValue()
	}
	return Value{Text: s}
}

// IsIdentifier reports whether the value names a single signal.
func (v Value) IsIdentifier() bool {
	return !v.Null && extractor.IsIdentifier(v.Text)
}

// IsExpression reports whether the value is a literal or compound
// expression rather than a plain connection.
func (v Value) IsExpression() bool {
	return !v.Null && !extractor.IsIdentifier(v.Text)
}

func (v Value) String() string {
	if v.Null {
		return "null"
	}
	return v.Text
}

// Entry is one key/value pair.
type Entry struct {
	Key   string
	Value Value
}

// Drop records an entry that was discarded and why.
type Drop struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Mapping is an insertion-ordered map. Setting an existing key replaces the
// value in place, so iteration order is the order keys first appeared.
type Mapping struct {
	entries []Entry
	index   map[string]int
	dropped []Drop
}

// New builds a mapping from entries in order.
func New(entries ...Entry) *Mapping {
	m := &Mapping{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

func (m *Mapping) Set(key string, v Value) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].Value = v
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: v})
}

func (m *Mapping) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	i, ok := m.index[key]
	if !ok {
		return Value{}, false
	}
	return m.entries[i].Value, true
}

// IsNullOrAbsent reports whether key is missing or explicitly null.
func (m *Mapping) IsNullOrAbsent(key string) bool {
	v, ok := m.Get(key)
	return !ok || v.Null
}

// Entries returns the entries in order. The slice must not be modified.
func (m *Mapping) Entries() []Entry {
	if m == nil {
		return nil
	}
	return m.entries
}

func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Source returns the key whose identifier value is name. When several keys
// point at the same name the last one wins.
func (m *Mapping) Source(name string) (string, bool) {
	var (
		key   string
		found bool
	)
	for _, e := range m.Entries() {
		if e.Value.IsIdentifier() && e.Value.Text == name {
			key, found = e.Key, true
		}
	}
	return key, found
}

// Drop records a discarded entry.
func (m *Mapping) Drop(key, value, reason string) {
	m.dropped = append(m.dropped, Drop{Key: key, Value: value, Reason: reason})
}

// Dropped returns the entries discarded while building the mapping.
func (m *Mapping) Dropped() []Drop {
	if m == nil {
		return nil
	}
	return m.dropped
}

// MarshalJSON writes the mapping as an object in entry order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		if e.Value.Null {
			buf.WriteString("null")
			continue
		}
		v, err := json.Marshal(e.Value.Text)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse decodes a flat JSON object, preserving key order. Entries whose key
// is not an identifier or whose value is not a string, number or null are
// dropped and recorded; they never fail the parse.
func Parse(data []byte) (*Mapping, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Errorf("%w: %s", ErrMalformed, err.Error())
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.Errorf("%w: expected a JSON object", ErrMalformed)
	}

	m := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Errorf("%w: %s", ErrMalformed, err.Error())
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Errorf("%w: value of %q: %s", ErrMalformed, key, err.Error())
		}

		key = strings.TrimSpace(key)
		if !extractor.IsIdentifier(key) {
			m.Drop(key, string(raw), "key is not an identifier")
			continue
		}

		var v any
		vdec := json.NewDecoder(bytes.NewReader(raw))
		vdec.UseNumber()
		if err := vdec.Decode(&v); err != nil {
			m.Drop(key, string(raw), "value is not valid JSON")
			continue
		}
		switch val := v.(type) {
		case nil:
			m.Set(key, NullValue())
		case string:
			m.Set(key, Text(val))
		case json.Number:
			m.Set(key, Text(val.String()))
		default:
			m.Drop(key, string(raw), "value is not a string, number or null")
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, errors.Errorf("%w: %s", ErrMalformed, err.Error())
	}
	return m, nil
}
