package mapping

import (
	"encoding/json"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/robert-at-pretension-io/corewrap/internal/extractor"
)

// ErrNoConnections is returned when a response carries no Connections block.
var ErrNoConnections = errors.Base("no connections block in response")

// ErrNoInterfaceInfo is returned when a response carries no JSON object.
var ErrNoInterfaceInfo = errors.Base("no interface description in response")

var (
	connectionsMarker = regexp.MustCompile(`(?i)\*{0,2}connections\*{0,2}\s*:`)
	trailingComma     = regexp.MustCompile(`,(\s*[}\]])`)
	bareKey           = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*):`)
)

// ParseResponse extracts the object that follows a "Connections:" label in
// free-form model output and parses it. Comments and trailing commas inside
// the object are tolerated.
func ParseResponse(text string) (*Mapping, error) {
	loc := connectionsMarker.FindStringIndex(text)
	if loc == nil {
		return nil, errors.WithStack(ErrNoConnections)
	}
	block, ok := firstObject(text[loc[1]:])
	if !ok {
		return nil, errors.WithStack(ErrNoConnections)
	}
	return Parse([]byte(cleanObject(block)))
}

// InterfaceInfo is the bus classification step's answer.
type InterfaceInfo struct {
	BusType         string `json:"bus_type"`
	MemoryInterface string `json:"memory_interface"`
	Confidence      string `json:"confidence"`
}

// Dual reports whether the core has separate instruction and data buses.
func (i InterfaceInfo) Dual() bool {
	return strings.EqualFold(strings.TrimSpace(i.MemoryInterface), "dual")
}

// ParseInterfaceInfo extracts the interface classification from the last
// balanced object in text that parses. Single quotes and unquoted keys are
// accepted; braces in the surrounding prose are skipped.
func ParseInterfaceInfo(text string) (InterfaceInfo, error) {
	candidates := objects(text)
	if len(candidates) == 0 {
		return InterfaceInfo{}, errors.WithStack(ErrNoInterfaceInfo)
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		body := cleanObject(candidates[i])
		body = strings.ReplaceAll(body, "'", `"`)
		body = bareKey.ReplaceAllString(body, `$1"$2"$3:`)

		var info InterfaceInfo
		if err := json.Unmarshal([]byte(body), &info); err != nil {
			lastErr = err
			continue
		}
		return info, nil
	}
	return InterfaceInfo{}, errors.Errorf("%w: %s", ErrNoInterfaceInfo, lastErr.Error())
}

// objects returns every top-level balanced {...} in text, in order. An
// opening brace that never closes is skipped.
func objects(text string) []string {
	var out []string
	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			return out
		}
		obj, ok := firstObject(text[open:])
		if !ok {
			text = text[open+1:]
			continue
		}
		out = append(out, obj)
		text = text[open+len(obj):]
	}
}

// firstObject returns the first balanced {...} in text.
func firstObject(text string) (string, bool) {
	open := strings.IndexByte(text, '{')
	if open < 0 {
		return "", false
	}
	depth := 0
	inString, escape := false, false
	for i := open; i < len(text); i++ {
		ch := text[i]
		switch {
		case escape:
			escape = false
		case inString && ch == '\\':
			escape = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return text[open : i+1], true
			}
		}
	}
	return "", false
}

func cleanObject(block string) string {
	block = extractor.StripComments(block)
	return trailingComma.ReplaceAllString(block, "$1")
}
