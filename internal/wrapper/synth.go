// Package wrapper turns a module signature and a signal mapping into an
// instantiation of the core inside the bus harness, together with the glue
// assignments and declarations it needs.
package wrapper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/robert-at-pretension-io/corewrap/internal/extractor"
	"github.com/robert-at-pretension-io/corewrap/internal/mapping"
)

// ErrMissingSignature is returned when there is no signature to instantiate.
var ErrMissingSignature = errors.Base("missing module signature")

const defaultInstanceName = "u_core"

// Options control one synthesis run.
type Options struct {
	DualMemory          bool
	UsesExternalAdapter bool
	InstanceName        string
	// Tables defaults to DefaultTables when nil.
	Tables *Tables
}

// Assignment is a continuous assignment in the wrapper body.
type Assignment struct {
	Target string `json:"target"`
	Expr   string `json:"expr"`
}

func (a Assignment) String() string {
	return "assign " + a.Target + " = " + a.Expr + ";"
}

// Declaration is a glue signal declared in the wrapper body.
type Declaration struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
}

func (d Declaration) String() string {
	if d.Width > 1 {
		return fmt.Sprintf("logic [%d:0] %s;", d.Width-1, d.Name)
	}
	return "logic " + d.Name + ";"
}

// Artifact is everything generated for one core.
type Artifact struct {
	Module       string         `json:"module"`
	InstanceName string         `json:"instance_name"`
	Instance     string         `json:"instance"`
	Assignments  []Assignment   `json:"assignments"`
	Declarations []Declaration  `json:"declarations"`
	Bindings     []Binding      `json:"bindings"`
	Dropped      []mapping.Drop `json:"dropped,omitempty"`
}

// AssignmentLines renders the assignments, one statement per line.
func (a *Artifact) AssignmentLines() []string {
	lines := make([]string, len(a.Assignments))
	for i, as := range a.Assignments {
		lines[i] = as.String()
	}
	return lines
}

// DeclarationLines renders the declarations, one per line.
func (a *Artifact) DeclarationLines() []string {
	lines := make([]string, len(a.Declarations))
	for i, d := range a.Declarations {
		lines[i] = d.String()
	}
	return lines
}

// Text renders declarations, assignments and the instance as one block.
func (a *Artifact) Text() string {
	var sb strings.Builder
	for _, l := range a.DeclarationLines() {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	if len(a.Declarations) > 0 {
		sb.WriteByte('\n')
	}
	for _, l := range a.AssignmentLines() {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	if len(a.Assignments) > 0 {
		sb.WriteByte('\n')
	}
	sb.WriteString(a.Instance)
	sb.WriteByte('\n')
	return sb.String()
}

// FromHeader parses header and synthesizes the instance of the module it
// declares.
func FromHeader(ctx context.Context, header string, m *mapping.Mapping, opts Options) (*Artifact, error) {
	sig, err := extractor.ParseHeader(ctx, header)
	if err != nil {
		return nil, err
	}
	return Synthesize(ctx, sig, m, opts)
}

// Synthesize builds the instantiation of sig. The result depends only on
// its inputs; identical inputs give byte-identical output.
func Synthesize(ctx context.Context, sig *extractor.Signature, m *mapping.Mapping, opts Options) (*Artifact, error) {
	if sig == nil {
		return nil, errors.WithStack(ErrMissingSignature)
	}
	tables := opts.Tables
	if tables == nil {
		tables = DefaultTables()
	}
	instName := opts.InstanceName
	if instName == "" {
		instName = defaultInstanceName
	}

	ports := make(map[string]extractor.Port, len(sig.Ports))
	for _, p := range sig.Ports {
		ports[p.Name] = p
	}

	clean := sanitize(ctx, m, ports, tables)

	art := &Artifact{
		Module:       sig.Name,
		InstanceName: instName,
		Assignments:  []Assignment{},
		Declarations: []Declaration{},
		Bindings:     make([]Binding, 0, len(sig.Ports)),
		Dropped:      append(append([]mapping.Drop{}, m.Dropped()...), clean.Dropped()...),
	}

	if !opts.UsesExternalAdapter {
		for _, d := range tables.defaults(opts.DualMemory) {
			if clean.IsNullOrAbsent(d.Name) {
				art.Assignments = append(art.Assignments, Assignment{Target: d.Name, Expr: d.Value})
			}
		}
	}

	// the merge only compares the two values, so it reads the mapping
	// before sanitation drops entries whose value is not a port
	for _, pair := range tables.cycStb(opts.DualMemory) {
		cyc, ok1 := m.Get(pair.Cyc)
		stb, ok2 := m.Get(pair.Stb)
		if ok1 && ok2 && cyc.IsIdentifier() && cyc.Text == stb.Text {
			art.Assignments = append(art.Assignments, Assignment{Target: pair.Cyc, Expr: "1"})
		}
	}

	glue := expressionGlue(sig, clean, ports, tables, art)

	view := View{Mapping: clean, Tables: tables, Glue: glue}
	for _, p := range sig.Ports {
		art.Bindings = append(art.Bindings, Classify(p, view))
	}

	art.Instance = render(sig, art.Bindings, instName)
	return art, nil
}

// sanitize drops mapping entries that cannot be used. Dropping is logged and
// recorded, never fatal.
func sanitize(ctx context.Context, m *mapping.Mapping, ports map[string]extractor.Port, t *Tables) *mapping.Mapping {
	clean := mapping.New()
	for _, e := range m.Entries() {
		_, keyIsPort := ports[e.Key]
		var reason string
		switch {
		case !extractor.IsIdentifier(e.Key):
			reason = "key is not an identifier"
		case len(t.Known) > 0 && !t.Known[e.Key] && !keyIsPort:
			reason = "key is neither a wrapper signal nor a port"
		case e.Value.IsIdentifier():
			if _, ok := ports[e.Value.Text]; !ok && !t.Known[e.Value.Text] {
				reason = "value is neither a port nor a wrapper signal"
			}
		}
		if reason != "" {
			slog.WarnContext(ctx, "dropping mapping entry", "key", e.Key, "value", e.Value.String(), "reason", reason)
			clean.Drop(e.Key, e.Value.String(), reason)
			continue
		}
		clean.Set(e.Key, e.Value)
	}
	return clean
}

// expressionGlue declares the operands of expression entries and emits the
// assignments that connect them. It returns the declared names.
func expressionGlue(sig *extractor.Signature, m *mapping.Mapping, ports map[string]extractor.Port, t *Tables, art *Artifact) map[string]bool {
	declared := make(map[string]bool, len(t.Known)+2)
	for name := range t.Known {
		declared[name] = true
	}
	declared[t.Clock] = true
	declared[t.Reset] = true
	// parameters are constants, not signals
	for _, p := range sig.Parameters {
		declared[p.Name] = true
	}

	glue := make(map[string]bool)
	for _, e := range m.Entries() {
		if !e.Value.IsExpression() {
			continue
		}
		hasOperand := false
		for _, tok := range extractor.Tokenize(e.Value.Text) {
			if !extractor.IsIdentifier(tok) {
				continue
			}
			hasOperand = true
			if declared[tok] {
				continue
			}
			declared[tok] = true
			glue[tok] = true
			width := 1
			if p, ok := ports[tok]; ok {
				width = p.Width
			}
			art.Declarations = append(art.Declarations, Declaration{Name: tok, Width: width})
		}

		if _, isPort := ports[e.Key]; isPort || !t.Known[e.Key] {
			continue
		}
		if t.Outputs[e.Key] && hasOperand {
			art.Assignments = append(art.Assignments, Assignment{Target: e.Value.Text, Expr: e.Key})
		} else {
			art.Assignments = append(art.Assignments, Assignment{Target: e.Key, Expr: e.Value.Text})
		}
	}
	return glue
}

func render(sig *extractor.Signature, bindings []Binding, instName string) string {
	var lines []string

	if len(sig.Parameters) > 0 {
		width := 0
		for _, p := range sig.Parameters {
			width = max(width, len(p.Name))
		}
		lines = append(lines, sig.Name+" #(")
		for _, p := range sig.Parameters {
			lines = append(lines, fmt.Sprintf("    .%-*s (%s),", width, p.Name, p.Default))
		}
		lines[len(lines)-1] = strings.TrimSuffix(lines[len(lines)-1], ",")
		lines = append(lines, ") "+instName+" (")
	} else {
		lines = append(lines, sig.Name+" "+instName+" (")
	}

	width := 0
	for _, b := range bindings {
		width = max(width, len(b.Port))
	}
	for _, b := range bindings {
		lines = append(lines, fmt.Sprintf("    .%-*s (%s),", width, b.Port, b.Connection))
	}
	lines[len(lines)-1] = strings.TrimSuffix(lines[len(lines)-1], ",")
	lines = append(lines, ");")

	return strings.Join(lines, "\n")
}
