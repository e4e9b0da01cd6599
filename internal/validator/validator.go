// Package validator checks records, artifacts, configuration and fact
// tables against the embedded CUE contracts before they are written or
// handed to the policy engine. A mismatch is reported, never repaired.
package validator

import (
	_ "embed"
	"encoding/json"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gitlab.com/tozd/go/errors"
)

//go:embed schema.cue
var schemaSource []byte

// ErrSchema is returned when data does not satisfy a contract.
var ErrSchema = errors.Base("schema validation failed")

// Definitions in schema.cue.
const (
	Record     = "#Record"
	Artifact   = "#Artifact"
	Config     = "#Config"
	FactTables = "#FactTables"
	FactDelta  = "#FactDelta"
)

// Validator holds the compiled schema. It is not safe for concurrent use.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, errors.Errorf("compiling schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate marshals data to JSON and checks it against definition.
func (v *Validator) Validate(definition string, data any) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return errors.Errorf("marshaling data to JSON: %w", err)
	}
	return v.ValidateJSON(definition, jsonBytes)
}

// ValidateJSON checks raw JSON against definition.
func (v *Validator) ValidateJSON(definition string, jsonBytes []byte) error {
	unified, err := v.unify(definition, jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return errors.Errorf("%w: %s: %s", ErrSchema, definition, cueerrors.Details(err, nil))
	}
	return nil
}

// ValidationErrors lists every problem found in raw JSON, or nil when it is
// valid.
func (v *Validator) ValidationErrors(definition string, jsonBytes []byte) []string {
	unified, err := v.unify(definition, jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	var errs []string
	for _, e := range cueerrors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

func (v *Validator) unify(definition string, jsonBytes []byte) (cue.Value, error) {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if err := dataValue.Err(); err != nil {
		return cue.Value{}, errors.Errorf("compiling data as CUE: %w", err)
	}
	def := v.schema.LookupPath(cue.ParsePath(definition))
	if err := def.Err(); err != nil {
		return cue.Value{}, errors.Errorf("looking up %s definition: %w", definition, err)
	}
	return def.Unify(dataValue), nil
}
