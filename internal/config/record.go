package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// Record is a processor's build record: its ordered source files, include
// directories and top module. Keys this package does not know about are
// kept and written back unchanged.
type Record struct {
	Files       []string `json:"files"`
	IncludeDirs []string `json:"include_dirs,omitempty"`
	TopModule   string   `json:"top_module,omitempty"`

	extra map[string]json.RawMessage
}

var recordKeys = []string{"files", "include_dirs", "top_module"}

// RecordPath returns the location of the record for processor name
func RecordPath(dir, name string) string {
	return filepath.Join(dir, name+".json")
}

// LoadRecord reads a processor record
func LoadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Errorf("parsing record %s: %w", path, err)
	}
	return &rec, nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return errors.WithStack(err)
	}

	type plain Record
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.WithStack(err)
	}
	*r = Record(p)

	for _, k := range recordKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		r.extra = all
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.extra)+len(recordKeys))
	for k, v := range r.extra {
		out[k] = v
	}

	files := r.Files
	if files == nil {
		files = []string{}
	}
	if err := putJSON(out, "files", files); err != nil {
		return nil, err
	}
	if len(r.IncludeDirs) > 0 {
		if err := putJSON(out, "include_dirs", r.IncludeDirs); err != nil {
			return nil, err
		}
	}
	if r.TopModule != "" {
		if err := putJSON(out, "top_module", r.TopModule); err != nil {
			return nil, err
		}
	}
	data, err := json.Marshal(out)
	return data, errors.WithStack(err)
}

func putJSON(m map[string]json.RawMessage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}
	m[key] = data
	return nil
}

// Extra returns the value of a key this package does not model
func (r *Record) Extra(key string) (json.RawMessage, bool) {
	v, ok := r.extra[key]
	return v, ok
}

// Save writes the record atomically
func (r *Record) Save(path string) error {
	return writeJSONAtomic(path, r)
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Errorf("marshal record json: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Errorf("record dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return errors.Errorf("temp record file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Errorf("write record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Errorf("close record file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Errorf("rename record file: %w", err)
	}
	return nil
}
