package indexer

import (
	"path/filepath"
	"strings"
)

// Kind of a provided symbol.
type Kind string

const (
	KindPackage Kind = "package"
	KindModule  Kind = "module"
	KindEntity  Kind = "entity"
)

// Symbol is a design unit a file makes available to other files.
type Symbol struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// IsDesignUnit reports whether the symbol can be instantiated.
func (s Symbol) IsDesignUnit() bool {
	return s.Kind == KindModule || s.Kind == KindEntity
}

// Requirements are the references a file makes to symbols of other files.
type Requirements struct {
	// Symbols are referenced provided symbols in discovery order.
	Symbols []string
	// Instantiates is the subset of Symbols placed as instances.
	Instantiates []string
	// ForbiddenMacros are macros guarded by `ifdef X `error.
	ForbiddenMacros []string
}

// Dialect extracts the provided and required symbols of one HDL family.
type Dialect interface {
	Name() string
	Handles(path string) bool
	// Provided returns the file's primary symbol: the first package or
	// design unit declared, whichever comes first.
	Provided(text string) *Symbol
	Defines(text string) []string
	Required(text string, cat *Catalog) Requirements
	IsPackagePath(path string) bool
}

// Catalog indexes the symbols and macros provided across a file set.
type Catalog struct {
	symbols map[string]catalogEntry
	defines map[string]int
}

type catalogEntry struct {
	index int
	kind  Kind
}

func newCatalog() *Catalog {
	return &Catalog{
		symbols: make(map[string]catalogEntry),
		defines: make(map[string]int),
	}
}

// add registers a symbol. A later file providing the same name replaces
// the earlier one.
func (c *Catalog) add(s Symbol, index int) {
	c.symbols[s.Name] = catalogEntry{index: index, kind: s.Kind}
}

func (c *Catalog) addDefine(name string, index int) {
	c.defines[name] = index
}

// Provider returns the index of the file providing name.
func (c *Catalog) Provider(name string) (int, bool) {
	e, ok := c.symbols[name]
	return e.index, ok
}

// IsPackage reports whether name is a provided package.
func (c *Catalog) IsPackage(name string) bool {
	e, ok := c.symbols[name]
	return ok && e.kind == KindPackage
}

// IsDesignUnit reports whether name is a provided module or entity.
func (c *Catalog) IsDesignUnit(name string) bool {
	e, ok := c.symbols[name]
	return ok && (e.kind == KindModule || e.kind == KindEntity)
}

// Definer returns the index of the file defining macro name.
func (c *Catalog) Definer(name string) (int, bool) {
	i, ok := c.defines[name]
	return i, ok
}

// matchesPackagePath reports whether path follows one of the package file
// naming conventions. Patterns containing a slash match anywhere in the
// path; the others must end the file name without its extension.
func matchesPackagePath(path string, patterns []string) bool {
	p := strings.ToLower(filepath.ToSlash(path))
	base := filepath.Base(p)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, pat := range patterns {
		pat = strings.ToLower(pat)
		if strings.Contains(pat, "/") {
			if strings.Contains("/"+p, pat) {
				return true
			}
			continue
		}
		if strings.HasSuffix(stem, pat) {
			return true
		}
	}
	return false
}

// pickDialect returns the first dialect handling path.
func pickDialect(path string, dialects []Dialect) Dialect {
	for _, d := range dialects {
		if d.Handles(path) {
			return d
		}
	}
	return dialects[len(dialects)-1]
}

// uniqueAppend appends names not already in seen.
func uniqueAppend(dst []string, seen map[string]bool, names ...string) []string {
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		dst = append(dst, n)
	}
	return dst
}
