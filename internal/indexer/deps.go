package indexer

import (
	"fmt"
	"sort"
	"strings"
)

// Impact lists the files affected by a change to Root, level by level:
// level 1 depends on Root directly, level 2 on level 1, and so on.
type Impact struct {
	Root   string     `json:"root"`
	Levels [][]string `json:"levels"`
}

// Files returns every impacted file, level by level.
func (r Impact) Files() []string {
	var out []string
	for _, l := range r.Levels {
		out = append(out, l...)
	}
	return out
}

// Impact walks the dependents of path breadth first. Each level is sorted.
func (g *Graph) Impact(path string) Impact {
	visited := map[string]bool{path: true}
	frontier := []string{path}
	var levels [][]string

	for len(frontier) > 0 {
		var next []string
		for _, f := range frontier {
			for _, dep := range g.Dependents(f) {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				next = append(next, dep)
			}
		}
		if len(next) == 0 {
			break
		}
		sort.Strings(next)
		levels = append(levels, next)
		frontier = next
	}

	return Impact{Root: path, Levels: levels}
}

// String formats the report for terminal output.
func (r Impact) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s\n", r.Root))
	for i, level := range r.Levels {
		b.WriteString(fmt.Sprintf("    level %d (%d): %s\n", i+1, len(level), strings.Join(level, ", ")))
	}
	return b.String()
}

func joinPaths(paths []string) string {
	return strings.Join(paths, ", ")
}
