package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// hdlExtensions are the source extensions picked up by glob patterns
var hdlExtensions = map[string]bool{
	".v":    true,
	".sv":   true,
	".svh":  true,
	".vh":   true,
	".vhd":  true,
	".vhdl": true,
}

// IsHDLFile reports whether path has a Verilog, SystemVerilog or VHDL extension
func IsHDLFile(path string) bool {
	return hdlExtensions[strings.ToLower(filepath.Ext(path))]
}

// ResolveSources expands glob patterns relative to rootPath and returns the
// matching HDL files, relative to rootPath, sorted. Excluded files are
// removed. With no patterns the configured Order.Sources are used.
func (c *Config) ResolveSources(rootPath string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = c.Order.Sources
	}

	fileSet := make(map[string]bool)
	for _, pattern := range patterns {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern)
		if err != nil {
			// Silently skip invalid patterns
			continue
		}

		for _, match := range matches {
			if !IsHDLFile(match) {
				continue
			}
			rel, err := filepath.Rel(rootPath, match)
			if err != nil {
				rel = match
			}
			if c.ShouldIgnoreFile(rel) {
				continue
			}
			fileSet[filepath.ToSlash(rel)] = true
		}
	}

	result := make([]string, 0, len(fileSet))
	for f := range fileSet {
		result = append(result, f)
	}
	sort.Strings(result)
	return result, nil
}

// IncludeDirFiles lists the HDL files directly inside each include
// directory, relative to rootPath, in directory order then name order.
func IncludeDirFiles(rootPath string, dirs []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, dir := range dirs {
		full := dir
		if !filepath.IsAbs(full) {
			full = filepath.Join(rootPath, dir)
		}
		entries, err := os.ReadDir(full)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !IsHDLFile(e.Name()) {
				continue
			}
			rel, err := filepath.Rel(rootPath, filepath.Join(full, e.Name()))
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if !seen[rel] {
				seen[rel] = true
				result = append(result, rel)
			}
		}
	}
	return result
}

// expandGlob expands a glob pattern, handling ** for recursive matching
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return expandDoubleStarGlob(pattern)
	}
	return filepath.Glob(pattern)
}

// expandDoubleStarGlob handles ** patterns by walking the directory tree
func expandDoubleStarGlob(pattern string) ([]string, error) {
	var results []string

	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		return filepath.Glob(pattern)
	}

	baseDir := filepath.Clean(parts[0])
	if baseDir == "" {
		baseDir = "."
	}
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))

	err := filepath.WalkDir(baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if d.IsDir() {
			return nil
		}
		if suffix == "" {
			results = append(results, path)
			return nil
		}
		relPath, err := filepath.Rel(baseDir, path)
		if err != nil {
			return nil
		}
		if matchSuffix(relPath, suffix) {
			results = append(results, path)
		}
		return nil
	})

	return results, err
}

// matchSuffix checks if a path matches a suffix pattern (after **)
func matchSuffix(path, pattern string) bool {
	pattern = strings.TrimPrefix(pattern, string(filepath.Separator))

	// If pattern has no directory component, match against filename
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	matched, _ := filepath.Match(pattern, path)
	if matched {
		return true
	}

	if len(path) > len(pattern) {
		suffix := path[len(path)-len(pattern):]
		matched, _ = filepath.Match(pattern, suffix)
		return matched
	}

	return false
}
