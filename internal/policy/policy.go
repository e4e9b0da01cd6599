// Package policy evaluates OPA rules against the fact tables of a
// synthesized wrapper.
package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"
	"gitlab.com/tozd/go/errors"

	"github.com/robert-at-pretension-io/corewrap/internal/config"
	"github.com/robert-at-pretension-io/corewrap/internal/facts"
)

//go:embed wrapper.rego
var builtinPolicy string

const violationsQuery = "data.corewrap.wrapper.violations"

// Severities, most severe first.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
	SeverityOff     = "off"
)

// Engine evaluates the built-in policy plus any .rego files from the
// configured policy directory.
type Engine struct {
	query rego.PreparedEvalQuery
	cfg   *config.Config
}

// Violation is one policy finding.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	File     string `json:"file,omitempty"`
	Module   string `json:"module"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// Summary provides aggregate counts
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// HasErrors reports whether any violation has error severity.
func (r *Result) HasErrors() bool {
	return r.Summary.Errors > 0
}

// New prepares the policy query. Extra policies must declare package
// corewrap.wrapper and add to its violations set.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	opts := []func(*rego.Rego){
		rego.Query(violationsQuery),
		rego.Module("wrapper.rego", builtinPolicy),
	}

	if dir := cfg.Lint.PolicyDir; dir != "" {
		files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
		if err != nil {
			return nil, errors.Errorf("finding policy files: %w", err)
		}
		sort.Strings(files)
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				return nil, errors.Errorf("reading %s: %w", f, err)
			}
			opts = append(opts, rego.Module(f, string(content)))
		}
		slog.DebugContext(ctx, "loaded extra policies", "dir", dir, "count", len(files))
	}

	query, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, errors.Errorf("preparing violations query: %w", err)
	}
	return &Engine{query: query, cfg: cfg}, nil
}

// Evaluate runs the policies against tables. Configured severities
// override the built-in ones and "off" drops the rule. Violations are
// sorted by file, module, rule and subject.
func (e *Engine) Evaluate(ctx context.Context, tables facts.Tables) (*Result, error) {
	inputMap, err := structToMap(tables)
	if err != nil {
		return nil, errors.Errorf("converting input: %w", err)
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, errors.Errorf("evaluating violations: %w", err)
	}

	result := &Result{Violations: []Violation{}}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		values, _ := rs[0].Expressions[0].Value.([]interface{})
		for _, raw := range values {
			vmap, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			rule := getString(vmap, "rule")
			if !e.cfg.IsRuleEnabled(rule) {
				continue
			}
			v := Violation{
				Rule:     rule,
				Severity: getString(vmap, "severity"),
				File:     getString(vmap, "file"),
				Module:   getString(vmap, "module"),
				Subject:  getString(vmap, "subject"),
				Message:  getString(vmap, "message"),
			}
			v.Severity = e.cfg.GetRuleSeverity(rule, v.Severity)
			result.Violations = append(result.Violations, v)
		}
	}

	sort.Slice(result.Violations, func(i, j int) bool {
		a, b := result.Violations[i], result.Violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Message < b.Message
	})

	for _, v := range result.Violations {
		result.Summary.TotalViolations++
		switch v.Severity {
		case SeverityError:
			result.Summary.Errors++
		case SeverityWarning:
			result.Summary.Warnings++
		default:
			result.Summary.Info++
		}
	}
	return result, nil
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, errors.WithStack(err)
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
