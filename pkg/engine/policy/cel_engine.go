// Package policy evaluates user-defined CEL rules against analysed node rows.
package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/DrSkyle/vapora/pkg/graph"
)

// Rule is a named CEL condition over a node row, e.g.
// "is_banned && degree > 20".
type Rule struct {
	ID          string `mapstructure:"id" yaml:"id" json:"id"`
	Condition   string `mapstructure:"condition" yaml:"condition" json:"condition"`
	Description string `mapstructure:"description" yaml:"description,omitempty" json:"description,omitempty"`
}

type compiled struct {
	rule Rule
	prg  cel.Program
}

// CELEngine manages the compilation and execution of rules.
type CELEngine struct {
	env    *cel.Env
	rules  []compiled
	logger *slog.Logger
}

// NewCELEngine initializes the CEL environment with the node row variables.
func NewCELEngine(logger *slog.Logger) (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("label", cel.StringType),
		cel.Variable("degree", cel.IntType),
		cel.Variable("betweenness", cel.DoubleType),
		cel.Variable("community", cel.IntType),
		cel.Variable("depth", cel.IntType),
		cel.Variable("is_seed", cel.BoolType),
		cel.Variable("is_hub", cel.BoolType),
		cel.Variable("is_banned", cel.BoolType),
		cel.Variable("is_public", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CELEngine{env: env, logger: logger}, nil
}

// Compile compiles rules into executable programs. Every condition must
// yield a boolean.
func (e *CELEngine) Compile(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			return fmt.Errorf("rule with condition %q has no id", r.Condition)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule id %s", r.ID)
		}
		seen[r.ID] = true

		ast, issues := e.env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("rule %s compilation error: %w", r.ID, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return fmt.Errorf("rule %s must evaluate to bool, got %s", r.ID, ast.OutputType())
		}

		prg, err := e.env.Program(ast)
		if err != nil {
			return fmt.Errorf("rule %s program creation error: %w", r.ID, err)
		}
		e.rules = append(e.rules, compiled{rule: r, prg: prg})
	}
	return nil
}

// Len is the number of compiled rules.
func (e *CELEngine) Len() int { return len(e.rules) }

// Activation exposes a node row as CEL variables.
func Activation(row graph.NodeRow) map[string]any {
	return map[string]any{
		"id":          row.ID,
		"label":       row.Label,
		"degree":      int64(row.Degree),
		"betweenness": row.Betweenness,
		"community":   int64(row.Community),
		"depth":       int64(row.Depth),
		"is_seed":     row.IsSeed,
		"is_hub":      row.IsHub,
		"is_banned":   row.IsBanned,
		"is_public":   row.IsPublic,
	}
}

// Evaluate returns the ids of rules that row satisfies, in rule order. A
// rule that fails at runtime is logged and treated as unmatched.
func (e *CELEngine) Evaluate(ctx context.Context, row graph.NodeRow) ([]string, error) {
	vars := Activation(row)
	var matches []string
	for _, c := range e.rules {
		if err := ctx.Err(); err != nil {
			return matches, err
		}
		out, _, err := c.prg.ContextEval(ctx, vars)
		if err != nil {
			e.logger.Warn("Rule evaluation failed", "rule_id", c.rule.ID, "node", row.ID, "error", err)
			continue
		}
		if match, ok := out.Value().(bool); ok && match {
			matches = append(matches, c.rule.ID)
		}
	}
	return matches, nil
}

// Match is one (rule, node) hit.
type Match struct {
	RuleID string
	Node   graph.NodeRow
}

// Scan evaluates every rule against every row.
func (e *CELEngine) Scan(ctx context.Context, rows []graph.NodeRow) ([]Match, error) {
	var out []Match
	for _, row := range rows {
		ids, err := e.Evaluate(ctx, row)
		if err != nil {
			return out, err
		}
		for _, id := range ids {
			out = append(out, Match{RuleID: id, Node: row})
		}
	}
	return out, nil
}
