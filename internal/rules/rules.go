// Package rules implements the static-analysis rule engine. A rule is an
// independent evaluator over a parsed syntax tree; the engine runs a fixed,
// ordered list of rules and emits suggestions in a stable, reproducible
// order.
package rules

import (
	"advisor/internal/parser"
)

// Severity classifies how strongly a suggestion should be acted on.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SyntaxErrorID is the reserved rule identifier for the single suggestion
// synthesized when a snippet fails to parse.
const SyntaxErrorID = "syntax_error"

// Suggestion is one improvement suggestion. Line is 1-based and Column
// 0-based; both are nil when no position applies. Immutable once produced.
type Suggestion struct {
	RuleID   string                 `json:"rule_id"`
	Message  string                 `json:"message"`
	Severity Severity               `json:"severity"`
	Line     *int                   `json:"line"`
	Column   *int                   `json:"column"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Rule inspects the parsed tree for one category of issue. Evaluate must
// not mutate the tree and must not retain it past the call.
type Rule interface {
	// ID is the stable identifier reported in health checks. Individual
	// suggestions may carry more specific rule ids (the naming rule emits
	// function_naming and variable_naming).
	ID() string

	Evaluate(tree *parser.Tree) []Suggestion
}

func intPtr(v int) *int {
	return &v
}

func emptyMetadata() map[string]interface{} {
	return map[string]interface{}{}
}
