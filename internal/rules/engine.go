package rules

import (
	"fmt"
	"sort"

	"advisor/internal/config"
	"advisor/internal/logging"
	"advisor/internal/parser"
)

// Engine evaluates an ordered list of rules against a syntax tree. Rules
// are registered at construction time; iteration order is the registration
// order, which fixes the emission order of suggestions.
type Engine struct {
	rules  []Rule
	logger *logging.Logger
}

// NewEngine creates an engine over the given ordered rule list.
func NewEngine(rules []Rule, logger *logging.Logger) *Engine {
	return &Engine{rules: rules, logger: logger}
}

// Canonical returns the canonical rule set in its registration order.
func Canonical(cfg config.RulesConfig) []Rule {
	return []Rule{
		&UnusedImportRule{},
		&UnusedVariableRule{},
		&FunctionLengthRule{MaxLines: cfg.MaxFunctionLines},
		&ComplexityRule{MaxComplexity: cfg.MaxCyclomaticComplexity},
		&NamingRule{},
		&DocstringRule{},
		&PrintStatementRule{},
	}
}

// RuleIDs returns the identifiers of the registered rules, in order.
// Surfaced by health reporting as the rule inventory.
func (e *Engine) RuleIDs() []string {
	ids := make([]string, len(e.rules))
	for i, r := range e.rules {
		ids[i] = r.ID()
	}
	return ids
}

// Evaluate runs every registered rule against the tree. Suggestions are
// emitted in rule-registration order first, then by ascending line, then by
// ascending column, with positionless suggestions last. A faulting rule is
// isolated: its contribution is dropped and the remaining rules still run.
func (e *Engine) Evaluate(tree *parser.Tree) []Suggestion {
	suggestions := make([]Suggestion, 0)

	for _, rule := range e.rules {
		batch, err := e.evaluateRule(rule, tree)
		if err != nil {
			e.logger.Warn("Rule evaluation fault isolated", map[string]interface{}{
				"rule":  rule.ID(),
				"error": err.Error(),
			})
			continue
		}

		sortByPosition(batch)
		suggestions = append(suggestions, batch...)
	}

	return suggestions
}

// evaluateRule runs one rule, converting panics into errors so a malformed
// rule cannot abort the whole analysis.
func (e *Engine) evaluateRule(rule Rule, tree *parser.Tree) (batch []Suggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			batch = nil
			err = fmt.Errorf("rule %s panicked: %v", rule.ID(), r)
		}
	}()

	return rule.Evaluate(tree), nil
}

// sortByPosition orders one rule's suggestions by line then column,
// positionless entries last. The sort is stable so equal positions keep
// their emission order.
func sortByPosition(batch []Suggestion) {
	sort.SliceStable(batch, func(i, j int) bool {
		a, b := batch[i], batch[j]

		if (a.Line == nil) != (b.Line == nil) {
			return b.Line == nil
		}
		if a.Line != nil && *a.Line != *b.Line {
			return *a.Line < *b.Line
		}

		if (a.Column == nil) != (b.Column == nil) {
			return b.Column == nil
		}
		if a.Column != nil && *a.Column != *b.Column {
			return *a.Column < *b.Column
		}

		return false
	})
}
