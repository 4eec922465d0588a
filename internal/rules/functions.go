package rules

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"advisor/internal/parser"
)

// decisionNodeTypes are the Python constructs that contribute to cyclomatic
// complexity: each adds one more independent path through a function.
var decisionNodeTypes = []string{
	"if_statement",
	"elif_clause",
	"for_statement",
	"while_statement",
	"except_clause",
	"with_statement",
	"boolean_operator",
	"conditional_expression",
	"list_comprehension",
	"dictionary_comprehension",
	"set_comprehension",
	"generator_expression",
}

// functionName extracts the declared name of a function_definition node.
func functionName(tree *parser.Tree, fn *sitter.Node) string {
	if name := fn.ChildByFieldName("name"); name != nil {
		return tree.Text(name)
	}
	return "<anonymous>"
}

// FunctionLengthRule flags functions whose body spans too many lines.
type FunctionLengthRule struct {
	MaxLines int
}

func (r *FunctionLengthRule) ID() string { return "long_function" }

func (r *FunctionLengthRule) Evaluate(tree *parser.Tree) []Suggestion {
	var suggestions []Suggestion

	for _, fn := range parser.FindNodes(tree.Root, []string{"function_definition"}) {
		startLine := int(fn.StartPoint().Row) + 1
		endLine := int(fn.EndPoint().Row) + 1
		length := endLine - startLine + 1
		if length <= r.MaxLines {
			continue
		}

		suggestions = append(suggestions, Suggestion{
			RuleID: r.ID(),
			Message: fmt.Sprintf("function %q spans %d lines (max recommended: %d)",
				functionName(tree, fn), length, r.MaxLines),
			Severity: SeverityWarning,
			Line:     intPtr(startLine),
			Metadata: map[string]interface{}{"length": length},
		})
	}
	return suggestions
}

// ComplexityRule flags functions whose cyclomatic complexity exceeds the
// configured maximum.
type ComplexityRule struct {
	MaxComplexity int
}

func (r *ComplexityRule) ID() string { return "high_cyclomatic_complexity" }

func (r *ComplexityRule) Evaluate(tree *parser.Tree) []Suggestion {
	var suggestions []Suggestion

	for _, fn := range parser.FindNodes(tree.Root, []string{"function_definition"}) {
		complexity := cyclomaticComplexity(fn)
		if complexity <= r.MaxComplexity {
			continue
		}

		line, _ := parser.Position(fn)
		suggestions = append(suggestions, Suggestion{
			RuleID: r.ID(),
			Message: fmt.Sprintf("function %q has cyclomatic complexity %d (max recommended: %d)",
				functionName(tree, fn), complexity, r.MaxComplexity),
			Severity: SeverityWarning,
			Line:     intPtr(line),
			Metadata: map[string]interface{}{"complexity": complexity},
		})
	}
	return suggestions
}

// cyclomaticComplexity counts decision points + 1 within a function body.
func cyclomaticComplexity(fn *sitter.Node) int {
	return 1 + len(parser.FindNodes(fn, decisionNodeTypes))
}
