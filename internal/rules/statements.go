package rules

import (
	"advisor/internal/parser"
)

// PrintStatementRule flags direct console output where a logging facility
// is expected.
type PrintStatementRule struct{}

func (r *PrintStatementRule) ID() string { return "print_statement" }

func (r *PrintStatementRule) Evaluate(tree *parser.Tree) []Suggestion {
	var suggestions []Suggestion

	for _, call := range parser.FindNodes(tree.Root, []string{"call"}) {
		fn := call.ChildByFieldName("function")
		if fn == nil || fn.Type() != "identifier" || tree.Text(fn) != "print" {
			continue
		}

		line, column := parser.Position(call)
		suggestions = append(suggestions, Suggestion{
			RuleID:   r.ID(),
			Message:  "use logging instead of print for production output",
			Severity: SeverityInfo,
			Line:     intPtr(line),
			Column:   intPtr(column),
			Metadata: emptyMetadata(),
		})
	}

	return suggestions
}
