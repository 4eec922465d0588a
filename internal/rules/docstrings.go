package rules

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"advisor/internal/parser"
)

// DocstringRule flags public functions without a docstring. Names with a
// leading underscore are treated as private and skipped.
type DocstringRule struct{}

func (r *DocstringRule) ID() string { return "missing_docstring" }

func (r *DocstringRule) Evaluate(tree *parser.Tree) []Suggestion {
	var suggestions []Suggestion

	for _, fn := range parser.FindNodes(tree.Root, []string{"function_definition"}) {
		nameNode := fn.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := tree.Text(nameNode)
		if strings.HasPrefix(name, "_") {
			continue
		}
		if hasDocstring(fn) {
			continue
		}

		line, _ := parser.Position(fn)
		suggestions = append(suggestions, Suggestion{
			RuleID:   r.ID(),
			Message:  fmt.Sprintf("function %q is missing a docstring", name),
			Severity: SeverityInfo,
			Line:     intPtr(line),
			Metadata: emptyMetadata(),
		})
	}

	return suggestions
}

// hasDocstring reports whether the first statement of the function body is
// a string expression.
func hasDocstring(fn *sitter.Node) bool {
	body := fn.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return false
	}

	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return false
	}
	return first.NamedChild(0).Type() == "string"
}
