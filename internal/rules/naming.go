package rules

import (
	"fmt"
	"regexp"
	"strings"

	"advisor/internal/parser"
)

var snakeCasePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// NamingRule flags function and variable names that do not follow the
// snake_case convention (PEP 8). It emits two suggestion ids:
// function_naming and variable_naming.
type NamingRule struct{}

func (r *NamingRule) ID() string { return "naming_convention" }

func (r *NamingRule) Evaluate(tree *parser.Tree) []Suggestion {
	var suggestions []Suggestion

	for _, fn := range parser.FindNodes(tree.Root, []string{"function_definition"}) {
		nameNode := fn.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := tree.Text(nameNode)
		if snakeCasePattern.MatchString(name) {
			continue
		}

		line, _ := parser.Position(fn)
		suggestions = append(suggestions, Suggestion{
			RuleID:   "function_naming",
			Message:  fmt.Sprintf("function %q should use snake_case naming", name),
			Severity: SeverityInfo,
			Line:     intPtr(line),
			Metadata: map[string]interface{}{"name": name},
		})
	}

	for _, assign := range parser.FindNodes(tree.Root, []string{"assignment"}) {
		left := assign.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			continue
		}
		name := tree.Text(left)
		if strings.HasPrefix(name, "_") || snakeCasePattern.MatchString(name) {
			continue
		}

		line, _ := parser.Position(left)
		suggestions = append(suggestions, Suggestion{
			RuleID:   "variable_naming",
			Message:  fmt.Sprintf("variable %q should use snake_case naming", name),
			Severity: SeverityInfo,
			Line:     intPtr(line),
			Metadata: map[string]interface{}{"name": name},
		})
	}

	return suggestions
}
