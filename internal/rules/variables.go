package rules

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"advisor/internal/parser"
)

// UnusedVariableRule flags names that are assigned but never read.
type UnusedVariableRule struct{}

func (r *UnusedVariableRule) ID() string { return "unused_variable" }

func (r *UnusedVariableRule) Evaluate(tree *parser.Tree) []Suggestion {
	stores := collectStoreTargets(tree)
	if len(stores) == 0 {
		return nil
	}

	// Node wrappers are re-created per traversal, so store positions are
	// identified by byte offset rather than pointer identity.
	storeSet := make(map[uint32]bool, len(stores))
	for _, s := range stores {
		storeSet[s.node.StartByte()] = true
	}

	// Any identifier occurrence outside a store position counts as a read.
	read := make(map[string]bool)
	for _, ident := range parser.FindNodes(tree.Root, []string{"identifier"}) {
		if !storeSet[ident.StartByte()] {
			read[tree.Text(ident)] = true
		}
	}

	var suggestions []Suggestion
	reported := make(map[string]bool)
	for _, s := range stores {
		name := tree.Text(s.node)
		if read[name] || reported[name] {
			continue
		}
		reported[name] = true

		line, _ := parser.Position(s.node)
		suggestions = append(suggestions, Suggestion{
			RuleID:   r.ID(),
			Message:  fmt.Sprintf("variable %q is assigned but never used", name),
			Severity: SeverityInfo,
			Line:     intPtr(line),
			Metadata: map[string]interface{}{"symbol": name},
		})
	}
	return suggestions
}

type storeTarget struct {
	node *sitter.Node
}

// collectStoreTargets gathers identifiers in store position: plain and
// tuple assignment targets plus for-loop variables. Underscore-prefixed
// names are conventionally intentional and skipped.
func collectStoreTargets(tree *parser.Tree) []storeTarget {
	var stores []storeTarget

	addTargets := func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Type() {
		case "identifier":
			if !strings.HasPrefix(tree.Text(node), "_") {
				stores = append(stores, storeTarget{node: node})
			}
		case "pattern_list", "tuple_pattern", "list_pattern":
			for i := 0; i < int(node.NamedChildCount()); i++ {
				child := node.NamedChild(i)
				if child.Type() == "identifier" && !strings.HasPrefix(tree.Text(child), "_") {
					stores = append(stores, storeTarget{node: child})
				}
			}
		}
	}

	for _, assign := range parser.FindNodes(tree.Root, []string{"assignment"}) {
		addTargets(assign.ChildByFieldName("left"))
	}
	for _, loop := range parser.FindNodes(tree.Root, []string{"for_statement"}) {
		addTargets(loop.ChildByFieldName("left"))
	}

	return stores
}
