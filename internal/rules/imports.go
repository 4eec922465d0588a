package rules

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"advisor/internal/parser"
)

var importStatementTypes = []string{"import_statement", "import_from_statement"}

// UnusedImportRule flags imports whose bound name is never referenced.
type UnusedImportRule struct{}

func (r *UnusedImportRule) ID() string { return "unused_import" }

type importBinding struct {
	display string // full dotted path as written
	bound   string // name the import binds in the module scope
	line    int
}

func (r *UnusedImportRule) Evaluate(tree *parser.Tree) []Suggestion {
	bindings := collectImports(tree)
	if len(bindings) == 0 {
		return nil
	}

	used := collectReferencedNames(tree)

	var suggestions []Suggestion
	for _, b := range bindings {
		if used[b.bound] {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			RuleID:   r.ID(),
			Message:  fmt.Sprintf("import %q is never used", b.display),
			Severity: SeverityWarning,
			Line:     intPtr(b.line),
			Metadata: map[string]interface{}{"symbol": b.display},
		})
	}
	return suggestions
}

// collectImports gathers every name bound by an import, in document order.
func collectImports(tree *parser.Tree) []importBinding {
	var bindings []importBinding

	for _, stmt := range parser.FindNodes(tree.Root, importStatementTypes) {
		line, _ := parser.Position(stmt)

		switch stmt.Type() {
		case "import_statement":
			// import a.b, import a.b as c
			for i := 0; i < int(stmt.NamedChildCount()); i++ {
				child := stmt.NamedChild(i)
				switch child.Type() {
				case "dotted_name":
					full := tree.Text(child)
					bindings = append(bindings, importBinding{
						display: full,
						bound:   firstSegment(full),
						line:    line,
					})
				case "aliased_import":
					name := child.ChildByFieldName("name")
					alias := child.ChildByFieldName("alias")
					if name == nil || alias == nil {
						continue
					}
					bindings = append(bindings, importBinding{
						display: tree.Text(name) + " as " + tree.Text(alias),
						bound:   tree.Text(alias),
						line:    line,
					})
				}
			}

		case "import_from_statement":
			// from m import a, from m import a as b; wildcard imports bind
			// everything and cannot be tracked
			module := stmt.ChildByFieldName("module_name")
			modulePath := ""
			if module != nil {
				modulePath = tree.Text(module)
			}

			for i := 0; i < int(stmt.NamedChildCount()); i++ {
				child := stmt.NamedChild(i)
				if module != nil && child.StartByte() == module.StartByte() && child.EndByte() == module.EndByte() {
					continue
				}
				switch child.Type() {
				case "dotted_name":
					name := tree.Text(child)
					bindings = append(bindings, importBinding{
						display: joinModule(modulePath, name),
						bound:   firstSegment(name),
						line:    line,
					})
				case "aliased_import":
					name := child.ChildByFieldName("name")
					alias := child.ChildByFieldName("alias")
					if name == nil || alias == nil {
						continue
					}
					bindings = append(bindings, importBinding{
						display: joinModule(modulePath, tree.Text(name)) + " as " + tree.Text(alias),
						bound:   tree.Text(alias),
						line:    line,
					})
				}
			}
		}
	}

	return bindings
}

// collectReferencedNames returns every identifier referenced outside import
// statements.
func collectReferencedNames(tree *parser.Tree) map[string]bool {
	used := make(map[string]bool)

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Type() {
		case "import_statement", "import_from_statement":
			return
		case "identifier":
			used[tree.Text(node)] = true
		}
		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)))
		}
	}
	walk(tree.Root)

	return used
}

func firstSegment(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}

func joinModule(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}
