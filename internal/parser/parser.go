// Package parser turns raw Python source text into a syntax tree or a
// structured parse failure. Malformed input is a normal outcome here, not a
// fault: tree-sitter always produces a tree and marks unparseable regions
// with ERROR/MISSING nodes, which the adapter converts into a ParseFailure.
package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

const maxFailureSnippet = 40

// Tree is a parsed syntax tree together with the source it was parsed from.
// It is scoped to one analysis call and consumed read-only by every rule.
type Tree struct {
	Root   *sitter.Node
	Source []byte
}

// Text returns the source text covered by a node.
func (t *Tree) Text(n *sitter.Node) string {
	return string(t.Source[n.StartByte():n.EndByte()])
}

// ParseFailure describes why a snippet could not be parsed. Line is 1-based
// and Column 0-based; both are nil when the position could not be derived.
type ParseFailure struct {
	Message string
	Line    *int
	Column  *int
}

// Adapter parses Python source. It holds no state: a fresh tree-sitter
// parser is constructed per call, so Parse is safe from any goroutine.
type Adapter struct{}

// NewAdapter creates a new parser adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Parse parses source and returns the syntax tree, or a ParseFailure for
// malformed input. The error return is reserved for infrastructure faults
// (context cancellation); it is never used for bad syntax.
func (a *Adapter) Parse(ctx context.Context, source []byte) (*Tree, *ParseFailure, error) {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, nil, fmt.Errorf("parse error: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		return nil, failureFrom(root, source), nil
	}

	return &Tree{Root: root, Source: source}, nil, nil
}

// failureFrom locates the first ERROR or MISSING node and builds a
// human-readable failure from it.
func failureFrom(root *sitter.Node, source []byte) *ParseFailure {
	bad := firstErrorNode(root)
	if bad == nil {
		// HasError was set but no error node surfaced; report the whole
		// snippet as unparseable.
		return &ParseFailure{Message: "invalid syntax"}
	}

	line := int(bad.StartPoint().Row) + 1
	column := int(bad.StartPoint().Column)

	var message string
	if bad.IsMissing() {
		message = fmt.Sprintf("invalid syntax: missing %q", bad.Type())
	} else {
		snippet := strings.TrimSpace(string(source[bad.StartByte():bad.EndByte()]))
		if len(snippet) > maxFailureSnippet {
			snippet = snippet[:maxFailureSnippet] + "..."
		}
		if snippet == "" {
			message = "invalid syntax"
		} else {
			message = fmt.Sprintf("invalid syntax near %q", snippet)
		}
	}

	return &ParseFailure{
		Message: message,
		Line:    &line,
		Column:  &column,
	}
}

// firstErrorNode walks the tree depth-first for the first ERROR or MISSING
// node, which gives the earliest position tree-sitter could not recover at.
func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}

	for i := uint32(0); i < node.ChildCount(); i++ {
		if found := firstErrorNode(node.Child(int(i))); found != nil {
			return found
		}
	}
	return nil
}

// FindNodes finds all nodes of the given types under root, in document
// order.
func FindNodes(root *sitter.Node, types []string) []*sitter.Node {
	var result []*sitter.Node

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}

		for _, t := range types {
			if node.Type() == t {
				result = append(result, node)
				break
			}
		}

		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)))
		}
	}

	walk(root)
	return result
}

// Position returns a node's 1-based start line and 0-based start column.
func Position(n *sitter.Node) (line, column int) {
	return int(n.StartPoint().Row) + 1, int(n.StartPoint().Column)
}
