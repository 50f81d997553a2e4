package parser

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSyntax is returned when the source contains syntax errors
var ErrSyntax = errors.New("source contains syntax errors")

// compound lists the tree-sitter node types that may hold nested definitions.
// Simple statements never contain a def or class and are dropped from the tree.
var compound = map[string]bool{
	"if_statement":        true,
	"elif_clause":         true,
	"else_clause":         true,
	"try_statement":       true,
	"except_clause":       true,
	"except_group_clause": true,
	"finally_clause":      true,
	"with_statement":      true,
	"for_statement":       true,
	"while_statement":     true,
	"match_statement":     true,
	"case_clause":         true,
}

// PythonParser parses Python source with tree-sitter
type PythonParser struct{}

// NewPythonParser creates a new PythonParser
func NewPythonParser() *PythonParser {
	return &PythonParser{}
}

// Parse parses src and converts the tree-sitter tree into a Node tree.
// A new tree-sitter parser is created per call since they are not safe for concurrent use.
func (p *PythonParser) Parse(ctx context.Context, src []byte) (*Node, error) {
	tsParser := sitter.NewParser()
	defer tsParser.Close()
	tsParser.SetLanguage(python.GetLanguage())

	tree, err := tsParser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w (line %d)", ErrSyntax, firstErrorLine(root))
	}

	return convert(root, src), nil
}

func convert(n *sitter.Node, src []byte) *Node {
	node := &Node{
		Kind: kindOf(n.Type()),
		Line: int(n.StartPoint().Row) + 1,
	}
	if node.Kind == KindClass || node.Kind == KindFunction {
		if name := n.ChildByFieldName("name"); name != nil {
			node.Name = name.Content(src)
		}
	}

	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		if kindOf(child.Type()) == KindOther && !compound[child.Type()] {
			continue
		}
		node.Children = append(node.Children, convert(child, src))
	}
	return node
}

func kindOf(nodeType string) Kind {
	switch nodeType {
	case "module":
		return KindModule
	case "class_definition":
		return KindClass
	case "function_definition":
		return KindFunction
	case "decorated_definition":
		return KindDecorated
	case "block":
		return KindBlock
	default:
		return KindOther
	}
}

func firstErrorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child != nil && child.HasError() {
			return firstErrorLine(child)
		}
	}
	return int(n.StartPoint().Row) + 1
}
