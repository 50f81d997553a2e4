package parser

import "context"

// SourceParser turns source text into a syntax tree
type SourceParser interface {
	Parse(ctx context.Context, src []byte) (*Node, error)
}

// Kind is the closed set of syntax node kinds the extractor understands
type Kind uint8

const (
	// KindOther is any node without special meaning; its children are still visited
	KindOther Kind = iota
	// KindModule is the root of a file
	KindModule
	// KindClass is a class declaration
	KindClass
	// KindFunction is a function or method declaration, async included
	KindFunction
	// KindDecorated wraps a class or function together with its decorators
	KindDecorated
	// KindBlock is the body of a class or function
	KindBlock
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	case KindDecorated:
		return "decorated"
	case KindBlock:
		return "block"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Node is a language-neutral syntax tree node
type Node struct {
	Kind     Kind
	Name     string // Declared name for classes and functions
	Line     int    // 1-based start line
	Children []*Node
}
