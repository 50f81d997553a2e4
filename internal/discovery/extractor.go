package discovery

import (
	"strings"

	"testsearch/internal/domain"
	"testsearch/internal/parser"
)

// Extractor walks a syntax tree and collects test cases
type Extractor struct {
	classPrefix    string
	functionPrefix string
}

// NewExtractor creates a new Extractor matching the given class and function prefixes
func NewExtractor(classPrefix, functionPrefix string) *Extractor {
	return &Extractor{
		classPrefix:    classPrefix,
		functionPrefix: functionPrefix,
	}
}

// scope is the visitor state for one level of nesting
type scope struct {
	classPath []string
	// addressable is false below a function or below a class that does not
	// match the class prefix: tests there cannot be named by the runner.
	addressable bool
}

type visitor struct {
	extractor *Extractor
	path      string
	seen      map[string]bool
	cases     []domain.TestCase
}

// Extract returns the test cases defined in the tree, in source order.
// Every node is visited; filtering happens only when a case is emitted.
func (e *Extractor) Extract(path string, root *parser.Node) []domain.TestCase {
	if root == nil {
		return nil
	}
	v := &visitor{
		extractor: e,
		path:      path,
		seen:      make(map[string]bool),
	}
	v.visit(root, scope{addressable: true})
	return v.cases
}

func (v *visitor) visit(n *parser.Node, s scope) {
	switch n.Kind {
	case parser.KindModule, parser.KindBlock, parser.KindDecorated, parser.KindOther:
		v.visitChildren(n, s)
	case parser.KindClass:
		inner := scope{addressable: false}
		if s.addressable && strings.HasPrefix(n.Name, v.extractor.classPrefix) {
			inner.classPath = append(s.classPath[:len(s.classPath):len(s.classPath)], n.Name)
			inner.addressable = true
		}
		v.visitChildren(n, inner)
	case parser.KindFunction:
		if s.addressable && strings.HasPrefix(n.Name, v.extractor.functionPrefix) {
			v.emit(n.Name, s.classPath)
		}
		v.visitChildren(n, scope{addressable: false})
	default:
		v.visitChildren(n, s)
	}
}

func (v *visitor) visitChildren(n *parser.Node, s scope) {
	for _, child := range n.Children {
		if child != nil {
			v.visit(child, s)
		}
	}
}

func (v *visitor) emit(name string, classPath []string) {
	tc := domain.TestCase{
		FilePath:  v.path,
		ClassPath: append([]string(nil), classPath...),
		Name:      name,
	}
	key := tc.Identifier().Key()
	if v.seen[key] {
		return
	}
	v.seen[key] = true
	v.cases = append(v.cases, tc)
}
