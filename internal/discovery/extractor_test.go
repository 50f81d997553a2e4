package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testsearch/internal/parser"
)

func class(name string, body ...*parser.Node) *parser.Node {
	return &parser.Node{Kind: parser.KindClass, Name: name, Children: []*parser.Node{
		{Kind: parser.KindBlock, Children: body},
	}}
}

func function(name string, body ...*parser.Node) *parser.Node {
	return &parser.Node{Kind: parser.KindFunction, Name: name, Children: []*parser.Node{
		{Kind: parser.KindBlock, Children: body},
	}}
}

func decorated(def *parser.Node) *parser.Node {
	return &parser.Node{Kind: parser.KindDecorated, Children: []*parser.Node{def}}
}

func module(children ...*parser.Node) *parser.Node {
	return &parser.Node{Kind: parser.KindModule, Children: children}
}

func rendered(t *testing.T, root *parser.Node) []string {
	t.Helper()
	cases := NewExtractor("Test", "test_").Extract("/repo/test_a.py", root)
	out := make([]string, 0, len(cases))
	for _, tc := range cases {
		out = append(out, tc.Identifier().String())
	}
	return out
}

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name     string
		root     *parser.Node
		expected []string
	}{
		{
			name:     "module level functions",
			root:     module(function("test_one"), function("helper"), function("test_two")),
			expected: []string{"/repo/test_a.py::test_one", "/repo/test_a.py::test_two"},
		},
		{
			name:     "decorators do not block recognition",
			root:     module(decorated(decorated(function("test_wrapped"))), decorated(class("TestD", decorated(function("test_m"))))),
			expected: []string{"/repo/test_a.py::test_wrapped", "/repo/test_a.py::TestD::test_m"},
		},
		{
			name:     "nested classes accumulate class path",
			root:     module(class("TestA", class("TestB", function("test_x")), function("test_y"))),
			expected: []string{"/repo/test_a.py::TestA::TestB::test_x", "/repo/test_a.py::TestA::test_y"},
		},
		{
			name:     "non matching class hides its contents",
			root:     module(class("Helper", function("test_hidden"), class("TestInner", function("test_inner")))),
			expected: []string{},
		},
		{
			name:     "nested functions are not emitted",
			root:     module(function("test_outer", function("test_inner"))),
			expected: []string{"/repo/test_a.py::test_outer"},
		},
		{
			name: "compound statements are traversed",
			root: module(&parser.Node{Kind: parser.KindOther, Children: []*parser.Node{
				{Kind: parser.KindBlock, Children: []*parser.Node{function("test_conditional")}},
			}}),
			expected: []string{"/repo/test_a.py::test_conditional"},
		},
		{
			name:     "redefinitions are emitted once",
			root:     module(function("test_same"), function("test_same")),
			expected: []string{"/repo/test_a.py::test_same"},
		},
		{
			name:     "unknown kinds still visit children",
			root:     module(&parser.Node{Kind: parser.Kind(42), Children: []*parser.Node{function("test_deep")}}),
			expected: []string{"/repo/test_a.py::test_deep"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rendered(t, tt.root))
		})
	}
}

func TestExtractor_ClassPathIsSnapshot(t *testing.T) {
	root := module(class("TestA", class("TestB", function("test_x")), class("TestC", function("test_y"))))
	cases := NewExtractor("Test", "test_").Extract("/repo/test_a.py", root)

	require.Len(t, cases, 2)
	assert.Equal(t, []string{"TestA", "TestB"}, cases[0].ClassPath)
	assert.Equal(t, []string{"TestA", "TestC"}, cases[1].ClassPath)
}

func TestExtractor_NilRoot(t *testing.T) {
	assert.Empty(t, NewExtractor("Test", "test_").Extract("/repo/test_a.py", nil))
}

func TestExtractor_PythonSource(t *testing.T) {
	src := `import pytest

@pytest.mark.parametrize("x", [1, 2])
@pytest.mark.slow
def test_param(x):
    assert x


class TestA:
    class TestB:
        def test_x(self):
            pass

    @staticmethod
    def test_static():
        pass

    def helper(self):
        def test_not_collected():
            pass


class Base:
    def test_base(self):
        pass
`
	root, err := parser.NewPythonParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/repo/test_a.py::test_param",
		"/repo/test_a.py::TestA::TestB::test_x",
		"/repo/test_a.py::TestA::test_static",
	}, rendered(t, root))
}
