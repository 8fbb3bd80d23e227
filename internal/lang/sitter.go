package lang

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sdguide/internal/sd"
	"github.com/phobologic/sdguide/internal/syntax"
)

// Grammar node types whose text is kept as the node name.
var namedLeafTypes = map[string]bool{
	"identifier":                 true,
	"field_identifier":           true,
	"type_identifier":            true,
	"package_identifier":         true,
	"string_literal":             true,
	"interpreted_string_literal": true,
	"raw_string_literal":         true,
	"string_fragment":            true,
}

// parseSitter parses with tree-sitter and copies the named nodes into an
// arena. The tree-sitter tree is released before returning.
func parseSitter(ctx context.Context, l *Language, p *sitter.Parser, path string, source []byte) (*syntax.Tree, []sd.Diagnostic, error) {
	if p == nil {
		p = l.NewParser()
		defer p.Close()
	}
	st, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer st.Close()

	return convert(l.Name, path, source, st.RootNode()), nil, nil
}

type frame struct {
	node   *sitter.Node
	parent syntax.NodeID
}

// convert walks the tree-sitter tree iteratively in pre-order so parents are
// always added before their children.
func convert(language, path string, source []byte, root *sitter.Node) *syntax.Tree {
	tree := syntax.NewTree(language, path, source)
	stack := []frame{{node: root, parent: syntax.NoNode}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := f.node
		kind := syntax.Foreign
		if f.parent == syntax.NoNode {
			kind = syntax.File
		}
		id := tree.Add(syntax.Node{
			Kind:   kind,
			Type:   n.Type(),
			Name:   nodeName(n, source),
			Parent: f.parent,
			Span: syntax.Span{
				Start: syntax.Position{
					Line:   int(n.StartPoint().Row) + 1,
					Column: int(n.StartPoint().Column) + 1,
					Offset: int(n.StartByte()),
				},
				End: syntax.Position{
					Line:   int(n.EndPoint().Row) + 1,
					Column: int(n.EndPoint().Column) + 1,
					Offset: int(n.EndByte()),
				},
			},
		})

		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: n.NamedChild(i), parent: id})
		}
	}
	return tree
}

func nodeName(n *sitter.Node, source []byte) string {
	if namedLeafTypes[n.Type()] {
		return unquote(NodeText(n, source))
	}
	if name := n.ChildByFieldName("name"); name != nil {
		return NodeText(name, source)
	}
	return ""
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '`' || first == '\'') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
