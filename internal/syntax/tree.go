// Package syntax holds parsed source as an arena of nodes linked by parent index.
package syntax

// NodeID indexes a node inside its Tree.
type NodeID int

// NoNode is the parent of the root and the result of failed lookups.
const NoNode NodeID = -1

// Kind tags the variant of a node. Foreign grammars use Foreign and keep the
// grammar's own node type in Node.Type.
type Kind uint8

const (
	File Kind = iota
	Schema
	Document
	Struct
	Field
	StructField
	ImportedField
	DocumentSummary
	Summary
	RankProfile
	Function
	Argument
	Block
	Property
	Expression
	Reference
	Foreign
)

var kindNames = [...]string{
	File:            "file",
	Schema:          "schema",
	Document:        "document",
	Struct:          "struct",
	Field:           "field",
	StructField:     "struct-field",
	ImportedField:   "imported-field",
	DocumentSummary: "document-summary",
	Summary:         "summary",
	RankProfile:     "rank-profile",
	Function:        "function",
	Argument:        "argument",
	Block:           "block",
	Property:        "property",
	Expression:      "expression",
	Reference:       "reference",
	Foreign:         "foreign",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Position is a 1-based line/column plus a 0-based byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Span covers [Start, End) of the source.
type Span struct {
	Start Position
	End   Position
}

// Contains reports whether p lies within the span.
func (s Span) Contains(p Position) bool {
	if p.Line < s.Start.Line || p.Line > s.End.Line {
		return false
	}
	if p.Line == s.Start.Line && p.Column < s.Start.Column {
		return false
	}
	if p.Line == s.End.Line && p.Column >= s.End.Column {
		return false
	}
	return true
}

// Node is a single construct. Type carries the grammar node type for foreign
// trees and a sub-type (e.g. "query", "call") for references.
type Node struct {
	Kind   Kind
	Type   string
	Name   string
	Parent NodeID
	Span   Span
}

// Tree is the arena. The first node added is the root.
type Tree struct {
	Language string
	Path     string
	Source   []byte

	nodes []Node
}

// NewTree returns an empty tree for a file.
func NewTree(language, path string, source []byte) *Tree {
	return &Tree{Language: language, Path: path, Source: source}
}

// Add appends a node and returns its ID. parent must already exist or be NoNode.
func (t *Tree) Add(n Node) NodeID {
	if n.Parent != NoNode && !t.valid(n.Parent) {
		panic("syntax: parent does not exist")
	}
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// SetEnd updates the end of a node's span once its extent is known.
func (t *Tree) SetEnd(id NodeID, end Position) {
	if t.valid(id) {
		t.nodes[id].Span.End = end
	}
}

// SetType records the node's type once it has been read.
func (t *Tree) SetType(id NodeID, typ string) {
	if t.valid(id) {
		t.nodes[id].Type = typ
	}
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Root returns the root ID, or NoNode for an empty tree.
func (t *Tree) Root() NodeID {
	if len(t.nodes) == 0 {
		return NoNode
	}
	return 0
}

// Node returns the node for id. The second result is false for unknown IDs.
func (t *Tree) Node(id NodeID) (Node, bool) {
	if !t.valid(id) {
		return Node{}, false
	}
	return t.nodes[id], true
}

// Parent returns the parent of id, or NoNode.
func (t *Tree) Parent(id NodeID) NodeID {
	if !t.valid(id) {
		return NoNode
	}
	return t.nodes[id].Parent
}

// Children returns the direct children of id in source order.
func (t *Tree) Children(id NodeID) []NodeID {
	var out []NodeID
	for i := int(id) + 1; i < len(t.nodes); i++ {
		if t.nodes[i].Parent == id {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// Ancestors returns the chain of enclosing nodes from nearest to root,
// excluding id itself.
func (t *Tree) Ancestors(id NodeID) []NodeID {
	var out []NodeID
	for p := t.Parent(id); p != NoNode; p = t.Parent(p) {
		out = append(out, p)
	}
	return out
}

// Enclosing returns the nearest node of the given kind starting at id itself
// and moving outward, or NoNode.
func (t *Tree) Enclosing(id NodeID, kind Kind) NodeID {
	for cur := id; t.valid(cur); cur = t.nodes[cur].Parent {
		if t.nodes[cur].Kind == kind {
			return cur
		}
	}
	return NoNode
}

// Walk calls fn for every node in insertion (pre-)order. Returning false stops.
func (t *Tree) Walk(fn func(id NodeID, n Node) bool) {
	for i := range t.nodes {
		if !fn(NodeID(i), t.nodes[i]) {
			return
		}
	}
}

// At returns the innermost node whose span contains p.
func (t *Tree) At(p Position) NodeID {
	best := NoNode
	for i := range t.nodes {
		if t.nodes[i].Span.Contains(p) {
			// Children are always added after their parent, so a later match is deeper.
			best = NodeID(i)
		}
	}
	return best
}

// Element wraps id as a navigable element.
func (t *Tree) Element(id NodeID) Element {
	return Element{tree: t, id: id}
}

// Text returns the source text covered by id.
func (t *Tree) Text(id NodeID) string {
	n, ok := t.Node(id)
	if !ok {
		return ""
	}
	start, end := n.Span.Start.Offset, n.Span.End.Offset
	if start < 0 || end > len(t.Source) || start > end {
		return ""
	}
	return string(t.Source[start:end])
}

func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}
