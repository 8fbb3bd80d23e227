package syntax

// Element is a read-only handle on one node of a tree.
type Element struct {
	tree *Tree
	id   NodeID
}

// Valid reports whether the element points at an existing node.
func (e Element) Valid() bool {
	return e.tree != nil && e.tree.valid(e.id)
}

// Tree returns the owning tree.
func (e Element) Tree() *Tree { return e.tree }

// ID returns the node index.
func (e Element) ID() NodeID { return e.id }

// Language returns the language of the owning tree.
func (e Element) Language() string {
	if e.tree == nil {
		return ""
	}
	return e.tree.Language
}

// Kind returns the node's variant tag.
func (e Element) Kind() Kind {
	n, _ := e.node()
	return n.Kind
}

// Name returns the node's name, if any.
func (e Element) Name() string {
	n, _ := e.node()
	return n.Name
}

// Span returns the node's source range.
func (e Element) Span() Span {
	n, _ := e.node()
	return n.Span
}

// Parent returns the enclosing element; ok is false at the root.
func (e Element) Parent() (Element, bool) {
	if !e.Valid() {
		return Element{}, false
	}
	p := e.tree.nodes[e.id].Parent
	if p == NoNode {
		return Element{}, false
	}
	return Element{tree: e.tree, id: p}, true
}

// Same reports whether both elements refer to the same node of the same tree.
func (e Element) Same(o Element) bool {
	return e.tree == o.tree && e.id == o.id
}

func (e Element) node() (Node, bool) {
	if e.tree == nil {
		return Node{}, false
	}
	return e.tree.Node(e.id)
}
