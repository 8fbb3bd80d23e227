// Package findusages locates usages of schema declarations and groups them
// for display.
package findusages

import (
	"fmt"

	"github.com/phobologic/sdguide/internal/sd"
	"github.com/phobologic/sdguide/internal/syntax"
)

// Location pins a usage to a line of a file.
type Location struct {
	File     string
	Line     int
	Column   int
	Language string
	// Text is the trimmed source line.
	Text string
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Usage is a located occurrence of a searched name.
type Usage interface {
	Location() Location
}

// ElementUsage is a usage anchored in a syntax tree.
type ElementUsage interface {
	Usage
	Element() syntax.Element
}

// Target is what a search looks for.
type Target struct {
	Name string
	Type sd.DeclarationType
}

func (t Target) String() string {
	if t.Type.Valid() {
		return fmt.Sprintf("%s %s", t.Type, t.Name)
	}
	return t.Name
}

// NodeUsage is a usage found in a parsed file.
type NodeUsage struct {
	loc     Location
	element syntax.Element
}

// NewNodeUsage anchors a usage at node id of tree. text is the source line.
func NewNodeUsage(tree *syntax.Tree, id syntax.NodeID, text string) *NodeUsage {
	e := tree.Element(id)
	span := e.Span()
	return &NodeUsage{
		loc: Location{
			File:     tree.Path,
			Line:     span.Start.Line,
			Column:   span.Start.Column,
			Language: tree.Language,
			Text:     text,
		},
		element: e,
	}
}

func (u *NodeUsage) Location() Location { return u.loc }

func (u *NodeUsage) Element() syntax.Element { return u.element }

// TextUsage is a usage found by scanning a file that has no parser.
type TextUsage struct {
	Loc Location
}

func (u *TextUsage) Location() Location { return u.Loc }
