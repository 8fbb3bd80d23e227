package findusages

import (
	"github.com/phobologic/sdguide/internal/sd"
	"github.com/phobologic/sdguide/internal/syntax"
)

// UsageGroup clusters usages under one declaration (or one file) in a
// results view. It has no identity beyond what it wraps.
type UsageGroup struct {
	Name string
	Type sd.DeclarationType
	File string
	Line int

	element syntax.Element
}

func newDeclarationGroup(e syntax.Element, typ sd.DeclarationType) *UsageGroup {
	return &UsageGroup{
		Name:    e.Name(),
		Type:    typ,
		File:    e.Tree().Path,
		Line:    e.Span().Start.Line,
		element: e,
	}
}

// Element returns the wrapped declaration. It is invalid for file groups.
func (g *UsageGroup) Element() syntax.Element { return g.element }

// Equal reports whether both groups wrap the same declaration or file.
func (g *UsageGroup) Equal(o *UsageGroup) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.key() == o.key()
}

// Label is the display text for the group header.
func (g *UsageGroup) Label() string {
	if g.Type.Valid() {
		return g.Type.String() + " " + g.Name
	}
	return g.Name
}

type groupKey struct {
	tree *syntax.Tree
	id   syntax.NodeID
	file string
}

func (g *UsageGroup) key() groupKey {
	if g.element.Valid() {
		return groupKey{tree: g.element.Tree(), id: g.element.ID()}
	}
	return groupKey{id: syntax.NoNode, file: g.File}
}

// GroupingRule assigns a usage to at most one parent group. A nil result
// means the rule does not apply; it is not an error.
type GroupingRule interface {
	ParentGroupFor(u Usage, targets []Target) *UsageGroup
}

// DocumentSummaryGroupingRule groups schema usages under the nearest
// enclosing document-summary. It works on syntax alone and needs no index.
type DocumentSummaryGroupingRule struct{}

func (DocumentSummaryGroupingRule) ParentGroupFor(u Usage, _ []Target) *UsageGroup {
	return enclosingGroup(u, syntax.DocumentSummary, sd.DeclDocumentSummary)
}

// RankProfileGroupingRule groups schema usages under the nearest enclosing
// rank-profile.
type RankProfileGroupingRule struct{}

func (RankProfileGroupingRule) ParentGroupFor(u Usage, _ []Target) *UsageGroup {
	return enclosingGroup(u, syntax.RankProfile, sd.DeclRankProfile)
}

// enclosingGroup walks parent links from the usage's anchor, the anchor
// itself included, and wraps the first node of kind. Parse trees are
// acyclic so the walk always ends at the root.
func enclosingGroup(u Usage, kind syntax.Kind, typ sd.DeclarationType) *UsageGroup {
	eu, ok := u.(ElementUsage)
	if !ok {
		return nil
	}
	e := eu.Element()
	if !e.Valid() || e.Language() != sd.Language {
		return nil
	}
	for cur, ok := e, true; ok; cur, ok = cur.Parent() {
		if cur.Kind() == kind {
			return newDeclarationGroup(cur, typ)
		}
	}
	return nil
}

// FileGroupingRule groups any usage by the file it was found in.
type FileGroupingRule struct{}

func (FileGroupingRule) ParentGroupFor(u Usage, _ []Target) *UsageGroup {
	if u == nil {
		return nil
	}
	loc := u.Location()
	if loc.File == "" {
		return nil
	}
	return &UsageGroup{Name: loc.File, File: loc.File}
}
