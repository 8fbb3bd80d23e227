// Package parse extracts map tags from syntax trees.
package parse

import (
	"regexp"
	"strings"

	"github.com/phobologic/sdguide/internal/model"
	"github.com/phobologic/sdguide/internal/sd"
	"github.com/phobologic/sdguide/internal/syntax"
)

// Kinds whose name is reported as the enclosing declaration of a tag.
var enclosingKinds = map[syntax.Kind]bool{
	syntax.Schema:          true,
	syntax.Document:        true,
	syntax.Struct:          true,
	syntax.Field:           true,
	syntax.DocumentSummary: true,
	syntax.RankProfile:     true,
	syntax.Function:        true,
}

// Foreign node types that carry a schema name as a string constant.
var stringTypes = map[string]bool{
	"string_literal":             true,
	"interpreted_string_literal": true,
	"raw_string_literal":         true,
}

// Foreign node types whose name is reported as the enclosing declaration.
var foreignEnclosing = map[string]bool{
	"class_declaration":     true,
	"interface_declaration": true,
	"method_declaration":    true,
	"function_declaration":  true,
}

var schemaName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// ExtractTags returns definition and reference tags for a parsed file.
// Schema files yield both; Java and Go files yield references for string
// constants that look like schema names, so code that names a
// document-summary or rank-profile links to the schema declaring it.
func ExtractTags(tree *syntax.Tree) []model.Tag {
	if tree == nil {
		return nil
	}
	if tree.Language == sd.Language {
		return schemaTags(tree)
	}
	return foreignTags(tree)
}

func schemaTags(tree *syntax.Tree) []model.Tag {
	var tags []model.Tag
	declared := make(map[syntax.NodeID]bool)
	for _, d := range sd.Declarations(tree) {
		declared[d.Node] = true
		n, _ := tree.Node(d.Node)
		tags = append(tags, model.Tag{
			Name:      d.Name,
			Kind:      model.Definition,
			Type:      d.Type,
			Line:      n.Span.Start.Line,
			File:      tree.Path,
			Enclosing: enclosing(tree, d.Node),
		})
	}

	for _, id := range sd.References(tree) {
		n, _ := tree.Node(id)
		if declared[id] || n.Type == sd.RefQuery || n.Type == sd.RefItemRawScore {
			continue
		}
		name := n.Name
		if n.Type == sd.RefImport {
			// parent_ref.field names the field of the referenced document.
			name = name[strings.LastIndexByte(name, '.')+1:]
		}
		tags = append(tags, model.Tag{
			Name:      name,
			Kind:      model.Reference,
			Line:      n.Span.Start.Line,
			File:      tree.Path,
			Enclosing: enclosing(tree, id),
		})
	}
	return tags
}

func enclosing(tree *syntax.Tree, id syntax.NodeID) string {
	for _, a := range tree.Ancestors(id) {
		n, _ := tree.Node(a)
		if enclosingKinds[n.Kind] {
			return n.Name
		}
	}
	return ""
}

func foreignTags(tree *syntax.Tree) []model.Tag {
	var tags []model.Tag
	tree.Walk(func(id syntax.NodeID, n syntax.Node) bool {
		if !stringTypes[n.Type] || !schemaName.MatchString(n.Name) {
			return true
		}
		tag := model.Tag{
			Name: n.Name,
			Kind: model.Reference,
			Line: n.Span.Start.Line,
			File: tree.Path,
		}
		for _, a := range tree.Ancestors(id) {
			an, _ := tree.Node(a)
			if foreignEnclosing[an.Type] && an.Name != "" {
				tag.Enclosing = an.Name
				break
			}
		}
		tags = append(tags, tag)
		return true
	})
	return tags
}
