package sd

import (
	"github.com/phobologic/sdguide/internal/syntax"
)

// DeclarationType classifies what kind of schema construct a declaration is.
type DeclarationType uint8

const (
	DeclDocument DeclarationType = iota + 1
	DeclStruct
	DeclSchemaField
	DeclDocumentField
	DeclStructField
	DeclDocumentStructField
	DeclImportedField
	DeclDocumentSummary
	DeclRankProfile
	DeclMacro
	DeclMacroArgument
	DeclQuery
	DeclItemRawScore
)

var declarationLabels = map[DeclarationType]string{
	DeclDocument:            "Document",
	DeclStruct:              "Struct",
	DeclSchemaField:         "Field (in Schema)",
	DeclDocumentField:       "Field (in Document)",
	DeclStructField:         "Struct-Field",
	DeclDocumentStructField: "Field (in Struct)",
	DeclImportedField:       "Imported Field",
	DeclDocumentSummary:     "Document-Summary",
	DeclRankProfile:         "Rank Profile",
	DeclMacro:               "Macro",
	DeclMacroArgument:       "Macro's Argument",
	DeclQuery:               "Query (first use in file)",
	DeclItemRawScore:        "ItemRawScore (first use in file)",
}

// String returns the display label.
func (d DeclarationType) String() string {
	if l, ok := declarationLabels[d]; ok {
		return l
	}
	return "Unknown"
}

// Valid reports whether d is one of the defined types.
func (d DeclarationType) Valid() bool {
	_, ok := declarationLabels[d]
	return ok
}

// AllDeclarationTypes lists every type in declaration order.
func AllDeclarationTypes() []DeclarationType {
	out := make([]DeclarationType, 0, len(declarationLabels))
	for d := DeclDocument; d <= DeclItemRawScore; d++ {
		out = append(out, d)
	}
	return out
}

// Declaration is a named construct that other parts of a schema can refer to.
type Declaration struct {
	Name string
	Type DeclarationType
	Node syntax.NodeID
}

// Declarations returns every declaration in tree, in source order. Query and
// itemRawScore features have no declaring syntax, so their first use in the
// file stands in for the declaration.
func Declarations(tree *syntax.Tree) []Declaration {
	var out []Declaration
	seenQuery := make(map[string]bool)
	seenRaw := make(map[string]bool)

	tree.Walk(func(id syntax.NodeID, n syntax.Node) bool {
		switch n.Kind {
		case syntax.Document:
			out = append(out, Declaration{n.Name, DeclDocument, id})
		case syntax.Struct:
			out = append(out, Declaration{n.Name, DeclStruct, id})
		case syntax.Field:
			out = append(out, Declaration{n.Name, fieldType(tree, id), id})
		case syntax.StructField:
			out = append(out, Declaration{n.Name, DeclStructField, id})
		case syntax.ImportedField:
			out = append(out, Declaration{n.Name, DeclImportedField, id})
		case syntax.DocumentSummary:
			out = append(out, Declaration{n.Name, DeclDocumentSummary, id})
		case syntax.RankProfile:
			out = append(out, Declaration{n.Name, DeclRankProfile, id})
		case syntax.Function:
			out = append(out, Declaration{n.Name, DeclMacro, id})
		case syntax.Argument:
			out = append(out, Declaration{n.Name, DeclMacroArgument, id})
		case syntax.Reference:
			switch {
			case n.Type == RefQuery && !seenQuery[n.Name]:
				seenQuery[n.Name] = true
				out = append(out, Declaration{n.Name, DeclQuery, id})
			case n.Type == RefItemRawScore && !seenRaw[n.Name]:
				seenRaw[n.Name] = true
				out = append(out, Declaration{n.Name, DeclItemRawScore, id})
			}
		}
		return true
	})
	return out
}

// fieldType decides a field's declaration type from its nearest container.
func fieldType(tree *syntax.Tree, id syntax.NodeID) DeclarationType {
	for _, a := range tree.Ancestors(id) {
		n, _ := tree.Node(a)
		switch n.Kind {
		case syntax.Struct:
			return DeclDocumentStructField
		case syntax.Document:
			return DeclDocumentField
		case syntax.Schema:
			return DeclSchemaField
		}
	}
	return DeclSchemaField
}

// Lookup returns the declarations named name.
func Lookup(tree *syntax.Tree, name string) []Declaration {
	var out []Declaration
	for _, d := range Declarations(tree) {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

// DeclarationAt returns the declaration whose node is id, if any.
func DeclarationAt(tree *syntax.Tree, id syntax.NodeID) (Declaration, bool) {
	for _, d := range Declarations(tree) {
		if d.Node == id {
			return d, true
		}
	}
	return Declaration{}, false
}

// References returns every reference node in source order. Summary entries
// in a document-summary count as references to the field they expose.
func References(tree *syntax.Tree) []syntax.NodeID {
	var out []syntax.NodeID
	tree.Walk(func(id syntax.NodeID, n syntax.Node) bool {
		if n.Kind == syntax.Reference || n.Kind == syntax.Summary {
			out = append(out, id)
		}
		return true
	})
	return out
}
