// Package sd parses Vespa schema definition files into syntax trees and
// classifies their declarations.
package sd

import (
	"fmt"

	"github.com/phobologic/sdguide/internal/syntax"
)

// Language is the language tag carried by every tree this package produces.
const Language = "sd"

// Diagnostic is a recoverable parse problem.
type Diagnostic struct {
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Column, d.Message)
}

// Reference sub-types stored in syntax.Node.Type.
const (
	RefName         = "name"
	RefCall         = "call"
	RefField        = "field"
	RefInherits     = "inherits"
	RefImport       = "import"
	RefQuery        = "query"
	RefItemRawScore = "itemRawScore"
)

var (
	// Property keys whose values are rank expressions.
	expressionKeys = map[string]bool{
		"expression":       true,
		"summary-features": true,
		"match-features":   true,
		"rank-features":    true,
	}
	// Property keys whose values list field names.
	fieldListKeys = map[string]bool{
		"fields": true,
		"source": true,
	}
	// Rank features whose single argument names a field.
	fieldFeatures = map[string]bool{
		"attribute":         true,
		"bm25":              true,
		"closeness":         true,
		"distance":          true,
		"fieldLength":       true,
		"fieldMatch":        true,
		"matches":           true,
		"nativeFieldMatch":  true,
		"nativeRank":        true,
		"elementSimilarity": true,
	}
	expressionKeywords = map[string]bool{
		"if": true, "true": true, "false": true, "in": true, "and": true, "or": true,
	}
)

type parser struct {
	toks  []token
	i     int
	tree  *syntax.Tree
	diags []Diagnostic
}

// Parse builds a tree for one schema file. Errors never abort the parse: the
// returned tree covers whatever could be recognised and the diagnostics list
// what could not.
func Parse(path string, src []byte) (*syntax.Tree, []Diagnostic) {
	lx := newLexer(src)
	var toks []token
	for {
		t := lx.next()
		toks = append(toks, t)
		if t.kind == tokEOF {
			break
		}
	}

	p := &parser{toks: toks, tree: syntax.NewTree(Language, path, src)}
	root := p.tree.Add(syntax.Node{
		Kind:   syntax.File,
		Name:   path,
		Parent: syntax.NoNode,
		Span:   syntax.Span{Start: syntax.Position{Line: 1, Column: 1}, End: lx.pos()},
	})
	for p.peek().kind != tokEOF {
		if p.peekPunct("}") {
			t := p.take()
			p.errorf(t, "unexpected '}'")
			continue
		}
		p.item(root)
	}
	return p.tree, p.diags
}

// --- token helpers ---

// peek returns the next token, skipping newlines.
func (p *parser) peek() token {
	for p.toks[p.i].kind == tokNewline {
		p.i++
	}
	return p.toks[p.i]
}

// peekRaw returns the next token including newlines.
func (p *parser) peekRaw() token {
	return p.toks[p.i]
}

func (p *parser) take() token {
	t := p.peek()
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) takeRaw() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) peekPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) peekIdent(s string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == s
}

func (p *parser) expectIdent(what string) (token, bool) {
	t := p.peek()
	if t.kind != tokIdent {
		p.errorf(t, "expected %s", what)
		return t, false
	}
	return p.take(), true
}

func (p *parser) errorf(t token, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{
		Line:    t.start.Line,
		Column:  t.start.Column,
		Message: fmt.Sprintf(format, args...),
	})
}

// lineTokens consumes the rest of the current line without crossing a
// closing brace that belongs to an enclosing block.
func (p *parser) lineTokens() []token {
	var out []token
	for {
		t := p.peekRaw()
		if t.kind == tokEOF || t.kind == tokNewline || (t.kind == tokPunct && t.text == "}") {
			break
		}
		out = append(out, p.takeRaw())
	}
	return out
}

// blockTokens consumes a balanced `{ ... }` and returns the inner tokens
// (newlines dropped) and the closing brace.
func (p *parser) blockTokens() ([]token, token) {
	open := p.take()
	depth := 1
	var out []token
	for {
		t := p.takeRaw()
		switch {
		case t.kind == tokEOF:
			p.errorf(open, "unterminated block")
			return out, t
		case t.kind == tokNewline:
			continue
		case t.kind == tokPunct && t.text == "{":
			depth++
		case t.kind == tokPunct && t.text == "}":
			depth--
			if depth == 0 {
				return out, t
			}
		}
		out = append(out, t)
	}
}

// --- node helpers ---

func (p *parser) add(kind syntax.Kind, typ, name string, parent syntax.NodeID, start, end token) syntax.NodeID {
	return p.tree.Add(syntax.Node{
		Kind:   kind,
		Type:   typ,
		Name:   name,
		Parent: parent,
		Span:   syntax.Span{Start: start.start, End: end.end},
	})
}

func (p *parser) ref(typ string, parent syntax.NodeID, t token) syntax.NodeID {
	return p.add(syntax.Reference, typ, t.text, parent, t, t)
}

// body parses `{ items }` into parent and extends parent's span to the
// closing brace.
func (p *parser) body(parent syntax.NodeID) {
	if !p.peekPunct("{") {
		p.errorf(p.peek(), "expected '{'")
		return
	}
	open := p.take()
	for {
		t := p.peek()
		if t.kind == tokEOF {
			p.errorf(open, "unterminated block")
			p.tree.SetEnd(parent, t.end)
			return
		}
		if t.kind == tokPunct && t.text == "}" {
			p.take()
			p.tree.SetEnd(parent, t.end)
			return
		}
		p.item(parent)
	}
}

// --- grammar ---

func (p *parser) item(parent syntax.NodeID) {
	t := p.peek()
	if t.kind != tokIdent {
		p.errorf(t, "unexpected %q", t.text)
		p.take()
		return
	}
	switch t.text {
	case "schema", "search":
		p.declaration(syntax.Schema, parent)
	case "document":
		p.declaration(syntax.Document, parent)
	case "struct":
		p.declaration(syntax.Struct, parent)
	case "document-summary":
		p.declaration(syntax.DocumentSummary, parent)
	case "rank-profile":
		p.declaration(syntax.RankProfile, parent)
	case "struct-field":
		p.declaration(syntax.StructField, parent)
	case "field":
		p.field(parent)
	case "import":
		p.importField(parent)
	case "macro", "function":
		p.function(parent)
	case "summary":
		if p.tree.Enclosing(parent, syntax.DocumentSummary) == parent {
			p.summary(parent)
			return
		}
		p.generic(parent)
	default:
		p.generic(parent)
	}
}

// declaration handles `keyword NAME [inherits A, B] { ... }`.
func (p *parser) declaration(kind syntax.Kind, parent syntax.NodeID) {
	kw := p.take()
	name, ok := p.expectIdent(kind.String() + " name")
	if !ok {
		p.lineTokens()
		return
	}
	id := p.add(kind, "", name.text, parent, kw, name)
	if p.peekIdent("inherits") {
		p.take()
		for {
			target, ok := p.expectIdent("inherited name")
			if !ok {
				break
			}
			p.ref(RefInherits, id, target)
			if !p.peekPunct(",") {
				break
			}
			p.take()
		}
	}
	if p.peekPunct("{") {
		p.body(id)
		return
	}
	// `document-summary x inherits y` without a body is tolerated.
	if kind != syntax.DocumentSummary && kind != syntax.RankProfile {
		p.errorf(p.peek(), "expected '{' after %s %s", kind, name.text)
	}
}

// field handles `field NAME type TYPE [{ ... }]`.
func (p *parser) field(parent syntax.NodeID) {
	kw := p.take()
	name, ok := p.expectIdent("field name")
	if !ok {
		p.lineTokens()
		return
	}
	id := p.add(syntax.Field, "", name.text, parent, kw, name)
	if p.peekIdent("type") {
		p.take()
		var typ string
		for {
			t := p.peekRaw()
			if t.kind == tokEOF || t.kind == tokNewline || (t.kind == tokPunct && (t.text == "{" || t.text == "}")) {
				break
			}
			typ += p.takeRaw().text
			p.tree.SetEnd(id, t.end)
		}
		p.setType(id, typ)
	}
	if p.peekPunct("{") {
		p.body(id)
	}
}

// importField handles `import field REF as NAME { }`.
func (p *parser) importField(parent syntax.NodeID) {
	kw := p.take()
	if !p.peekIdent("field") {
		p.errorf(p.peek(), "expected 'field' after import")
		p.lineTokens()
		return
	}
	p.take()
	source, ok := p.expectIdent("imported field reference")
	if !ok {
		p.lineTokens()
		return
	}
	if !p.peekIdent("as") {
		p.errorf(p.peek(), "expected 'as'")
		p.lineTokens()
		return
	}
	p.take()
	name, ok := p.expectIdent("imported field name")
	if !ok {
		p.lineTokens()
		return
	}
	id := p.add(syntax.ImportedField, "", name.text, parent, kw, name)
	p.ref(RefImport, id, source)
	if p.peekPunct("{") {
		p.body(id)
	}
}

// function handles `function [inline] NAME(a, b) { ... }` and the older
// `macro` spelling.
func (p *parser) function(parent syntax.NodeID) {
	kw := p.take()
	if p.peekIdent("inline") {
		p.take()
	}
	name, ok := p.expectIdent("function name")
	if !ok {
		p.lineTokens()
		return
	}
	id := p.add(syntax.Function, kw.text, name.text, parent, kw, name)
	if p.peekPunct("(") {
		p.take()
		for !p.peekPunct(")") {
			t := p.peek()
			if t.kind == tokEOF || (t.kind == tokPunct && t.text == "{") {
				p.errorf(t, "unterminated argument list")
				break
			}
			p.take()
			if t.kind == tokIdent {
				p.add(syntax.Argument, "", t.text, id, t, t)
			}
		}
		if p.peekPunct(")") {
			p.take()
		}
	}
	if p.peekPunct("{") {
		p.body(id)
		return
	}
	p.errorf(p.peek(), "expected '{' after function %s", name.text)
}

// summary handles `summary NAME [type T] [{ ... }]` inside a document-summary.
func (p *parser) summary(parent syntax.NodeID) {
	kw := p.take()
	name, ok := p.expectIdent("summary field name")
	if !ok {
		p.lineTokens()
		return
	}
	id := p.add(syntax.Summary, "", name.text, parent, kw, name)
	var rest []token
	for {
		t := p.peekRaw()
		if t.kind == tokEOF || t.kind == tokNewline || (t.kind == tokPunct && (t.text == "{" || t.text == "}")) {
			break
		}
		rest = append(rest, p.takeRaw())
	}
	for i := 0; i < len(rest); i++ {
		if rest[i].text == "type" && i+1 < len(rest) {
			p.setType(id, rest[i+1].text)
		}
		// Legacy inline form: `summary x type string: source_field`.
		if rest[i].text == ":" {
			for _, t := range rest[i+1:] {
				if t.kind == tokIdent {
					p.ref(RefField, id, t)
				}
			}
			break
		}
	}
	if len(rest) > 0 {
		p.tree.SetEnd(id, rest[len(rest)-1].end)
	}
	if p.peekPunct("{") {
		p.body(id)
	}
}

// generic handles `key: value`, `key [header...] { ... }` and bare statements.
func (p *parser) generic(parent syntax.NodeID) {
	key := p.take()
	var header []token
	for {
		t := p.peekRaw()
		if t.kind == tokEOF || t.kind == tokNewline {
			break
		}
		if t.kind == tokPunct && (t.text == ":" || t.text == "{" || t.text == "}") {
			break
		}
		header = append(header, p.takeRaw())
	}

	next := p.peekRaw()
	switch {
	case next.kind == tokPunct && next.text == ":":
		p.takeRaw()
		value := p.lineTokens()
		end := key
		if len(value) > 0 {
			end = value[len(value)-1]
		}
		id := p.add(syntax.Property, key.text, key.text, parent, key, end)
		if len(header) > 0 && p.tree.Enclosing(parent, syntax.RankProfile) != syntax.NoNode {
			// `query(q) double: 0.5` in an inputs block
			p.expression(id, append([]token{key}, header...), key)
		}
		p.value(id, key.text, value)
	case next.kind == tokPunct && next.text == "{":
		name := key.text
		if len(header) > 0 {
			name = header[0].text
		}
		if expressionKeys[key.text] || key.text == "indexing" {
			inner, closing := p.blockTokens()
			id := p.add(syntax.Property, key.text, key.text, parent, key, closing)
			p.value(id, key.text, inner)
			return
		}
		id := p.add(syntax.Block, key.text, name, parent, key, key)
		p.body(id)
	default:
		line := append([]token{key}, header...)
		if p.tree.Enclosing(parent, syntax.RankProfile) != syntax.NoNode {
			p.expression(parent, line, key)
		}
	}
}

// value attaches references found in a property value.
func (p *parser) value(prop syntax.NodeID, key string, toks []token) {
	switch {
	case expressionKeys[key]:
		if len(toks) > 0 {
			p.expression(prop, toks, toks[0])
		}
	case fieldListKeys[key]:
		for _, t := range toks {
			if t.kind == tokIdent {
				p.ref(RefField, prop, t)
			}
		}
	case key == "indexing":
		for i := 0; i+1 < len(toks); i++ {
			if toks[i].kind == tokIdent && toks[i].text == "input" && toks[i+1].kind == tokIdent {
				p.ref(RefField, prop, toks[i+1])
			}
		}
	}
}

// expression creates an Expression node under parent holding a reference for
// every identifier and feature call in toks.
func (p *parser) expression(parent syntax.NodeID, toks []token, start token) syntax.NodeID {
	if len(toks) == 0 {
		return syntax.NoNode
	}
	id := p.add(syntax.Expression, "", "", parent, start, toks[len(toks)-1])
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokIdent || expressionKeywords[t.text] {
			continue
		}
		isCall := i+1 < len(toks) && toks[i+1].kind == tokPunct && toks[i+1].text == "("
		if !isCall {
			p.ref(RefName, id, t)
			continue
		}
		hasArg := i+2 < len(toks) && toks[i+2].kind == tokIdent
		switch {
		case (t.text == "query" || t.text == "itemRawScore") && hasArg:
			typ := RefQuery
			if t.text == "itemRawScore" {
				typ = RefItemRawScore
			}
			p.ref(typ, id, toks[i+2])
			i += 2
		case fieldFeatures[t.text] && hasArg:
			p.ref(RefField, id, toks[i+2])
			i += 2
		default:
			p.ref(RefCall, id, t)
		}
	}
	return id
}

func (p *parser) setType(id syntax.NodeID, typ string) {
	if typ != "" {
		p.tree.SetType(id, typ)
	}
}
