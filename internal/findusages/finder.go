package findusages

import (
	"bufio"
	"bytes"
	"sort"
	"strings"

	"github.com/phobologic/sdguide/internal/discover"
	"github.com/phobologic/sdguide/internal/index"
	"github.com/phobologic/sdguide/internal/lang"
	"github.com/phobologic/sdguide/internal/sd"
	"github.com/phobologic/sdguide/internal/syntax"
)

// Foreign grammar node types that can name a schema construct.
var foreignMatchTypes = map[string]bool{
	"identifier":                 true,
	"field_identifier":           true,
	"type_identifier":            true,
	"string_literal":             true,
	"interpreted_string_literal": true,
	"raw_string_literal":         true,
}

// Finder searches a loaded index for usages.
type Finder struct {
	Index *index.Index
	// SkipTests leaves out files that look like test code.
	SkipTests bool
}

// Resolve returns a target for every declaration of name across the schema
// files. An undeclared name still yields one untyped target so that text
// search works.
func (f *Finder) Resolve(name string) []Target {
	seen := make(map[sd.DeclarationType]bool)
	var out []Target
	for _, file := range f.Index.ByLanguage(sd.Language) {
		if file.Tree == nil {
			continue
		}
		for _, d := range sd.Lookup(file.Tree, name) {
			if !seen[d.Type] {
				seen[d.Type] = true
				out = append(out, Target{Name: name, Type: d.Type})
			}
		}
	}
	if len(out) == 0 {
		out = append(out, Target{Name: name})
	}
	return out
}

// Find returns usages of any of the targets, ordered by file, line and column.
func (f *Finder) Find(targets []Target) []Usage {
	names := make(map[string]bool, len(targets))
	for _, t := range targets {
		names[t.Name] = true
	}

	var out []Usage
	for _, file := range f.Index.Files {
		if f.SkipTests && discover.IsTestFile(file.Path) {
			continue
		}
		switch {
		case file.Tree == nil:
			out = append(out, textUsages(file, names)...)
		case file.Tree.Language == sd.Language:
			out = append(out, schemaUsages(file, names)...)
		default:
			out = append(out, foreignUsages(file, names)...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Location(), out[j].Location()
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out
}

func schemaUsages(file *index.File, names map[string]bool) []Usage {
	var out []Usage
	for _, id := range sd.References(file.Tree) {
		n, _ := file.Tree.Node(id)
		if !names[n.Name] && !names[lastSegment(n.Name)] {
			continue
		}
		out = append(out, NewNodeUsage(file.Tree, id, lineText(file.Source, n.Span.Start.Line)))
	}
	return out
}

func foreignUsages(file *index.File, names map[string]bool) []Usage {
	var out []Usage
	file.Tree.Walk(func(id syntax.NodeID, n syntax.Node) bool {
		if foreignMatchTypes[n.Type] && names[n.Name] {
			out = append(out, NewNodeUsage(file.Tree, id, lineText(file.Source, n.Span.Start.Line)))
		}
		return true
	})
	return out
}

func textUsages(file *index.File, names map[string]bool) []Usage {
	var out []Usage
	scanner := bufio.NewScanner(bytes.NewReader(file.Source))
	scanner.Buffer(make([]byte, 0, 64*1024), len(file.Source)+1)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		for name := range names {
			for _, col := range wordIndexes(text, name) {
				out = append(out, &TextUsage{Loc: Location{
					File:     file.Path,
					Line:     line,
					Column:   col + 1,
					Language: file.Language,
					Text:     lang.CollapseWhitespace(text),
				}})
			}
		}
	}
	return out
}

// wordIndexes returns the byte offsets of name in line where it is not
// embedded in a longer schema identifier. A name may be qualified on its
// right (name.sub) but not on its left (doc.name).
func wordIndexes(line, name string) []int {
	if name == "" {
		return nil
	}
	var out []int
	for from := 0; from <= len(line)-len(name); {
		i := strings.Index(line[from:], name)
		if i < 0 {
			break
		}
		start, end := from+i, from+i+len(name)
		if (start == 0 || !identByte(line[start-1]) && line[start-1] != '.') &&
			(end == len(line) || !identByte(line[end])) {
			out = append(out, start)
		}
		from = start + 1
	}
	return out
}

func identByte(b byte) bool {
	return b == '_' || b == '-' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func lineText(source []byte, line int) string {
	if line < 1 {
		return ""
	}
	start := 0
	for cur := 1; cur < line; cur++ {
		i := bytes.IndexByte(source[start:], '\n')
		if i < 0 {
			return ""
		}
		start += i + 1
	}
	end := bytes.IndexByte(source[start:], '\n')
	if end < 0 {
		end = len(source) - start
	}
	return lang.CollapseWhitespace(string(source[start : start+end]))
}
