package parse

import (
	"context"
	"testing"

	"github.com/phobologic/sdguide/internal/lang"
	"github.com/phobologic/sdguide/internal/model"
	"github.com/phobologic/sdguide/internal/sd"
	"github.com/phobologic/sdguide/internal/syntax"
)

func extract(t *testing.T, langName, path, source string) []model.Tag {
	t.Helper()
	l := lang.Languages[langName]
	if l == nil {
		t.Fatalf("language %q not registered", langName)
	}
	tree, _, err := l.Parse(context.Background(), nil, path, []byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ExtractTags(tree)
}

const parentSchema = `schema parent {
    document parent {
        field name type string {}
    }
    rank-profile base {
        function score() {
            expression: attribute(name) + query(q)
        }
    }
}
`

const childSchema = `schema child inherits parent {
    document child inherits parent {
        field parent_ref type reference<parent> {}
    }
    import field parent_ref.name as parent_name {}
    rank-profile tuned inherits base {
        first-phase {
            expression: score
        }
    }
}
`

// --- schema tests ---

func TestSchemaDefinitions(t *testing.T) {
	t.Parallel()
	defs := filterDefs(extract(t, sd.Language, "parent.sd", parentSchema))

	want := []struct {
		name string
		typ  sd.DeclarationType
		line int
	}{
		{"parent", sd.DeclDocument, 2},
		{"name", sd.DeclDocumentField, 3},
		{"base", sd.DeclRankProfile, 5},
		{"score", sd.DeclMacro, 6},
		{"q", sd.DeclQuery, 7},
	}
	if len(defs) != len(want) {
		t.Fatalf("expected %d defs, got %d: %+v", len(want), len(defs), defs)
	}
	for i, w := range want {
		d := defs[i]
		if d.Name != w.name || d.Type != w.typ || d.Line != w.line {
			t.Errorf("def %d = %s %s line %d, want %s %s line %d",
				i, d.Type, d.Name, d.Line, w.typ, w.name, w.line)
		}
		if d.File != "parent.sd" {
			t.Errorf("def %d file = %q", i, d.File)
		}
	}
}

func TestSchemaEnclosing(t *testing.T) {
	t.Parallel()
	tags := extract(t, sd.Language, "parent.sd", parentSchema)

	for _, tag := range tags {
		switch tag.Name {
		case "score":
			if tag.Enclosing != "base" {
				t.Errorf("score enclosing = %q, want base", tag.Enclosing)
			}
		case "parent":
			if tag.Kind == model.Definition && tag.Enclosing != "parent" {
				t.Errorf("document enclosing = %q, want schema parent", tag.Enclosing)
			}
		}
	}

	refs := filterRefs(tags)
	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d: %+v", len(refs), refs)
	}
	if refs[0].Name != "name" || refs[0].Enclosing != "score" {
		t.Errorf("ref = %+v, want name in score", refs[0])
	}
}

func TestSchemaReferencesSkipQueryFeatures(t *testing.T) {
	t.Parallel()
	refs := filterRefs(extract(t, sd.Language, "parent.sd", parentSchema))

	for _, r := range refs {
		if r.Name == "q" {
			t.Errorf("query feature reported as reference: %+v", r)
		}
	}
}

func TestSchemaInheritsAndImports(t *testing.T) {
	t.Parallel()
	refs := filterRefs(extract(t, sd.Language, "child.sd", childSchema))

	names := make(map[string]bool)
	for _, r := range refs {
		names[r.Name] = true
	}
	for _, want := range []string{"parent", "base", "name", "score"} {
		if !names[want] {
			t.Errorf("missing reference %q in %+v", want, refs)
		}
	}
	if names["parent_ref.name"] {
		t.Error("import reference should be reduced to the field name")
	}
}

// --- foreign tests ---

func TestJavaStringConstants(t *testing.T) {
	t.Parallel()
	src := `package ai.vespa;

class SummarySearcher {
    static final String SUMMARY = "short";
    static final String SQL = "select * from music";

    void search() {
        use("tuned");
    }
}
`
	tags := extract(t, "java", "SummarySearcher.java", src)
	if len(filterDefs(tags)) != 0 {
		t.Errorf("java files should not declare schema names")
	}

	refs := filterRefs(tags)
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d: %+v", len(refs), refs)
	}
	if refs[0].Name != "short" || refs[0].Line != 4 || refs[0].Enclosing != "SummarySearcher" {
		t.Errorf("ref 0 = %+v", refs[0])
	}
	if refs[1].Name != "tuned" || refs[1].Enclosing != "search" {
		t.Errorf("ref 1 = %+v", refs[1])
	}
}

func TestGoStringConstants(t *testing.T) {
	t.Parallel()
	src := "package feed\n\nfunc profile() string {\n\treturn `tuned`\n}\n"

	refs := filterRefs(extract(t, "go", "feed.go", src))
	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d: %+v", len(refs), refs)
	}
	if refs[0].Name != "tuned" || refs[0].Enclosing != "profile" {
		t.Errorf("ref = %+v", refs[0])
	}
}

func TestExtractTagsNilTree(t *testing.T) {
	t.Parallel()
	if tags := ExtractTags(nil); tags != nil {
		t.Errorf("expected nil, got %+v", tags)
	}
	if tags := ExtractTags(syntax.NewTree(sd.Language, "empty.sd", nil)); len(tags) != 0 {
		t.Errorf("expected no tags, got %+v", tags)
	}
}

func filterDefs(tags []model.Tag) []model.Tag {
	var out []model.Tag
	for _, t := range tags {
		if t.Kind == model.Definition {
			out = append(out, t)
		}
	}
	return out
}

func filterRefs(tags []model.Tag) []model.Tag {
	var out []model.Tag
	for _, t := range tags {
		if t.Kind == model.Reference {
			out = append(out, t)
		}
	}
	return out
}
