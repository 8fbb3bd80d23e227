package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/sdguide/internal/syntax"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".sd", "sd"},
		{".go", "go"},
		{".java", "java"},
		{".XML", "text"},
		{".yql", "text"},
		{".py", ""},
		{"", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"java", "go"} {
		l, ok := Languages[name]
		require.True(t, ok, "%s not registered", name)
		assert.NotNil(t, l.GetLanguage())
		assert.True(t, l.Parseable())
		p := l.NewParser()
		require.NotNil(t, p)
		p.Close()
	}

	assert.True(t, Languages["sd"].Parseable())
	assert.Nil(t, Languages["sd"].NewParser())
	assert.False(t, Languages[Text].Parseable())
	assert.ElementsMatch(t, []string{"sd", "go", "java", "text"}, Names())
}

func TestParseText(t *testing.T) {
	t.Parallel()
	_, _, err := Languages[Text].Parse(context.Background(), nil, "services.xml", []byte("<services/>"))
	assert.Error(t, err)
}

func TestParseJava(t *testing.T) {
	t.Parallel()

	src := `package ai.vespa;

class SummarySearcher {
    static final String SUMMARY = "short";
}
`
	l := Languages["java"]
	tree, diags, err := l.Parse(context.Background(), nil, "SummarySearcher.java", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, "java", tree.Language)

	root, ok := tree.Node(tree.Root())
	require.True(t, ok)
	assert.Equal(t, syntax.File, root.Kind)

	var class, literal syntax.NodeID = syntax.NoNode, syntax.NoNode
	tree.Walk(func(id syntax.NodeID, n syntax.Node) bool {
		switch {
		case n.Type == "class_declaration":
			class = id
		case n.Type == "string_literal":
			literal = id
		}
		return true
	})
	require.NotEqual(t, syntax.NoNode, class)
	require.NotEqual(t, syntax.NoNode, literal)

	cn, _ := tree.Node(class)
	assert.Equal(t, "SummarySearcher", cn.Name)
	ln, _ := tree.Node(literal)
	assert.Equal(t, "short", ln.Name)
	assert.Equal(t, 4, ln.Span.Start.Line)
	assert.Contains(t, tree.Ancestors(literal), class)
}

func TestParseGoReusesParser(t *testing.T) {
	t.Parallel()

	l := Languages["go"]
	p := l.NewParser()
	defer p.Close()

	for _, src := range []string{
		"package a\n\nconst summary = \"short\"\n",
		"package b\n\nfunc profile() string { return `fresh` }\n",
	} {
		tree, _, err := l.Parse(context.Background(), p, "x.go", []byte(src))
		require.NoError(t, err)
		var names []string
		tree.Walk(func(_ syntax.NodeID, n syntax.Node) bool {
			if n.Type == "interpreted_string_literal" || n.Type == "raw_string_literal" {
				names = append(names, n.Name)
			}
			return true
		})
		require.Len(t, names, 1)
		assert.Contains(t, []string{"short", "fresh"}, names[0])
	}
}

func TestParseSchema(t *testing.T) {
	t.Parallel()

	tree, diags, err := Languages["sd"].Parse(context.Background(), nil, "a.sd", []byte("schema a {\n  document a {\n  }\n}\n"))
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, "sd", tree.Language)
}
