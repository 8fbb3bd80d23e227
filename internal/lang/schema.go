package lang

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sdguide/internal/sd"
	"github.com/phobologic/sdguide/internal/syntax"
)

func init() {
	Languages[sd.Language] = &Language{
		Name:       sd.Language,
		Extensions: []string{".sd"},
		parse: func(_ context.Context, _ *Language, _ *sitter.Parser, path string, source []byte) (*syntax.Tree, []sd.Diagnostic, error) {
			tree, diags := sd.Parse(path, source)
			return tree, diags, nil
		},
	}
}
