// Package lang provides a language registry mapping file extensions to
// parsers that produce syntax trees.
package lang

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sdguide/internal/sd"
	"github.com/phobologic/sdguide/internal/syntax"
)

// Language holds parser configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string

	// lang is set for tree-sitter backed languages.
	lang *sitter.Language

	// parse is nil for languages searched as plain text.
	parse func(ctx context.Context, l *Language, p *sitter.Parser, path string, source []byte) (*syntax.Tree, []sd.Diagnostic, error)
}

// GetLanguage returns the tree-sitter Language pointer, or nil.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// Parseable reports whether files of this language produce syntax trees.
func (l *Language) Parseable() bool {
	return l.parse != nil
}

// NewParser creates a fresh tree-sitter parser for this language, or nil
// when the language does not use tree-sitter.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	if l.lang == nil {
		return nil
	}
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Parse builds a syntax tree for source. p may be nil for languages that
// don't use tree-sitter.
func (l *Language) Parse(ctx context.Context, p *sitter.Parser, path string, source []byte) (*syntax.Tree, []sd.Diagnostic, error) {
	if l.parse == nil {
		return nil, nil, fmt.Errorf("language %s has no parser", l.Name)
	}
	return l.parse(ctx, l, p, path, source)
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// Names returns the registered language names.
func Names() []string {
	names := make([]string, 0, len(Languages))
	for name := range Languages {
		names = append(names, name)
	}
	return names
}
