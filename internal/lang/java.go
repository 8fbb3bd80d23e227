package lang

import (
	"github.com/smacker/go-tree-sitter/java"
)

// Searchers, document processors and system tests reference schema names
// from Java.
func init() {
	Languages["java"] = &Language{
		Name:       "java",
		Extensions: []string{".java"},
		lang:       java.GetLanguage(),
		parse:      parseSitter,
	}
}
