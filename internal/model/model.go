// Package model defines the schema map data structures.
package model

import "github.com/phobologic/sdguide/internal/sd"

// TagKind indicates whether a tag is a declaration or a reference.
type TagKind string

const (
	Definition TagKind = "def"
	Reference  TagKind = "ref"
)

// Tag is a single named occurrence extracted from a file.
type Tag struct {
	Name string
	Kind TagKind
	// Type is set for definitions.
	Type sd.DeclarationType
	Line int
	File string
	// Enclosing names the nearest enclosing declaration, e.g. the rank
	// profile a function belongs to. Empty at schema level.
	Enclosing string
}

// FileInfo holds metadata and extracted tags for a single file.
type FileInfo struct {
	Path        string
	Language    string
	Tags        []Tag
	Rank        float64
	Diagnostics int
}

// Dependency represents an edge in the dependency graph:
// Source references names declared in Target.
type Dependency struct {
	Source  string
	Target  string
	Symbols []string
}

// Site is one reference to a known declaration, with its location.
type Site struct {
	Enclosing string
	Name      string
	File      string
	Line      int
}

// RepoMap is the complete analyzed repository map, ready for serialization.
type RepoMap struct {
	RepoName     string
	Root         string
	Files        []FileInfo
	Dependencies []Dependency
	Sites        []Site
}
