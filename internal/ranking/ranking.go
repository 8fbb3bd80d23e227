// Package ranking selects and filters the files of a schema map.
package ranking

import (
	"strings"

	"github.com/phobologic/sdguide/internal/model"
)

type pathSet map[string]struct{}

func (s pathSet) has(p string) bool {
	_, ok := s[p]
	return ok
}

// SelectFiles returns a new RepoMap with only the top-ranked files.
// If maxFiles is <= 0 or >= len(files), rm itself is returned.
func SelectFiles(rm *model.RepoMap, maxFiles int) *model.RepoMap {
	if maxFiles <= 0 || maxFiles >= len(rm.Files) {
		return rm
	}

	selected := rm.Files[:maxFiles]
	paths := make(pathSet, maxFiles)
	for i := range selected {
		paths[selected[i].Path] = struct{}{}
	}

	out := &model.RepoMap{RepoName: rm.RepoName, Root: rm.Root, Files: selected}
	for _, d := range rm.Dependencies {
		if paths.has(d.Source) && paths.has(d.Target) {
			out.Dependencies = append(out.Dependencies, d)
		}
	}
	for _, s := range rm.Sites {
		if paths.has(s.File) {
			out.Sites = append(out.Sites, s)
		}
	}
	return out
}

// FilterBySymbol narrows rm to declarations whose name contains substr
// (case-insensitive). It keeps the files declaring them, the files
// referencing them, and the edges and sites that touch either.
func FilterBySymbol(rm *model.RepoMap, substr string) *model.RepoMap {
	lower := strings.ToLower(substr)

	matched := make(map[string]struct{})
	files := make(pathSet)
	for i := range rm.Files {
		for _, tag := range rm.Files[i].Tags {
			if tag.Kind == model.Definition && strings.Contains(strings.ToLower(tag.Name), lower) {
				matched[tag.Name] = struct{}{}
				files[rm.Files[i].Path] = struct{}{}
			}
		}
	}
	for i := range rm.Files {
		for _, tag := range rm.Files[i].Tags {
			if _, ok := matched[tag.Name]; ok && tag.Kind == model.Reference {
				files[rm.Files[i].Path] = struct{}{}
			}
		}
	}

	out := &model.RepoMap{RepoName: rm.RepoName, Root: rm.Root}
	for i := range rm.Files {
		if !files.has(rm.Files[i].Path) {
			continue
		}
		// Keep only the matching declarations so the table stays focused.
		fi := rm.Files[i]
		fi.Tags = nil
		for _, tag := range rm.Files[i].Tags {
			if _, ok := matched[tag.Name]; ok && tag.Kind == model.Definition {
				fi.Tags = append(fi.Tags, tag)
			}
		}
		out.Files = append(out.Files, fi)
	}
	for _, d := range rm.Dependencies {
		if files.has(d.Source) && files.has(d.Target) {
			out.Dependencies = append(out.Dependencies, d)
		}
	}
	for _, s := range rm.Sites {
		if _, ok := matched[s.Name]; ok {
			out.Sites = append(out.Sites, s)
		}
	}
	return out
}

// FilterByFile returns a new RepoMap containing only files whose path
// contains substr (case-insensitive), the dependency edges touching those
// files and the sites found in them.
func FilterByFile(rm *model.RepoMap, substr string) *model.RepoMap {
	lower := strings.ToLower(substr)

	files := make(pathSet)
	out := &model.RepoMap{RepoName: rm.RepoName, Root: rm.Root}
	for i := range rm.Files {
		if strings.Contains(strings.ToLower(rm.Files[i].Path), lower) {
			files[rm.Files[i].Path] = struct{}{}
			out.Files = append(out.Files, rm.Files[i])
		}
	}
	for _, d := range rm.Dependencies {
		if files.has(d.Source) || files.has(d.Target) {
			out.Dependencies = append(out.Dependencies, d)
		}
	}
	for _, s := range rm.Sites {
		if files.has(s.File) {
			out.Sites = append(out.Sites, s)
		}
	}
	return out
}
