// Package graph links schema files through resolved references and ranks
// them with PageRank.
package graph

import (
	"math"
	"slices"
	"sort"

	"github.com/phobologic/sdguide/internal/model"
	"github.com/phobologic/sdguide/internal/sd"
)

// Declarations that are only visible inside the construct declaring them.
// They never resolve across files.
var localTypes = map[sd.DeclarationType]bool{
	sd.DeclMacroArgument: true,
	sd.DeclQuery:         true,
	sd.DeclItemRawScore:  true,
}

// definitions maps each globally visible name to the sorted files declaring it.
func definitions(fileInfos []model.FileInfo) map[string][]string {
	defs := make(map[string][]string)
	for i := range fileInfos {
		fi := &fileInfos[i]
		for j := range fi.Tags {
			tag := &fi.Tags[j]
			if tag.Kind != model.Definition || localTypes[tag.Type] {
				continue
			}
			if !slices.Contains(defs[tag.Name], fi.Path) {
				defs[tag.Name] = append(defs[tag.Name], fi.Path)
			}
		}
	}
	for _, files := range defs {
		sort.Strings(files)
	}
	return defs
}

// BuildGraph creates a dependency edge from every file to each other file
// declaring a name it references.
func BuildGraph(fileInfos []model.FileInfo) []model.Dependency {
	defs := definitions(fileInfos)

	type edgeKey struct{ src, tgt string }
	edgeSymbols := make(map[edgeKey][]string)

	for i := range fileInfos {
		fi := &fileInfos[i]
		for j := range fi.Tags {
			tag := &fi.Tags[j]
			if tag.Kind != model.Reference {
				continue
			}
			for _, defFile := range defs[tag.Name] {
				if defFile == fi.Path {
					continue // no self-edges
				}
				key := edgeKey{fi.Path, defFile}
				if !slices.Contains(edgeSymbols[key], tag.Name) {
					edgeSymbols[key] = append(edgeSymbols[key], tag.Name)
				}
			}
		}
	}

	deps := make([]model.Dependency, 0, len(edgeSymbols))
	for key, syms := range edgeSymbols {
		deps = append(deps, model.Dependency{Source: key.src, Target: key.tgt, Symbols: syms})
	}
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})
	return deps
}

// BuildSites returns every reference that resolves to a known declaration,
// one entry per occurrence. References outside any declaration get the
// enclosing name "<schema>".
func BuildSites(fileInfos []model.FileInfo) []model.Site {
	defs := definitions(fileInfos)

	var sites []model.Site
	for i := range fileInfos {
		for j := range fileInfos[i].Tags {
			tag := &fileInfos[i].Tags[j]
			if tag.Kind != model.Reference || defs[tag.Name] == nil {
				continue
			}
			enclosing := tag.Enclosing
			if enclosing == "" {
				enclosing = "<schema>"
			}
			sites = append(sites, model.Site{
				Enclosing: enclosing,
				Name:      tag.Name,
				File:      fileInfos[i].Path,
				Line:      tag.Line,
			})
		}
	}

	sort.Slice(sites, func(i, j int) bool {
		a, b := sites[i], sites[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	return sites
}

// Rank applies PageRank to fileInfos and sorts them by rank descending.
// Each referenced symbol counts as one edge.
func Rank(fileInfos []model.FileInfo, deps []model.Dependency) {
	if len(fileInfos) == 0 {
		return
	}
	if len(deps) == 0 {
		uniform := 1.0 / float64(len(fileInfos))
		for i := range fileInfos {
			fileInfos[i].Rank = uniform
		}
		return
	}

	nodes := make(map[string]struct{}, len(fileInfos))
	for i := range fileInfos {
		nodes[fileInfos[i].Path] = struct{}{}
	}
	outEdges := make(map[string][]string)
	for _, d := range deps {
		for range d.Symbols {
			outEdges[d.Source] = append(outEdges[d.Source], d.Target)
		}
	}

	ranks := pageRank(nodes, outEdges, 0.85, 100, 1e-6)
	for i := range fileInfos {
		fileInfos[i].Rank = ranks[fileInfos[i].Path]
	}
	sort.SliceStable(fileInfos, func(i, j int) bool {
		return fileInfos[i].Rank > fileInfos[j].Rank
	})
}

func pageRank(nodes map[string]struct{}, outEdges map[string][]string, alpha float64, maxIter int, tol float64) map[string]float64 {
	n := float64(len(nodes))
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, len(nodes))
	for node := range nodes {
		rank[node] = 1.0 / n
	}
	teleport := (1.0 - alpha) / n

	for i := 0; i < maxIter; i++ {
		// Rank held by nodes without outgoing edges is spread evenly.
		var dangling float64
		for node := range nodes {
			if len(outEdges[node]) == 0 {
				dangling += rank[node]
			}
		}
		base := teleport + alpha*dangling/n

		next := make(map[string]float64, len(nodes))
		for node := range nodes {
			next[node] = base
		}
		for src, targets := range outEdges {
			share := alpha * rank[src] / float64(len(targets))
			for _, tgt := range targets {
				next[tgt] += share
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(next[node] - rank[node])
		}
		rank = next
		if diff < tol {
			break
		}
	}
	return rank
}
