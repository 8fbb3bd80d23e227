package ranking

import (
	"testing"

	"github.com/phobologic/sdguide/internal/model"
	"github.com/phobologic/sdguide/internal/sd"
)

func makeRepoMap() *model.RepoMap {
	return &model.RepoMap{
		RepoName: "test",
		Root:     "test",
		Files: []model.FileInfo{
			{Path: "schemas/music.sd", Language: "sd", Rank: 0.5, Tags: []model.Tag{
				{Name: "short", Kind: model.Definition, Type: sd.DeclDocumentSummary, Line: 3},
				{Name: "default", Kind: model.Definition, Type: sd.DeclRankProfile, Line: 9},
			}},
			{Path: "schemas/album.sd", Language: "sd", Rank: 0.3, Tags: []model.Tag{
				{Name: "default", Kind: model.Reference, Enclosing: "album", Line: 4},
			}},
			{Path: "src/Searcher.java", Language: "java", Rank: 0.2, Tags: []model.Tag{
				{Name: "short", Kind: model.Reference, Enclosing: "Searcher", Line: 7},
			}},
		},
		Dependencies: []model.Dependency{
			{Source: "schemas/album.sd", Target: "schemas/music.sd", Symbols: []string{"default"}},
			{Source: "src/Searcher.java", Target: "schemas/music.sd", Symbols: []string{"short"}},
		},
		Sites: []model.Site{
			{Enclosing: "album", Name: "default", File: "schemas/album.sd", Line: 4},
			{Enclosing: "Searcher", Name: "short", File: "src/Searcher.java", Line: 7},
		},
	}
}

func TestSelectFilesAll(t *testing.T) {
	t.Parallel()

	rm := makeRepoMap()
	for _, n := range []int{0, 3, 5} {
		if got := SelectFiles(rm, n); got != rm {
			t.Errorf("maxFiles=%d should return original", n)
		}
	}
}

func TestSelectFilesSubset(t *testing.T) {
	t.Parallel()

	got := SelectFiles(makeRepoMap(), 2)
	if len(got.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(got.Files))
	}
	if got.Files[0].Path != "schemas/music.sd" || got.Files[1].Path != "schemas/album.sd" {
		t.Errorf("unexpected files: %s, %s", got.Files[0].Path, got.Files[1].Path)
	}
	// The java file was dropped with its edge and site.
	if len(got.Dependencies) != 1 || got.Dependencies[0].Source != "schemas/album.sd" {
		t.Errorf("unexpected deps: %+v", got.Dependencies)
	}
	if len(got.Sites) != 1 || got.Sites[0].Name != "default" {
		t.Errorf("unexpected sites: %+v", got.Sites)
	}
}

func TestSelectFilesOne(t *testing.T) {
	t.Parallel()

	got := SelectFiles(makeRepoMap(), 1)
	if len(got.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(got.Files))
	}
	if len(got.Dependencies) != 0 {
		t.Errorf("expected 0 deps, got %d", len(got.Dependencies))
	}
}

func TestFilterBySymbol(t *testing.T) {
	t.Parallel()

	got := FilterBySymbol(makeRepoMap(), "SHORT")
	if len(got.Files) != 2 {
		t.Fatalf("expected declaring and referencing files, got %+v", got.Files)
	}
	if got.Files[0].Path != "schemas/music.sd" || got.Files[1].Path != "src/Searcher.java" {
		t.Errorf("unexpected files: %s, %s", got.Files[0].Path, got.Files[1].Path)
	}
	if tags := got.Files[0].Tags; len(tags) != 1 || tags[0].Name != "short" {
		t.Errorf("expected only the matching declaration, got %+v", tags)
	}
	if len(got.Files[1].Tags) != 0 {
		t.Errorf("referencing file should carry no declarations, got %+v", got.Files[1].Tags)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0].Source != "src/Searcher.java" {
		t.Errorf("unexpected deps: %+v", got.Dependencies)
	}
	if len(got.Sites) != 1 || got.Sites[0].File != "src/Searcher.java" {
		t.Errorf("unexpected sites: %+v", got.Sites)
	}
}

func TestFilterBySymbolNoMatch(t *testing.T) {
	t.Parallel()

	got := FilterBySymbol(makeRepoMap(), "nothing")
	if len(got.Files) != 0 || len(got.Dependencies) != 0 || len(got.Sites) != 0 {
		t.Errorf("expected empty map, got %+v", got)
	}
}

func TestFilterByFile(t *testing.T) {
	t.Parallel()

	got := FilterByFile(makeRepoMap(), "album")
	if len(got.Files) != 1 || got.Files[0].Path != "schemas/album.sd" {
		t.Fatalf("unexpected files: %+v", got.Files)
	}
	if len(got.Dependencies) != 1 {
		t.Errorf("expected the edge out of album.sd, got %+v", got.Dependencies)
	}
	if len(got.Sites) != 1 || got.Sites[0].File != "schemas/album.sd" {
		t.Errorf("unexpected sites: %+v", got.Sites)
	}
}
