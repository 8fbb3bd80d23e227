package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/sdguide/internal/discover"
	"github.com/phobologic/sdguide/internal/graph"
	"github.com/phobologic/sdguide/internal/index"
	"github.com/phobologic/sdguide/internal/model"
	"github.com/phobologic/sdguide/internal/parse"
	"github.com/phobologic/sdguide/internal/ranking"
	"github.com/phobologic/sdguide/internal/toon"
)

const mapHeader = `# Schema Map

Ranked schema files, their declarations and the dependencies between them.
Files are sorted by rank, most referenced first.

`

type mapOptions struct {
	maxFiles    int
	langs       string
	cachePath   string
	maxFileSize int64
	raw         bool
	symbol      string
	file        string
}

func mapCmd(g *globalFlags) *cobra.Command {
	var opts mapOptions

	cmd := &cobra.Command{
		Use:   "map [path]",
		Short: "Print a ranked map of schema declarations and references",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cmd, g, args, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.maxFiles, "max-files", "n", 0, "maximum number of files to include")
	f.StringVarP(&opts.langs, "langs", "l", "", "comma-separated languages to include")
	f.StringVar(&opts.cachePath, "cache", "", "cache file path")
	f.Int64Var(&opts.maxFileSize, "max-file-size", 0, "skip files larger than this many bytes (default from config)")
	f.BoolVar(&opts.raw, "raw", false, "omit the explanatory header")
	f.StringVarP(&opts.symbol, "symbol", "s", "", "only declarations whose name contains this")
	f.StringVarP(&opts.file, "file", "f", "", "only files whose path contains this")
	return cmd
}

func runMap(cmd *cobra.Command, g *globalFlags, args []string, opts mapOptions) error {
	root, err := repoRoot(args)
	if err != nil {
		return err
	}
	e, err := g.setup(cmd, root)
	if err != nil {
		return err
	}
	langs, err := parseLangs(opts.langs)
	if err != nil {
		return err
	}

	files, err := e.discover(root, langs)
	if err != nil {
		return err
	}

	// Filtered maps are never cached.
	filtered := opts.symbol != "" || opts.file != ""
	useCache := opts.cachePath != "" && !filtered

	out := cmd.OutOrStdout()
	if useCache && cacheIsFresh(opts.cachePath, root, files) {
		if data, err := os.ReadFile(opts.cachePath); err == nil {
			e.logger.Debug("Using cached map", "path", opts.cachePath)
			if !opts.raw {
				_, _ = fmt.Fprint(out, mapHeader)
			}
			_, _ = out.Write(data)
			return nil
		}
	}

	ix, err := e.load(cmd.Context(), root, files, opts.maxFileSize)
	if err != nil {
		return err
	}

	rm := buildRepoMap(ix, filtered)
	if opts.symbol != "" {
		rm = ranking.FilterBySymbol(rm, opts.symbol)
	}
	if opts.file != "" {
		rm = ranking.FilterByFile(rm, opts.file)
	}
	if filtered && len(rm.Files) == 0 {
		return fmt.Errorf("no files match the given filters")
	}
	if opts.maxFiles > 0 {
		rm = ranking.SelectFiles(rm, opts.maxFiles)
	}

	output := toon.Encode(rm) + "\n"

	if useCache {
		if err := os.WriteFile(opts.cachePath, []byte(output), 0o644); err != nil {
			e.logger.Warn("Failed to write cache", "path", opts.cachePath, "error", err)
		}
	}

	if !opts.raw {
		_, _ = fmt.Fprint(out, mapHeader)
	}
	_, _ = fmt.Fprint(out, output)
	return nil
}

// buildRepoMap extracts tags from every loaded file and ranks the files.
// Reference sites are only collected when withSites is set.
func buildRepoMap(ix *index.Index, withSites bool) *model.RepoMap {
	infos := make([]model.FileInfo, 0, len(ix.Files))
	for _, f := range ix.Files {
		infos = append(infos, model.FileInfo{
			Path:        f.Path,
			Language:    f.Language,
			Tags:        parse.ExtractTags(f.Tree),
			Diagnostics: len(f.Diagnostics),
		})
	}

	deps := graph.BuildGraph(infos)
	graph.Rank(infos, deps)

	name := filepath.Base(ix.Root)
	rm := &model.RepoMap{
		RepoName:     name,
		Root:         name,
		Files:        infos,
		Dependencies: deps,
	}
	if withSites {
		rm.Sites = graph.BuildSites(infos)
	}
	return rm
}

// cacheIsFresh reports whether the cache file is newer than every file.
func cacheIsFresh(cachePath, root string, files []discover.FileEntry) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}
