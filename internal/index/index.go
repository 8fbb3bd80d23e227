// Package index reads and parses discovered files into syntax trees.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sdguide/internal/discover"
	"github.com/phobologic/sdguide/internal/lang"
	"github.com/phobologic/sdguide/internal/sd"
	"github.com/phobologic/sdguide/internal/syntax"
)

// DefaultMaxFileSize is the size above which files are skipped.
const DefaultMaxFileSize = 1_000_000 // 1 MB

// File is one loaded file. Tree is nil for languages without a parser.
type File struct {
	Path        string
	Language    string
	Source      []byte
	Tree        *syntax.Tree
	Diagnostics []sd.Diagnostic
}

// Index is the set of files loaded from a repository, in discovery order.
type Index struct {
	Root  string
	Files []*File
}

// Options tunes loading.
type Options struct {
	// Workers defaults to GOMAXPROCS.
	Workers int
	// MaxFileSize defaults to DefaultMaxFileSize.
	MaxFileSize int64
	Logger      *slog.Logger
}

// Load reads and parses files concurrently. Files that cannot be read or
// parsed are logged and left out; Load only fails when nothing loads.
func Load(ctx context.Context, root string, files []discover.FileEntry, opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	type result struct {
		index int
		file  *File
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parsers
			parsers := make(map[string]*sitter.Parser)
			defer func() {
				for _, p := range parsers {
					p.Close()
				}
			}()

			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				entry := files[idx]
				l := lang.Languages[entry.Language]
				if l == nil {
					continue
				}

				absPath := filepath.Join(root, entry.Path)
				fi, err := os.Stat(absPath)
				if err != nil {
					logger.Warn("Skipping unreadable file", "path", entry.Path, "error", err)
					continue
				}
				if fi.Size() > maxSize {
					logger.Warn("Skipping large file", "path", entry.Path, "size", fi.Size(), "limit", maxSize)
					continue
				}
				source, err := os.ReadFile(absPath)
				if err != nil {
					logger.Warn("Skipping unreadable file", "path", entry.Path, "error", err)
					continue
				}

				f := &File{Path: entry.Path, Language: entry.Language, Source: source}
				if l.Parseable() {
					p, ok := parsers[l.Name]
					if !ok && l.GetLanguage() != nil {
						p = l.NewParser()
						parsers[l.Name] = p
					}
					tree, diags, err := l.Parse(ctx, p, entry.Path, source)
					if err != nil {
						logger.Warn("Failed to parse file", "path", entry.Path, "error", err)
						continue
					}
					f.Tree = tree
					f.Diagnostics = diags
					for _, d := range diags {
						logger.Debug("Parse diagnostic", "path", entry.Path, "line", d.Line, "column", d.Column, "message", d.Message)
					}
				}
				results <- result{index: idx, file: f}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]*File, len(files))
	for r := range results {
		indexed[r.index] = r.file
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix := &Index{Root: root}
	for _, f := range indexed {
		if f != nil {
			ix.Files = append(ix.Files, f)
		}
	}
	if len(files) > 0 && len(ix.Files) == 0 {
		return nil, fmt.Errorf("no files could be loaded")
	}
	return ix, nil
}

// ByLanguage returns the files of one language.
func (ix *Index) ByLanguage(language string) []*File {
	var out []*File
	for _, f := range ix.Files {
		if f.Language == language {
			out = append(out, f)
		}
	}
	return out
}

// File returns the file with the given repo-relative path.
func (ix *Index) File(path string) (*File, bool) {
	for _, f := range ix.Files {
		if f.Path == path {
			return f, true
		}
	}
	return nil, false
}
