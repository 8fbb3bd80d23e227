// sdguide maps Vespa schema repositories, finds usages of schema
// declarations and runs application test suites.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/sdguide/internal/config"
	"github.com/phobologic/sdguide/internal/discover"
	"github.com/phobologic/sdguide/internal/index"
	"github.com/phobologic/sdguide/internal/lang"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := rootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "sdguide",
		Short: "Schema maps, usages and test runs for Vespa applications",
		Long: `sdguide understands Vespa schema definition (.sd) files.

It builds a ranked map of schema declarations, finds usages of a declared
name across schemas, Java and Go sources and application package files,
and runs system, staging and production test suites.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("sdguide {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default: nearest "+config.ProjectConfigFile+")")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		mapCmd(g),
		usagesCmd(g),
		declarationsCmd(g),
		testerCmd(g),
		initCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sdguide %s\n", version)
			},
		},
	)
	return cmd
}

// env is what a subcommand needs after flags are parsed.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	// base resolves relative paths in the config file.
	base string
}

// setup loads the config file for dir and builds the logger.
func (g *globalFlags) setup(cmd *cobra.Command, dir string) (*env, error) {
	logger, err := newLogger(g.logLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	path := g.configPath
	if path == "" {
		path = config.FindProjectConfig(dir)
	}
	cfg, err := config.Load(path, dir)
	if err != nil {
		return nil, err
	}

	base := dir
	if path != "" {
		logger.Debug("Loaded config", "path", path)
		if abs, err := filepath.Abs(path); err == nil {
			base = filepath.Dir(abs)
		}
	}
	return &env{cfg: cfg, logger: logger, base: base}, nil
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

// repoRoot resolves the optional path argument to an absolute directory.
func repoRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: not a directory", root)
	}
	return root, nil
}

// parseLangs validates a comma-separated language list.
func parseLangs(langs string) ([]string, error) {
	if langs == "" {
		return nil, nil
	}
	var out []string
	for _, name := range strings.Split(langs, ",") {
		name = strings.TrimSpace(name)
		if _, ok := lang.Languages[name]; !ok {
			return nil, fmt.Errorf("unsupported language %q", name)
		}
		out = append(out, name)
	}
	return out, nil
}

func (e *env) discover(root string, langs []string) ([]discover.FileEntry, error) {
	files, err := discover.Files(root, discover.Options{
		Languages: langs,
		Include:   e.cfg.Discover.Include,
		Exclude:   e.cfg.Discover.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no supported files found")
	}
	return files, nil
}

func (e *env) load(ctx context.Context, root string, files []discover.FileEntry, maxFileSize int64) (*index.Index, error) {
	if maxFileSize <= 0 {
		maxFileSize = e.cfg.Discover.MaxFileSize
	}
	ix, err := index.Load(ctx, root, files, index.Options{
		Workers:     e.cfg.Discover.Workers,
		MaxFileSize: maxFileSize,
		Logger:      e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("loading files: %w", err)
	}
	return ix, nil
}
