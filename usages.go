package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/phobologic/sdguide/internal/findusages"
	"github.com/phobologic/sdguide/internal/sd"
	"github.com/phobologic/sdguide/internal/toon"
)

// groupingRules lists the rule chains selectable with --group. Each chain
// tries its rules in order and the first group wins.
var groupingRules = map[string][]findusages.GroupingRule{
	"none":    nil,
	"summary": {findusages.DocumentSummaryGroupingRule{}},
	"schema":  {findusages.DocumentSummaryGroupingRule{}, findusages.RankProfileGroupingRule{}},
	"file": {
		findusages.DocumentSummaryGroupingRule{},
		findusages.RankProfileGroupingRule{},
		findusages.FileGroupingRule{},
	},
}

func usagesCmd(g *globalFlags) *cobra.Command {
	var (
		group     string
		langs     string
		skipTests bool
	)

	cmd := &cobra.Command{
		Use:   "usages NAME [path]",
		Short: "Find usages of a schema declaration, grouped by document-summary",
		Long: `Find every usage of NAME across schema files, Java and Go sources and
application package files.

Usages are grouped with --group:
  summary  under the enclosing document-summary
  schema   as summary, then under the enclosing rank-profile
  file     as schema, then by file
  none     no grouping`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, ok := groupingRules[group]
			if !ok {
				return fmt.Errorf("unknown grouping %q", group)
			}
			root, err := repoRoot(args[1:])
			if err != nil {
				return err
			}
			e, err := g.setup(cmd, root)
			if err != nil {
				return err
			}
			langList, err := parseLangs(langs)
			if err != nil {
				return err
			}
			files, err := e.discover(root, langList)
			if err != nil {
				return err
			}
			ix, err := e.load(cmd.Context(), root, files, 0)
			if err != nil {
				return err
			}

			finder := &findusages.Finder{Index: ix, SkipTests: skipTests}
			targets := finder.Resolve(args[0])
			usages := finder.Find(targets)
			e.logger.Info("Found usages", "name", args[0], "targets", len(targets), "usages", len(usages))

			buckets := findusages.Cluster(usages, targets, rules...)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), toon.EncodeUsages(targets, buckets))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&group, "group", "g", "file", "grouping: summary, schema, file or none")
	f.StringVarP(&langs, "langs", "l", "", "comma-separated languages to search")
	f.BoolVar(&skipTests, "skip-tests", false, "leave out test code")
	return cmd
}

func declarationsCmd(g *globalFlags) *cobra.Command {
	var (
		typeLabel string
		listTypes bool
	)

	cmd := &cobra.Command{
		Use:   "declarations [path]",
		Short: "List schema declarations with their declaration types",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if listTypes {
				for _, t := range sd.AllDeclarationTypes() {
					_, _ = fmt.Fprintln(out, t)
				}
				return nil
			}

			var want sd.DeclarationType
			if typeLabel != "" {
				t, ok := declarationType(typeLabel)
				if !ok {
					return fmt.Errorf("unknown declaration type %q", typeLabel)
				}
				want = t
			}

			root, err := repoRoot(args)
			if err != nil {
				return err
			}
			e, err := g.setup(cmd, root)
			if err != nil {
				return err
			}
			files, err := e.discover(root, []string{sd.Language})
			if err != nil {
				return err
			}
			ix, err := e.load(cmd.Context(), root, files, 0)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"FILE", "LINE", "TYPE", "NAME"})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Name: "LINE", Align: text.AlignRight},
			})

			count := 0
			for _, f := range ix.ByLanguage(sd.Language) {
				if f.Tree == nil {
					continue
				}
				for _, d := range sd.Declarations(f.Tree) {
					if want.Valid() && d.Type != want {
						continue
					}
					n, _ := f.Tree.Node(d.Node)
					t.AppendRow(table.Row{f.Path, strconv.Itoa(n.Span.Start.Line), d.Type.String(), d.Name})
					count++
				}
			}
			t.AppendFooter(table.Row{"", "", "TOTAL", strconv.Itoa(count)})
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeLabel, "type", "t", "", `only this declaration type, e.g. "Rank Profile"`)
	cmd.Flags().BoolVar(&listTypes, "types", false, "list the declaration types and exit")
	return cmd
}

// declarationType matches a label case-insensitively, ignoring spaces and
// dashes so "rank-profile" finds "Rank Profile".
func declarationType(label string) (sd.DeclarationType, bool) {
	norm := func(s string) string {
		return strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s))
	}
	want := norm(label)
	for _, t := range sd.AllDeclarationTypes() {
		if norm(t.String()) == want {
			return t, true
		}
	}
	return 0, false
}
