package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	sentinelStart = "<!-- sdguide:start -->"
	sentinelEnd   = "<!-- sdguide:end -->"
)

// initCmd writes (or updates) an sdguide usage section in a CLAUDE.md file.
func initCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [path-to-CLAUDE.md]",
		Short: "Write an sdguide usage section to a CLAUDE.md file",
		Long: `Write an sdguide usage section to a CLAUDE.md file. The section is wrapped
in sentinel comments so later runs update it in place without touching the
surrounding content. The file is created if it does not exist.

path-to-CLAUDE.md defaults to ./CLAUDE.md.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section := generateSection()
			out := cmd.OutOrStdout()

			// --dry-run with no path: just print the section itself.
			if dryRun && len(args) == 0 {
				_, _ = fmt.Fprintln(out, section)
				return nil
			}

			path := "CLAUDE.md"
			if len(args) > 0 {
				path = args[0]
			}

			existing, err := os.ReadFile(path)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			updated := applySection(string(existing), section)

			if dryRun {
				_, _ = fmt.Fprint(out, updated)
				return nil
			}

			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote sdguide section to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// generateSection returns the sentinel-wrapped sdguide documentation block.
func generateSection() string {
	body := "## sdguide: Vespa schema map\n\n" +
		"Run `sdguide map` before changing schema (.sd) files. It lists every\n" +
		"declaration with its type and line, and which schemas depend on which.\n\n" +
		"**Availability:** check with `sdguide --version` first and skip if it is\n" +
		"not installed.\n\n" +
		"**Run it:**\n" +
		"```bash\n" +
		"sdguide map                                  # current directory\n" +
		"sdguide map -n 20                            # top 20 files only\n" +
		"sdguide map --symbol price                   # one declaration and its references\n" +
		"sdguide map --cache .sdguide-cache           # reuse output until files change\n" +
		"sdguide usages price                         # usages grouped by document-summary\n" +
		"sdguide usages price -g summary --skip-tests # summary groups only, no test code\n" +
		"sdguide declarations --type \"Rank Profile\"   # one declaration type\n" +
		"sdguide tester run system -t config.json     # run the system test suite\n" +
		"```\n\n" +
		"Add the cache file to `.gitignore`. All flags: `sdguide --help`.\n\n" +
		"**How to use the output:**\n\n" +
		"1. Read schema files in ranked order. The `files` table puts the most\n" +
		"   referenced schemas first.\n" +
		"2. Look names up in `declarations` instead of grepping for them.\n" +
		"3. Before renaming or removing a field, run `sdguide usages NAME` and check\n" +
		"   every document-summary and rank-profile group it reports."

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
