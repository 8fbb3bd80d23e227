// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// schema maps and usage results.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/sdguide/internal/findusages"
	"github.com/phobologic/sdguide/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a RepoMap into TOON format.
func Encode(rm *model.RepoMap) string {
	parts := []string{
		"repo: " + encodeValue(rm.RepoName),
		"root: " + encodeValue(rm.Root),
	}

	var fileRows [][]string
	for i := range rm.Files {
		fi := &rm.Files[i]
		fileRows = append(fileRows, []string{
			fi.Path,
			fi.Language,
			fmt.Sprintf("%.4f", fi.Rank),
			strconv.Itoa(fi.Diagnostics),
		})
	}
	parts = append(parts, formatTabular("files", []string{"path", "language", "rank", "diagnostics"}, fileRows))

	var declRows [][]string
	for i := range rm.Files {
		fi := &rm.Files[i]
		for _, tag := range fi.Tags {
			if tag.Kind != model.Definition {
				continue
			}
			declRows = append(declRows, []string{
				fi.Path,
				tag.Name,
				tag.Type.String(),
				strconv.Itoa(tag.Line),
				tag.Enclosing,
			})
		}
	}
	parts = append(parts, formatTabular("declarations", []string{"file", "name", "type", "line", "in"}, declRows))

	var depRows [][]string
	for _, d := range rm.Dependencies {
		depRows = append(depRows, []string{d.Source, d.Target, strings.Join(d.Symbols, " ")})
	}
	parts = append(parts, formatTabular("dependencies", []string{"source", "target", "symbols"}, depRows))

	if len(rm.Sites) > 0 {
		var siteRows [][]string
		for _, s := range rm.Sites {
			siteRows = append(siteRows, []string{s.Name, s.Enclosing, s.File, strconv.Itoa(s.Line)})
		}
		parts = append(parts, formatTabular("references", []string{"name", "in", "file", "line"}, siteRows))
	}

	return strings.Join(parts, "\n")
}

// EncodeUsages renders clustered usages of targets. Ungrouped usages have an
// empty group column.
func EncodeUsages(targets []findusages.Target, buckets []findusages.Bucket) string {
	var targetRows [][]string
	for _, t := range targets {
		typ := ""
		if t.Type.Valid() {
			typ = t.Type.String()
		}
		targetRows = append(targetRows, []string{t.Name, typ})
	}

	var groupRows, usageRows [][]string
	for _, b := range buckets {
		group := ""
		if b.Group != nil {
			group = b.Group.Label()
			groupRows = append(groupRows, []string{
				group,
				b.Group.File,
				strconv.Itoa(b.Group.Line),
				strconv.Itoa(len(b.Usages)),
			})
		}
		for _, u := range b.Usages {
			loc := u.Location()
			usageRows = append(usageRows, []string{
				group,
				loc.File,
				strconv.Itoa(loc.Line),
				strconv.Itoa(loc.Column),
				loc.Language,
				loc.Text,
			})
		}
	}

	return strings.Join([]string{
		formatTabular("targets", []string{"name", "type"}, targetRows),
		formatTabular("groups", []string{"group", "file", "line", "usages"}, groupRows),
		formatTabular("usages", []string{"group", "file", "line", "column", "language", "text"}, usageRows),
	}, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	switch {
	case value == "":
		return `""`
	case value != strings.TrimSpace(value), strings.ContainsAny(value, "\n\r\t"):
		return quote(value)
	}
	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}
	if looksNumeric.MatchString(value) {
		return value
	}
	if needsQuoting.MatchString(value) || strings.HasPrefix(value, "-") {
		return quote(value)
	}
	return value
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quote(value string) string {
	return `"` + quoteReplacer.Replace(value) + `"`
}
