// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/kconfigmap/internal/model"
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
	var parts []string

	parts = append(parts, fmt.Sprintf("tree: %s", encodeValue(rm.Name)))
	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(rm.Root)))

	var fileRows [][]string
	for i := range rm.Files {
		fi := &rm.Files[i]
		fileRows = append(fileRows, []string{
			fi.Path,
			fmt.Sprintf("%.4f", fi.Rank),
			strconv.Itoa(fi.Errors),
		})
	}
	parts = append(parts, formatTabular("files", []string{"path", "rank", "errors"}, fileRows))

	var symbolRows [][]string
	for i := range rm.Files {
		fi := &rm.Files[i]
		for j := range fi.Tags {
			tag := &fi.Tags[j]
			if tag.Kind != model.Definition {
				continue
			}
			symbolRows = append(symbolRows, []string{
				fi.Path,
				tag.Name,
				string(tag.Entry),
				string(tag.Type),
				strconv.Itoa(tag.Line),
				tag.Prompt,
			})
		}
	}
	parts = append(parts, formatTabular("symbols", []string{"file", "name", "entry", "type", "line", "prompt"}, symbolRows))

	var edgeRows [][]string
	for i := range rm.Edges {
		e := &rm.Edges[i]
		edgeRows = append(edgeRows, []string{
			e.Source,
			e.Target,
			edgeKind(e),
			strings.Join(e.Symbols, " "),
		})
	}
	parts = append(parts, formatTabular("edges", []string{"source", "target", "kind", "symbols"}, edgeRows))

	if len(rm.Diagnostics) > 0 {
		var diagRows [][]string
		for i := range rm.Diagnostics {
			d := &rm.Diagnostics[i]
			diagRows = append(diagRows, []string{
				d.Path,
				strconv.Itoa(d.Range.Start.Line + 1),
				d.Severity.String(),
				d.Message,
			})
		}
		parts = append(parts, formatTabular("diagnostics", []string{"file", "line", "severity", "message"}, diagRows))
	}

	return strings.Join(parts, "\n")
}

func edgeKind(e *model.Edge) string {
	switch {
	case e.Include && len(e.Symbols) > 0:
		return "both"
	case e.Include:
		return "include"
	default:
		return "symbol"
	}
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
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
