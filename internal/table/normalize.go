package table

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Table is the normalized form published in the artifact. Every row maps a
// subset of Columns to plain text; RowCount always equals len(Rows).
type Table struct {
	Columns  []string            `json:"columns"`
	Rows     []map[string]string `json:"rows"`
	RowCount int                 `json:"row_count"`
}

// Empty is the degraded table section used when no candidate was accepted.
func Empty() Table {
	return Table{Columns: []string{}, Rows: []map[string]string{}}
}

// citationRe matches inline reference markers such as [1], [a] or [note 2].
var citationRe = regexp.MustCompile(`\[[^\[\]]{1,12}\]`)

var spaceRe = regexp.MustCompile(`\s+`)

// Clean strips citation markers, normalizes unicode to NFC, and collapses
// whitespace runs (including NBSP) to single spaces.
func Clean(s string) string {
	s = citationRe.ReplaceAllString(s, "")
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// isPlaceholder reports cells that carry no value, like a lone dash.
func isPlaceholder(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		switch r {
		case '-', '–', '—', '−':
		default:
			return false
		}
	}
	return true
}

// Normalize converts the winning candidate into the artifact's table form.
// Row order is preserved as published; the pipeline never re-sorts.
func Normalize(c Candidate) Table {
	columns := make([]string, 0, len(c.Headers))
	seen := map[string]int{}
	for _, h := range c.Headers {
		label := Clean(h)
		if label == "" {
			label = "column"
		}
		if n, dup := seen[label]; dup {
			seen[label] = n + 1
			label = fmt.Sprintf("%s_%d", label, n+1)
		}
		seen[label] = 1
		columns = append(columns, label)
	}

	rows := make([]map[string]string, 0, len(c.Rows))
	for _, raw := range c.Rows {
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			v := ""
			if i < len(raw) {
				v = Clean(raw[i])
			}
			if isPlaceholder(v) {
				v = ""
			}
			row[col] = v
		}
		rows = append(rows, row)
	}
	return Table{Columns: columns, Rows: rows, RowCount: len(rows)}
}
