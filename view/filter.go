package view

import (
	"strings"

	"golang.org/x/text/cases"
)

// Filter keeps the rows that contain query, ignoring case. An empty query
// keeps everything.
func Filter(rows []string, query string) []string {
	if query == "" {
		return rows
	}

	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(fold.String(row), needle) {
			out = append(out, row)
		}
	}
	return out
}

// FilterTables applies Filter to every table. Tables stay even when no row
// matches.
func FilterTables(tables []Table, query string) []Table {
	if query == "" {
		return tables
	}

	out := make([]Table, 0, len(tables))
	for _, t := range tables {
		out = append(out, Table{Key: t.Key, Rows: Filter(t.Rows, query)})
	}
	return out
}
