package persistence

import (
	"strings"
)

// sortColumns whitelists the columns a listing may be ordered by. Column
// names reach SQL verbatim, so anything not listed falls back to the default.
type sortColumns struct {
	allowed  map[string]bool
	fallback string
}

func newSortColumns(fallback string, columns ...string) sortColumns {
	allowed := make(map[string]bool, len(columns)+1)
	allowed[fallback] = true
	for _, c := range columns {
		allowed[c] = true
	}
	return sortColumns{allowed: allowed, fallback: fallback}
}

// Column returns the requested column if it is whitelisted
func (s sortColumns) Column(requested string) string {
	requested = strings.TrimSpace(requested)
	if s.allowed[requested] {
		return requested
	}
	return s.fallback
}

// Clause builds an ORDER BY expression. The id tie-breaker keeps pages stable
// when many rows share the sort value.
func (s sortColumns) Clause(column, dir string) string {
	return s.Column(column) + " " + sortDirection(dir) + ", id ASC"
}

// sortDirection normalizes a direction to ASC or DESC, defaulting to DESC
func sortDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}
