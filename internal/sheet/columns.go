package sheet

import (
	"strings"

	"github.com/joseph-ayodele/sheetload/internal/common"
)

// Column binds a record field, named by its json tag, to a header cell.
type Column struct {
	Field  string
	Header string
}

type Columns []Column

// FromAliases converts configured header aliases into Columns.
func FromAliases(aliases []common.ColumnAlias) Columns {
	cols := make(Columns, 0, len(aliases))
	for _, a := range aliases {
		cols = append(cols, Column{Field: a.Field, Header: a.Header})
	}
	return cols
}

// Headers returns the header cells in column order.
func (c Columns) Headers() []string {
	out := make([]string, len(c))
	for i, col := range c {
		out[i] = col.Header
	}
	return out
}

// byHeader maps a normalized header to its field.
func (c Columns) byHeader() map[string]string {
	m := make(map[string]string, len(c))
	for _, col := range c {
		m[normalizeHeader(col.Header)] = col.Field
	}
	return m
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
