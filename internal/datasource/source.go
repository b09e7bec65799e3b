// Package datasource provides value sources for the grid: a generated data
// set and a read-only SQLite table.
package datasource

import (
	"github.com/zjrosen/vgrid/internal/grid"
)

// Source is a grid value source that knows its own shape.
type Source interface {
	grid.ValueSource

	// Len returns the number of rows.
	Len() int

	// Columns returns the default column layout, Field set to the data
	// column index.
	Columns(width int) []grid.Column

	Close() error
}

// IDs returns the column ids of cols in order.
func IDs(cols []grid.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.ID
	}
	return out
}
