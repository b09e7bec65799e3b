package datasource

import (
	"fmt"
	"strings"

	"github.com/zjrosen/vgrid/internal/grid"
	"github.com/zjrosen/vgrid/internal/render"
)

var (
	statuses = []string{"open", "in progress", "blocked", "closed"}
	words    = []string{
		"amber", "basalt", "cedar", "delta", "ember", "fjord", "granite", "harbor",
		"indigo", "juniper", "kestrel", "lumen", "meadow", "nimbus", "obsidian", "prairie",
	}
)

// syntheticColumns describes the leading generated columns. Columns past
// these are plain text.
var syntheticColumns = []struct {
	id         string
	renderer   string
	autoHeight bool
}{
	{id: "id", renderer: "number"},
	{id: "title"},
	{id: "status", renderer: "badge"},
	{id: "score", renderer: "number"},
	{id: "notes", renderer: "markdown", autoHeight: true},
}

// Synthetic is a deterministic generated data set. Every value is a pure
// function of its row and column.
type Synthetic struct {
	rows int
	cols int
}

// NewSynthetic creates a data set of rows by cols values.
func NewSynthetic(rows, cols int) *Synthetic {
	return &Synthetic{rows: max(rows, 0), cols: max(cols, 1)}
}

func (s *Synthetic) Len() int { return s.rows }

func (s *Synthetic) Columns(width int) []grid.Column {
	out := make([]grid.Column, s.cols)
	for i := range out {
		col := grid.Column{ID: fmt.Sprintf("col_%d", i), Width: width, Field: i}
		if i < len(syntheticColumns) {
			sc := syntheticColumns[i]
			col.ID = sc.id
			col.AutoHeight = sc.autoHeight
			if sc.renderer != "" {
				col.Renderer = render.Named(sc.renderer)
			}
		}
		col.Title = strings.ToUpper(col.ID[:1]) + col.ID[1:]
		out[i] = col
	}
	return out
}

// Value returns the generated value, or nil outside the data set.
func (s *Synthetic) Value(row, col int) any {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return nil
	}
	switch col {
	case 0:
		return row + 1
	case 1:
		return words[row%len(words)] + " " + words[(row/len(words)+col)%len(words)]
	case 2:
		return statuses[(row*7)%len(statuses)]
	case 3:
		return float64((row*37)%1000) / 10
	case 4:
		return notes(row)
	default:
		return fmt.Sprintf("r%dc%d", row, col)
	}
}

func (s *Synthetic) Close() error { return nil }

// notes returns multi-line markdown on every third row.
func notes(row int) string {
	if row%3 != 0 {
		return words[row%len(words)]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Row %d**\n", row+1)
	for i := 0; i < 1+row%4; i++ {
		fmt.Fprintf(&b, "- %s\n", words[(row+i)%len(words)])
	}
	return b.String()
}
