// Package viewport computes the window of rows and columns that must be
// rendered for a scroll position, viewport size and overscan margin.
package viewport

import (
	"fmt"

	"github.com/zjrosen/vgrid/internal/dimension"
)

// Scroll is the pixel scroll position of the viewport.
type Scroll struct {
	Top  int
	Left int
}

// Size is the viewport extent in pixels (terminal cells for the TUI).
type Size struct {
	Width  int
	Height int
}

// Overscan is the number of extra rows/columns rendered beyond the strictly
// visible window on each side.
type Overscan struct {
	Rows int
	Cols int
}

// Range is a half-open window of rows [StartRow, EndRow) and columns
// [StartCol, EndCol).
type Range struct {
	StartRow int
	EndRow   int
	StartCol int
	EndCol   int
}

// Compute returns the visible range for the given scroll position.
// It is a pure function of its arguments: the range is recomputed from
// scratch for every event and never patched incrementally.
func Compute(rows, cols dimension.Provider, scroll Scroll, size Size, overscan Overscan) Range {
	startRow, endRow := axis(rows, scroll.Top, size.Height, overscan.Rows)
	startCol, endCol := axis(cols, scroll.Left, size.Width, overscan.Cols)
	return Range{
		StartRow: startRow,
		EndRow:   endRow,
		StartCol: startCol,
		EndCol:   endCol,
	}
}

// axis resolves one dimension. Invariant: 0 <= start <= end <= count.
func axis(p dimension.Provider, scroll, extent, overscan int) (start, end int) {
	count := p.Count()
	if count == 0 {
		return 0, 0
	}
	scroll = max(scroll, 0)
	overscan = max(overscan, 0)

	// Scroll past the end clamps to the last page the provider can show.
	if total := p.Total(); total > 0 && scroll >= total {
		scroll = max(total-max(extent, 1), 0)
	}

	first := min(p.IndexAtOffset(scroll), count-1)
	start = max(first-overscan, 0)
	if extent <= 0 {
		return start, start
	}

	last := min(p.IndexAtOffset(scroll+extent-1), count-1)
	end = min(last+overscan+1, count)
	return min(start, end), end
}

// Empty reports whether the range covers no cells.
func (r Range) Empty() bool {
	return r.StartRow >= r.EndRow || r.StartCol >= r.EndCol
}

// Rows returns the number of rows in the range.
func (r Range) Rows() int { return max(r.EndRow-r.StartRow, 0) }

// Cols returns the number of columns in the range.
func (r Range) Cols() int { return max(r.EndCol-r.StartCol, 0) }

// Cells returns the number of cells in the range.
func (r Range) Cells() int { return r.Rows() * r.Cols() }

// Contains reports whether (row, col) falls inside the range.
func (r Range) Contains(row, col int) bool {
	return row >= r.StartRow && row < r.EndRow && col >= r.StartCol && col < r.EndCol
}

// Equal reports whether two ranges cover the same window.
func (r Range) Equal(o Range) bool { return r == o }

// Each visits every cell of the range in row-major order.
func (r Range) Each(fn func(row, col int)) {
	for row := r.StartRow; row < r.EndRow; row++ {
		for col := r.StartCol; col < r.EndCol; col++ {
			fn(row, col)
		}
	}
}

func (r Range) String() string {
	return fmt.Sprintf("rows[%d,%d) cols[%d,%d)", r.StartRow, r.EndRow, r.StartCol, r.EndCol)
}
